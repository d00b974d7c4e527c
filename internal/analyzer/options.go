package analyzer

import "image"

// MaskHook receives the binary marker mask after morphology. It is diagnostic
// only and must not retain the image after returning.
type MaskHook func(mask *image.Gray)

// DetectionOptions provides flexible configuration for marker detection
type DetectionOptions struct {
	// Preprocessing
	BlurKernel      int     // Gaussian kernel size, 0 disables smoothing
	Threshold       float64 // binary threshold on 0-255 intensity
	MorphKernel     int     // square structuring element size
	OpenIterations  int
	CloseIterations int

	// Shape filter; area bounds are (MinArea, MaxArea], the others exclusive
	MinArea        float64
	MaxArea        float64
	MinCircularity float64
	MaxCircularity float64
	MinRadius      float64
	MaxRadius      float64 // 0 means unbounded

	// Mean intensity inside the enclosing circle must exceed this
	MinBrightness float64

	// Feature toggles
	SkipShapeFilter     bool
	SkipBrightnessCheck bool

	MaskHook MaskHook
}

// DefaultOptions returns the strict detection settings
func DefaultOptions() DetectionOptions {
	return DetectionOptions{
		BlurKernel:      7,
		Threshold:       200,
		MorphKernel:     3,
		OpenIterations:  2,
		CloseIterations: 1,
		MinArea:         20,
		MaxArea:         1500,
		MinCircularity:  0.7,
		MaxCircularity:  1.3,
		MinRadius:       5,
		MaxRadius:       30,
		MinBrightness:   180,
	}
}

// LegacyOptions reproduces the first detector: a plain threshold, one 5x5
// opening and a minimum radius, without shape or brightness checks
func LegacyOptions() DetectionOptions {
	return DetectionOptions{
		Threshold:           220,
		MorphKernel:         5,
		OpenIterations:      1,
		MinRadius:           4,
		SkipShapeFilter:     true,
		SkipBrightnessCheck: true,
	}
}

// WithThreshold returns options using a different binary threshold
func (opts DetectionOptions) WithThreshold(threshold float64) DetectionOptions {
	opts.Threshold = threshold
	return opts
}

// WithMaskHook returns options that hand the binary mask to hook
func (opts DetectionOptions) WithMaskHook(hook MaskHook) DetectionOptions {
	opts.MaskHook = hook
	return opts
}

// WithoutShapeFilter disables the area and circularity checks
func (opts DetectionOptions) WithoutShapeFilter() DetectionOptions {
	opts.SkipShapeFilter = true
	return opts
}

// Accept reports whether a measured blob qualifies as a marker
func (opts DetectionOptions) Accept(m DetectedMarker) bool {
	return opts.acceptsShape(m) && opts.acceptsBrightness(m)
}

func (opts DetectionOptions) acceptsShape(m DetectedMarker) bool {
	if m.Radius <= opts.MinRadius {
		return false
	}
	if opts.MaxRadius > 0 && m.Radius >= opts.MaxRadius {
		return false
	}
	if opts.SkipShapeFilter {
		return true
	}
	if m.Area <= opts.MinArea || m.Area > opts.MaxArea {
		return false
	}
	return m.Circularity > opts.MinCircularity && m.Circularity < opts.MaxCircularity
}

func (opts DetectionOptions) acceptsBrightness(m DetectedMarker) bool {
	return opts.SkipBrightnessCheck || m.Brightness > opts.MinBrightness
}
