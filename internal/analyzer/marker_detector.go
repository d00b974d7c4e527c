package analyzer

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"sort"
	"sync"

	"alignme-measure/pkg/geometry"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

type markerDetector struct {
	options  DetectionOptions
	grayPool sync.Pool
}

// NewMarkerDetector creates a detector with the given options
func NewMarkerDetector(options DetectionOptions) MarkerDetector {
	return &markerDetector{
		options: options,
		grayPool: sync.Pool{
			New: func() interface{} {
				return &image.Gray{}
			},
		},
	}
}

// Detect thresholds bright blobs, keeps the round ones and returns their centers
// in image coordinates, sorted top to bottom then left to right.
func (d *markerDetector) Detect(img image.Image) ([]DetectedMarker, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return []DetectedMarker{}, nil
	}

	gray := d.grayPool.Get().(*image.Gray)
	defer d.grayPool.Put(gray)
	toGray(gray, img)

	src, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, fmt.Errorf("convert to mat: %w", err)
	}
	defer src.Close()

	mask := d.binaryMask(src)
	defer mask.Close()

	if d.options.MaskHook != nil {
		d.options.MaskHook(maskToGray(mask))
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	markers := make([]DetectedMarker, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		m, ok := d.measure(contours.At(i), gray)
		if !ok {
			continue
		}
		m.Center = m.Center.Add(bounds.Min)
		markers = append(markers, m)
	}

	sort.SliceStable(markers, func(i, j int) bool {
		a, b := markers[i].Center, markers[j].Center
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return markers, nil
}

// binaryMask runs blur, threshold and the configured opening and closing
func (d *markerDetector) binaryMask(src gocv.Mat) gocv.Mat {
	opts := d.options

	smoothed := gocv.NewMat()
	defer smoothed.Close()
	if opts.BlurKernel > 1 {
		gocv.GaussianBlur(src, &smoothed, image.Pt(opts.BlurKernel, opts.BlurKernel), 0, 0, gocv.BorderDefault)
	} else {
		src.CopyTo(&smoothed)
	}

	mask := gocv.NewMat()
	gocv.Threshold(smoothed, &mask, float32(opts.Threshold), 255, gocv.ThresholdBinary)

	if opts.MorphKernel <= 0 || (opts.OpenIterations == 0 && opts.CloseIterations == 0) {
		return mask
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(opts.MorphKernel, opts.MorphKernel))
	defer kernel.Close()

	// open
	for i := 0; i < opts.OpenIterations; i++ {
		gocv.Erode(mask, &mask, kernel)
	}
	for i := 0; i < opts.OpenIterations; i++ {
		gocv.Dilate(mask, &mask, kernel)
	}
	// close
	for i := 0; i < opts.CloseIterations; i++ {
		gocv.Dilate(mask, &mask, kernel)
	}
	for i := 0; i < opts.CloseIterations; i++ {
		gocv.Erode(mask, &mask, kernel)
	}
	return mask
}

// measure computes the shape descriptors of one contour and applies the filter.
// Brightness is only sampled for contours that already pass the shape checks.
func (d *markerDetector) measure(contour gocv.PointVector, gray *image.Gray) (DetectedMarker, bool) {
	area := gocv.ContourArea(contour)
	perimeter := gocv.ArcLength(contour, true)
	cx, cy, radius := gocv.MinEnclosingCircle(contour)

	m := DetectedMarker{
		Area:      area,
		Perimeter: perimeter,
		Radius:    float64(radius),
	}
	if perimeter > 0 {
		m.Circularity = 4 * math.Pi * area / (perimeter * perimeter)
	}
	if !d.options.acceptsShape(m) {
		return m, false
	}

	if !d.options.SkipBrightnessCheck {
		m.Brightness = meanInCircle(gray, float64(cx), float64(cy), float64(radius))
		if !d.options.acceptsBrightness(m) {
			return m, false
		}
	}

	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	m.Center = geometry.Pt(
		clamp(int(math.Round(float64(cx))), 0, w-1),
		clamp(int(math.Round(float64(cy))), 0, h-1),
	)
	return m, true
}

// toGray converts img into dst, reusing dst's buffer. dst is anchored at the origin.
func toGray(dst *image.Gray, img image.Image) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if cap(dst.Pix) < w*h {
		dst.Pix = make([]uint8, w*h)
	}
	dst.Pix = dst.Pix[:w*h]
	dst.Stride = w
	dst.Rect = image.Rect(0, 0, w, h)
	draw.Draw(dst, dst.Rect, img, bounds.Min, draw.Src)
}

func maskToGray(mask gocv.Mat) *image.Gray {
	w, h := mask.Cols(), mask.Rows()
	return &image.Gray{
		Pix:    mask.ToBytes(),
		Stride: w,
		Rect:   image.Rect(0, 0, w, h),
	}
}

func meanInCircle(gray *image.Gray, cx, cy, r float64) float64 {
	b := gray.Rect
	x0 := clamp(int(math.Floor(cx-r)), b.Min.X, b.Max.X-1)
	x1 := clamp(int(math.Ceil(cx+r)), b.Min.X, b.Max.X-1)
	y0 := clamp(int(math.Floor(cy-r)), b.Min.Y, b.Max.Y-1)
	y1 := clamp(int(math.Ceil(cy+r)), b.Min.Y, b.Max.Y-1)

	r2 := r * r
	values := make([]float64, 0, (x1-x0+1)*(y1-y0+1))
	for y := y0; y <= y1; y++ {
		dy := float64(y) - cy
		for x := x0; x <= x1; x++ {
			dx := float64(x) - cx
			if dx*dx+dy*dy <= r2 {
				values = append(values, float64(gray.Pix[y*gray.Stride+x]))
			}
		}
	}
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
