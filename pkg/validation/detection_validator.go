package validation

import "fmt"

// Issue types reported alongside a measurement
const (
	IssuePartialDetection = "partial_detection"
	IssueExtraMarkers     = "extra_markers"
	IssueNoMarkers        = "no_markers"
	IssueLowResolution    = "low_resolution"
	IssueOverexposed      = "overexposed"
	IssueBlurry           = "blurry"
)

// DetectionThresholds defines the image size below which markers are unlikely to resolve
type DetectionThresholds struct {
	MinWidth  int
	MinHeight int

	MaxBrightness float64 // mean gray level above which markers wash out
	MinSharpness  float64 // Laplacian variance below which edges are smeared
}

// DefaultDetectionThresholds returns the default thresholds
func DefaultDetectionThresholds() DetectionThresholds {
	return DetectionThresholds{
		MinWidth:      320,
		MinHeight:     320,
		MaxBrightness: 220,
		MinSharpness:  5,
	}
}

// DetectionValidator compares a detection against what the topology expects.
// Every issue it reports is advisory; a measurement is still returned.
type DetectionValidator struct {
	thresholds DetectionThresholds
}

// NewDetectionValidator creates a validator with default thresholds
func NewDetectionValidator() *DetectionValidator {
	return &DetectionValidator{thresholds: DefaultDetectionThresholds()}
}

// NewDetectionValidatorWithThresholds creates a validator with custom thresholds
func NewDetectionValidatorWithThresholds(thresholds DetectionThresholds) *DetectionValidator {
	return &DetectionValidator{thresholds: thresholds}
}

// DetectionIssue represents one advisory finding
type DetectionIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"` // "warning", "info"
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// Validate reports a marker count that differs from the expected landmark count
func (dv *DetectionValidator) Validate(expected, detected int) []DetectionIssue {
	var issues []DetectionIssue

	switch {
	case detected == 0:
		issues = append(issues, DetectionIssue{
			Type:        IssueNoMarkers,
			Message:     "No markers were found. Check lighting and that markers face the camera.",
			Severity:    "warning",
			ActualValue: 0,
			Threshold:   float64(expected),
		})
	case detected < expected:
		issues = append(issues, DetectionIssue{
			Type:        IssuePartialDetection,
			Message:     fmt.Sprintf("Only %d of %d markers were found; measurements involving missing landmarks were skipped.", detected, expected),
			Severity:    "warning",
			ActualValue: float64(detected),
			Threshold:   float64(expected),
		})
	case detected > expected:
		issues = append(issues, DetectionIssue{
			Type:        IssueExtraMarkers,
			Message:     fmt.Sprintf("Found %d markers but only %d are expected; extra markers were ignored.", detected, expected),
			Severity:    "warning",
			ActualValue: float64(detected),
			Threshold:   float64(expected),
		})
	}

	return issues
}

// ValidateImage flags photographs too small for reliable marker detection
func (dv *DetectionValidator) ValidateImage(width, height int) []DetectionIssue {
	if width >= dv.thresholds.MinWidth && height >= dv.thresholds.MinHeight {
		return nil
	}
	return []DetectionIssue{{
		Type:        IssueLowResolution,
		Message:     "Image is very small. Markers may not be detected reliably.",
		Severity:    "info",
		ActualValue: float64(width * height),
		Threshold:   float64(dv.thresholds.MinWidth * dv.thresholds.MinHeight),
	}}
}

// ValidatePhoto flags washed-out or out-of-focus photographs. A sharpness of
// zero means a featureless image and is left to the marker count checks.
func (dv *DetectionValidator) ValidatePhoto(brightness, sharpness float64) []DetectionIssue {
	var issues []DetectionIssue
	if brightness > dv.thresholds.MaxBrightness {
		issues = append(issues, DetectionIssue{
			Type:        IssueOverexposed,
			Message:     "Image is very bright. Markers may blend into the background.",
			Severity:    "info",
			ActualValue: brightness,
			Threshold:   dv.thresholds.MaxBrightness,
		})
	}
	if sharpness > 0 && sharpness < dv.thresholds.MinSharpness {
		issues = append(issues, DetectionIssue{
			Type:        IssueBlurry,
			Message:     "Image appears out of focus. Marker centers may be imprecise.",
			Severity:    "info",
			ActualValue: sharpness,
			Threshold:   dv.thresholds.MinSharpness,
		})
	}
	return issues
}

// ConvertIssuesToMessages flattens issues into their messages
func (dv *DetectionValidator) ConvertIssuesToMessages(issues []DetectionIssue) []string {
	messages := make([]string, 0, len(issues))
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// HasIssue reports whether issues contains one of the given type
func HasIssue(issues []DetectionIssue, issueType string) bool {
	for _, issue := range issues {
		if issue.Type == issueType {
			return true
		}
	}
	return false
}
