package analyzer

import "image"

// MarkerDetector finds the white circular markers in an image
type MarkerDetector interface {
	// Detect returns marker centers sorted by (y, x). An empty result is not an error.
	Detect(img image.Image) ([]DetectedMarker, error)
}
