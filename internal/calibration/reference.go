package calibration

import "alignme-measure/pkg/geometry"

// DefaultScalarLengthCm is the real length the frontal protocol's scalar reference stands for.
const DefaultScalarLengthCm = 100

// ReferenceInput is anything that can be turned into a PixelScale.
type ReferenceInput interface {
	Scale() (PixelScale, error)
}

// ScalarReference states that Pixels pixels correspond to LengthCm centimeters
// ("N pixels = 100 cm"). A zero LengthCm means DefaultScalarLengthCm.
type ScalarReference struct {
	Pixels   float64 `json:"pixels"`
	LengthCm float64 `json:"length_cm,omitempty"`
}

// Scale implements ReferenceInput.
func (r ScalarReference) Scale() (PixelScale, error) {
	length := r.LengthCm
	if length == 0 {
		length = DefaultScalarLengthCm
	}
	return fromPixels(r.Pixels, length)
}

// SegmentReference is a pair of image points whose real distance is Length in Unit.
type SegmentReference struct {
	A      geometry.Point2D `json:"a"`
	B      geometry.Point2D `json:"b"`
	Length float64          `json:"length"`
	Unit   Unit             `json:"unit"`
}

// Scale implements ReferenceInput.
func (r SegmentReference) Scale() (PixelScale, error) {
	return Calibrate(r.A, r.B, r.Unit.ToCentimeters(r.Length))
}
