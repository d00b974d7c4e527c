package analyzer

import "alignme-measure/pkg/geometry"

// DetectedMarker is one accepted marker. The shape measurements are kept only so
// callers and tests can see why a blob was accepted; downstream stages use Center.
type DetectedMarker struct {
	Center      geometry.Point2D `json:"center"`
	Area        float64          `json:"area"`
	Perimeter   float64          `json:"perimeter"`
	Radius      float64          `json:"radius"`
	Circularity float64          `json:"circularity"`
	Brightness  float64          `json:"brightness"`
}

// Centers extracts the marker centers, preserving order.
func Centers(markers []DetectedMarker) []geometry.Point2D {
	out := make([]geometry.Point2D, len(markers))
	for i, m := range markers {
		out[i] = m.Center
	}
	return out
}
