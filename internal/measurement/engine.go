// Package measurement computes distances and joint angles from a resolved
// landmark set. Everything here is a pure function of its inputs.
package measurement

import (
	"alignme-measure/internal/calibration"
	"alignme-measure/internal/landmark"
	"alignme-measure/internal/topology"
	"alignme-measure/pkg/geometry"
	"alignme-measure/pkg/models"
)

// Measure evaluates every segment and angle of topo in declaration order.
// Entries that reference an absent or out-of-range landmark are omitted.
func Measure(set landmark.LandmarkSet, topo *topology.LandmarkTopology, scale calibration.PixelScale) models.Measurements {
	out := models.Measurements{
		Distances: make([]models.DistanceMeasurement, 0, len(topo.Segments)),
	}

	for _, seg := range topo.Segments {
		a, okA := set.At(seg.A)
		b, okB := set.At(seg.B)
		if !okA || !okB {
			continue
		}
		out.Distances = append(out.Distances, models.DistanceMeasurement{
			LandmarkA:   topo.Name(seg.A),
			LandmarkB:   topo.Name(seg.B),
			IndexA:      seg.A,
			IndexB:      seg.B,
			DistanceCm:  geometry.Round2(geometry.Distance(a, b) * scale.CmPerPixel()),
			Description: seg.Label(),
		})
	}

	for _, tr := range topo.Angles {
		a, okA := set.At(tr.A)
		v, okV := set.At(tr.Vertex)
		c, okC := set.At(tr.C)
		if !okA || !okV || !okC {
			continue
		}
		deg, ok := geometry.AngleAt(a, v, c)
		if !ok {
			// coincident markers leave the angle undefined
			continue
		}
		out.Angles = append(out.Angles, models.AngleMeasurement{
			Name:           tr.Name,
			VertexLandmark: topo.Name(tr.Vertex),
			Degrees:        geometry.Round2(deg),
		})
	}

	return out
}
