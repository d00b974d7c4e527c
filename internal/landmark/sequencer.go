// Package landmark resolves unordered marker positions into the ordered landmark
// sequence a topology expects.
package landmark

import (
	"sort"

	"alignme-measure/internal/topology"
	"alignme-measure/pkg/geometry"
)

// DefaultBandHeight is the vertical extent, in pixels, of one body-height band.
const DefaultBandHeight = 50

// Landmark is one position of a LandmarkSet. Present is false when no marker was
// assigned to the index.
type Landmark struct {
	Index   int              `json:"index"`
	Name    string           `json:"name"`
	Point   geometry.Point2D `json:"point"`
	Present bool             `json:"present"`
}

// LandmarkSet is aligned positionally with a topology's landmark list.
type LandmarkSet []Landmark

// At returns the point at index i when it is present.
func (s LandmarkSet) At(i int) (geometry.Point2D, bool) {
	if i < 0 || i >= len(s) || !s[i].Present {
		return geometry.Point2D{}, false
	}
	return s[i].Point, true
}

// PresentCount returns how many landmarks were resolved.
func (s LandmarkSet) PresentCount() int {
	n := 0
	for _, l := range s {
		if l.Present {
			n++
		}
	}
	return n
}

// Sequencer assigns detected markers to landmark indices.
type Sequencer interface {
	Sequence(markers []geometry.Point2D, topo *topology.LandmarkTopology) LandmarkSet
}

// BandSequencer groups markers into horizontal bands and treats a band holding
// exactly two markers as a left/right pair ordered by x. Bands with one or more
// than two markers keep their input order. It assumes an upright subject facing
// the camera and breaks under rotation or when paired markers sit in different bands.
type BandSequencer struct {
	BandHeight int
}

// NewBandSequencer returns a sequencer using bandHeight, or DefaultBandHeight when bandHeight <= 0.
func NewBandSequencer(bandHeight int) *BandSequencer {
	if bandHeight <= 0 {
		bandHeight = DefaultBandHeight
	}
	return &BandSequencer{BandHeight: bandHeight}
}

// Sequence expects markers already sorted by (y, x) and returns exactly topo.Size() landmarks.
func (s *BandSequencer) Sequence(markers []geometry.Point2D, topo *topology.LandmarkTopology) LandmarkSet {
	height := s.BandHeight
	if height <= 0 {
		height = DefaultBandHeight
	}

	bands := make(map[int][]geometry.Point2D)
	for _, m := range markers {
		b := floorDiv(m.Y, height)
		bands[b] = append(bands[b], m)
	}

	keys := make([]int, 0, len(bands))
	for b := range bands {
		keys = append(keys, b)
	}
	sort.Ints(keys)

	ordered := make([]geometry.Point2D, 0, len(markers))
	for _, b := range keys {
		group := bands[b]
		if len(group) == 2 && group[1].X < group[0].X {
			group[0], group[1] = group[1], group[0]
		}
		ordered = append(ordered, group...)
	}

	n := topo.Size()
	set := make(LandmarkSet, n)
	for i := range set {
		set[i] = Landmark{Index: i, Name: topo.Name(i)}
		if i < len(ordered) {
			set[i].Point = ordered[i]
			set[i].Present = true
		}
	}
	return set
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}
