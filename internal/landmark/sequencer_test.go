package landmark

import (
	"reflect"
	"testing"

	"alignme-measure/internal/topology"
	"alignme-measure/pkg/geometry"
)

func testTopology(n int) *topology.LandmarkTopology {
	names := make([]string, n)
	for i := range names {
		names[i] = string(rune('A' + i))
	}
	return &topology.LandmarkTopology{
		Protocol: topology.Frontal,
		Version:  "test",
		Names:    names,
		Segments: []topology.Segment{{A: 0, B: 1}},
	}
}

func points(set LandmarkSet) []geometry.Point2D {
	var out []geometry.Point2D
	for _, l := range set {
		if l.Present {
			out = append(out, l.Point)
		}
	}
	return out
}

func TestBandSequencer_PairsOrderedByX(t *testing.T) {
	s := NewBandSequencer(50)
	// Within band 2 the right-hand marker is slightly higher, so (y, x) order puts it first.
	markers := []geometry.Point2D{
		geometry.Pt(300, 101),
		geometry.Pt(100, 110),
		geometry.Pt(200, 260),
	}

	set := s.Sequence(markers, testTopology(3))

	want := []geometry.Point2D{
		geometry.Pt(100, 110),
		geometry.Pt(300, 101),
		geometry.Pt(200, 260),
	}
	if got := points(set); !reflect.DeepEqual(got, want) {
		t.Errorf("Sequence = %v, want %v", got, want)
	}
	if set[0].Name != "A" || set[2].Name != "C" {
		t.Errorf("unexpected names %q %q", set[0].Name, set[2].Name)
	}
}

func TestBandSequencer_AmbiguousBandsKeepOrder(t *testing.T) {
	s := NewBandSequencer(50)
	markers := []geometry.Point2D{
		geometry.Pt(300, 100),
		geometry.Pt(100, 105),
		geometry.Pt(200, 110),
	}

	set := s.Sequence(markers, testTopology(3))

	if got := points(set); !reflect.DeepEqual(got, markers) {
		t.Errorf("three-marker band must keep input order: got %v", got)
	}
}

func TestBandSequencer_PadsAbsent(t *testing.T) {
	s := NewBandSequencer(0)
	if s.BandHeight != DefaultBandHeight {
		t.Fatalf("BandHeight = %d, want default", s.BandHeight)
	}

	markers := []geometry.Point2D{geometry.Pt(10, 10), geometry.Pt(20, 200)}
	set := s.Sequence(markers, testTopology(5))

	if len(set) != 5 {
		t.Fatalf("len = %d, want 5", len(set))
	}
	if set.PresentCount() != 2 {
		t.Errorf("PresentCount = %d, want 2", set.PresentCount())
	}
	for i := 2; i < 5; i++ {
		if set[i].Present {
			t.Errorf("landmark %d should be absent", i)
		}
		if _, ok := set.At(i); ok {
			t.Errorf("At(%d) should report absent", i)
		}
	}
}

func TestBandSequencer_Truncates(t *testing.T) {
	s := NewBandSequencer(50)
	markers := []geometry.Point2D{
		geometry.Pt(0, 0), geometry.Pt(0, 60), geometry.Pt(0, 120), geometry.Pt(0, 180),
	}
	set := s.Sequence(markers, testTopology(2))
	if len(set) != 2 {
		t.Fatalf("len = %d, want 2", len(set))
	}
	if set[1].Point != geometry.Pt(0, 60) {
		t.Errorf("set[1] = %v", set[1].Point)
	}
}

func TestBandSequencer_Idempotent(t *testing.T) {
	s := NewBandSequencer(50)
	markers := []geometry.Point2D{
		geometry.Pt(320, 98), geometry.Pt(110, 99),
		geometry.Pt(150, 240), geometry.Pt(350, 245),
		geometry.Pt(250, 400),
	}
	input := append([]geometry.Point2D(nil), markers...)
	topo := testTopology(6)

	first := s.Sequence(markers, topo)
	second := s.Sequence(markers, topo)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Sequence is not idempotent:\n%v\n%v", first, second)
	}
	if !reflect.DeepEqual(markers, input) {
		t.Error("Sequence modified its input")
	}
}

func TestBandSequencer_Empty(t *testing.T) {
	set := NewBandSequencer(50).Sequence(nil, testTopology(3))
	if len(set) != 3 || set.PresentCount() != 0 {
		t.Errorf("expected 3 absent landmarks, got %+v", set)
	}
}

func TestLandmarkSet_AtOutOfRange(t *testing.T) {
	var set LandmarkSet
	if _, ok := set.At(0); ok {
		t.Error("At on empty set should report absent")
	}
	if _, ok := set.At(-1); ok {
		t.Error("At(-1) should report absent")
	}
}
