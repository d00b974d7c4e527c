package analyzer

import (
	"image"
	"image/color"
	"testing"

	"alignme-measure/pkg/geometry"
)

func newCanvas(w, h int) *image.Gray {
	return image.NewGray(image.Rect(0, 0, w, h))
}

func drawDisk(img *image.Gray, cx, cy, r int) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r && image.Pt(x, y).In(img.Rect) {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
}

func near(a, b geometry.Point2D, tol int) bool {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx >= -tol && dx <= tol && dy >= -tol && dy <= tol
}

func TestDetect_FourDisks(t *testing.T) {
	img := newCanvas(500, 500)
	// drawn out of order on purpose
	drawDisk(img, 350, 300, 12)
	drawDisk(img, 100, 100, 12)
	drawDisk(img, 150, 300, 12)
	drawDisk(img, 300, 100, 12)

	markers, err := NewMarkerDetector(DefaultOptions()).Detect(img)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(markers) != 4 {
		t.Fatalf("Expected 4 markers, got %d: %+v", len(markers), markers)
	}

	want := []geometry.Point2D{
		geometry.Pt(100, 100),
		geometry.Pt(300, 100),
		geometry.Pt(150, 300),
		geometry.Pt(350, 300),
	}
	for i, m := range markers {
		if !near(m.Center, want[i], 1) {
			t.Errorf("marker %d at %+v, want about %+v", i, m.Center, want[i])
		}
		if m.Brightness <= 180 {
			t.Errorf("marker %d brightness %.1f", i, m.Brightness)
		}
		if m.Circularity <= 0.7 || m.Circularity >= 1.3 {
			t.Errorf("marker %d circularity %.3f", i, m.Circularity)
		}
	}
}

func TestDetect_Empty(t *testing.T) {
	markers, err := NewMarkerDetector(DefaultOptions()).Detect(newCanvas(200, 200))
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if markers == nil || len(markers) != 0 {
		t.Errorf("Expected empty non-nil result, got %#v", markers)
	}
}

func TestDetect_NilImage(t *testing.T) {
	if _, err := NewMarkerDetector(DefaultOptions()).Detect(nil); err == nil {
		t.Error("Expected error for nil image")
	}
}

func TestDetect_RejectsNoiseAndBars(t *testing.T) {
	img := newCanvas(300, 300)
	drawDisk(img, 50, 50, 2) // speck, removed by opening or radius filter
	for y := 150; y < 158; y++ {
		for x := 40; x < 260; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	drawDisk(img, 200, 240, 10)

	markers, err := NewMarkerDetector(DefaultOptions()).Detect(img)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(markers) != 1 {
		t.Fatalf("Expected only the disk, got %+v", markers)
	}
	if !near(markers[0].Center, geometry.Pt(200, 240), 1) {
		t.Errorf("unexpected center %+v", markers[0].Center)
	}
}

func TestDetect_DimBlobRejected(t *testing.T) {
	img := newCanvas(200, 200)
	drawDisk(img, 100, 100, 12)
	// darken to just above the threshold but below the brightness floor
	for i := range img.Pix {
		if img.Pix[i] == 255 {
			img.Pix[i] = 170
		}
	}

	markers, err := NewMarkerDetector(DefaultOptions().WithThreshold(150)).Detect(img)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(markers) != 0 {
		t.Errorf("Expected dim blob to be rejected, got %+v", markers)
	}
}

func TestDetect_CentersInsideBounds(t *testing.T) {
	img := newCanvas(120, 120)
	drawDisk(img, 3, 60, 12) // clipped by the left edge

	opts := DefaultOptions()
	opts.SkipShapeFilter = true
	markers, err := NewMarkerDetector(opts).Detect(img)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	for _, m := range markers {
		if !m.Center.In(img.Bounds()) {
			t.Errorf("center %+v outside %v", m.Center, img.Bounds())
		}
	}
}

func TestDetect_OffsetImage(t *testing.T) {
	base := newCanvas(300, 300)
	drawDisk(base, 200, 200, 12)
	sub := base.SubImage(image.Rect(100, 100, 300, 300))

	markers, err := NewMarkerDetector(DefaultOptions()).Detect(sub)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(markers) != 1 {
		t.Fatalf("Expected 1 marker, got %d", len(markers))
	}
	if !near(markers[0].Center, geometry.Pt(200, 200), 1) {
		t.Errorf("Expected center in parent coordinates, got %+v", markers[0].Center)
	}
}

func TestDetect_MaskHook(t *testing.T) {
	img := newCanvas(200, 160)
	drawDisk(img, 60, 80, 12)
	drawDisk(img, 140, 80, 12)

	var mask *image.Gray
	hooked := NewMarkerDetector(DefaultOptions().WithMaskHook(func(m *image.Gray) { mask = m }))
	plain := NewMarkerDetector(DefaultOptions())

	withHook, err := hooked.Detect(img)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	without, err := plain.Detect(img)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}

	if mask == nil {
		t.Fatal("Expected mask hook to be called")
	}
	if mask.Bounds().Dx() != 200 || mask.Bounds().Dy() != 160 {
		t.Errorf("mask bounds %v", mask.Bounds())
	}
	if mask.GrayAt(60, 80).Y != 255 || mask.GrayAt(5, 5).Y != 0 {
		t.Error("mask should be white on markers and black on background")
	}

	if len(withHook) != len(without) {
		t.Fatalf("hook changed result: %d vs %d markers", len(withHook), len(without))
	}
	for i := range withHook {
		if withHook[i] != without[i] {
			t.Errorf("hook changed marker %d: %+v vs %+v", i, withHook[i], without[i])
		}
	}
}

func TestDetect_LegacyOptions(t *testing.T) {
	img := newCanvas(300, 300)
	drawDisk(img, 80, 200, 10)
	drawDisk(img, 220, 60, 10)

	markers, err := NewMarkerDetector(LegacyOptions()).Detect(img)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(markers) != 2 {
		t.Fatalf("Expected 2 markers, got %d", len(markers))
	}
	// sorted by y first
	if markers[0].Center.Y > markers[1].Center.Y {
		t.Errorf("markers not sorted by y: %+v", Centers(markers))
	}
}

func TestCenters(t *testing.T) {
	markers := []DetectedMarker{
		{Center: geometry.Pt(1, 2)},
		{Center: geometry.Pt(3, 4)},
	}
	got := Centers(markers)
	if len(got) != 2 || got[0] != geometry.Pt(1, 2) || got[1] != geometry.Pt(3, 4) {
		t.Errorf("Centers = %+v", got)
	}
}
