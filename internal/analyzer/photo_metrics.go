package analyzer

import (
	"image"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// PhotoMetrics summarizes exposure and focus of a photograph
type PhotoMetrics struct {
	Brightness float64 `json:"brightness"` // mean gray level, 0-255
	Sharpness  float64 `json:"sharpness"`  // variance of the Laplacian
}

// PhotoMetricsCalculator computes PhotoMetrics
type PhotoMetricsCalculator interface {
	Calculate(img image.Image) PhotoMetrics
}

type photoMetricsCalculator struct {
	grayPool  sync.Pool
	slicePool sync.Pool
}

// NewPhotoMetricsCalculator creates a calculator with pooled scratch buffers
func NewPhotoMetricsCalculator() PhotoMetricsCalculator {
	return &photoMetricsCalculator{
		grayPool: sync.Pool{
			New: func() interface{} { return &image.Gray{} },
		},
		slicePool: sync.Pool{
			New: func() interface{} { return make([]float64, 0, 1024) },
		},
	}
}

func (c *photoMetricsCalculator) Calculate(img image.Image) PhotoMetrics {
	if img == nil || img.Bounds().Empty() {
		return PhotoMetrics{}
	}

	gray := c.grayPool.Get().(*image.Gray)
	defer c.grayPool.Put(gray)
	toGray(gray, img)

	return PhotoMetrics{
		Brightness: brightness(gray),
		Sharpness:  c.laplacianVariance(gray),
	}
}

func brightness(gray *image.Gray) float64 {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	var total float64
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for _, v := range row {
			total += float64(v)
		}
	}
	return total / float64(w*h)
}

// laplacianVariance applies the kernel [0 1 0; 1 -4 1; 0 1 0] and returns the
// variance of the response. Images narrower than 3 pixels score 0.
func (c *photoMetricsCalculator) laplacianVariance(gray *image.Gray) float64 {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	data := c.slicePool.Get().([]float64)[:0]
	if cap(data) < (w-2)*(h-2) {
		data = make([]float64, 0, (w-2)*(h-2))
	}
	defer func() { c.slicePool.Put(data[:0]) }()

	at := func(x, y int) float64 { return float64(gray.Pix[y*gray.Stride+x]) }
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			data = append(data, at(x, y-1)+at(x, y+1)+at(x-1, y)+at(x+1, y)-4*at(x, y))
		}
	}
	return stat.Variance(data, nil)
}
