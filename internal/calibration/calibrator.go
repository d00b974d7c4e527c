// Package calibration converts an operator-supplied reference into a pixel scale.
package calibration

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"alignme-measure/pkg/geometry"
)

// ErrInvalidReference is returned for degenerate or non-positive references.
var ErrInvalidReference = errors.New("invalid reference")

// PixelScale is the number of centimeters represented by one pixel. Always > 0.
type PixelScale float64

// CmPerPixel returns the scale as a plain float.
func (s PixelScale) CmPerPixel() float64 {
	return float64(s)
}

// Calibrate returns realLengthCm divided by the pixel length of the segment refA-refB.
func Calibrate(refA, refB geometry.Point2D, realLengthCm float64) (PixelScale, error) {
	return fromPixels(geometry.Distance(refA, refB), realLengthCm)
}

func fromPixels(pixels, realLengthCm float64) (PixelScale, error) {
	if !isPositive(realLengthCm) {
		return 0, fmt.Errorf("%w: real length must be > 0 (got %v)", ErrInvalidReference, realLengthCm)
	}
	if !isPositive(pixels) {
		return 0, fmt.Errorf("%w: reference segment has zero pixel length", ErrInvalidReference)
	}
	return PixelScale(realLengthCm / pixels), nil
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Unit is a length unit accepted for references.
type Unit string

const (
	Millimeters Unit = "mm"
	Centimeters Unit = "cm"
	Meters      Unit = "m"
)

// ParseUnit maps user input to a Unit. Empty input means centimeters.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cm":
		return Centimeters, nil
	case "mm":
		return Millimeters, nil
	case "m":
		return Meters, nil
	default:
		return "", fmt.Errorf("unsupported unit %q", s)
	}
}

// ToCentimeters converts v expressed in u.
func (u Unit) ToCentimeters(v float64) float64 {
	switch u {
	case Millimeters:
		return v / 10
	case Meters:
		return v * 100
	default:
		return v
	}
}
