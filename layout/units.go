package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// This file defines unit-safe types and helpers for physical lengths and the
// fixed page geometry. All layout math happens in pixel space at RenderDPI.

// Page geometry: A4 at 300 DPI. The pixel dimensions are the rounded results
// of inches*DPI and are fixed for the life of the process.
const (
	PageWidthIn  = 8.27
	PageHeightIn = 11.69

	RenderDPI = 300.0

	PageWidthPx  = 2481.0
	PageHeightPx = 3507.0
)

// AssumedVectorDPI is the density vector renderers rasterize at by default.
// Intrinsic SVG dimensions are scaled by RenderDPI/AssumedVectorDPI so vector
// assets occupy the same physical size as raster ones.
const AssumedVectorDPI = 96.0

const pointsPerInch = 72.0

// Title band geometry: captions are drawn at the pixel equivalent of
// 16pt-at-300DPI. TitleAdvance is the vertical space a non-empty title
// consumes; the extra half font height is breathing room between the title
// and its grid.
const (
	TitleFontPt  = 16.0
	TitleFontPx  = TitleFontPt / pointsPerInch * RenderDPI
	TitleAdvance = TitleFontPx * 1.5
)

// InchesToPixels converts inches to pixels at the given DPI.
func InchesToPixels(in, dpi float64) float64 { return in * dpi }

// PointsToPixels converts typographic points to pixels at the given DPI.
func PointsToPixels(pt, dpi float64) float64 { return pt / pointsPerInch * dpi }

// Unit represents the original unit of a length value as specified in a
// sheet file.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers, treated as inches
	UnitIN               // inches
	UnitPT               // points
	UnitPX               // pixels at RenderDPI
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPX:
		return "px"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// ToPixels converts this length to pixels at the given DPI. Unit-less values
// are treated as inches, matching the sheet file default.
func (l Length) ToPixels(dpi float64) float64 {
	switch l.Unit {
	case UnitPT:
		return PointsToPixels(l.Value, dpi)
	case UnitPX:
		return l.Value
	default:
		return InchesToPixels(l.Value, dpi)
	}
}

// ToInches converts this length to inches.
func (l Length) ToInches() float64 { return l.ToPixels(RenderDPI) / RenderDPI }

// ParseLength parses a length string preserving its unit, e.g. "0.25in",
// "12pt", "100px" or a bare number (inches).
func ParseLength(value string) (Length, error) {
	v := strings.TrimSpace(strings.ToLower(value))
	if v == "" {
		return Length{}, fmt.Errorf("empty length")
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("invalid length %q: %w", value, err)
	}
	return Length{Value: f, Unit: unit}, nil
}
