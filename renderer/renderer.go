// Package renderer defines the render target abstraction shared by the
// preview and export paths, and the interface concrete renderers implement.
package renderer

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"barsheet/layout"
)

// Mode selects between the interactive preview surface and the
// full-resolution export surface.
type Mode int

const (
	Preview Mode = iota
	Export
)

// String returns the mode name.
func (m Mode) String() string {
	if m == Export {
		return "export"
	}
	return "preview"
}

// Target describes the canvas a render pass draws into: its backing-store
// pixel dimensions and the uniform scale applied to page-space drawing
// commands.
type Target struct {
	Mode     Mode
	WidthPx  int
	HeightPx int
	// Scale maps page pixels (at layout.RenderDPI) to target pixels.
	Scale float64
}

// ExportTarget is the full-resolution surface: exactly the page's pixel
// dimensions, scale 1, no viewport fitting.
func ExportTarget() Target {
	return Target{
		Mode:     Export,
		WidthPx:  int(layout.PageWidthPx),
		HeightPx: int(layout.PageHeightPx),
		Scale:    1,
	}
}

// PreviewTarget sizes the surface for an on-screen box of boxW x boxH layout
// units at the given display pixel density. Drawing is pre-scaled by
// min(boxW/pageW, boxH/pageH) so the whole page fits the box proportionally;
// the caller pre-sizes the box to the page aspect ratio, so the page is
// centered by construction.
func PreviewTarget(boxW, boxH, pixelRatio float64) Target {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	fit := math.Min(boxW/layout.PageWidthPx, boxH/layout.PageHeightPx)
	return Target{
		Mode:     Preview,
		WidthPx:  int(math.Round(boxW * pixelRatio)),
		HeightPx: int(math.Round(boxH * pixelRatio)),
		Scale:    fit * pixelRatio,
	}
}

// Renderer rasterizes a draw plan into the target surface. Every call is a
// full, independent pass starting from a blank white page.
type Renderer interface {
	Render(plan *layout.Plan, target Target) (image.Image, error)
}

// errTint is the translucent red overlay painted across a failed render.
var errTint = color.NRGBA{R: 255, A: 64}

// TintError paints the failure overlay over img so a partially drawn page is
// never mistaken for a successful render. A nil img yields a blank white
// page of the target's dimensions under the tint.
func TintError(img image.Image, target Target) image.Image {
	bounds := image.Rect(0, 0, target.WidthPx, target.HeightPx)
	if img != nil {
		bounds = img.Bounds()
	}
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	if img != nil {
		draw.Draw(dst, bounds, img, bounds.Min, draw.Over)
	}
	draw.Draw(dst, bounds, image.NewUniform(errTint), image.Point{}, draw.Over)
	return dst
}
