// Package canvasrenderer draws layout plans via github.com/tdewolff/canvas.
package canvasrenderer

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"barsheet/fonts"
	"barsheet/layout"
	"barsheet/renderer"
)

// The canvas coordinate space is page pixels at layout.RenderDPI with the
// origin at the top-left corner. canvas sizes font faces in points assuming
// millimeter units, so point sizes are rescaled by mmPerPt to keep one canvas
// unit equal to one page pixel.
const mmPerPt = 25.4 / 72.0

// Renderer rasterizes plans onto preview or export surfaces.
type Renderer struct {
	fontOnce sync.Once
	family   *canvas.FontFamily
	fontErr  error
}

var _ renderer.Renderer = (*Renderer)(nil)

// New creates a canvas-based renderer.
func New() *Renderer { return &Renderer{} }

// Render draws the plan onto a fresh surface sized for the target and
// returns the rasterized result. The surface starts as a blank white page;
// titles and image grids are drawn in plan order.
func (r *Renderer) Render(plan *layout.Plan, target renderer.Target) (image.Image, error) {
	if target.Scale <= 0 || target.WidthPx <= 0 || target.HeightPx <= 0 {
		return nil, fmt.Errorf("render: degenerate target %dx%d scale %g", target.WidthPx, target.HeightPx, target.Scale)
	}

	c := canvas.New(layout.PageWidthPx, layout.PageHeightPx)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // top-left origin, matching the layout

	ctx.SetStrokeColor(canvas.Transparent)
	ctx.SetFillColor(canvas.White)
	ctx.DrawPath(0, 0, canvas.Rectangle(layout.PageWidthPx, layout.PageHeightPx))

	if plan != nil {
		for _, t := range plan.Titles {
			if err := r.drawTitle(ctx, t); err != nil {
				return nil, err
			}
		}
		for _, g := range plan.Grids {
			if err := drawGrid(ctx, g, target.Scale); err != nil {
				return nil, err
			}
		}
	}

	img := rasterizer.Draw(c, canvas.DPMM(target.Scale), canvas.DefaultColorSpace)
	return fitSurface(img, target), nil
}

// drawTitle draws a caption centered horizontally on the page, bold and
// black, with the baseline at the band top plus the font height.
func (r *Renderer) drawTitle(ctx *canvas.Context, t layout.TitleBox) error {
	family, err := r.captionFamily()
	if err != nil {
		return err
	}
	face := family.Face(t.FontPx/mmPerPt, canvas.Black, canvas.FontBold, canvas.FontNormal)
	line := canvas.NewTextLine(face, t.Text, canvas.Center)
	ctx.DrawText(layout.PageWidthPx/2, t.Y+t.FontPx, line)
	return nil
}

// drawGrid tiles one group's image row-major at integer grid offsets. The
// cell bitmap is resized once to its on-target pixel size and reused for
// every copy.
func drawGrid(ctx *canvas.Context, g layout.GridBox, scale float64) error {
	if g.Asset.Image == nil {
		return fmt.Errorf("render: grid without image")
	}
	if g.CellW <= 0 || g.CellH <= 0 {
		return fmt.Errorf("render: degenerate cell %gx%g", g.CellW, g.CellH)
	}

	tw := max(int(math.Round(g.CellW*scale)), 1)
	th := max(int(math.Round(g.CellH*scale)), 1)
	cell := imaging.Resize(g.Asset.Image, tw, th, imaging.Lanczos)
	res := canvas.DPMM(float64(tw) / g.CellW)

	for row := 0; row < g.RepeatY; row++ {
		for col := 0; col < g.RepeatX; col++ {
			x := g.StartX + float64(col)*g.CellW
			y := g.StartY + float64(row)*g.CellH
			ctx.DrawImage(x, y, cell, res)
		}
	}
	return nil
}

// fitSurface places the rasterized page onto the target's backing store.
// Export surfaces match the page exactly; preview surfaces may be a little
// larger than the fitted page, in which case the page is centered on white.
func fitSurface(img *image.RGBA, target renderer.Target) image.Image {
	b := img.Bounds()
	if b.Dx() == target.WidthPx && b.Dy() == target.HeightPx {
		return img
	}
	bg := imaging.New(target.WidthPx, target.HeightPx, canvas.White)
	return imaging.PasteCenter(bg, img)
}

func (r *Renderer) captionFamily() (*canvas.FontFamily, error) {
	r.fontOnce.Do(func() {
		family := canvas.NewFontFamily("caption")
		if err := family.LoadFont(fonts.Regular(), 0, canvas.FontRegular); err != nil {
			r.fontErr = fmt.Errorf("load caption font: %w", err)
			return
		}
		if err := family.LoadFont(fonts.Bold(), 0, canvas.FontBold); err != nil {
			r.fontErr = fmt.Errorf("load caption font: %w", err)
			return
		}
		r.family = family
	})
	return r.family, r.fontErr
}
