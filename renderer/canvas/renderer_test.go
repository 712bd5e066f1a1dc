package canvasrenderer

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"barsheet/layout"
	"barsheet/renderer"
)

// smallTarget keeps rasterization cheap: the full page at 1/10 scale.
func smallTarget() renderer.Target {
	return renderer.Target{
		Mode:     renderer.Preview,
		WidthPx:  248,
		HeightPx: 351,
		Scale:    0.1,
	}
}

func solidAsset(w, h int, c color.Color) layout.Asset {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return layout.Asset{Image: img, Width: float64(w), Height: float64(h)}
}

func luminance(c color.Color) uint32 {
	r, g, b, _ := c.RGBA()
	return (r + g + b) / 3
}

func TestRenderEmptyPlanIsBlankWhite(t *testing.T) {
	img, err := New().Render(&layout.Plan{}, smallTarget())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 248 || b.Dy() != 351 {
		t.Fatalf("surface %dx%d, want 248x351", b.Dx(), b.Dy())
	}
	for _, p := range []image.Point{{0, 0}, {124, 175}, {247, 350}} {
		if lum := luminance(img.At(p.X, p.Y)); lum < 0xf000 {
			t.Fatalf("blank page not white at %v: luminance %d", p, lum)
		}
	}
}

func TestRenderNilPlan(t *testing.T) {
	img, err := New().Render(nil, smallTarget())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if img == nil {
		t.Fatalf("nil surface for nil plan")
	}
}

func TestRenderExportDimensions(t *testing.T) {
	img, err := New().Render(&layout.Plan{}, renderer.ExportTarget())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != int(layout.PageWidthPx) || b.Dy() != int(layout.PageHeightPx) {
		t.Fatalf("export surface %dx%d", b.Dx(), b.Dy())
	}
}

func TestRenderGridPlacement(t *testing.T) {
	// a 2x2 grid of black 200x100 cells centered horizontally at y=500
	grid := layout.GridBox{
		Asset:   solidAsset(200, 100, color.Black),
		StartX:  (layout.PageWidthPx - 400) / 2,
		StartY:  500,
		CellW:   200,
		CellH:   100,
		RepeatX: 2,
		RepeatY: 2,
	}
	target := smallTarget()
	img, err := New().Render(&layout.Plan{Grids: []layout.GridBox{grid}}, target)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	at := func(pageX, pageY float64) uint32 {
		return luminance(img.At(int(pageX*target.Scale), int(pageY*target.Scale)))
	}
	// center of the first cell is dark
	if lum := at(grid.StartX+100, grid.StartY+50); lum > 0x4000 {
		t.Fatalf("first cell not drawn: luminance %d", lum)
	}
	// center of the last cell is dark
	if lum := at(grid.StartX+300, grid.StartY+150); lum > 0x4000 {
		t.Fatalf("last cell not drawn: luminance %d", lum)
	}
	// well outside the grid stays white
	if lum := at(100, 100); lum < 0xf000 {
		t.Fatalf("page dirtied outside the grid: luminance %d", lum)
	}
	if lum := at(grid.StartX+200, grid.StartY+300); lum < 0xf000 {
		t.Fatalf("page dirtied below the grid: luminance %d", lum)
	}
}

func TestRenderTitleInk(t *testing.T) {
	plan := &layout.Plan{Titles: []layout.TitleBox{{
		Text:   "WWWWWWWW",
		Y:      200,
		FontPx: layout.TitleFontPx,
	}}}
	target := renderer.Target{Mode: renderer.Preview, WidthPx: 620, HeightPx: 877, Scale: 0.25}
	img, err := New().Render(plan, target)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	// some ink must land inside the title band around the page center
	bandTop := int(200 * target.Scale)
	bandBottom := int((200 + layout.TitleFontPx) * target.Scale)
	found := false
	for y := bandTop; y <= bandBottom && !found; y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			if luminance(img.At(x, y)) < 0x8000 {
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatalf("no ink in the title band")
	}
}

func TestRenderDegenerateTarget(t *testing.T) {
	if _, err := New().Render(&layout.Plan{}, renderer.Target{}); err == nil {
		t.Fatalf("expected error for degenerate target")
	}
}

func TestRenderGridWithoutImage(t *testing.T) {
	plan := &layout.Plan{Grids: []layout.GridBox{{CellW: 10, CellH: 10, RepeatX: 1, RepeatY: 1}}}
	if _, err := New().Render(plan, smallTarget()); err == nil {
		t.Fatalf("expected error for grid without image")
	}
}
