package layout

import (
	"context"
	"errors"
	"image"
	"testing"
)

// stubLoader serves fixed-size assets keyed by URL without touching the
// network.
type stubLoader struct {
	sizes map[string][2]float64
	err   error
	calls []string
}

func (l *stubLoader) Load(_ context.Context, url string) (Asset, error) {
	l.calls = append(l.calls, url)
	if l.err != nil {
		return Asset{}, l.err
	}
	size, ok := l.sizes[url]
	if !ok {
		return Asset{}, NewImageLoadError(url, "not stubbed", nil)
	}
	w, h := size[0], size[1]
	return Asset{
		Image:  image.NewRGBA(image.Rect(0, 0, int(w), int(h))),
		Width:  w,
		Height: h,
	}, nil
}

func validGroup(url string, rx, ry int) Group {
	return Group{
		ID:          url,
		ImageRef:    url,
		ResolvedURL: url,
		Validation:  ValidationValid,
		RepeatX:     rx,
		RepeatY:     ry,
	}
}

func TestComposeCentersGrid(t *testing.T) {
	ldr := &stubLoader{sizes: map[string][2]float64{"a": {100, 50}}}
	plan, err := Compose(context.Background(), []Group{validGroup("a", 5, 10)}, BuildOptions{Loader: ldr})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(plan.Grids) != 1 || len(plan.Titles) != 0 {
		t.Fatalf("got %d grids and %d titles, want 1 and 0", len(plan.Grids), len(plan.Titles))
	}
	g := plan.Grids[0]
	if !eq(g.Width(), 500) || !eq(g.Height(), 500) {
		t.Fatalf("grid extent %gx%g, want 500x500", g.Width(), g.Height())
	}
	if want := (PageWidthPx - 500) / 2; !eq(g.StartX, want) {
		t.Fatalf("StartX = %g, want %g", g.StartX, want)
	}
	if !eq(g.StartY, 0) {
		t.Fatalf("StartY = %g, want 0", g.StartY)
	}
}

func TestComposeTitleAdvancesCursor(t *testing.T) {
	ldr := &stubLoader{sizes: map[string][2]float64{"a": {100, 50}}}
	g := validGroup("a", 2, 2)
	g.Title = "Sample sheet"
	g.MarginTopIn = 0.25

	plan, err := Compose(context.Background(), []Group{g}, BuildOptions{Loader: ldr})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(plan.Titles) != 1 {
		t.Fatalf("got %d titles, want 1", len(plan.Titles))
	}
	title := plan.Titles[0]
	if !eq(title.Y, 75) {
		t.Fatalf("title Y = %g, want 75 (0.25in at 300dpi)", title.Y)
	}
	if !eq(title.FontPx, TitleFontPx) {
		t.Fatalf("title FontPx = %g, want %g", title.FontPx, TitleFontPx)
	}
	if want := 75 + TitleAdvance; !eq(plan.Grids[0].StartY, want) {
		t.Fatalf("grid StartY = %g, want %g (margin + 1.5x title height)", plan.Grids[0].StartY, want)
	}
}

func TestComposeStacksGroups(t *testing.T) {
	ldr := &stubLoader{sizes: map[string][2]float64{
		"a": {100, 50},
		"b": {200, 100},
	}}
	first := validGroup("a", 5, 10) // 500px tall
	second := validGroup("b", 3, 4) // 400px tall
	second.MarginTopIn = 0.2

	plan, err := Compose(context.Background(), []Group{first, second}, BuildOptions{Loader: ldr})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(plan.Grids) != 2 {
		t.Fatalf("got %d grids, want 2", len(plan.Grids))
	}
	if want := 500 + InchesToPixels(0.2, RenderDPI); !eq(plan.Grids[1].StartY, want) {
		t.Fatalf("second grid StartY = %g, want %g", plan.Grids[1].StartY, want)
	}
	if want := (PageWidthPx - 600) / 2; !eq(plan.Grids[1].StartX, want) {
		t.Fatalf("second grid StartX = %g, want %g", plan.Grids[1].StartX, want)
	}
}

func TestComposeOverflowByOnePixel(t *testing.T) {
	// One cell exactly page-height tall fits; one extra pixel does not.
	fits := &stubLoader{sizes: map[string][2]float64{"a": {100, PageHeightPx}}}
	if _, err := Compose(context.Background(), []Group{validGroup("a", 1, 1)}, BuildOptions{Loader: fits}); err != nil {
		t.Fatalf("exact-fit grid rejected: %v", err)
	}

	over := &stubLoader{sizes: map[string][2]float64{"a": {100, PageHeightPx + 1}}}
	plan, err := Compose(context.Background(), []Group{validGroup("a", 1, 1)}, BuildOptions{Loader: over})
	var oe *OverflowError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OverflowError, got %v", err)
	}
	if oe.Group != 0 {
		t.Fatalf("overflow group = %d, want 0", oe.Group)
	}
	if !eq(oe.Extent, PageHeightPx+1) || !eq(oe.Limit, PageHeightPx) {
		t.Fatalf("overflow extent %g limit %g", oe.Extent, oe.Limit)
	}
	if plan == nil {
		t.Fatalf("partial plan missing on overflow")
	}
}

func TestComposeOverflowKeepsPartialPlan(t *testing.T) {
	ldr := &stubLoader{sizes: map[string][2]float64{
		"a": {100, 1000},
		"b": {100, 1000},
	}}
	groups := []Group{
		validGroup("a", 1, 3), // 3000px, fits
		validGroup("b", 1, 1), // 1000px more, overflows
	}
	plan, err := Compose(context.Background(), groups, BuildOptions{Loader: ldr})
	var oe *OverflowError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OverflowError, got %v", err)
	}
	if oe.Group != 1 {
		t.Fatalf("overflow group = %d, want 1", oe.Group)
	}
	if len(plan.Grids) != 1 {
		t.Fatalf("partial plan has %d grids, want the 1 that fit", len(plan.Grids))
	}
}

func TestComposeSkipsNonRenderableGroups(t *testing.T) {
	ldr := &stubLoader{sizes: map[string][2]float64{"a": {100, 50}}}
	zeroRepeat := validGroup("zero", 0, 10)
	pending := validGroup("pending", 5, 10)
	pending.Validation = ValidationPending
	unresolved := validGroup("unresolved", 5, 10)
	unresolved.ResolvedURL = ""
	drawn := validGroup("a", 5, 10)
	drawn.MarginTopIn = 0.1

	plan, err := Compose(context.Background(), []Group{zeroRepeat, pending, unresolved, drawn}, BuildOptions{Loader: ldr})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(plan.Grids) != 1 {
		t.Fatalf("got %d grids, want 1", len(plan.Grids))
	}
	// skipped groups contribute no height, not even their margins
	if want := InchesToPixels(0.1, RenderDPI); !eq(plan.Grids[0].StartY, want) {
		t.Fatalf("StartY = %g, want %g", plan.Grids[0].StartY, want)
	}
	if len(ldr.calls) != 1 || ldr.calls[0] != "a" {
		t.Fatalf("loader called with %v, want just [a]", ldr.calls)
	}
}

func TestComposeEmptySequence(t *testing.T) {
	plan, err := Compose(context.Background(), nil, BuildOptions{Loader: &stubLoader{}})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(plan.Grids) != 0 || len(plan.Titles) != 0 {
		t.Fatalf("empty sequence produced %d grids and %d titles", len(plan.Grids), len(plan.Titles))
	}
}

func TestComposeNegativeMarginClamped(t *testing.T) {
	ldr := &stubLoader{sizes: map[string][2]float64{"a": {100, 50}}}
	g := validGroup("a", 1, 1)
	g.MarginTopIn = -3
	plan, err := Compose(context.Background(), []Group{g}, BuildOptions{Loader: ldr})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !eq(plan.Grids[0].StartY, 0) {
		t.Fatalf("StartY = %g, want 0 (negative margins clamp)", plan.Grids[0].StartY)
	}
}

func TestComposeLoadFailure(t *testing.T) {
	ldr := &stubLoader{err: NewImageLoadError("http://x/a.png", "fetch failed", errors.New("boom"))}
	groups := []Group{validGroup("http://x/a.png", 1, 1)}
	plan, err := Compose(context.Background(), groups, BuildOptions{Loader: ldr})
	var le *ImageLoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected ImageLoadError, got %v", err)
	}
	if plan == nil {
		t.Fatalf("partial plan missing on load failure")
	}
}

func TestComposeDegenerateDimensions(t *testing.T) {
	ldr := &stubLoader{sizes: map[string][2]float64{"a": {0, 50}}}
	_, err := Compose(context.Background(), []Group{validGroup("a", 1, 1)}, BuildOptions{Loader: ldr})
	var le *ImageLoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected ImageLoadError for zero-width asset, got %v", err)
	}
}

func TestComposeMissingLoader(t *testing.T) {
	if _, err := Compose(context.Background(), nil, BuildOptions{}); err == nil {
		t.Fatalf("expected error without a loader")
	}
}
