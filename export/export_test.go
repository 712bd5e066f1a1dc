package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"barsheet/layout"
	"barsheet/renderer"
)

type fixedLoader struct{ w, h float64 }

func (l fixedLoader) Load(_ context.Context, _ string) (layout.Asset, error) {
	return layout.Asset{
		Image:  image.NewRGBA(image.Rect(0, 0, int(l.w), int(l.h))),
		Width:  l.w,
		Height: l.h,
	}, nil
}

type stubRenderer struct {
	err        error
	lastTarget renderer.Target
}

func (r *stubRenderer) Render(_ *layout.Plan, target renderer.Target) (image.Image, error) {
	r.lastTarget = target
	if r.err != nil {
		return nil, r.err
	}
	return image.NewRGBA(image.Rect(0, 0, target.WidthPx, target.HeightPx)), nil
}

func validGroup() layout.Group {
	return layout.Group{
		ID:          "g1",
		ImageRef:    "590123412345",
		ResolvedURL: "http://cdn.example.com/a.png",
		Validation:  layout.ValidationValid,
		RepeatX:     5,
		RepeatY:     10,
	}
}

func TestSheetProducesFullResolutionPNG(t *testing.T) {
	rend := &stubRenderer{}
	payload, err := Sheet(context.Background(), []layout.Group{validGroup()}, fixedLoader{w: 100, h: 50}, rend)
	if err != nil {
		t.Fatalf("Sheet: %v", err)
	}
	if rend.lastTarget.Mode != renderer.Export || rend.lastTarget.Scale != 1 {
		t.Fatalf("rendered against %+v, want the export target", rend.lastTarget)
	}
	img, err := png.Decode(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("payload is not a PNG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != int(layout.PageWidthPx) || b.Dy() != int(layout.PageHeightPx) {
		t.Fatalf("export %dx%d, want %gx%g", b.Dx(), b.Dy(), layout.PageWidthPx, layout.PageHeightPx)
	}
}

func TestSheetAbortsOnOverflow(t *testing.T) {
	rend := &stubRenderer{}
	// 10 rows of page-height cells cannot fit
	_, err := Sheet(context.Background(), []layout.Group{validGroup()}, fixedLoader{w: 100, h: layout.PageHeightPx}, rend)
	var oe *layout.OverflowError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OverflowError, got %v", err)
	}
	if rend.lastTarget.Mode == renderer.Export {
		t.Fatalf("renderer ran despite layout failure")
	}
}

func TestSheetPropagatesRenderError(t *testing.T) {
	rend := &stubRenderer{err: errors.New("draw failed")}
	_, err := Sheet(context.Background(), []layout.Group{validGroup()}, fixedLoader{w: 100, h: 50}, rend)
	if err == nil || errors.As(err, new(*SerializationError)) {
		t.Fatalf("render failure misreported: %v", err)
	}
}
