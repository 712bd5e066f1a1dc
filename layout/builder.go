package layout

import (
	"context"
	"fmt"
)

// ImageLoader produces a drawable asset for a resolved URL. Implementations
// perform network fetches; the layout pass awaits each result in sequence.
type ImageLoader interface {
	Load(ctx context.Context, url string) (Asset, error)
}

// BuildOptions configures the layout pass.
type BuildOptions struct {
	Loader ImageLoader
}

// Compose lays the groups out on the fixed A4 page and returns the draw plan.
//
// Groups that are not renderable (unvalidated, unresolved or with a
// non-positive repeat count) are skipped entirely and contribute zero height.
// The vertical cursor is monotonically non-decreasing across the sequence:
// each surviving group advances it by its top margin, its title band (if any)
// and its grid height. A grid that would carry the cursor past the page
// bottom fails the whole pass with OverflowError; a failed or degenerate
// image load fails it with ImageLoadError.
//
// On failure the partial plan built so far is returned alongside the error so
// callers can keep the partially drawn page visible under an error tint.
func Compose(ctx context.Context, groups []Group, opts BuildOptions) (*Plan, error) {
	if opts.Loader == nil {
		return nil, fmt.Errorf("layout: missing image loader")
	}

	plan := &Plan{}
	cursorY := 0.0
	idx := 0
	for _, g := range groups {
		if !g.Renderable() {
			continue
		}

		margin := g.MarginTopIn
		if margin < 0 {
			margin = 0
		}
		cursorY += InchesToPixels(margin, RenderDPI)

		if g.Title != "" {
			plan.Titles = append(plan.Titles, TitleBox{
				Text:   g.Title,
				Y:      cursorY,
				FontPx: TitleFontPx,
			})
			cursorY += TitleAdvance
		}

		asset, err := opts.Loader.Load(ctx, g.ResolvedURL)
		if err != nil {
			return plan, err
		}
		if asset.Width <= 0 || asset.Height <= 0 {
			return plan, NewImageLoadError(g.ResolvedURL, "degenerate image dimensions", nil)
		}

		grid := GridBox{
			Asset:   asset,
			CellW:   asset.Width,
			CellH:   asset.Height,
			RepeatX: g.RepeatX,
			RepeatY: g.RepeatY,
		}
		if cursorY+grid.Height() > PageHeightPx {
			return plan, &OverflowError{Group: idx, Extent: cursorY + grid.Height(), Limit: PageHeightPx}
		}
		grid.StartX = (PageWidthPx - grid.Width()) / 2
		grid.StartY = cursorY
		plan.Grids = append(plan.Grids, grid)

		cursorY += grid.Height()
		idx++
	}
	return plan, nil
}
