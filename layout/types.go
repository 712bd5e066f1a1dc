package layout

import "image"

// This file defines the group model and the draw plan shared by the layout
// pass, the renderers and the export pipeline.

// ValidationState tracks the resolution lifecycle of a group's image
// reference.
type ValidationState int

const (
	ValidationUnvalidated ValidationState = iota
	ValidationPending
	ValidationValid
	ValidationInvalid
)

// String returns the human-readable state name.
func (s ValidationState) String() string {
	switch s {
	case ValidationUnvalidated:
		return "unvalidated"
	case ValidationPending:
		return "pending"
	case ValidationValid:
		return "valid"
	case ValidationInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Group is one independently configured barcode block: an image reference,
// a repeat grid, an optional caption and blank space above it. Groups stack
// top to bottom in sequence order.
type Group struct {
	// ID is stable across edits and used for reconciliation only; it is
	// never a layout input.
	ID string `json:"id"`

	// ImageRef is the user-entered token: a direct image URL or an opaque
	// lookup key for the resolver endpoint.
	ImageRef string `json:"imageRef"`

	// ResolvedURL is the validated, directly loadable URL. Empty until
	// validation succeeds.
	ResolvedURL string `json:"resolvedUrl"`

	Validation ValidationState `json:"validationState"`

	// Title is the optional caption; empty means no title row.
	Title string `json:"title"`

	// RepeatX and RepeatY are the grid repeat counts. A group with either
	// count <= 0 contributes nothing to the page.
	RepeatX int `json:"repeatX"`
	RepeatY int `json:"repeatY"`

	// MarginTopIn is blank vertical space in inches inserted above the
	// group (above its title, if any), relative to the current cursor.
	MarginTopIn float64 `json:"marginTopIn"`
}

// Renderable reports whether the group contributes to the page.
func (g Group) Renderable() bool {
	return g.Validation == ValidationValid && g.ResolvedURL != "" && g.RepeatX > 0 && g.RepeatY > 0
}

// Asset is a loaded image together with its layout dimensions in pixels at
// RenderDPI. For vector assets the dimensions already carry the DPI
// correction factor; for raster assets they equal the intrinsic pixel size.
type Asset struct {
	Image  image.Image
	Width  float64
	Height float64
}

// Plan is the computed page: every placement is in page pixel coordinates at
// RenderDPI with the origin at the top-left corner.
type Plan struct {
	Titles []TitleBox `json:"titles"`
	Grids  []GridBox  `json:"grids"`
}

// TitleBox is a caption centered horizontally on the page. Y is the top of
// the title band; the text baseline sits at Y+FontPx.
type TitleBox struct {
	Text   string  `json:"text"`
	Y      float64 `json:"y"`
	FontPx float64 `json:"fontPx"`
}

// GridBox is one group's repeat grid: RepeatX*RepeatY copies of the asset in
// row-major order, each cell exactly CellW x CellH pixels.
type GridBox struct {
	Asset   Asset   `json:"-"`
	StartX  float64 `json:"startX"`
	StartY  float64 `json:"startY"`
	CellW   float64 `json:"cellW"`
	CellH   float64 `json:"cellH"`
	RepeatX int     `json:"repeatX"`
	RepeatY int     `json:"repeatY"`
}

// Width returns the grid's total width in pixels.
func (g GridBox) Width() float64 { return float64(g.RepeatX) * g.CellW }

// Height returns the grid's total height in pixels.
func (g GridBox) Height() float64 { return float64(g.RepeatY) * g.CellH }
