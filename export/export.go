// Package export serializes a fully composed page to a downloadable PNG.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"barsheet/layout"
	"barsheet/renderer"
)

// Filename is the fixed download name. Physical correctness is guaranteed by
// the pixel dimensions matching A4 at 300 DPI; no DPI metadata is embedded.
const Filename = "barcode-sheet-A4-300dpi.png"

// SerializationError reports that the composed page could not be encoded.
// It is distinct from layout failures and leaves any preview untouched.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("encode export image: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// Sheet composes the groups at full resolution against a fresh export
// surface and returns the encoded PNG. Layout failures abort with the layout
// error; encoder failures abort with SerializationError.
func Sheet(ctx context.Context, groups []layout.Group, ldr layout.ImageLoader, r renderer.Renderer) ([]byte, error) {
	plan, err := layout.Compose(ctx, groups, layout.BuildOptions{Loader: ldr})
	if err != nil {
		return nil, err
	}
	img, err := r.Render(plan, renderer.ExportTarget())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &SerializationError{Err: err}
	}
	return buf.Bytes(), nil
}
