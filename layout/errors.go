package layout

import "fmt"

// maxDisplayURL bounds URL length in error messages.
const maxDisplayURL = 80

// TruncateURL shortens a URL for display in error messages.
func TruncateURL(u string) string {
	if len(u) <= maxDisplayURL {
		return u
	}
	return u[:maxDisplayURL] + "…"
}

// ImageLoadError reports that a group's image could not be fetched or
// decoded, or decoded to zero dimensions. It aborts the whole render pass.
type ImageLoadError struct {
	URL    string // already truncated for display
	Reason string
	Err    error
}

func (e *ImageLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load image %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("load image %s: %s", e.URL, e.Reason)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }

// NewImageLoadError builds an ImageLoadError, truncating the URL for display.
func NewImageLoadError(url, reason string, err error) *ImageLoadError {
	return &ImageLoadError{URL: TruncateURL(url), Reason: reason, Err: err}
}

// OverflowError reports that a group's vertical extent would carry the cursor
// past the page bottom. Overflow is a hard error; there is no pagination.
type OverflowError struct {
	Group  int     // index into the filtered sequence
	Extent float64 // cursor position after the offending grid, px
	Limit  float64 // page height, px
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("group %d overflows the page: content extends to %.0fpx of %.0fpx", e.Group, e.Extent, e.Limit)
}
