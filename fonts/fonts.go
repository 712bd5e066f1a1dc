// Package fonts exposes the embedded typefaces used for sheet captions.
package fonts

import (
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Bold returns the TTF bytes of the caption typeface.
func Bold() []byte { return gobold.TTF }

// Regular returns the TTF bytes of the fallback typeface.
func Regular() []byte { return goregular.TTF }
