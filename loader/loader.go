// Package loader fetches and decodes remote images into assets the layout
// engine can place. Results are not cached: the number of distinct images
// per page is small and the loader runs once per render pass, not once per
// repeated cell.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"barsheet/layout"
)

// maxRasterDim caps either dimension when rasterizing an SVG, preventing OOM
// from enormous viewBox values.
const maxRasterDim = 8192

// maxFetchBytes caps how much of a response body is read.
const maxFetchBytes = 32 << 20

// Loader fetches images over HTTP and decodes them to layout assets.
type Loader struct {
	client *http.Client
	dpi    float64
}

// New creates a loader rendering at layout.RenderDPI. A nil client gets a
// default with a sane timeout.
func New(client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{client: client, dpi: layout.RenderDPI}
}

// Load implements layout.ImageLoader. It fetches the URL, decodes the image
// and returns its layout dimensions in pixels at the target DPI. Vector
// assets (.svg) are scaled by dpi/96 and rasterized at the corrected size;
// raster assets keep their intrinsic pixel dimensions.
func (l *Loader) Load(ctx context.Context, rawURL string) (layout.Asset, error) {
	data, err := l.fetch(ctx, rawURL)
	if err != nil {
		return layout.Asset{}, err
	}
	if isVector(rawURL) {
		return l.decodeSVG(rawURL, data)
	}
	return decodeRaster(rawURL, data)
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, layout.NewImageLoadError(rawURL, "invalid URL", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, layout.NewImageLoadError(rawURL, "fetch failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, layout.NewImageLoadError(rawURL, fmt.Sprintf("unexpected status %s", resp.Status), nil)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, layout.NewImageLoadError(rawURL, "read failed", err)
	}
	if len(data) == 0 {
		return nil, layout.NewImageLoadError(rawURL, "empty response body", nil)
	}
	return data, nil
}

// isVector detects vector assets by the resolved URL's file extension,
// ignoring any query string.
func isVector(rawURL string) bool {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.EqualFold(path.Ext(p), ".svg")
}

// decodeSVG reads the SVG's intrinsic viewBox dimensions, applies the
// vector-to-target DPI correction and rasterizes at the corrected size.
func (l *Loader) decodeSVG(rawURL string, data []byte) (layout.Asset, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return layout.Asset{}, layout.NewImageLoadError(rawURL, "decode SVG failed", err)
	}
	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		return layout.Asset{}, layout.NewImageLoadError(rawURL, "degenerate image dimensions", nil)
	}

	factor := l.dpi / layout.AssumedVectorDPI
	width := icon.ViewBox.W * factor
	height := icon.ViewBox.H * factor

	w := max(int(math.Round(width)), 1)
	h := max(int(math.Round(height)), 1)
	if w > maxRasterDim || h > maxRasterDim {
		s := math.Min(float64(maxRasterDim)/float64(w), float64(maxRasterDim)/float64(h))
		w = max(int(math.Round(float64(w)*s)), 1)
		h = max(int(math.Round(float64(h)*s)), 1)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	return layout.Asset{Image: dst, Width: width, Height: height}, nil
}

// decodeRaster sniffs the payload and decodes it with the platform decoder.
// Raster dimensions are used unmodified: they encode a fixed pixel size
// independent of DPI.
func decodeRaster(rawURL string, data []byte) (layout.Asset, error) {
	if kind, err := filetype.Match(data); err != nil || kind.MIME.Type != "image" {
		return layout.Asset{}, layout.NewImageLoadError(rawURL, "response is not an image", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return layout.Asset{}, layout.NewImageLoadError(rawURL, "decode failed", err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return layout.Asset{}, layout.NewImageLoadError(rawURL, "degenerate image dimensions", nil)
	}
	return layout.Asset{Image: img, Width: float64(b.Dx()), Height: float64(b.Dy())}, nil
}
