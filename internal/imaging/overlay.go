package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Default overlay styling: a translucent cyan fill and a yellow outline.
const (
	DefaultFillColor     = "#32C8FF"
	DefaultBoundaryColor = "#FFFF00"
	DefaultFillOpacity   = 120.0 / 255.0
)

// OverlayOptions controls how a segmentation mask is drawn over a photograph.
type OverlayOptions struct {
	FillColor     string  // hex "#RRGGBB"
	BoundaryColor string  // hex "#RRGGBB"
	Opacity       float64 // 0 keeps the photograph, 1 paints the fill solid
}

// DefaultOverlayOptions returns the styling used by the measurement tools.
func DefaultOverlayOptions() OverlayOptions {
	return OverlayOptions{
		FillColor:     DefaultFillColor,
		BoundaryColor: DefaultBoundaryColor,
		Opacity:       DefaultFillOpacity,
	}
}

// OverlayResult contains the rendered visualization.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// RenderOverlay draws mask over img and returns a base64 PNG.
//
// The mask is scaled to the photograph's size with nearest-neighbour
// sampling, so a mask computed on the working-size image can be drawn over
// the full-resolution original.
func RenderOverlay(img image.Image, mask *Mask, opts OverlayOptions) (*OverlayResult, error) {
	fill, err := colorful.Hex(opts.FillColor)
	if err != nil {
		return nil, fmt.Errorf("invalid fill color %q: %w", opts.FillColor, err)
	}
	edge, err := colorful.Hex(opts.BoundaryColor)
	if err != nil {
		return nil, fmt.Errorf("invalid boundary color %q: %w", opts.BoundaryColor, err)
	}

	base := imaging.Clone(img)
	bounds := base.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	scaled := mask
	if mask.Width != width || mask.Height != height {
		resized := imaging.Resize(mask.ToImage(), width, height, imaging.NearestNeighbor)
		scaled = MaskFromImage(resized)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !scaled.At(x, y) {
				continue
			}
			var c colorful.Color
			if isBoundary(scaled, x, y) {
				c = edge
			} else {
				px, _ := colorful.MakeColor(base.NRGBAAt(x, y))
				c = px.BlendRgb(fill, opts.Opacity)
			}
			r, g, b := c.RGB255()
			base.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, base); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}

	return &OverlayResult{
		Width:       width,
		Height:      height,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// isBoundary reports whether a foreground pixel touches background or the
// image border through one of its four neighbours.
func isBoundary(m *Mask, x, y int) bool {
	if x == 0 || y == 0 || x == m.Width-1 || y == m.Height-1 {
		return true
	}
	return !m.At(x-1, y) || !m.At(x+1, y) || !m.At(x, y-1) || !m.At(x, y+1)
}
