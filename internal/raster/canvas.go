// Package raster provides the concrete drawing surface used for grading and
// for rendering attempts to PNG.
package raster

import (
	"fmt"
	"image"
	"io"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/roach88/turtle/internal/replay"
)

// Default canvas dimensions.
const (
	DefaultWidth  = 400
	DefaultHeight = 400
)

// dpi converts font points to pixels the way a browser canvas does
// (18pt renders 24px tall).
const dpi = 96

// Canvas is a fixed-size RGBA raster implementing replay.Surface.
//
// Thread-safety: Canvas is safe for concurrent use; the replayer already
// serializes calls, but readers like Alpha may race with paced steps.
type Canvas struct {
	mu    sync.Mutex
	dc    *gg.Context
	faces map[faceKey]font.Face
}

type faceKey struct {
	style string
	size  float64
}

var _ replay.Surface = (*Canvas)(nil)

// New creates a transparent canvas. Non-positive dimensions fall back to
// the defaults.
func New(width, height int) *Canvas {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	c := &Canvas{
		dc:    gg.NewContext(width, height),
		faces: make(map[faceKey]font.Face),
	}
	c.dc.SetLineCapRound()
	c.dc.SetLineJoinRound()
	return c
}

// Clear resets every pixel to fully transparent.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dc.SetRGBA(0, 0, 0, 0)
	c.dc.Clear()
}

// Stroke draws one round-capped line segment.
func (c *Canvas) Stroke(from, to replay.Point, pen replay.Pen) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pen.Width <= 0 {
		return
	}
	c.dc.SetHexColor(pen.Colour)
	c.dc.SetLineWidth(pen.Width)
	c.dc.DrawLine(from.X, from.Y, to.X, to.Y)
	c.dc.Stroke()
}

// Text fills text with its baseline starting at at, rotated clockwise by
// rotationDeg around that point.
func (c *Canvas) Text(at replay.Point, rotationDeg float64, text string, pen replay.Pen, f replay.Font) {
	c.mu.Lock()
	defer c.mu.Unlock()
	face, err := c.face(f)
	if err != nil {
		// the embedded fonts always parse; nothing to draw otherwise
		return
	}
	c.dc.Push()
	defer c.dc.Pop()
	c.dc.SetFontFace(face)
	c.dc.SetHexColor(pen.Colour)
	c.dc.RotateAbout(gg.Radians(rotationDeg), at.X, at.Y)
	c.dc.DrawString(text, at.X, at.Y)
}

// Alpha returns a copy of the opacity plane.
func (c *Canvas) Alpha() *image.Alpha {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := c.dc.Image()
	dst := image.NewAlpha(src.Bounds())
	xdraw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, xdraw.Src)
	return dst
}

// Bounds returns the raster rectangle.
func (c *Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.dc.Width(), c.dc.Height())
}

// Image returns a snapshot of the RGBA raster.
func (c *Canvas) Image() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := c.dc.Image()
	dst := image.NewRGBA(src.Bounds())
	xdraw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, xdraw.Src)
	return dst
}

// WritePNG encodes the raster as PNG.
func (c *Canvas) WritePNG(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// face returns a cached face for the font's style and size. The family is
// ignored: every family renders with the Go fonts.
func (c *Canvas) face(f replay.Font) (font.Face, error) {
	style := normalizeStyle(f.Style)
	size := f.Size
	if size <= 0 {
		size = replay.DefaultFont.Size
	}
	key := faceKey{style: style, size: size}
	if face, ok := c.faces[key]; ok {
		return face, nil
	}
	ttf, err := truetype.Parse(fontData(style))
	if err != nil {
		return nil, fmt.Errorf("parse font %q: %w", style, err)
	}
	face := truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: dpi, Hinting: font.HintingFull})
	c.faces[key] = face
	return face, nil
}

func normalizeStyle(style string) string {
	s := strings.ToLower(style)
	bold := strings.Contains(s, "bold")
	italic := strings.Contains(s, "italic") || strings.Contains(s, "oblique")
	switch {
	case bold && italic:
		return "bold italic"
	case bold:
		return "bold"
	case italic:
		return "italic"
	default:
		return "normal"
	}
}

func fontData(style string) []byte {
	switch style {
	case "bold italic":
		return gobolditalic.TTF
	case "bold":
		return gobold.TTF
	case "italic":
		return goitalic.TTF
	default:
		return goregular.TTF
	}
}
