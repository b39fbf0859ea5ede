package raster

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/turtle/internal/engine"
	"github.com/roach88/turtle/internal/ir"
	"github.com/roach88/turtle/internal/replay"
)

func opaque(a *image.Alpha) int {
	n := 0
	for _, v := range a.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

var blackPen = replay.Pen{Width: 5, Colour: "#000000"}

// TestCanvas_NewIsTransparent tests the initial raster and defaults.
func TestCanvas_NewIsTransparent(t *testing.T) {
	c := New(0, 0)
	assert.Equal(t, image.Rect(0, 0, DefaultWidth, DefaultHeight), c.Bounds())
	assert.Equal(t, 0, opaque(c.Alpha()))

	small := New(20, 10)
	assert.Equal(t, image.Rect(0, 0, 20, 10), small.Alpha().Bounds())
}

// TestCanvas_Stroke tests that a segment marks pixels along its path only.
func TestCanvas_Stroke(t *testing.T) {
	c := New(100, 100)
	c.Stroke(replay.Point{X: 10, Y: 50}, replay.Point{X: 90, Y: 50}, blackPen)

	a := c.Alpha()
	assert.NotZero(t, a.AlphaAt(50, 50).A)
	assert.NotZero(t, a.AlphaAt(8, 50).A, "round cap extends past the end")
	assert.Zero(t, a.AlphaAt(50, 10).A)
	assert.Zero(t, a.AlphaAt(50, 90).A)
}

// TestCanvas_ZeroLengthStrokeLeavesDot tests the bumped stroke replay emits
// for a zero distance.
func TestCanvas_ZeroLengthStrokeLeavesDot(t *testing.T) {
	c := New(50, 50)
	c.Stroke(replay.Point{X: 25, Y: 25}, replay.Point{X: 25, Y: 25.1}, blackPen)
	assert.Positive(t, opaque(c.Alpha()))
}

// TestCanvas_ZeroWidthDrawsNothing tests that a pen width of 0 is invisible.
func TestCanvas_ZeroWidthDrawsNothing(t *testing.T) {
	c := New(50, 50)
	c.Stroke(replay.Point{X: 0, Y: 25}, replay.Point{X: 50, Y: 25}, replay.Pen{Width: 0, Colour: "#ff0000"})
	assert.Equal(t, 0, opaque(c.Alpha()))
}

// TestCanvas_Colour tests that the pen colour reaches the raster.
func TestCanvas_Colour(t *testing.T) {
	c := New(50, 50)
	c.Stroke(replay.Point{X: 0, Y: 25}, replay.Point{X: 50, Y: 25}, replay.Pen{Width: 9, Colour: "#ff0000"})

	r, g, b, a := c.Image().At(25, 25).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, g)
	assert.Zero(t, b)
}

// TestCanvas_Clear tests that Clear restores full transparency.
func TestCanvas_Clear(t *testing.T) {
	c := New(50, 50)
	c.Stroke(replay.Point{X: 0, Y: 0}, replay.Point{X: 50, Y: 50}, blackPen)
	require.Positive(t, opaque(c.Alpha()))

	c.Clear()
	assert.Equal(t, 0, opaque(c.Alpha()))
}

// TestCanvas_Text tests horizontal and rotated text.
func TestCanvas_Text(t *testing.T) {
	c := New(200, 200)
	c.Text(replay.Point{X: 20, Y: 100}, 0, "Hello", blackPen, replay.DefaultFont)
	flat := opaque(c.Alpha())
	assert.Positive(t, flat)

	c.Clear()
	c.Text(replay.Point{X: 100, Y: 20}, 90, "Hello", blackPen, replay.Font{Family: "Arial", Size: 18, Style: "bold"})
	a := c.Alpha()
	assert.Positive(t, opaque(a))
	// rotated clockwise a quarter turn, the text runs down from the anchor
	below := 0
	for y := 30; y < 120; y++ {
		for x := 80; x < 140; x++ {
			if a.AlphaAt(x, y).A != 0 {
				below++
			}
		}
	}
	assert.Positive(t, below)
}

// TestCanvas_WritePNG tests that the raster encodes as a PNG of the same size.
func TestCanvas_WritePNG(t *testing.T) {
	c := New(64, 32)
	c.Stroke(replay.Point{X: 0, Y: 16}, replay.Point{X: 64, Y: 16}, blackPen)

	var buf bytes.Buffer
	require.NoError(t, c.WritePNG(&buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 32), img.Bounds())
}

// TestNormalizeStyle tests font style selection.
func TestNormalizeStyle(t *testing.T) {
	tests := map[string]string{
		"":            "normal",
		"normal":      "normal",
		"Bold":        "bold",
		"italic":      "italic",
		"oblique":     "italic",
		"bold italic": "bold italic",
		"italic bold": "bold italic",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeStyle(in), "style %q", in)
	}
}

// TestCanvas_ReplaySquare tests the canvas as a replay surface.
func TestCanvas_ReplaySquare(t *testing.T) {
	log := engine.NewCommandLog()
	for i := 0; i < 4; i++ {
		log.Append(ir.NewAction(ir.KindMove, "", ir.Number(100)))
		log.Append(ir.NewAction(ir.KindTurn, "", ir.Number(90)))
	}

	c := New(DefaultWidth, DefaultHeight)
	r := replay.New(c)
	r.Load(log)
	assert.Equal(t, 8, r.RunToCompletion())

	a := c.Alpha()
	assert.NotZero(t, a.AlphaAt(200, 150).A, "first side runs north from the centre")
	assert.NotZero(t, a.AlphaAt(250, 100).A, "second side runs east")
	assert.Zero(t, a.AlphaAt(150, 150).A, "nothing west of the start")
}
