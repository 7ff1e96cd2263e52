package colormap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

func TestRampEndpoints(t *testing.T) {
	assert.Equal(t, rgb(68, 1, 84), Viridis(0))
	assert.Equal(t, rgb(253, 231, 37), Viridis(1))
	assert.Equal(t, rgb(253, 231, 37), Viridis(7))
	assert.Equal(t, rgb(0, 0, 255), Winter(-1))
	assert.Equal(t, rgb(127, 0, 0), Jet2(1))
	assert.Equal(t, Fallback, Viridis(math.NaN()))
}

func TestRampInterpolates(t *testing.T) {
	mid := Winter(0.5)
	assert.Equal(t, uint8(0), mid.R)
	assert.Equal(t, uint8(128), mid.G)
	assert.Equal(t, uint8(192), mid.B)
}

func TestDivergingCentreIsWhite(t *testing.T) {
	assert.Equal(t, rgb(247, 247, 247), Diverging(0))
	assert.Equal(t, rgb(33, 102, 172), Diverging(-1))
	assert.Equal(t, rgb(178, 24, 43), Diverging(1))
	assert.Equal(t, Fallback, Diverging(math.NaN()))
}

func TestHex(t *testing.T) {
	assert.Equal(t, drawing.Color{R: 0x1f, G: 0x77, B: 0xb4, A: 255}, Hex("#1f77b4"))
	assert.Equal(t, drawing.Color{R: 0x1f, G: 0x77, B: 0xb4, A: 255}, Hex("1F77B4"))
	assert.Equal(t, drawing.Color{R: 0xff, G: 0x00, B: 0xaa, A: 255}, Hex("#f0a"))
	assert.Equal(t, Fallback, Hex("#12"))
	assert.Equal(t, Fallback, Hex("zzzzzz"))
	assert.Equal(t, Fallback, Hex(""))
}

func TestRGBA(t *testing.T) {
	assert.Equal(t, [4]uint8{128, 128, 128, 120}, RGBA(Fallback))
	assert.Equal(t, "#808080", CSS(Fallback))
}
