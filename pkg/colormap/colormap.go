// Package colormap maps normalised values to RGBA colours.
package colormap

import (
	"fmt"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Fallback is the neutral gray drawn for missing or non-finite values.
var Fallback = drawing.Color{R: 128, G: 128, B: 128, A: 120}

// Func maps t in [0, 1] (or [-1, 1] for diverging maps) to a colour.
type Func func(t float64) drawing.Color

// Ramp is a piecewise-linear colour ramp over evenly spaced stops.
type Ramp []drawing.Color

// At interpolates the ramp at t, clamped to [0, 1]. NaN yields Fallback.
func (r Ramp) At(t float64) drawing.Color {
	if math.IsNaN(t) || len(r) == 0 {
		return Fallback
	}
	if t <= 0 {
		return r[0]
	}
	if t >= 1 {
		return r[len(r)-1]
	}
	pos := t * float64(len(r)-1)
	i := int(pos)
	frac := pos - float64(i)
	a, b := r[i], r[i+1]
	return drawing.Color{
		R: lerp(a.R, b.R, frac),
		G: lerp(a.G, b.G, frac),
		B: lerp(a.B, b.B, frac),
		A: lerp(a.A, b.A, frac),
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

func rgb(r, g, b uint8) drawing.Color { return drawing.Color{R: r, G: g, B: b, A: 255} }

var (
	viridis = Ramp{
		rgb(68, 1, 84), rgb(72, 40, 120), rgb(62, 74, 137), rgb(49, 104, 142),
		rgb(38, 130, 142), rgb(31, 158, 137), rgb(53, 183, 121), rgb(109, 205, 89),
		rgb(180, 222, 44), rgb(253, 231, 37),
	}
	winter = Ramp{rgb(0, 0, 255), rgb(0, 255, 128)}
	jet2   = Ramp{
		rgb(0, 0, 143), rgb(0, 0, 255), rgb(0, 127, 255), rgb(0, 255, 255),
		rgb(127, 255, 127), rgb(255, 255, 0), rgb(255, 127, 0), rgb(255, 0, 0),
		rgb(127, 0, 0),
	}
	diverging = Ramp{rgb(33, 102, 172), rgb(146, 197, 222), rgb(247, 247, 247), rgb(244, 165, 130), rgb(178, 24, 43)}
)

// Viridis is the default sequential scale.
func Viridis(t float64) drawing.Color { return viridis.At(t) }

// Winter is used for water measures.
func Winter(t float64) drawing.Color { return winter.At(t) }

// Jet2 is used for soil and sediment measures.
func Jet2(t float64) drawing.Color { return jet2.At(t) }

// Diverging maps t in [-1, 1] from blue through white to red.
func Diverging(t float64) drawing.Color {
	if math.IsNaN(t) {
		return Fallback
	}
	return diverging.At((t + 1) / 2)
}

// Hex parses "#rrggbb", "rrggbb" or "#rgb". Anything else yields Fallback.
func Hex(s string) drawing.Color {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 3 && len(s) != 6 {
		return Fallback
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return Fallback
		}
	}
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	return drawing.ColorFromHex(s)
}

// RGBA packs c as the four-byte array deck layers consume.
func RGBA(c drawing.Color) [4]uint8 {
	return [4]uint8{c.R, c.G, c.B, c.A}
}

// CSS renders c as #rrggbb, dropping alpha.
func CSS(c drawing.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
