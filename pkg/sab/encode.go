// Package sab moves per-feature layer styles to the page, through a
// SharedArrayBuffer when the page provides one.
package sab

import (
	"encoding/binary"
	"math"

	"github.com/weppcloud/gldash/pkg/geo"
	"github.com/weppcloud/gldash/pkg/layers"
)

// Message types for the binary protocol
const (
	MsgTypeNone        uint32 = 0
	MsgTypeLayerStyles uint32 = 1
	MsgTypeAck         uint32 = 0xFF
)

// LayerStyle holds per-feature accessor results for one GeoJSON layer, in
// subcatchment feature order.
type LayerStyle struct {
	ID         string
	Fill       []byte // RGBA, 4 bytes per feature
	Line       []byte // RGBA, 4 bytes per feature
	LineWidths []float32
}

// StylesFor evaluates the accessors of every GeoJSON layer in stack.
func StylesFor(stack []layers.Layer, features []geo.Feature) []LayerStyle {
	var out []LayerStyle
	for _, l := range stack {
		if l.Kind != layers.KindGeoJSON {
			continue
		}
		widths := l.LineWidths(features)
		ls := LayerStyle{
			ID:         l.ID,
			Fill:       l.Colors(features),
			Line:       make([]byte, 0, 4*len(features)),
			LineWidths: make([]float32, len(widths)),
		}
		for i, f := range features {
			c := layers.LineDefault
			if l.LineColor != nil {
				c = l.LineColor(f)
			}
			ls.Line = append(ls.Line, c.R, c.G, c.B, c.A)
			ls.LineWidths[i] = float32(widths[i])
		}
		out = append(out, ls)
	}
	return out
}

// EncodeLayerStyles encodes styles into binary format
// Format: [count:4] then per layer
// [idLen:2][id][n:4][fill:4n][line:4n][widths:4n float32]
func EncodeLayerStyles(styles []LayerStyle) []byte {
	size := 4
	for _, s := range styles {
		size += 2 + len(s.ID) + 4 + 12*len(s.LineWidths)
	}
	data := make([]byte, size)
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(styles)))

	offset := 4
	for _, s := range styles {
		binary.LittleEndian.PutUint16(data[offset:], uint16(len(s.ID)))
		offset += 2
		offset += copy(data[offset:], s.ID)

		n := len(s.LineWidths)
		binary.LittleEndian.PutUint32(data[offset:], uint32(n))
		offset += 4
		copy(data[offset:offset+4*n], s.Fill)
		offset += 4 * n
		copy(data[offset:offset+4*n], s.Line)
		offset += 4 * n
		for _, w := range s.LineWidths {
			binary.LittleEndian.PutUint32(data[offset:], math.Float32bits(w))
			offset += 4
		}
	}
	return data
}
