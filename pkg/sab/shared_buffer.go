//go:build js && wasm

package sab

import (
	"encoding/binary"
	"fmt"
	"syscall/js"
)

// Header offsets (first 16 bytes are header)
const (
	OffsetReady     = 0  // int32: 0 = idle, 1 = data ready
	OffsetLength    = 4  // uint32: payload length
	OffsetMsgType   = 8  // uint32: message type
	OffsetReserved  = 12 // uint32: reserved
	OffsetPayload   = 16 // payload starts here
	DefaultBufferSz = 1 << 20
)

// SharedBuffer provides zero-copy access to a JS SharedArrayBuffer
type SharedBuffer struct {
	uint8View js.Value // Uint8Array view for byte access
	int32View js.Value // Int32Array view for Atomics
	length    int
}

// New wraps a JavaScript SharedArrayBuffer. It returns nil for undefined
// or null.
func New(sabValue js.Value) *SharedBuffer {
	if sabValue.IsUndefined() || sabValue.IsNull() {
		return nil
	}
	return &SharedBuffer{
		uint8View: js.Global().Get("Uint8Array").New(sabValue),
		int32View: js.Global().Get("Int32Array").New(sabValue),
		length:    sabValue.Get("byteLength").Int(),
	}
}

// Length returns the buffer size
func (s *SharedBuffer) Length() int {
	return s.length
}

// WriteBytes writes bytes to the buffer at offset
func (s *SharedBuffer) WriteBytes(offset int, data []byte) {
	if offset+len(data) > s.length {
		return
	}
	subarray := s.uint8View.Call("subarray", offset, offset+len(data))
	js.CopyBytesToJS(subarray, data)
}

// WriteHeader writes the message header (length, type)
func (s *SharedBuffer) WriteHeader(payloadLen uint32, msgType uint32) {
	header := make([]byte, OffsetPayload)
	binary.LittleEndian.PutUint32(header[OffsetLength:], payloadLen)
	binary.LittleEndian.PutUint32(header[OffsetMsgType:], msgType)
	s.WriteBytes(0, header)
}

// SignalReady sets the ready flag and notifies waiting JS
func (s *SharedBuffer) SignalReady() {
	atomics := js.Global().Get("Atomics")
	atomics.Call("store", s.int32View, 0, 1)
	atomics.Call("notify", s.int32View, 0, 1)
}

// WriteMessage writes a complete message (header + payload) and signals JS.
// A payload that does not fit is refused; the caller falls back to a copy.
func (s *SharedBuffer) WriteMessage(msgType uint32, payload []byte) error {
	if len(payload)+OffsetPayload > s.length {
		return fmt.Errorf("sab: %d byte payload exceeds %d byte buffer", len(payload), s.length-OffsetPayload)
	}
	s.WriteHeader(uint32(len(payload)), msgType)
	s.WriteBytes(OffsetPayload, payload)
	s.SignalReady()
	return nil
}

// ToUint8Array copies data into a fresh Uint8Array.
func ToUint8Array(data []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(arr, data)
	return arr
}
