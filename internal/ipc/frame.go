// Package ipc implements the IPC Transport (spec §4.A): the framed,
// pooled connection the control plane uses to talk to a Core's (or the
// Service's) local IPC endpoint — a named pipe on Windows, a Unix domain
// socket elsewhere.
package ipc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/stelliberty/stelliberty/internal/ctlerr"
)

// MaxFrameSize bounds a single frame's JSON payload, preventing a
// misbehaving peer from forcing an unbounded allocation.
const MaxFrameSize = 1 << 20 // 1 MiB

// WriteFrame writes a length-prefixed frame: a 4-byte little-endian
// payload length followed by the payload bytes.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("frame payload too large: %d bytes (max %d)", len(payload), MaxFrameSize)
	}
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return &ctlerr.TransportError{Op: "write frame header", Err: err}
	}
	if _, err := w.Write(payload); err != nil {
		return &ctlerr.TransportError{Op: "write frame payload", Err: err}
	}
	return nil
}

// ReadFrame reads a single length-prefixed frame, rejecting any
// advertised length over MaxFrameSize before allocating the buffer.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &ctlerr.TransportError{Op: "read frame header", Err: err}
	}
	length := binary.LittleEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return nil, &ctlerr.ProtocolError{Err: fmt.Errorf("frame length %d exceeds max %d", length, MaxFrameSize)}
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, &ctlerr.TransportError{Op: "read frame payload", Err: err}
	}
	return payload, nil
}
