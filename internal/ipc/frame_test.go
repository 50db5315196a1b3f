package ipc

import (
	"bytes"
	"testing"
)

func TestWriteFrame_ReadFrame_RoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	payload := []byte(`{"hello":"world"}`)
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestWriteFrame_RejectsOversizedPayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	oversized := make([]byte, MaxFrameSize+1)
	if err := WriteFrame(&buf, oversized); err == nil {
		t.Error("expected an error for a payload over MaxFrameSize")
	}
}

func TestReadFrame_RejectsOversizedAdvertisedLength(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	// Hand-craft a header advertising a length over MaxFrameSize.
	header := []byte{0xFF, 0xFF, 0xFF, 0x7F}
	buf.Write(header)

	if _, err := ReadFrame(&buf); err == nil {
		t.Error("expected an error for an oversized advertised length")
	}
}
