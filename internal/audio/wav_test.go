package audio

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	t.Parallel()

	pcm := []byte{1, 2, 3, 4, 5, 6}
	out := EncodeWAV(pcm, 16000, 1)

	if len(out) != wavHeaderSize+len(pcm) {
		t.Fatalf("unexpected size %d", len(out))
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" || string(out[36:40]) != "data" {
		t.Fatalf("missing chunk markers")
	}
	if got := binary.LittleEndian.Uint32(out[24:28]); got != 16000 {
		t.Fatalf("unexpected sample rate %d", got)
	}
	if got := binary.LittleEndian.Uint32(out[28:32]); got != 32000 {
		t.Fatalf("unexpected byte rate %d", got)
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != uint32(len(pcm)) {
		t.Fatalf("unexpected data size %d", got)
	}
	if string(out[wavHeaderSize:]) != string(pcm) {
		t.Fatalf("pcm payload not preserved")
	}
}

func TestEncodeWAVDefaultsFormat(t *testing.T) {
	t.Parallel()

	out := EncodeWAV(nil, 0, 0)
	if got := binary.LittleEndian.Uint16(out[22:24]); got != 1 {
		t.Fatalf("expected mono default, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(out[4:8]); got != 36 {
		t.Fatalf("unexpected riff size %d", got)
	}
}
