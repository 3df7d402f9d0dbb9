package audio

import (
	"encoding/binary"
	"testing"
)

func TestFloat32ToInt16Clamps(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0.0, 0},
		{1.0, 32767},
		{-1.0, -32767},
		{2.0, 32767},
		{-2.0, -32767},
		{0.5, 16383},
	}

	for _, tt := range tests {
		got := Float32ToInt16([]float32{tt.in})
		if got[0] != tt.want {
			t.Errorf("Float32ToInt16(%g) = %d, want %d", tt.in, got[0], tt.want)
		}
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	samples := make([]float32, 160)
	wav := EncodeWAV(samples, 16000, 1)

	if len(wav) != 44+len(samples)*2 {
		t.Fatalf("len = %d, want %d", len(wav), 44+len(samples)*2)
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if ch := binary.LittleEndian.Uint16(wav[22:24]); ch != 1 {
		t.Errorf("channels = %d, want 1", ch)
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if bits := binary.LittleEndian.Uint16(wav[34:36]); bits != 16 {
		t.Errorf("bits = %d, want 16", bits)
	}
	if string(wav[36:40]) != "data" {
		t.Error("missing data marker")
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); size != uint32(len(samples)*2) {
		t.Errorf("data size = %d, want %d", size, len(samples)*2)
	}
}

func TestEncodeWAVStereo(t *testing.T) {
	samples := make([]float32, 320)
	wav := EncodeWAV(samples, 48000, 2)

	if ch := binary.LittleEndian.Uint16(wav[22:24]); ch != 2 {
		t.Errorf("channels = %d, want 2", ch)
	}
	if align := binary.LittleEndian.Uint16(wav[32:34]); align != 4 {
		t.Errorf("block align = %d, want 4", align)
	}
	if byteRate := binary.LittleEndian.Uint32(wav[28:32]); byteRate != 48000*4 {
		t.Errorf("byte rate = %d, want %d", byteRate, 48000*4)
	}
}
