package audio

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestWAVFromPCM(t *testing.T) {
	pcm := make([]byte, 320) // 10ms at 16kHz
	wav := WAVFromPCM(pcm, 16000)

	if len(wav) != wavHeaderSize+len(pcm) {
		t.Fatalf("wav len = %d, want %d", len(wav), wavHeaderSize+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size = %d, want %d", got, len(pcm))
	}
}

func TestPCMDuration(t *testing.T) {
	tests := []struct {
		bytes      int
		sampleRate int
		want       time.Duration
	}{
		{32000, 16000, time.Second},
		{48000, 24000, time.Second},
		{16000, 16000, 500 * time.Millisecond},
		{0, 16000, 0},
		{32000, 0, 0},
	}
	for _, tt := range tests {
		pcm := make([]byte, tt.bytes)
		if got := PCMDuration(pcm, tt.sampleRate); got != tt.want {
			t.Errorf("PCMDuration(%d bytes, %d Hz) = %v, want %v", tt.bytes, tt.sampleRate, got, tt.want)
		}
	}
}
