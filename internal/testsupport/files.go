package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// WAV returns a mono 16 kHz PCM clip with the requested number of samples.
// Samples follow a simple repeating pattern. A count <= 0 yields one sample.
func WAV(samples int) []byte {
	if samples <= 0 {
		samples = 1
	}
	const (
		sampleRate    = 16000
		bitsPerSample = 16
		channels      = 1
	)
	dataSize := samples * bitsPerSample / 8
	out := make([]byte, 44+dataSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1)
	binary.LittleEndian.PutUint16(out[22:], channels)
	binary.LittleEndian.PutUint32(out[24:], sampleRate)
	binary.LittleEndian.PutUint32(out[28:], sampleRate*channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(out[32:], channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(out[34:], bitsPerSample)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i := 44; i < len(out); i++ {
		out[i] = 0x42
	}
	return out
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
