// Package audiotest builds in-memory WAV captures for tests.
package audiotest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// WAVHeader is the canonical 44-byte PCM header
type WAVHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// WAV encodes interleaved 16-bit samples as a WAV file
func WAV(samples []int16, sampleRate, channels int) []byte {
	dataSize := uint32(len(samples) * 2)
	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * 2),
		BlockAlign:    uint16(channels * 2),
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))
	_ = binary.Write(buf, binary.LittleEndian, header)
	_ = binary.Write(buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

// Tone returns a mono sine wave, loud enough to pass a silence check
func Tone(sampleRate int, duration float64, amplitude float64) []int16 {
	n := int(float64(sampleRate) * duration)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(amplitude * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}
	return samples
}

// SpeechWAV is a short 16kHz mono tone clip
func SpeechWAV() []byte {
	return WAV(Tone(16000, 0.25, 8000), 16000, 1)
}

// SilentWAV is a short 16kHz mono clip of zeros
func SilentWAV() []byte {
	return WAV(make([]int16, 4000), 16000, 1)
}
