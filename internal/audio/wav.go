package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM = 1
	bitDepth16   = 16
)

// ErrInvalidWAV is returned when captured bytes are not a PCM waveform container
var ErrInvalidWAV = errors.New("invalid WAV audio")

// Clip is a decoded capture: the original container bytes plus mono samples
type Clip struct {
	WAV        []byte
	SampleRate int
	Channels   int
	BitDepth   int
	Samples    []int // mono
	Duration   time.Duration
}

// DecodeWAV validates a RIFF/WAVE container holding 16-bit linear PCM and
// returns its samples downmixed to mono.
func DecodeWAV(data []byte) (*Clip, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidWAV)
	}

	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE container", ErrInvalidWAV)
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: audio format %d is not linear PCM", ErrInvalidWAV, d.WavAudioFormat)
	}
	if d.BitDepth != bitDepth16 {
		return nil, fmt.Errorf("%w: bit depth %d, want 16", ErrInvalidWAV, d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: no audio samples", ErrInvalidWAV)
	}

	channels := int(d.NumChans)
	samples := Downmix(buf.Data, channels)
	sampleRate := int(d.SampleRate)

	var duration time.Duration
	if sampleRate > 0 {
		duration = time.Duration(len(samples)) * time.Second / time.Duration(sampleRate)
	}

	return &Clip{
		WAV:        data,
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   int(d.BitDepth),
		Samples:    samples,
		Duration:   duration,
	}, nil
}

// WriteWAV frames mono 16-bit samples into a WAV container on w.
// The encoder seeks back to patch chunk sizes, so w must be seekable.
func WriteWAV(w io.WriteSeeker, samples []int, sampleRate int) error {
	if len(samples) == 0 {
		return fmt.Errorf("cannot encode empty audio samples")
	}
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	enc := wav.NewEncoder(w, sampleRate, bitDepth16, 1, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: bitDepth16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write WAV samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV header: %w", err)
	}
	return nil
}
