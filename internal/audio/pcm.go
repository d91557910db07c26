package audio

import (
	"fmt"
	"math"
)

// PCM16ToInts converts linear PCM audio (16-bit signed, little-endian) to samples
func PCM16ToInts(pcmData []byte) ([]int, error) {
	if len(pcmData) == 0 {
		return nil, fmt.Errorf("empty PCM data")
	}
	if len(pcmData)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even (16-bit samples)")
	}

	samples := make([]int, len(pcmData)/2)
	for i := range samples {
		samples[i] = int(int16(pcmData[i*2]) | int16(pcmData[i*2+1])<<8)
	}
	return samples, nil
}

// Downmix averages interleaved channels into a single mono channel
func Downmix(samples []int, channels int) []int {
	if channels <= 1 {
		return samples
	}

	mono := make([]int, len(samples)/channels)
	for i := range mono {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono[i] = sum / channels
	}
	return mono
}

// CalculateRMS calculates the root mean square (RMS) of audio samples
// Useful for detecting audio levels and silence
func CalculateRMS(samples []int) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// DetectSilence reports whether the samples stay below an RMS threshold
func DetectSilence(samples []int, threshold float64) bool {
	return CalculateRMS(samples) < threshold
}
