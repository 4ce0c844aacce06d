// Package decode provides the "decode(path) → (pcm_i16_mono,
// sample_rate_hz)" external collaborator spec.md §1 describes as out
// of core scope, with a concrete WAV implementation so the backend has
// something real to load in development and in tests.
package decode

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// PCM is one decoded, mono sample buffer.
type PCM struct {
	Samples    []int16
	SampleRate int
}

// WAV decodes a .wav file at path into mono 16-bit PCM, averaging
// stereo channels down to one (spec §4.5 "converts stereo to mono by
// averaging").
func WAV(path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid WAV file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return &PCM{Samples: toMono(buf), SampleRate: buf.Format.SampleRate}, nil
}

func toMono(buf *audio.IntBuffer) []int16 {
	channels := buf.Format.NumChannels
	if channels <= 1 {
		out := make([]int16, len(buf.Data))
		for i, v := range buf.Data {
			out[i] = int16(v)
		}
		return out
	}

	frames := len(buf.Data) / channels
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}
		out[i] = int16(sum / channels)
	}
	return out
}
