package audio

import (
	"bytes"
	"errors"
	"fmt"

	goaudio "github.com/go-audio/audio"
	"github.com/cwbudde/wav"
)

// ErrFormatMismatch is returned by Validate when a WAV artifact does not
// match the format mandated by spec.md §3 (mono, 16-bit, 22050 Hz).
var ErrFormatMismatch = errors.New("audio: WAV format mismatch")

// Validate parses a WAV artifact with a real decoder and confirms it
// matches the cache's mandated format, returning the decoded PCM buffer.
// Used by the `alertvoice cache stats` and `cache purge --corrupt-only`
// commands, not by cache maintenance or the hot path (the hot path only
// ever reads bytes it wrote itself via WrapPCM).
func Validate(data []byte) (*goaudio.IntBuffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("audio: invalid WAV file")
	}
	if dec.SampleRate != SampleRateHz {
		return nil, fmt.Errorf("%w: sample rate %d, want %d", ErrFormatMismatch, dec.SampleRate, SampleRateHz)
	}
	if dec.NumChans != Channels {
		return nil, fmt.Errorf("%w: channels %d, want %d", ErrFormatMismatch, dec.NumChans, Channels)
	}
	if dec.BitDepth != BitsPerSample {
		return nil, fmt.Errorf("%w: bit depth %d, want %d", ErrFormatMismatch, dec.BitDepth, BitsPerSample)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: read PCM: %w", err)
	}
	return buf, nil
}
