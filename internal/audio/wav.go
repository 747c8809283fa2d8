// Package audio wraps raw PCM bytes from the TTS backend into WAV
// containers and validates WAV artifacts pulled back out of the cache
// (spec.md §3 AudioArtifact, §4.3 raw→WAV wrap).
//
// The header is written by hand with encoding/binary rather than through
// a WAV-encoding library: the backend already hands us PCM16 bytes (not
// float samples), and the data length is known up front, so there is
// nothing for an encoder library to add over direct header construction
// — the same choice the corpus itself makes for its streaming WAV header
// (CWBudde-go-pocket-tts internal/audio/wav_stream.go). Decoding, where a
// real parser earns its keep, uses github.com/cwbudde/wav below.
package audio

import (
	"encoding/binary"
	"fmt"
)

const (
	Channels       = 1
	BitsPerSample  = 16
	SampleRateHz   = 22050
	headerSize     = 44
	bytesPerSample = BitsPerSample / 8
)

// WrapPCM prepends a standard RIFF/WAVE header to raw little-endian
// PCM16 mono samples at SampleRateHz. It does not copy pcm beyond the
// final concatenation.
func WrapPCM(pcm []byte) []byte {
	dataSize := uint32(len(pcm))
	byteRate := uint32(SampleRateHz * Channels * bytesPerSample)
	blockAlign := uint16(Channels * bytesPerSample)

	buf := make([]byte, headerSize+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], Channels)
	binary.LittleEndian.PutUint32(buf[24:28], SampleRateHz)
	binary.LittleEndian.PutUint32(buf[28:32], byteRate)
	binary.LittleEndian.PutUint16(buf[32:34], blockAlign)
	binary.LittleEndian.PutUint16(buf[34:36], BitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], dataSize)
	copy(buf[headerSize:], pcm)
	return buf
}

// IsWAV reports whether data already carries a RIFF/WAVE header, so the
// backend client can skip re-wrapping audio the backend delivers
// pre-packaged (spec.md §4.3).
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// ErrShortHeader is returned by UnwrapPCM when data is too small to hold
// a WAV header.
var ErrShortHeader = fmt.Errorf("audio: data shorter than a WAV header")

// UnwrapPCM is the inverse of WrapPCM: given bytes produced by WrapPCM,
// it returns the original PCM payload. Used by the round-trip property
// test in spec.md §8.
func UnwrapPCM(wav []byte) ([]byte, error) {
	if len(wav) < headerSize {
		return nil, ErrShortHeader
	}
	dataSize := binary.LittleEndian.Uint32(wav[40:44])
	if int(dataSize) > len(wav)-headerSize {
		return nil, fmt.Errorf("audio: data chunk size %d exceeds payload", dataSize)
	}
	return wav[headerSize : headerSize+int(dataSize)], nil
}
