// Package encoder turns captured PCM into the upload formats the cloud
// backends accept: FLAC for multipart endpoints, WAV for raw-body ones.
package encoder

import "encoding/binary"

const (
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// Encoder accumulates mono 16-bit sample blocks into one encoded buffer.
// Bytes is only complete after Close.
type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
}

// ContentType returns the MIME type for an encoder's output format.
func ContentType(format string) string {
	switch format {
	case "flac":
		return "audio/flac"
	default:
		return "audio/wav"
	}
}

// FromPCM16 reinterprets little-endian 16-bit PCM bytes as samples.
// A trailing odd byte is dropped.
func FromPCM16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}
