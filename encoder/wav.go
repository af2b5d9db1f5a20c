package encoder

import (
	"encoding/binary"
	"sync"
)

const wavHeaderSize = 44

// WavEncoder buffers samples and prepends a RIFF/WAVE header on Bytes.
// Deepgram's raw-body endpoint and the test fixtures both consume this.
type WavEncoder struct {
	samples     []int16
	sampleRate  int
	totalFrames uint64
	mu          sync.Mutex
}

func NewWav(sampleRate int) (*WavEncoder, error) {
	return &WavEncoder{sampleRate: sampleRate}, nil
}

func (e *WavEncoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.samples = append(e.samples, block...)
	e.totalFrames += uint64(len(block))
	return nil
}

func (e *WavEncoder) Close() error {
	return nil
}

func (e *WavEncoder) Bytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EncodeWAV(e.samples, e.sampleRate)
}

func (e *WavEncoder) TotalFrames() uint64 {
	return e.totalFrames
}

// EncodeWAV wraps mono 16-bit samples in a canonical 44-byte WAV header.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, wavHeaderSize+dataSize)

	byteRate := sampleRate * Channels * BitsPerSample / 8
	blockAlign := Channels * BitsPerSample / 8

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(wavHeaderSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], Channels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], BitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[wavHeaderSize+i*2:], uint16(s))
	}
	return buf
}
