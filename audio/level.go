package audio

import (
	"encoding/binary"
	"math"
)

// RMS computes the root-mean-square level of little-endian 16-bit PCM,
// normalized to 0..1.
func RMS(data []byte) float64 {
	n := len(data) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768.0
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
