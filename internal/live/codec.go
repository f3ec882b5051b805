// Package live implements the full-duplex voice session: PCM framing, gapless
// playback scheduling and the connect/stream/teardown state machine.
package live

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	InputSampleRate  = 16000
	OutputSampleRate = 24000
	InputMIMEType    = "audio/pcm;rate=16000"

	bytesPerSample = 2
)

// Blob is one base64-encoded audio frame.
type Blob struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// EncodeFrame converts captured float samples to the upstream wire form.
func EncodeFrame(samples []float32) Blob {
	return Blob{
		Data:     base64.StdEncoding.EncodeToString(PCM16FromFloat(samples)),
		MIMEType: InputMIMEType,
	}
}

// DecodeFrame turns a base64 PCM16 frame into float samples in [-1, 1).
func DecodeFrame(data string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode audio frame: %w", err)
	}
	if len(raw)%bytesPerSample != 0 {
		return nil, fmt.Errorf("decode audio frame: odd byte count %d", len(raw))
	}
	return FloatFromPCM16(raw), nil
}

// PCM16FromFloat scales by 32768 and clamps to the int16 range, little endian.
func PCM16FromFloat(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		v := math.Round(float64(s) * 32768)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(int16(v)))
	}
	return out
}

func FloatFromPCM16(pcm []byte) []float32 {
	n := len(pcm) / bytesPerSample
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:]))
		out[i] = float32(v) / 32768
	}
	return out
}

// RMSLevel is the root mean square of the frame, used for the input meter.
func RMSLevel(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// FrameDuration is the playback length in seconds of n mono samples.
func FrameDuration(n, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(n) / float64(sampleRate)
}

// WAV wraps 16-bit PCM in a canonical 44-byte RIFF header.
func WAV(pcm []byte, sampleRate, channels int) []byte {
	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	return append(header, pcm...)
}
