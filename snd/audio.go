package snd

import (
	"encoding/binary"
	"math"
	"time"
)

// SampleRate is the capture rate. Every recognizer we talk to accepts
// 16 kHz mono linear PCM.
const SampleRate = 16000

// Segment is the audio captured by one listen cycle. It is handed from the
// capture stage to the recognition stage and never shared.
type Segment struct {
	Samples    []int16
	SampleRate int
	CapturedAt time.Time
}

func (s *Segment) Duration() time.Duration {
	return samplesToDuration(len(s.Samples), s.SampleRate)
}

// Stream is synthesized speech: little-endian signed 16-bit mono PCM.
type Stream struct {
	PCM        []byte
	SampleRate int
}

func (s *Stream) Duration() time.Duration {
	return samplesToDuration(len(s.PCM)/2, s.SampleRate)
}

// RMS is the root mean square energy of the samples, on the same scale as
// the sensitivity setting.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Int16s decodes little-endian 16-bit PCM.
func Int16s(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return out
}

// Bytes encodes samples as little-endian 16-bit PCM.
func Bytes(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

func samplesToDuration(n, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}
