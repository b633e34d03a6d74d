package snd

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV wraps a segment in a canonical 44-byte RIFF header so it can be
// uploaded to recognizers that expect a file.
func EncodeWAV(seg *Segment) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	data := Bytes(seg.Samples)
	byteRate := seg.SampleRate * channels * bitsPerSample / 8

	var buf bytes.Buffer
	buf.Grow(44 + len(data))
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(seg.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}
