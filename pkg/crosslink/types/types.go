package types

import "time"

// SegmentComplex64 is one buffer of complex baseband samples moving through
// the pipeline.  SegmentNumber increases monotonically per stream.
type SegmentComplex64 struct {
	SampleRate    int
	Frequency     int
	SegmentNumber int
	Data          []complex64
}

// SegmentCS8Raw is a buffer of interleaved signed 8-bit I/Q samples as
// produced by a HackRF (and by our recording sink).
type SegmentCS8Raw struct {
	SampleRate int
	Frequency  int
	Data       []byte
}

const cs8Scale = 1.0 / 128.0

// ToComplex64 converts interleaved CS8 to complex baseband in [-1, 1).
func (s SegmentCS8Raw) ToComplex64() *SegmentComplex64 {
	out := make([]complex64, len(s.Data)/2)
	for i := 0; i < len(out); i++ {
		re := float32(int8(s.Data[2*i])) * cs8Scale
		im := float32(int8(s.Data[2*i+1])) * cs8Scale
		out[i] = complex(re, im)
	}
	return &SegmentComplex64{
		SampleRate: s.SampleRate,
		Frequency:  s.Frequency,
		Data:       out,
	}
}

// ToCS8 converts complex baseband back to interleaved signed 8-bit I/Q,
// clamping to the int8 range.  Used on the transmit side.
func (s *SegmentComplex64) ToCS8() []byte {
	out := make([]byte, len(s.Data)*2)
	for i, c := range s.Data {
		out[2*i] = byte(clampInt8(real(c) * 127))
		out[2*i+1] = byte(clampInt8(imag(c) * 127))
	}
	return out
}

func clampInt8(f float32) int8 {
	if f > 127 {
		return 127
	}
	if f < -127 {
		return -127
	}
	return int8(f)
}

// SegmentCU8Raw is a buffer of interleaved unsigned 8-bit I/Q samples as
// produced by an RTL-SDR (zero is at 127.5).
type SegmentCU8Raw struct {
	SampleRate int
	Frequency  int
	Data       []byte
}

func (s SegmentCU8Raw) ToComplex64() *SegmentComplex64 {
	out := make([]complex64, len(s.Data)/2)
	for i := 0; i < len(out); i++ {
		re := (float32(s.Data[2*i]) - 127.5) * cs8Scale
		im := (float32(s.Data[2*i+1]) - 127.5) * cs8Scale
		out[i] = complex(re, im)
	}
	return &SegmentComplex64{
		SampleRate: s.SampleRate,
		Frequency:  s.Frequency,
		Data:       out,
	}
}

// SegmentBytes is one buffer of byte-oriented data (symbol indexes, bits, or
// packed bytes depending on pipeline position).
type SegmentBytes struct {
	SymbolRate    int
	SegmentNumber int
	Data          []byte
}

// Payload is one fixed-length packet recovered from the receive chain,
// tagged with where and when it was heard.
type Payload struct {
	Frequency  int
	Number     uint64
	ReceivedAt time.Time
	Data       []byte
}
