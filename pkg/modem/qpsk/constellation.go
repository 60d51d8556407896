package qpsk

import "math"

// M is the constellation order: four points, two bits per symbol.
const M = 4

// BitsPerSymbol is log2(M).
const BitsPerSymbol = 2

// Constellation points in angular order: index k sits at phase pi/4 + k*pi/2.
// The ordering matters -- a pi/2 rotation of the carrier maps index k to
// k+1 mod 4, which is exactly the ambiguity the differential line code
// cancels.  A Gray-coded layout would break that property.
var points = func() [M]complex64 {
	var p [M]complex64
	for k := 0; k < M; k++ {
		phase := math.Pi/4 + float64(k)*math.Pi/2
		s, c := math.Sincos(phase)
		p[k] = complex(float32(c), float32(s))
	}
	return p
}()

// Modulator maps symbol indexes (one per input byte, range [0, M)) to
// constellation points.
type Modulator struct{}

func NewModulator() *Modulator {
	return &Modulator{}
}

func (m *Modulator) WorkBuffer(input []byte, output []complex64) int {
	for i, s := range input {
		output[i] = points[s&(M-1)]
	}
	return len(input)
}

func (m *Modulator) Work(input []byte) []complex64 {
	out := make([]complex64, len(input))
	m.WorkBuffer(input, out)
	return out
}

func (m *Modulator) PredictOutputSize(inputSize int) int {
	return inputSize
}

// Decider makes hard symbol decisions by quadrant, the inverse of the
// modulator's angular mapping.
type Decider struct{}

func NewDecider() *Decider {
	return &Decider{}
}

func decide(c complex64) byte {
	re, im := real(c), imag(c)
	switch {
	case re >= 0 && im >= 0:
		return 0
	case re < 0 && im >= 0:
		return 1
	case re < 0 && im < 0:
		return 2
	default:
		return 3
	}
}

func (d *Decider) WorkBuffer(input []complex64, output []byte) int {
	for i, c := range input {
		output[i] = decide(c)
	}
	return len(input)
}

func (d *Decider) Work(input []complex64) []byte {
	out := make([]byte, len(input))
	d.WorkBuffer(input, out)
	return out
}

func (d *Decider) PredictOutputSize(inputSize int) int {
	return inputSize
}
