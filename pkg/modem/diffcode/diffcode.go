package diffcode

import (
	"fmt"
	"math/bits"
)

// Differential line code over a power-of-two symbol alphabet.  The carrier
// recovery loop on the receive side can lock with any multiple of the
// constellation's rotational ambiguity; encoding the difference between
// consecutive symbol indexes instead of their absolute value makes the
// recovered stream invariant to that constant rotation.
//
// Streams carry one symbol index per byte, values in [0, M).  Encoder and
// decoder each hold a single previous-symbol register, initialized to 0 on
// both ends of the link.

func validateModulus(m int) (uint8, error) {
	if m <= 1 || m > 256 {
		return 0, fmt.Errorf("modulus %d out of range", m)
	}
	if bits.OnesCount(uint(m)) != 1 {
		return 0, fmt.Errorf("modulus %d is not a power of two", m)
	}
	return uint8(m - 1), nil
}

type Encoder struct {
	mask uint8
	prev uint8
}

func NewEncoder(m int) (*Encoder, error) {
	mask, err := validateModulus(m)
	if err != nil {
		return nil, err
	}
	return &Encoder{mask: mask}, nil
}

func (e *Encoder) Reset() {
	e.prev = 0
}

func (e *Encoder) WorkBuffer(input, output []byte) int {
	for i := 0; i < len(input); i++ {
		e.prev = (e.prev + input[i]) & e.mask
		output[i] = e.prev
	}
	return len(input)
}

func (e *Encoder) Work(input []byte) []byte {
	out := make([]byte, len(input))
	e.WorkBuffer(input, out)
	return out
}

func (e *Encoder) PredictOutputSize(inputSize int) int {
	return inputSize
}

type Decoder struct {
	mask uint8
	prev uint8
}

func NewDecoder(m int) (*Decoder, error) {
	mask, err := validateModulus(m)
	if err != nil {
		return nil, err
	}
	return &Decoder{mask: mask}, nil
}

func (d *Decoder) Reset() {
	d.prev = 0
}

func (d *Decoder) WorkBuffer(input, output []byte) int {
	for i := 0; i < len(input); i++ {
		cur := input[i] & d.mask
		output[i] = (cur - d.prev) & d.mask
		d.prev = cur
	}
	return len(input)
}

func (d *Decoder) Work(input []byte) []byte {
	out := make([]byte, len(input))
	d.WorkBuffer(input, out)
	return out
}

func (d *Decoder) PredictOutputSize(inputSize int) int {
	return inputSize
}
