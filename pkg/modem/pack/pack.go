package pack

import "fmt"

// Unpacker splits packed bytes into k-bit groups, most significant bits
// first, one group per output byte.  k must divide 8 so groups never
// straddle a byte boundary.
type Unpacker struct {
	k int
}

func NewUnpacker(k int) (*Unpacker, error) {
	if k <= 0 || k > 8 || 8%k != 0 {
		return nil, fmt.Errorf("group width %d does not divide 8", k)
	}
	return &Unpacker{k: k}, nil
}

func (u *Unpacker) WorkBuffer(input, output []byte) int {
	per := 8 / u.k
	mask := byte(1<<u.k - 1)
	n := 0
	for _, b := range input {
		for g := per - 1; g >= 0; g-- {
			output[n] = (b >> (g * u.k)) & mask
			n++
		}
	}
	return n
}

func (u *Unpacker) Work(input []byte) []byte {
	out := make([]byte, u.PredictOutputSize(len(input)))
	return out[:u.WorkBuffer(input, out)]
}

func (u *Unpacker) PredictOutputSize(inputSize int) int {
	return inputSize * (8 / u.k)
}

// SymbolUnpacker widens k-bit symbols into single-bit bytes, most
// significant bit first.  Unlike Unpacker, each input byte holds one k-bit
// symbol in its low bits, not a full packed byte.
type SymbolUnpacker struct {
	k int
}

func NewSymbolUnpacker(k int) (*SymbolUnpacker, error) {
	if k <= 0 || k > 8 {
		return nil, fmt.Errorf("symbol width %d out of range", k)
	}
	return &SymbolUnpacker{k: k}, nil
}

func (s *SymbolUnpacker) WorkBuffer(input, output []byte) int {
	n := 0
	for _, b := range input {
		for i := s.k - 1; i >= 0; i-- {
			output[n] = (b >> i) & 1
			n++
		}
	}
	return n
}

func (s *SymbolUnpacker) Work(input []byte) []byte {
	out := make([]byte, s.PredictOutputSize(len(input)))
	return out[:s.WorkBuffer(input, out)]
}

func (s *SymbolUnpacker) PredictOutputSize(inputSize int) int {
	return inputSize * s.k
}

// Packer is the inverse: it accumulates k-bit groups into packed bytes.
// A partial byte is carried across calls so the stream may be delivered in
// windows of any size.
type Packer struct {
	k     int
	accum byte
	nbits int
}

func NewPacker(k int) (*Packer, error) {
	if k <= 0 || k > 8 || 8%k != 0 {
		return nil, fmt.Errorf("group width %d does not divide 8", k)
	}
	return &Packer{k: k}, nil
}

func (p *Packer) Reset() {
	p.accum = 0
	p.nbits = 0
}

func (p *Packer) WorkBuffer(input, output []byte) int {
	mask := byte(1<<p.k - 1)
	n := 0
	for _, g := range input {
		p.accum = p.accum<<p.k | (g & mask)
		p.nbits += p.k
		if p.nbits == 8 {
			output[n] = p.accum
			n++
			p.accum = 0
			p.nbits = 0
		}
	}
	return n
}

func (p *Packer) Work(input []byte) []byte {
	out := make([]byte, p.PredictOutputSize(len(input)))
	return out[:p.WorkBuffer(input, out)]
}

func (p *Packer) PredictOutputSize(inputSize int) int {
	return (inputSize*p.k + p.nbits) / 8
}
