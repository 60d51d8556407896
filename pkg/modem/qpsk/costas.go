package qpsk

import "math"

// CostasLoop is a fourth-order Costas loop: it tracks out residual carrier
// frequency and phase after timing recovery, leaving the constellation
// rotated by an unknown multiple of pi/2.  That residual ambiguity is the
// differential line code's problem, not ours.
//
// Loop filter gains follow the standard critically-damped second-order
// derivation from a single loop-bandwidth parameter.
type CostasLoop struct {
	phase float32
	freq  float32

	alpha float32
	beta  float32

	maxFreq float32
}

const costasDamping = 0.70710678 // 1/sqrt(2)

func NewCostasLoop(loopBw float32) *CostasLoop {
	denom := 1 + 2*costasDamping*loopBw + loopBw*loopBw
	return &CostasLoop{
		alpha:   4 * costasDamping * loopBw / denom,
		beta:    4 * loopBw * loopBw / denom,
		maxFreq: 1.0,
	}
}

func (c *CostasLoop) phaseError(sample complex64) float32 {
	re, im := real(sample), imag(sample)
	err := sign(re)*im - sign(im)*re
	if err > 1 {
		err = 1
	} else if err < -1 {
		err = -1
	}
	return err
}

func sign(f float32) float32 {
	if f < 0 {
		return -1
	}
	return 1
}

func (c *CostasLoop) WorkBuffer(input, output []complex64) int {
	for i, in := range input {
		s, co := math.Sincos(float64(-c.phase))
		nco := complex(float32(co), float32(s))
		out := in * nco
		output[i] = out

		err := c.phaseError(out)
		c.freq += c.beta * err
		c.phase += c.freq + c.alpha*err

		for c.phase > 2*math.Pi {
			c.phase -= 2 * math.Pi
		}
		for c.phase < -2*math.Pi {
			c.phase += 2 * math.Pi
		}
		if c.freq > c.maxFreq {
			c.freq = c.maxFreq
		} else if c.freq < -c.maxFreq {
			c.freq = -c.maxFreq
		}
	}
	return len(input)
}

func (c *CostasLoop) Work(input []complex64) []complex64 {
	out := make([]complex64, len(input))
	c.WorkBuffer(input, out)
	return out
}

func (c *CostasLoop) PredictOutputSize(inputSize int) int {
	return inputSize
}

func (c *CostasLoop) Reset() {
	c.phase = 0
	c.freq = 0
}
