package rmsagc

import (
	"math"
)

// RMSAGC is a root-mean-squared automatic gain controller over complex
// baseband.  It normalizes input power ahead of the matched filter so the
// recovery loops run with level-independent gains.
type RMSAGC struct {
	alpha   float64
	beta    float64
	gain    float64
	average float64
}

func NewRMSAGC(alpha float64, k float64) *RMSAGC {
	return &RMSAGC{
		alpha:   alpha,
		beta:    1 - alpha,
		average: 1.0,
		gain:    k,
	}
}

func (r *RMSAGC) PredictOutputSize(inputSize int) int {
	return inputSize
}

func (r *RMSAGC) WorkBuffer(input, output []complex64) int {
	for i := 0; i < len(input); i++ {
		re := float64(real(input[i]))
		im := float64(imag(input[i]))
		magSquared := re*re + im*im
		r.average = r.beta*r.average + r.alpha*magSquared
		if r.average > 0 {
			scale := float32(r.gain / math.Sqrt(r.average))
			output[i] = input[i] * complex(scale, 0)
		} else {
			output[i] = input[i] * complex(float32(r.gain), 0)
		}
	}

	return len(input)
}

func (r *RMSAGC) Work(data []complex64) []complex64 {
	ret := make([]complex64, len(data))
	r.WorkBuffer(data, ret)
	return ret
}
