package qpsk

import "math"

// ClockRecovery is Mueller and Muller timing recovery over complex samples,
// decimating from samples-per-symbol to one sample per symbol.  The error
// term is the standard decision-directed M&M derivation; interpolation is
// linear, which is adequate at the oversampling ratios this link runs at.
type ClockRecovery struct {
	omega     float32 // samples per symbol estimate
	omegaMid  float32
	omegaLim  float32
	gainOmega float32
	mu        float32
	gainMu    float32

	p1, p2 complex64
	c1, c2 complex64

	history []complex64
}

func NewClockRecovery(omega, gainMu float32) *ClockRecovery {
	return &ClockRecovery{
		omega:     omega,
		omegaMid:  omega,
		omegaLim:  omega * 0.005,
		gainOmega: 0.25 * gainMu * gainMu,
		gainMu:    gainMu,
		mu:        0.5,
	}
}

func slice0deg(c complex64) complex64 {
	var re, im float32
	if real(c) > 0 {
		re = 1
	}
	if imag(c) > 0 {
		im = 1
	}
	return complex(re, im)
}

func clip(f, limit float32) float32 {
	if f > limit {
		return limit
	}
	if f < -limit {
		return -limit
	}
	return f
}

func (r *ClockRecovery) WorkBuffer(input, output []complex64) int {
	samples := append(r.history, input...)

	n := 0
	ii := 0
	for ii+1 < len(samples) {
		// Linear interpolation at the fractional symbol instant.
		p0 := samples[ii] + complex(r.mu, 0)*(samples[ii+1]-samples[ii])
		c0 := slice0deg(p0)

		x := (c0 - r.c2) * conj(r.p1)
		y := (p0 - r.p2) * conj(r.c1)
		mmErr := clip(real(y-x), 1.0)

		r.p2, r.p1 = r.p1, p0
		r.c2, r.c1 = r.c1, c0

		output[n] = p0
		n++

		r.omega += r.gainOmega * mmErr
		r.omega = r.omegaMid + clip(r.omega-r.omegaMid, r.omegaLim)
		r.mu += r.omega + r.gainMu*mmErr

		step := int(math.Floor(float64(r.mu)))
		r.mu -= float32(step)
		if step < 1 {
			step = 1
			r.mu = 0
		}
		ii += step
	}

	// Carry the unprocessed tail into the next call.
	if ii < len(samples) {
		r.history = append(r.history[:0], samples[ii:]...)
	} else {
		r.history = r.history[:0]
	}

	return n
}

func conj(c complex64) complex64 {
	return complex(real(c), -imag(c))
}

func (r *ClockRecovery) Work(input []complex64) []complex64 {
	out := make([]complex64, r.PredictOutputSize(len(input)))
	return out[:r.WorkBuffer(input, out)]
}

func (r *ClockRecovery) PredictOutputSize(inputSize int) int {
	// Allow for the omega tracking limit plus carried history.
	return int(float64(inputSize)/float64(r.omegaMid)*1.02) + 8
}

func (r *ClockRecovery) Reset() {
	r.omega = r.omegaMid
	r.mu = 0.5
	r.history = r.history[:0]
	r.p1, r.p2, r.c1, r.c2 = 0, 0, 0, 0
}
