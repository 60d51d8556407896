package fir

// InterpFirFilter upsamples by an integer factor and filters in one pass:
// each input sample is zero-stuffed to interp outputs and convolved with the
// supplied taps.  With root-raised-cosine taps this is the transmit pulse
// shaper.  History spans calls so streams may arrive in arbitrary windows.
type InterpFirFilter struct {
	interp  int
	taps    []float32
	history []complex64
}

func NewInterpFirFilter(interp int, taps []float32) *InterpFirFilter {
	// History holds the input samples still inside the filter span.
	span := (len(taps)+interp-1)/interp - 1
	if span < 0 {
		span = 0
	}
	return &InterpFirFilter{
		interp:  interp,
		taps:    taps,
		history: make([]complex64, span),
	}
}

func (f *InterpFirFilter) WorkBuffer(input []complex64, output []complex64) int {
	samples := append(f.history, input...)
	span := len(f.history)

	n := 0
	for i := span; i < len(samples); i++ {
		for phase := 0; phase < f.interp; phase++ {
			var acc complex64
			// Only every interp-th tap hits a nonzero (stuffed) sample.
			for t := phase; t < len(f.taps); t += f.interp {
				idx := i - t/f.interp
				if idx < 0 {
					break
				}
				acc += samples[idx] * complex(f.taps[t], 0)
			}
			output[n] = acc
			n++
		}
	}

	if len(samples) >= span {
		f.history = append(f.history[:0], samples[len(samples)-span:]...)
	}
	return n
}

func (f *InterpFirFilter) Work(input []complex64) []complex64 {
	out := make([]complex64, f.PredictOutputSize(len(input)))
	return out[:f.WorkBuffer(input, out)]
}

func (f *InterpFirFilter) PredictOutputSize(inputSize int) int {
	return inputSize * f.interp
}
