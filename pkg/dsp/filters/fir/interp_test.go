package fir

import (
	"math"
	"math/cmplx"
	"testing"

	dspfft "github.com/mjibson/go-dsp/fft"
	"github.com/racerxdl/segdsp/dsp"
)

func TestInterpFirImpulseResponse(t *testing.T) {
	const interp = 4
	taps := []float32{1, 2, 3, 4, 5, 6, 7, 8}

	f := NewInterpFirFilter(interp, taps)
	in := make([]complex64, 8)
	in[0] = 1

	out := f.Work(in)
	if len(out) != len(in)*interp {
		t.Fatalf("output length %d, want %d", len(out), len(in)*interp)
	}

	// An impulse must reproduce the taps at the upsampled rate.
	for i, tap := range taps {
		if math.Abs(float64(real(out[i])-tap)) > 1e-6 {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], tap)
		}
	}
	for i := len(taps); i < len(out); i++ {
		if out[i] != 0 {
			t.Fatalf("out[%d] = %v, want 0 past the filter span", i, out[i])
		}
	}
}

func TestInterpFirWindowedDelivery(t *testing.T) {
	const interp = 8
	taps := dsp.MakeRRC(1.0, 8, 1, 0.35, 57)

	mk := func() []complex64 {
		in := make([]complex64, 64)
		for i := range in {
			in[i] = complex(float32(i%7)-3, float32(i%5)-2)
		}
		return in
	}

	whole := NewInterpFirFilter(interp, taps).Work(mk())

	split := NewInterpFirFilter(interp, taps)
	var got []complex64
	in := mk()
	for pos := 0; pos < len(in); {
		end := pos + 11
		if end > len(in) {
			end = len(in)
		}
		got = append(got, split.Work(in[pos:end])...)
		pos = end
	}

	if len(got) != len(whole) {
		t.Fatalf("windowed run produced %d samples, single run %d", len(got), len(whole))
	}
	for i := range got {
		if d := cmplx.Abs(complex128(got[i] - whole[i])); d > 1e-4 {
			t.Fatalf("windowed output diverges at sample %d by %g", i, d)
		}
	}
}

// The RRC pulse shaper bounds the transmitted spectrum: beyond
// (1+alpha)/2 of the symbol rate the response should be far down from the
// passband.
func TestRRCTapsStopband(t *testing.T) {
	const (
		sps   = 8
		alpha = 0.35
		ntaps = 11*sps + 1
	)
	taps := dsp.MakeRRC(1.0, sps, 1, alpha, ntaps)

	const nfft = 4096
	buf := make([]complex128, nfft)
	for i, tap := range taps {
		buf[i] = complex(float64(tap), 0)
	}
	spectrum := dspfft.FFT(buf)

	var passband float64
	for i := 0; i < nfft; i++ {
		if mag := cmplx.Abs(spectrum[i]); mag > passband {
			passband = mag
		}
	}

	// Normalized cutoff of the occupied band, in FFT bins.
	stopEdge := int(math.Floor(float64(nfft) / sps * (1 + alpha) / 2 * 1.5))
	worst := 0.0
	for i := stopEdge; i < nfft/2; i++ {
		if mag := cmplx.Abs(spectrum[i]); mag > worst {
			worst = mag
		}
	}

	if atten := 20 * math.Log10(worst/passband); atten > -30 {
		t.Fatalf("stopband only %0.1f dB below passband", atten)
	}
}
