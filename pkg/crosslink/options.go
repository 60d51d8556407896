package crosslink

import (
	"github.com/crosslink-radio/crosslink/pkg/crosslink/config"
	"github.com/crosslink-radio/crosslink/pkg/crosslink/output"
)

type Options struct {
	CenterFreq int
	SampleRate int
	// IFRate, when nonzero and below SampleRate, enables the front end
	// bandpass decimator.
	IFRate int
	Link   config.Link

	// FrequencyOffset is the residual tuner error in Hz, corrected by a
	// mixer ahead of the matched filter.  Devices that apply ppm correction
	// in hardware leave this at zero.
	FrequencyOffset int

	Outputs []output.PayloadOutput
}
