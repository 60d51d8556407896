package device

import (
	"context"

	"github.com/crosslink-radio/crosslink/pkg/crosslink/types"
)

// Source produces complex baseband segments from an SDR (or a recording).
type Source interface {
	Start(ctx context.Context, centerFreq int, sampleRate int, complexSamples chan *types.SegmentComplex64) error
	Stop() error
	MaxSampleRate() int
}

// Sink consumes complex baseband segments and radiates (or records) them.
// Write blocks until the device has accepted the segment; Close drains any
// buffered samples before returning.
type Sink interface {
	Start(ctx context.Context, centerFreq int, sampleRate int) error
	Write(segment *types.SegmentComplex64) error
	Close() error
	MaxSampleRate() int
}
