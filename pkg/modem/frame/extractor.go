package frame

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type extractorState int

const (
	stateSearching extractorState = iota
	stateCopying
)

// Extractor recovers fixed-length payloads from a windowed byte stream.
// The surrounding framework calls Work once per available window, passing the
// sync events whose offsets fall inside it, and advances its cursors by
// exactly the consumed/produced counts returned.  Unconsumed bytes (and the
// events anchored in them) must be redelivered on the next call.
//
// While a payload copy is in progress any further sync events are ignored:
// packets cannot overlap.  Back-to-back packets with no gap between them are
// therefore not supported.
type Extractor struct {
	packetLen int
	state     extractorState
	remaining int
	nread     uint64 // absolute offset of in[0]

	logger   zerolog.Logger
	onDetect func(SyncEvent)
}

type ExtractorOption func(e *Extractor)

// WithLogger replaces the default global logger.
func WithLogger(logger zerolog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithDetectFunc installs a callback invoked on every accepted sync event,
// before copying begins.
func WithDetectFunc(fn func(SyncEvent)) ExtractorOption {
	return func(e *Extractor) {
		e.onDetect = fn
	}
}

func NewExtractor(packetLen int, opts ...ExtractorOption) (*Extractor, error) {
	if packetLen <= 0 {
		return nil, fmt.Errorf("packet length %d must be positive", packetLen)
	}
	e := &Extractor{
		packetLen: packetLen,
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Searching reports whether the extractor is between payloads.
func (e *Extractor) Searching() bool {
	return e.state == stateSearching
}

// Remaining returns how many payload bytes are still to be copied.
func (e *Extractor) Remaining() int {
	return e.remaining
}

// NumRead returns the absolute stream offset the next window starts at.
func (e *Extractor) NumRead() uint64 {
	return e.nread
}

// Work processes one window.  Events must be in ascending offset order.
// Payload bytes are written to out; consumed input bytes and produced output
// bytes are returned.
func (e *Extractor) Work(in []byte, events []SyncEvent, out []byte) (consumed, produced int) {
	readPtr := 0

	if e.state == stateSearching {
		for _, ev := range events {
			if ev.Kind != KindSyncWord {
				continue
			}
			// A match that concludes on the window's final byte anchors its
			// payload at the window boundary, so the inclusive upper bound.
			if ev.Offset < e.nread || ev.Offset > e.nread+uint64(len(in)) {
				// Stale or premature marker: synchronization noise, drop it.
				e.logger.Debug().
					Uint64("offset", ev.Offset).
					Uint64("window_start", e.nread).
					Int("window_len", len(in)).
					Msg("discarding out-of-window sync event")
				continue
			}

			e.logger.Info().
				Uint64("offset", ev.Offset).
				Int("packet_len", e.packetLen).
				Msg("packet detected")
			if e.onDetect != nil {
				e.onDetect(ev)
			}

			e.state = stateCopying
			e.remaining = e.packetLen
			readPtr = int(ev.Offset - e.nread)
			break
		}

		if e.state == stateSearching {
			// Nothing extractable here; the window is never seen again.
			e.nread += uint64(len(in))
			return len(in), 0
		}
	}

	avail := len(in) - readPtr
	n := avail
	if e.remaining < n {
		n = e.remaining
	}
	if len(out) < n {
		n = len(out)
	}
	if n > 0 {
		copy(out[:n], in[readPtr:readPtr+n])
		readPtr += n
		produced = n
		e.remaining -= n
	}
	if e.remaining == 0 {
		e.state = stateSearching
	}

	e.nread += uint64(readPtr)
	return readPtr, produced
}
