package frame

import (
	"fmt"
	"math/bits"
)

// Correlator slides the recovered bit stream (one bit per byte, as produced
// by the symbol unpacker) against a fixed sync word, emitting a SyncEvent
// whenever the Hamming distance drops to the configured threshold or below.
// It packs the same bits into bytes as it goes, so event offsets are
// expressed in positions of the packed byte stream -- the coordinate space
// the Extractor works in.
type Correlator struct {
	syncWord  uint64
	syncLen   int
	threshold int

	shift    uint64
	mask     uint64
	bitCount uint64 // absolute bits consumed since stream start

	accum    byte
	accumLen int
}

func NewCorrelator(syncWord uint64, syncLen, threshold int) (*Correlator, error) {
	if syncLen <= 0 || syncLen > 64 {
		return nil, fmt.Errorf("sync word length %d out of range", syncLen)
	}
	if threshold < 0 || threshold >= syncLen {
		return nil, fmt.Errorf("threshold %d out of range for %d-bit sync word", threshold, syncLen)
	}
	mask := ^uint64(0)
	if syncLen < 64 {
		mask = 1<<syncLen - 1
	}
	return &Correlator{
		syncWord:  syncWord & mask,
		syncLen:   syncLen,
		threshold: threshold,
		mask:      mask,
	}, nil
}

// SyncWordFromBytes builds the shift-register representation of a sync word
// given its transmitted byte sequence.
func SyncWordFromBytes(b []byte) (word uint64, length int) {
	for _, by := range b {
		word = word<<8 | uint64(by)
	}
	return word, len(b) * 8
}

// Work consumes a window of bits and appends packed bytes to out.  It
// returns the packed bytes and any sync events detected in this window.
// Events are in ascending offset order.
func (c *Correlator) Work(inBits []byte, out []byte) (n int, events []SyncEvent) {
	for _, bit := range inBits {
		c.shift = (c.shift<<1 | uint64(bit&1)) & c.mask
		c.bitCount++

		c.accum = c.accum<<1 | (bit & 1)
		c.accumLen++
		if c.accumLen == 8 {
			out[n] = c.accum
			n++
			c.accum = 0
			c.accumLen = 0
		}

		if c.bitCount < uint64(c.syncLen) {
			continue
		}
		if bits.OnesCount64(c.shift^c.syncWord) <= c.threshold {
			// The payload starts at the next bit; the TX format keeps the
			// sync word byte aligned so this lands on a byte boundary.
			events = append(events, SyncEvent{
				Kind:   KindSyncWord,
				Offset: c.bitCount / 8,
			})
		}
	}
	return n, events
}

// PredictOutputSize returns the packed-byte capacity needed for a window of
// input bits.
func (c *Correlator) PredictOutputSize(inputBits int) int {
	return (inputBits + c.accumLen + 7) / 8
}
