package crosslink

import (
	"bytes"
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/crosslink-radio/crosslink/pkg/crosslink/config"
	"github.com/crosslink-radio/crosslink/pkg/crosslink/types"
	"github.com/crosslink-radio/crosslink/pkg/modem/diffcode"
	"github.com/crosslink-radio/crosslink/pkg/modem/pack"
	"github.com/crosslink-radio/crosslink/pkg/modem/qpsk"
)

type stubSource struct{}

func (s *stubSource) Start(ctx context.Context, centerFreq, sampleRate int, out chan *types.SegmentComplex64) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubSource) Stop() error { return nil }

func (s *stubSource) MaxSampleRate() int { return 20e6 }

func newTestReceiver(t *testing.T) *Receiver {
	t.Helper()
	cfg := config.Default()
	r, err := NewReceiver(&stubSource{}, Options{
		CenterFreq: cfg.CenterFreq,
		SampleRate: cfg.SampleRate,
		Link:       cfg.Link,
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// Modulate framed packet bytes exactly as the transmit chain does, rotate
// the carrier by an arbitrary multiple of 90 degrees, demodulate, and check
// that every payload still comes out intact.  This is the property the
// differential line code plus angular constellation ordering must provide:
// the receiver cannot know which of the four phases the carrier recovery
// loop locked to.
func TestDigitalLoopbackAllRotations(t *testing.T) {
	cfg := config.Default()
	link := cfg.Link

	rng := rand.New(rand.NewSource(42))
	const numPackets = 3
	payloads := make([][]byte, numPackets)
	for i := range payloads {
		payloads[i] = make([]byte, link.PacketLength)
		rng.Read(payloads[i])
	}

	// Framed transmit file: idle bytes, then sync word + payload per packet.
	var fileBytes []byte
	fileBytes = append(fileBytes, make([]byte, 4)...)
	for _, p := range payloads {
		fileBytes = append(fileBytes, cfg.SyncWordBytes()...)
		fileBytes = append(fileBytes, p...)
	}

	for r := 0; r < qpsk.M; r++ {
		rot := complex64(complex(
			float32(math.Cos(float64(r)*math.Pi/2)),
			float32(math.Sin(float64(r)*math.Pi/2))))

		// Transmit side.
		unpacker, _ := pack.NewUnpacker(qpsk.BitsPerSymbol)
		diffEnc, _ := diffcode.NewEncoder(qpsk.M)
		symbols := qpsk.NewModulator().Work(diffEnc.Work(unpacker.Work(fileBytes)))
		for i := range symbols {
			symbols[i] *= rot
		}

		// Receive side, symbol level.
		diffDec, _ := diffcode.NewDecoder(qpsk.M)
		bitUnpack, _ := pack.NewSymbolUnpacker(qpsk.BitsPerSymbol)
		bits := bitUnpack.Work(diffDec.Work(qpsk.NewDecider().Work(symbols)))

		// Deframe through the receiver in awkward window sizes.
		rx := newTestReceiver(t)
		var got []*types.Payload
		for pos := 0; pos < len(bits); {
			end := pos + 997
			if end > len(bits) {
				end = len(bits)
			}
			got = append(got, rx.deframe(&types.SegmentBytes{Data: bits[pos:end]})...)
			pos = end
		}

		if len(got) != numPackets {
			t.Fatalf("rotation %d: recovered %d payloads, want %d", r, len(got), numPackets)
		}
		for i, p := range got {
			if !bytes.Equal(p.Data, payloads[i]) {
				t.Fatalf("rotation %d: payload %d corrupted", r, i)
			}
			if p.Number != uint64(i+1) {
				t.Fatalf("rotation %d: payload %d numbered %d", r, i, p.Number)
			}
		}
	}
}

// Consecutive deframe calls must behave identically no matter how the bit
// stream is split, including a split landing inside a sync word.
func TestDeframeSplitInsideSyncWord(t *testing.T) {
	cfg := config.Default()

	payload := make([]byte, cfg.Link.PacketLength)
	for i := range payload {
		payload[i] = byte(i)
	}
	frame := append(append([]byte{0, 0}, cfg.SyncWordBytes()...), payload...)

	unpacker, _ := pack.NewUnpacker(qpsk.BitsPerSymbol)
	diffEnc, _ := diffcode.NewEncoder(qpsk.M)
	symbols := qpsk.NewModulator().Work(diffEnc.Work(unpacker.Work(frame)))

	diffDec, _ := diffcode.NewDecoder(qpsk.M)
	bitUnpack, _ := pack.NewSymbolUnpacker(qpsk.BitsPerSymbol)
	bits := bitUnpack.Work(diffDec.Work(qpsk.NewDecider().Work(symbols)))

	// Split in the middle of the 64-bit sync word.
	split := 2*8 + 30

	rx := newTestReceiver(t)
	var got []*types.Payload
	got = append(got, rx.deframe(&types.SegmentBytes{Data: bits[:split]})...)
	got = append(got, rx.deframe(&types.SegmentBytes{Data: bits[split:]})...)

	if len(got) != 1 {
		t.Fatalf("recovered %d payloads, want 1", len(got))
	}
	if !bytes.Equal(got[0].Data, payload) {
		t.Fatalf("payload corrupted across split")
	}
}
