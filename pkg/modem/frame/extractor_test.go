package frame

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
)

func newTestExtractor(t *testing.T, packetLen int, opts ...ExtractorOption) *Extractor {
	t.Helper()
	opts = append(opts, WithLogger(zerolog.Nop()))
	e, err := NewExtractor(packetLen, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func sequence(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func TestNoEventConsumesWholeWindow(t *testing.T) {
	e := newTestExtractor(t, 256)
	in := sequence(1000)
	out := make([]byte, 1000)

	consumed, produced := e.Work(in, nil, out)
	if consumed != 1000 || produced != 0 {
		t.Fatalf("consumed, produced = %d, %d; want 1000, 0", consumed, produced)
	}
	if !e.Searching() {
		t.Fatal("state should remain searching")
	}
}

func TestPayloadSpansWindows(t *testing.T) {
	e := newTestExtractor(t, 256)
	in := sequence(300)
	out := make([]byte, 512)

	consumed, produced := e.Work(in, []SyncEvent{{KindSyncWord, 50}}, out)
	if consumed != 300 {
		t.Fatalf("consumed = %d, want 300", consumed)
	}
	if produced != 250 {
		t.Fatalf("produced = %d, want 250", produced)
	}
	if e.Searching() || e.Remaining() != 6 {
		t.Fatalf("remaining = %d, want 6 while copying", e.Remaining())
	}

	next := sequence(20)
	consumed, produced = e.Work(next, nil, out[250:])
	if consumed != 6 || produced != 6 {
		t.Fatalf("second window consumed, produced = %d, %d; want 6, 6", consumed, produced)
	}
	if !e.Searching() {
		t.Fatal("payload complete, should be searching")
	}
	if !bytes.Equal(out[:250], in[50:]) || !bytes.Equal(out[250:256], next[:6]) {
		t.Fatal("payload bytes do not match input")
	}
}

func TestEventAtWindowBoundary(t *testing.T) {
	e := newTestExtractor(t, 64)
	in := sequence(100)
	out := make([]byte, 64)

	// Match concluded on the window's final byte: payload starts at the
	// next window.
	consumed, produced := e.Work(in, []SyncEvent{{KindSyncWord, 100}}, out)
	if consumed != 100 || produced != 0 {
		t.Fatalf("consumed, produced = %d, %d; want 100, 0", consumed, produced)
	}
	if e.Searching() || e.Remaining() != 64 {
		t.Fatalf("remaining = %d, want 64 while copying", e.Remaining())
	}

	consumed, produced = e.Work(sequence(64), nil, out)
	if consumed != 64 || produced != 64 {
		t.Fatalf("consumed, produced = %d, %d; want 64, 64", consumed, produced)
	}
}

func TestEventsIgnoredWhileCopying(t *testing.T) {
	e := newTestExtractor(t, 128)
	out := make([]byte, 256)

	e.Work(sequence(64), []SyncEvent{{KindSyncWord, 0}}, out)
	if e.Searching() {
		t.Fatal("should be copying")
	}

	// Overlapping detection mid-payload must not restart the copy.
	consumed, produced := e.Work(sequence(64), []SyncEvent{{KindSyncWord, 80}}, out[64:])
	if consumed != 64 || produced != 64 {
		t.Fatalf("consumed, produced = %d, %d; want 64, 64", consumed, produced)
	}
	if !e.Searching() || e.Remaining() != 0 {
		t.Fatal("payload should have completed uninterrupted")
	}
}

func TestStaleEventDiscarded(t *testing.T) {
	e := newTestExtractor(t, 16)
	out := make([]byte, 16)

	e.Work(sequence(100), nil, out)

	// Offset 20 is behind the stream cursor now; it must not trigger a copy.
	consumed, produced := e.Work(sequence(50), []SyncEvent{{KindSyncWord, 20}}, out)
	if consumed != 50 || produced != 0 {
		t.Fatalf("consumed, produced = %d, %d; want 50, 0", consumed, produced)
	}
	if !e.Searching() {
		t.Fatal("stale event must leave the extractor searching")
	}
}

func TestOutputBufferExhaustion(t *testing.T) {
	e := newTestExtractor(t, 32)
	in := sequence(64)

	out := make([]byte, 10)
	consumed, produced := e.Work(in, []SyncEvent{{KindSyncWord, 0}}, out)
	if consumed != 10 || produced != 10 {
		t.Fatalf("consumed, produced = %d, %d; want 10, 10", consumed, produced)
	}
	if e.Remaining() != 22 {
		t.Fatalf("remaining = %d, want 22", e.Remaining())
	}

	// Flow control, not failure: the copy resumes where it stopped.
	out2 := make([]byte, 32)
	consumed, produced = e.Work(in[10:], nil, out2)
	if consumed != 22 || produced != 22 {
		t.Fatalf("consumed, produced = %d, %d; want 22, 22", consumed, produced)
	}
	if !bytes.Equal(append(out, out2[:22]...), in[:32]) {
		t.Fatal("payload bytes do not match input")
	}
}

// Splitting the stream into any window partition must yield the same
// payload bytes as one single delivery.
func TestWindowPartitionIdempotence(t *testing.T) {
	const packetLen = 96
	stream := sequence(400)
	events := []SyncEvent{{KindSyncWord, 17}, {KindSyncWord, 250}}

	run := func(windows []int) []byte {
		e := newTestExtractor(t, packetLen)
		var got []byte
		pos := 0
		pending := append([]SyncEvent{}, events...)
		buf := make([]byte, 0)
		for _, w := range append(windows, 1<<20) {
			end := pos + w
			if end > len(stream) {
				end = len(stream)
			}
			buf = append(buf, stream[pos:end]...)
			pos = end

			for len(buf) > 0 {
				winStart := e.NumRead()
				var evs []SyncEvent
				for _, ev := range pending {
					if ev.Offset <= winStart+uint64(len(buf)) {
						evs = append(evs, ev)
					}
				}
				out := make([]byte, packetLen)
				consumed, produced := e.Work(buf, evs, out)
				got = append(got, out[:produced]...)
				buf = buf[consumed:]
				if consumed == 0 && produced == 0 {
					break
				}
			}
			if pos == len(stream) {
				break
			}
		}
		return got
	}

	whole := run([]int{400})
	for _, windows := range [][]int{
		{1, 2, 3, 50, 100, 244},
		{17, 17, 17, 349},
		{399, 1},
		{250, 150},
	} {
		if got := run(windows); !bytes.Equal(got, whole) {
			t.Fatalf("windows %v: extracted %d bytes != single delivery %d bytes", windows, len(got), len(whole))
		}
	}

	want := append(append([]byte{}, stream[17:17+packetLen]...), stream[250:250+packetLen]...)
	if !bytes.Equal(whole, want) {
		t.Fatal("extracted payloads do not match expected stream slices")
	}
}

func TestDetectObserver(t *testing.T) {
	var seen []SyncEvent
	e := newTestExtractor(t, 8, WithDetectFunc(func(ev SyncEvent) {
		seen = append(seen, ev)
	}))

	out := make([]byte, 8)
	e.Work(sequence(16), []SyncEvent{{KindSyncWord, 4}}, out)
	if len(seen) != 1 || seen[0].Offset != 4 {
		t.Fatalf("observer saw %v, want single event at offset 4", seen)
	}
}

func TestInvalidPacketLength(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := NewExtractor(n); err == nil {
			t.Errorf("NewExtractor(%d) accepted invalid length", n)
		}
	}
}
