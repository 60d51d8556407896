package frame

import (
	"bytes"
	"math/rand"
	"testing"
)

var testSyncBytes = []byte{0x7e, 0x6d, 0x75, 0x73, 0x68, 0x61, 0x72, 0x72}

func toBits(data []byte) []byte {
	bits := make([]byte, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (b>>i)&1)
		}
	}
	return bits
}

func TestDetectsSyncWord(t *testing.T) {
	word, length := SyncWordFromBytes(testSyncBytes)
	c, err := NewCorrelator(word, length, 0)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(1))
	prefix := make([]byte, 40)
	rng.Read(prefix)
	payload := make([]byte, 32)
	rng.Read(payload)

	stream := append(append(append([]byte{}, prefix...), testSyncBytes...), payload...)
	inBits := toBits(stream)

	out := make([]byte, c.PredictOutputSize(len(inBits)))
	n, events := c.Work(inBits, out)
	if n != len(stream) {
		t.Fatalf("packed %d bytes, want %d", n, len(stream))
	}
	if !bytes.Equal(out[:n], stream) {
		t.Fatal("packed bytes do not match input stream")
	}

	if len(events) == 0 {
		t.Fatal("sync word not detected")
	}
	want := uint64(len(prefix) + len(testSyncBytes))
	found := false
	for _, ev := range events {
		if ev.Offset == want && ev.Kind == KindSyncWord {
			found = true
		}
	}
	if !found {
		t.Fatalf("events %v missing offset %d", events, want)
	}
}

func TestToleratesBitErrors(t *testing.T) {
	word, length := SyncWordFromBytes(testSyncBytes)
	c, err := NewCorrelator(word, length, 2)
	if err != nil {
		t.Fatal(err)
	}

	bits := toBits(testSyncBytes)
	bits[3] ^= 1
	bits[40] ^= 1

	out := make([]byte, c.PredictOutputSize(len(bits)))
	_, events := c.Work(bits, out)
	if len(events) != 1 || events[0].Offset != 8 {
		t.Fatalf("events = %v, want single event at offset 8", events)
	}
}

func TestDetectionAcrossWindowSplit(t *testing.T) {
	word, length := SyncWordFromBytes(testSyncBytes)
	c, _ := NewCorrelator(word, length, 0)

	bits := toBits(append([]byte{0x00, 0xff}, testSyncBytes...))

	// Split mid sync word; the shift register carries across calls.
	out := make([]byte, 16)
	var events []SyncEvent
	n1, ev1 := c.Work(bits[:50], out)
	n2, ev2 := c.Work(bits[50:], out[n1:])
	events = append(append(events, ev1...), ev2...)

	if n1+n2 != 10 {
		t.Fatalf("packed %d bytes, want 10", n1+n2)
	}
	if len(events) != 1 || events[0].Offset != 10 {
		t.Fatalf("events = %v, want single event at offset 10", events)
	}
}

func TestNoFalseDetectionOnRandomBits(t *testing.T) {
	word, length := SyncWordFromBytes(testSyncBytes)
	c, _ := NewCorrelator(word, length, 0)

	rng := rand.New(rand.NewSource(7))
	data := make([]byte, 4096)
	rng.Read(data)

	bits := toBits(data)
	out := make([]byte, c.PredictOutputSize(len(bits)))
	_, events := c.Work(bits, out)
	if len(events) != 0 {
		t.Fatalf("unexpected detections in random data: %v", events)
	}
}

func TestCorrelatorValidation(t *testing.T) {
	if _, err := NewCorrelator(0, 0, 0); err == nil {
		t.Error("accepted zero-length sync word")
	}
	if _, err := NewCorrelator(0, 65, 0); err == nil {
		t.Error("accepted oversized sync word")
	}
	if _, err := NewCorrelator(0xff, 8, 8); err == nil {
		t.Error("accepted threshold covering whole word")
	}
}
