package crosslink

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/crosslink-radio/crosslink/pkg/crosslink/config"
	"github.com/crosslink-radio/crosslink/pkg/crosslink/device/file"
)

func writePacketFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i * 7)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestTransmitter(t *testing.T, recordPath string) *Transmitter {
	t.Helper()
	sink, err := file.NewFileSink(recordPath)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	tx, err := NewTransmitter(sink, Options{
		CenterFreq: cfg.CenterFreq,
		SampleRate: cfg.SampleRate,
		Link:       cfg.Link,
	})
	if err != nil {
		t.Fatal(err)
	}
	return tx
}

func TestTransmitFileSampleCount(t *testing.T) {
	dir := t.TempDir()
	const fileBytes = 1024
	in := writePacketFile(t, dir, "packets.bin", fileBytes)
	record := filepath.Join(dir, "tx.cs8")

	tx := newTestTransmitter(t, record)
	ctx := context.Background()
	if err := tx.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tx.TransmitFile(ctx, in); err != nil {
		t.Fatal(err)
	}
	if err := tx.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := os.ReadFile(record)
	if err != nil {
		t.Fatal(err)
	}

	// Each byte becomes 4 symbols, each symbol sps baseband samples, each
	// sample 2 interleaved int8 values.
	cfg := config.Default()
	want := fileBytes * 4 * cfg.Link.SamplesPerSymbol * 2
	if len(out) != want {
		t.Fatalf("recorded %d bytes, want %d", len(out), want)
	}
}

func TestBatcherTransmitsInOrder(t *testing.T) {
	dir := t.TempDir()
	writePacketFile(t, dir, "02.bin", 256)
	writePacketFile(t, dir, "01.bin", 256)
	writePacketFile(t, dir, "10.bin", 256)
	record := filepath.Join(dir, "tx.cs8")

	tx := newTestTransmitter(t, record)
	ctx := context.Background()
	if err := tx.Start(ctx); err != nil {
		t.Fatal(err)
	}

	b := NewBatcher(tx, dir, 0)
	if err := b.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tx.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := os.ReadFile(record)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	want := 3 * 256 * 4 * cfg.Link.SamplesPerSymbol * 2
	if len(out) != want {
		t.Fatalf("recorded %d bytes, want %d", len(out), want)
	}
}

func TestBatcherEmptyDirErrors(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "tx.cs8")
	tx := newTestTransmitter(t, record)

	b := NewBatcher(tx, dir, 0)
	if err := b.Run(context.Background()); err == nil {
		t.Fatal("expected error for empty batch directory")
	}
}
