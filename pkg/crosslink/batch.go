package crosslink

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Batcher transmits every packet file in a directory in lexical order,
// pausing between files so the far end can drain.
type Batcher struct {
	tx     *Transmitter
	dir    string
	delay  time.Duration
	logger zerolog.Logger
}

func NewBatcher(tx *Transmitter, dir string, delay time.Duration) *Batcher {
	return &Batcher{
		tx:     tx,
		dir:    dir,
		delay:  delay,
		logger: log.Logger,
	}
}

func (b *Batcher) Run(ctx context.Context) error {
	files, err := filepath.Glob(filepath.Join(b.dir, "*.bin"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no *.bin files in %s", b.dir)
	}
	sort.Strings(files)

	b.logger.Info().
		Int("files", len(files)).
		Str("dir", b.dir).
		Dur("delay", b.delay).
		Msg("starting batch transmission")

	for i, file := range files {
		if err := b.tx.TransmitFile(ctx, file); err != nil {
			return fmt.Errorf("transmitting %s: %w", file, err)
		}

		if i == len(files)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.delay):
		}
	}

	return nil
}
