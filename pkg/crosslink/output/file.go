package output

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/crosslink-radio/crosslink/pkg/crosslink/types"
)

const payloadBufferLength int = 8

// FileOutput appends recovered payloads to a writer, batching a handful of
// packets between writes so slow destinations do not stall the receiver.
type FileOutput struct {
	dest         io.Writer
	recvChan     chan *types.Payload
	maxBatchWait time.Duration
}

func NewFileOutput(dest io.Writer) *FileOutput {
	return &FileOutput{
		dest:         dest,
		recvChan:     make(chan *types.Payload, payloadBufferLength),
		maxBatchWait: time.Second,
	}
}

func (f *FileOutput) Receive() chan<- *types.Payload {
	return f.recvChan
}

func (f *FileOutput) Start(ctx context.Context) error {
	var b bytes.Buffer
	bufNum := 0

	flush := func() error {
		if bufNum == 0 {
			return nil
		}
		if _, err := b.WriteTo(f.dest); err != nil {
			return err
		}
		b.Reset()
		bufNum = 0
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return ctx.Err()

		case <-time.After(f.maxBatchWait):
			if err := flush(); err != nil {
				return err
			}

		case p := <-f.recvChan:
			b.Write(p.Data)
			bufNum++
			if bufNum == payloadBufferLength {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
}
