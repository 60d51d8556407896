package file

import (
	"context"
	"os"
	"time"

	"github.com/crosslink-radio/crosslink/pkg/crosslink/types"
)

// FileSource plays back a CS8 capture (HackRF format) at a paced rate, for
// development without hardware.
type FileSource struct {
	readFile    *os.File
	readSize    int
	timeBetween time.Duration
	sampleRate  int
	centerFreq  int
}

func NewFileSource(file string, readSize int, sampleRate int, centerFreq int, timeBetween time.Duration) (*FileSource, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}

	return &FileSource{
		readFile:    f,
		readSize:    readSize,
		timeBetween: timeBetween,
		sampleRate:  sampleRate,
		centerFreq:  centerFreq,
	}, nil
}

func (f *FileSource) Start(ctx context.Context, centerFreq int, sampleRate int, complexSamples chan *types.SegmentComplex64) error {
	tick := time.NewTicker(f.timeBetween)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			buf := make([]byte, f.readSize)
			n, err := f.readFile.Read(buf)
			if err != nil {
				return err
			}

			seg := types.SegmentCS8Raw{
				SampleRate: f.sampleRate,
				Data:       buf[:n],
				Frequency:  f.centerFreq,
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case complexSamples <- seg.ToComplex64():
			}
		}
	}
}

func (f *FileSource) Stop() error {
	return f.readFile.Close()
}

func (f *FileSource) MaxSampleRate() int {
	return 20e6
}

// FileSink records the transmit baseband as CS8 instead of radiating it.
type FileSink struct {
	outFile *os.File
}

func NewFileSink(location string) (*FileSink, error) {
	f, err := os.Create(location)
	if err != nil {
		return nil, err
	}
	return &FileSink{outFile: f}, nil
}

func (f *FileSink) Start(ctx context.Context, centerFreq int, sampleRate int) error {
	return nil
}

func (f *FileSink) Write(segment *types.SegmentComplex64) error {
	_, err := f.outFile.Write(segment.ToCS8())
	return err
}

func (f *FileSink) Close() error {
	return f.outFile.Close()
}

func (f *FileSink) MaxSampleRate() int {
	return 20e6
}
