package crosslink

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/crosslink-radio/crosslink/pkg/crosslink/device"
	"github.com/crosslink-radio/crosslink/pkg/crosslink/types"
	"github.com/crosslink-radio/crosslink/pkg/dsp/filters/fir"
	"github.com/crosslink-radio/crosslink/pkg/dsp/processor"
	"github.com/crosslink-radio/crosslink/pkg/modem/diffcode"
	"github.com/crosslink-radio/crosslink/pkg/modem/pack"
	"github.com/crosslink-radio/crosslink/pkg/modem/qpsk"
	"github.com/crosslink-radio/crosslink/pkg/util"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/racerxdl/segdsp/dsp"
)

const txChunkBytes = 4096

// Transmitter modulates framed packet bytes onto complex baseband and hands
// them to a device sink.  The input file is expected to already carry the
// sync word ahead of each payload; the modulation chain is agnostic to
// framing.
type Transmitter struct {
	sink     device.Sink
	opts     Options
	writeAPI api.WriteAPI
	logger   zerolog.Logger

	proc   *processor.Processor
	segNum int
}

type TransmitterOption func(t *Transmitter) error

func WithTransmitterInfluxDB(influxClient api.WriteAPI) TransmitterOption {
	return func(t *Transmitter) error {
		t.writeAPI = influxClient
		return nil
	}
}

func WithTransmitterLogger(logger zerolog.Logger) TransmitterOption {
	return func(t *Transmitter) error {
		t.logger = logger
		return nil
	}
}

func NewTransmitter(sink device.Sink, options Options, opts ...TransmitterOption) (*Transmitter, error) {
	t := &Transmitter{
		sink:     sink,
		opts:     options,
		writeAPI: &util.MockWriteAPI{}, // overwritten with option
		logger:   log.Logger,
	}

	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	if t.opts.CenterFreq == 0 || t.opts.SampleRate == 0 {
		return nil, fmt.Errorf("must specify center freq and sample rate")
	}

	if err := t.initChain(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Transmitter) initChain() error {
	t.proc = processor.NewProcessor("tx", "Packet Input", nil)

	link := t.opts.Link
	rate := t.opts.SampleRate
	procRate := rate
	if t.opts.IFRate > 0 {
		procRate = t.opts.IFRate
	}
	symbolRate := procRate / link.SamplesPerSymbol
	byteRate := symbolRate * qpsk.BitsPerSymbol / 8

	unpacker, err := pack.NewUnpacker(qpsk.BitsPerSymbol)
	if err != nil {
		return err
	}
	t.proc.AddBlock(processor.NewDSPWorkerBB(
		"bit_unpacker",
		"Bit Unpacker",
		byteRate,
		symbolRate,
		unpacker,
	))

	diffEnc, err := diffcode.NewEncoder(qpsk.M)
	if err != nil {
		return err
	}
	t.proc.AddBlock(processor.NewDSPWorkerBB(
		"diff_encoder",
		"Differential Encoder",
		symbolRate,
		symbolRate,
		diffEnc,
	))

	t.proc.AddBlock(processor.NewDSPWorkerBC(
		"qpsk_modulator",
		"QPSK Modulator",
		symbolRate,
		symbolRate,
		qpsk.NewModulator(),
	))

	// Interpolate all the way to the device rate in one pulse shaper.
	interp := rate / symbolRate
	ntaps := 11*interp + 1
	shaperTaps := dsp.MakeRRC(1.0, float64(rate), float64(symbolRate), link.ExcessBandwidth, ntaps)
	t.proc.AddBlock(processor.NewDSPWorkerCC(
		"pulse_shaper",
		"Pulse Shaper (RRC)",
		symbolRate,
		rate,
		fir.NewInterpFirFilter(interp, shaperTaps),
	))

	return t.proc.Initialize()
}

// Start brings up the device sink.  Call TransmitFile afterwards, then
// Close to drain.
func (t *Transmitter) Start(ctx context.Context) error {
	if t.opts.SampleRate > t.sink.MaxSampleRate() {
		return fmt.Errorf("error: sample rate %d > device max sample rate %d", t.opts.SampleRate, t.sink.MaxSampleRate())
	}

	log.Info().
		Str("center_freq", util.MHzToString(t.opts.CenterFreq)).
		Str("sample_rate", util.MHzToString(t.opts.SampleRate)).
		Msg("Starting transmitter")

	return t.sink.Start(ctx, t.opts.CenterFreq, t.opts.SampleRate)
}

func (t *Transmitter) Close() error {
	return t.sink.Close()
}

// TransmitFile modulates one packet file end to end.  It returns once every
// byte of the file has been handed to the sink; the sink's own buffering
// governs when it finishes radiating.
func (t *Transmitter) TransmitFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	var totalBytes, totalSamples int

	buf := make([]byte, txChunkBytes)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := f.Read(buf)
		if n > 0 {
			if werr := t.transmitChunk(buf[:n], &totalSamples); werr != nil {
				return werr
			}
			totalBytes += n
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	t.logger.Info().
		Str("file", path).
		Int("bytes", totalBytes).
		Int("samples", totalSamples).
		Dur("elapsed", time.Since(start)).
		Msg("file transmitted")

	go t.writeAPI.WritePoint(influxdb2.NewPoint("tx.file",
		map[string]string{
			"frequency": util.MHzToString(t.opts.CenterFreq),
		},
		map[string]interface{}{
			"bytes":    totalBytes,
			"samples":  totalSamples,
			"duration": time.Since(start).Microseconds(),
		}, start))

	return nil
}

func (t *Transmitter) transmitChunk(chunk []byte, totalSamples *int) error {
	t.segNum++
	metrics := map[string]interface{}{
		"chunk_bytes": len(chunk),
	}

	seg, err := t.proc.ProcessBytesToComplex(&types.SegmentBytes{
		SegmentNumber: t.segNum,
		Data:          chunk,
	}, metrics)
	if err != nil {
		return err
	}
	seg.Frequency = t.opts.CenterFreq
	seg.SampleRate = t.opts.SampleRate
	*totalSamples += len(seg.Data)

	return t.sink.Write(seg)
}
