package crosslink

import (
	"context"
	"encoding/hex"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/crosslink-radio/crosslink/pkg/crosslink/device"
	"github.com/crosslink-radio/crosslink/pkg/crosslink/types"
	"github.com/crosslink-radio/crosslink/pkg/dsp/agc/rmsagc"
	"github.com/crosslink-radio/crosslink/pkg/dsp/filters/fir"
	"github.com/crosslink-radio/crosslink/pkg/dsp/mixer"
	"github.com/crosslink-radio/crosslink/pkg/dsp/processor"
	"github.com/crosslink-radio/crosslink/pkg/dsp/viz"
	"github.com/crosslink-radio/crosslink/pkg/modem/diffcode"
	"github.com/crosslink-radio/crosslink/pkg/modem/frame"
	"github.com/crosslink-radio/crosslink/pkg/modem/pack"
	"github.com/crosslink-radio/crosslink/pkg/modem/qpsk"
	"github.com/crosslink-radio/crosslink/pkg/util"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/racerxdl/segdsp/dsp"
	"golang.org/x/sync/errgroup"
)

// Receiver runs the demodulation chain from an SDR source down to recovered
// payloads, fanning them out to the configured outputs.
type Receiver struct {
	device        device.Source
	opts          Options
	writeAPI      api.WriteAPI
	rawSampleChan chan *types.SegmentComplex64
	payloadChan   chan *types.Payload
	vizServer     *viz.Server
	logger        zerolog.Logger

	proc       *processor.Processor
	correlator *frame.Correlator
	extractor  *frame.Extractor

	// Deframing state carried between windows: unconsumed packed bytes,
	// their pending sync events, and the payload being assembled.
	window     []byte
	events     []frame.SyncEvent
	partial    []byte
	payloadNum uint64

	cancel context.CancelFunc
	ctx    context.Context
}

type ReceiverOption func(r *Receiver) error

func WithInfluxDB(influxClient api.WriteAPI) ReceiverOption {
	return func(r *Receiver) error {
		r.writeAPI = influxClient
		return nil
	}
}

func WithImageServer(vizServer *viz.Server) ReceiverOption {
	return func(r *Receiver) error {
		r.vizServer = vizServer
		return nil
	}
}

func WithLogger(logger zerolog.Logger) ReceiverOption {
	return func(r *Receiver) error {
		r.logger = logger
		return nil
	}
}

func NewReceiver(device device.Source, options Options, opts ...ReceiverOption) (*Receiver, error) {
	r := &Receiver{
		device:        device,
		opts:          options,
		rawSampleChan: make(chan *types.SegmentComplex64, 1),
		payloadChan:   make(chan *types.Payload, 8),
		writeAPI:      &util.MockWriteAPI{}, // overwritten with option
		logger:        log.Logger,
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if r.opts.CenterFreq == 0 || r.opts.SampleRate == 0 {
		return nil, fmt.Errorf("must specify center freq and sample rate")
	}

	if err := r.initChain(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Receiver) Stop() error {
	r.cancel()
	if r.vizServer != nil {
		r.vizServer.Stop(context.TODO())
	}
	return r.device.Stop()
}

func (r *Receiver) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	r.ctx, r.cancel = context.WithCancel(ctx)

	if r.opts.SampleRate > r.device.MaxSampleRate() {
		return fmt.Errorf("error: sample rate %d > device max sample rate %d", r.opts.SampleRate, r.device.MaxSampleRate())
	}

	eg.Go(func() error {
		return r.device.Start(r.ctx,
			r.opts.CenterFreq,
			r.opts.SampleRate,
			r.rawSampleChan)
	})

	if r.vizServer != nil {
		eg.Go(func() error {
			return r.vizServer.Run(r.ctx)
		})
	}

	for i := 0; i < runtime.NumCPU(); i++ {
		eg.Go(r.outputPayloads)
	}

	eg.Go(r.processRawSamples)

	for _, out := range r.opts.Outputs {
		thisOutput := out
		eg.Go(func() error {
			return thisOutput.Start(r.ctx)
		})
	}

	log.Info().
		Str("center_freq", util.MHzToString(r.opts.CenterFreq)).
		Str("sample_rate", util.MHzToString(r.opts.SampleRate)).
		Int("packet_length", r.opts.Link.PacketLength).
		Msg("Starting receiver")

	return eg.Wait()
}

func (r *Receiver) initChain() error {
	r.proc = processor.NewProcessor("rx", "Radio Input", r.vizServer)

	link := r.opts.Link
	deviceRate := r.opts.SampleRate
	rate := deviceRate
	if r.opts.IFRate > 0 {
		rate = r.opts.IFRate
	}
	symbolRate := rate / link.SamplesPerSymbol

	if r.opts.FrequencyOffset != 0 {
		r.proc.AddBlock(processor.NewDSPWorkerCC(
			"offset_mixer",
			"Offset Mixer",
			deviceRate,
			deviceRate,
			mixer.NewWaveformMixer(deviceRate, -r.opts.FrequencyOffset),
		))
	}

	if rate != deviceRate {
		dec := deviceRate / rate
		bpfCoeffs := fir.MakeComplexBandPass(1.0,
			float64(deviceRate),
			-float64(rate)/2.0,
			float64(rate)/2.0,
			float64(rate)/4.0,
			fir.Hamming,
		)
		r.proc.AddBlock(processor.NewDSPWorkerCC(
			"bandpass_decimator",
			"Bandpass Decimator",
			deviceRate,
			rate,
			dsp.MakeDecimationCTFirFilter(dec, bpfCoeffs),
		))
	}

	r.proc.AddBlock(processor.NewDSPWorkerCC(
		"baseband_agc",
		"Baseband AGC (RMS)",
		rate,
		rate,
		rmsagc.NewRMSAGC(0.01, 1.0),
	))

	ntaps := (11 * link.SamplesPerSymbol) | 1
	matchedTaps := dsp.MakeRRC(1.0, float64(rate), float64(symbolRate), link.ExcessBandwidth, ntaps)
	r.proc.AddBlock(processor.NewDSPWorkerCC(
		"matched_filter",
		"Matched Filter (RRC)",
		rate,
		rate,
		dsp.MakeFirFilter(matchedTaps),
	))

	r.proc.AddBlock(processor.NewDSPWorkerCC(
		"clock_recovery",
		"Clock Recovery (M&M)",
		rate,
		symbolRate,
		qpsk.NewClockRecovery(float32(link.SamplesPerSymbol), float32(link.TimingLoopBw)),
	))

	r.proc.AddBlock(processor.NewDSPWorkerCC(
		"costas_loop",
		"Costas Loop",
		symbolRate,
		symbolRate,
		qpsk.NewCostasLoop(float32(link.CostasLoopBw)),
		processor.WithConstellationPlot(),
	))

	r.proc.AddBlock(processor.NewDSPWorkerCB(
		"symbol_decider",
		"Symbol Decider",
		symbolRate,
		symbolRate,
		qpsk.NewDecider(),
	))

	diffDec, err := diffcode.NewDecoder(qpsk.M)
	if err != nil {
		return err
	}
	r.proc.AddBlock(processor.NewDSPWorkerBB(
		"diff_decoder",
		"Differential Decoder",
		symbolRate,
		symbolRate,
		diffDec,
	))

	bitUnpack, err := pack.NewSymbolUnpacker(qpsk.BitsPerSymbol)
	if err != nil {
		return err
	}
	r.proc.AddBlock(processor.NewDSPWorkerBB(
		"bit_unpacker",
		"Bit Unpacker",
		symbolRate,
		symbolRate*qpsk.BitsPerSymbol,
		bitUnpack,
	))

	syncBytes, err := hex.DecodeString(link.SyncWord)
	if err != nil {
		return err
	}
	word, wordLen := frame.SyncWordFromBytes(syncBytes)
	r.correlator, err = frame.NewCorrelator(word, wordLen, link.SyncThreshold)
	if err != nil {
		return err
	}

	r.extractor, err = frame.NewExtractor(link.PacketLength, frame.WithLogger(r.logger))
	if err != nil {
		return err
	}
	r.partial = make([]byte, 0, link.PacketLength)

	return r.proc.Initialize()
}

func (r *Receiver) processRawSamples() error {
	segNum := 0
	for {
		select {
		case <-r.ctx.Done():
			return r.ctx.Err()
		case buf := <-r.rawSampleChan:
			segNum++
			buf.SegmentNumber = segNum

			start := time.Now()
			metrics := map[string]interface{}{
				"sample_length": len(buf.Data),
				"sample_bytes":  len(buf.Data) * 8,
			}

			bits, err := r.proc.ProcessComplexToBytes(buf, metrics)
			if err != nil {
				return err
			}

			var payloads []*types.Payload
			metrics["deframe_duration"] = util.TimeOperationMicroseconds(func() {
				payloads = r.deframe(bits)
			})
			metrics["payloads"] = len(payloads)
			metrics["duration"] = time.Since(start).Microseconds()

			go r.writeAPI.WritePoint(influxdb2.NewPoint("rx.processed",
				map[string]string{
					"frequency":   util.MHzToString(buf.Frequency),
					"sample_type": "complex64",
				},
				metrics, start))

			for _, p := range payloads {
				select {
				case <-r.ctx.Done():
					return r.ctx.Err()
				case r.payloadChan <- p:
				}
			}
		}
	}
}

// deframe feeds recovered bits through the sync correlator and the payload
// extractor, honoring the extractor's windowed pull contract: whatever it
// does not consume is retained, with its pending events, for the next call.
func (r *Receiver) deframe(bits *types.SegmentBytes) []*types.Payload {
	packed := make([]byte, r.correlator.PredictOutputSize(len(bits.Data)))
	n, events := r.correlator.Work(bits.Data, packed)
	r.window = append(r.window, packed[:n]...)
	r.events = append(r.events, events...)

	var payloads []*types.Payload
	out := make([]byte, r.opts.Link.PacketLength)
	for {
		consumed, produced := r.extractor.Work(r.window, r.events, out[:r.opts.Link.PacketLength-len(r.partial)])
		if consumed == 0 && produced == 0 {
			break
		}

		r.partial = append(r.partial, out[:produced]...)
		if len(r.partial) == r.opts.Link.PacketLength {
			data := make([]byte, len(r.partial))
			copy(data, r.partial)
			r.payloadNum++
			payloads = append(payloads, &types.Payload{
				Frequency:  r.opts.CenterFreq,
				Number:     r.payloadNum,
				ReceivedAt: time.Now(),
				Data:       data,
			})
			r.partial = r.partial[:0]
		}

		r.window = r.window[consumed:]
		for len(r.events) > 0 && r.events[0].Offset < r.extractor.NumRead() {
			r.events = r.events[1:]
		}
	}
	return payloads
}

func (r *Receiver) outputPayloads() error {
	for {
		select {
		case <-r.ctx.Done():
			return r.ctx.Err()
		case p := <-r.payloadChan:
			skippedOutputs := 0
			for _, out := range r.opts.Outputs {
				select {
				case out.Receive() <- p:
					// We will not wait on blocked channels.
				default:
					skippedOutputs++
				}
			}

			go r.writeAPI.WritePoint(influxdb2.NewPoint("rx.payload",
				map[string]string{
					"frequency": util.MHzToString(p.Frequency),
				},
				map[string]interface{}{
					"bytes":           len(p.Data),
					"payload_number":  p.Number,
					"skipped_outputs": skippedOutputs,
				}, time.Now()))
		}
	}
}
