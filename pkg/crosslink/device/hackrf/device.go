package hackrf

import (
	"context"
	"os"
	"sync"

	"github.com/crosslink-radio/crosslink/pkg/crosslink/types"
	"github.com/samuel/go-hackrf/hackrf"
)

const maxSampleRate = 20e6

// HackRFSource captures complex baseband from a HackRF, optionally writing
// the raw CS8 stream to a recording file instead of the pipeline.
type HackRFSource struct {
	device *hackrf.Device

	centerFreq int
	sampleRate int

	outputChan chan *types.SegmentComplex64
	ctx        context.Context

	recordLocation string
	outputFile     *os.File
}

func (h *HackRFSource) MaxSampleRate() int {
	return maxSampleRate
}

func NewRecordingHackRFSource(recordLocation string) (*HackRFSource, error) {
	device, err := hackrf.Open()
	if err != nil {
		return nil, err
	}

	outFile, err := os.Create(recordLocation)
	if err != nil {
		return nil, err
	}

	return &HackRFSource{
		device:         device,
		outputFile:     outFile,
		recordLocation: recordLocation,
	}, nil
}

func NewHackRFSource() (*HackRFSource, error) {
	device, err := hackrf.Open()
	if err != nil {
		return nil, err
	}

	return &HackRFSource{
		device: device,
	}, nil
}

func (h *HackRFSource) callback(buf []byte) error {
	if h.outputFile != nil {
		if _, err := h.outputFile.Write(buf); err != nil {
			return err
		}
		return nil
	}

	seg := types.SegmentCS8Raw{
		SampleRate: h.sampleRate,
		Data:       make([]byte, len(buf)),
		Frequency:  h.centerFreq,
	}
	copy(seg.Data, buf)

	select {
	case <-h.ctx.Done():
		return h.ctx.Err()
	case h.outputChan <- seg.ToComplex64():
	}

	return nil
}

func (h *HackRFSource) Start(ctx context.Context, centerFreq int, sampleRate int, complexSamples chan *types.SegmentComplex64) error {
	h.ctx = ctx
	h.outputChan = complexSamples
	h.centerFreq = centerFreq
	h.sampleRate = sampleRate
	if err := h.device.SetFreq(uint64(h.centerFreq)); err != nil {
		return err
	}
	if err := h.device.SetSampleRateManual(h.sampleRate*2, 2); err != nil {
		return err
	}
	if err := h.device.SetLNAGain(32); err != nil {
		return err
	}
	if err := h.device.SetBasebandFilterBandwidth(h.sampleRate); err != nil {
		return err
	}
	if err := h.device.SetAmpEnable(true); err != nil {
		return err
	}
	return h.device.StartRX(h.callback)
}

func (h *HackRFSource) Stop() error {
	if h.outputFile != nil {
		defer h.outputFile.Close()
	}
	return h.device.StopRX()
}

// HackRFSink radiates complex baseband through a HackRF.  Segments are
// queued into a byte FIFO drained by the transfer callback; the callback
// zero-fills on underrun so the device never starves.
type HackRFSink struct {
	device *hackrf.Device

	txGain int

	mu      sync.Mutex
	cond    *sync.Cond
	fifo    []byte
	closed  bool
	started bool
}

const fifoHighWater = 1 << 22

func NewHackRFSink(txGain int) (*HackRFSink, error) {
	device, err := hackrf.Open()
	if err != nil {
		return nil, err
	}

	ret := &HackRFSink{
		device: device,
		txGain: txGain,
	}
	ret.cond = sync.NewCond(&ret.mu)
	return ret, nil
}

func (h *HackRFSink) MaxSampleRate() int {
	return maxSampleRate
}

func (h *HackRFSink) callback(buf []byte) error {
	h.mu.Lock()
	n := copy(buf, h.fifo)
	h.fifo = h.fifo[n:]
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	h.cond.Broadcast()
	h.mu.Unlock()
	return nil
}

func (h *HackRFSink) Start(ctx context.Context, centerFreq int, sampleRate int) error {
	if err := h.device.SetFreq(uint64(centerFreq)); err != nil {
		return err
	}
	if err := h.device.SetSampleRateManual(sampleRate*2, 2); err != nil {
		return err
	}
	if err := h.device.SetBasebandFilterBandwidth(sampleRate); err != nil {
		return err
	}
	if err := h.device.SetTXVGAGain(h.txGain); err != nil {
		return err
	}
	if err := h.device.SetAmpEnable(true); err != nil {
		return err
	}
	if err := h.device.StartTX(h.callback); err != nil {
		return err
	}
	h.started = true
	return nil
}

func (h *HackRFSink) Write(segment *types.SegmentComplex64) error {
	data := segment.ToCS8()

	h.mu.Lock()
	defer h.mu.Unlock()
	for len(h.fifo) > fifoHighWater && !h.closed {
		h.cond.Wait()
	}
	h.fifo = append(h.fifo, data...)
	return nil
}

func (h *HackRFSink) Close() error {
	h.mu.Lock()
	for len(h.fifo) > 0 && !h.closed {
		h.cond.Wait()
	}
	h.closed = true
	h.mu.Unlock()

	if h.started {
		return h.device.StopTX()
	}
	return h.device.Close()
}
