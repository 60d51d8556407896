package processor

import "github.com/crosslink-radio/crosslink/pkg/dsp/viz"

type DataType int

const (
	DataTypeComplex DataType = iota
	DataTypeBytes
)

// DSPWorker wraps one block of the chain with its rates, data types and
// optional visualization hooks.
type DSPWorker struct {
	Name        string
	DisplayName string
	InputRate   int
	OutputRate  int

	inputDataType  DataType
	outputDataType DataType

	ccWorker CCWorker
	cbWorker CBWorker
	bcWorker BCWorker
	bbWorker BBWorker

	cOutputBuffer []complex64
	bOutputBuffer []byte

	fft           *viz.FFTPlotter
	constellation *viz.ConstellationPlotter
	plotIQ        bool
	vizSize       int
	showBalance   bool

	plotOptions []viz.PlotOptions
}

type DSPWorkerOption func(r *DSPWorker)

func WithPlotOptions(opts []viz.PlotOptions) DSPWorkerOption {
	return func(r *DSPWorker) {
		r.plotOptions = append(r.plotOptions, opts...)
	}
}

func WithVizLength(length int) DSPWorkerOption {
	return func(r *DSPWorker) {
		r.vizSize = length
	}
}

// WithConstellationPlot renders the block's complex output as an IQ scatter
// instead of an FFT.  Useful after timing and carrier recovery.
func WithConstellationPlot() DSPWorkerOption {
	return func(r *DSPWorker) {
		r.plotIQ = true
	}
}

func ShowFFTBalance() DSPWorkerOption {
	return func(r *DSPWorker) {
		r.showBalance = true
	}
}

func baseWorker(name, displayName string, inputRate, outputRate int) *DSPWorker {
	return &DSPWorker{
		Name:        name,
		DisplayName: displayName,
		InputRate:   inputRate,
		OutputRate:  outputRate,
	}
}

func NewDSPWorkerCC(name, displayName string, inputRate, outputRate int, worker CCWorker, opts ...DSPWorkerOption) *DSPWorker {
	ret := baseWorker(name, displayName, inputRate, outputRate)
	ret.inputDataType = DataTypeComplex
	ret.outputDataType = DataTypeComplex
	ret.ccWorker = worker

	for _, opt := range opts {
		opt(ret)
	}

	return ret
}

func NewDSPWorkerCB(name, displayName string, inputRate, outputRate int, worker CBWorker, opts ...DSPWorkerOption) *DSPWorker {
	ret := baseWorker(name, displayName, inputRate, outputRate)
	ret.inputDataType = DataTypeComplex
	ret.outputDataType = DataTypeBytes
	ret.cbWorker = worker

	for _, opt := range opts {
		opt(ret)
	}

	return ret
}

func NewDSPWorkerBC(name, displayName string, inputRate, outputRate int, worker BCWorker, opts ...DSPWorkerOption) *DSPWorker {
	ret := baseWorker(name, displayName, inputRate, outputRate)
	ret.inputDataType = DataTypeBytes
	ret.outputDataType = DataTypeComplex
	ret.bcWorker = worker

	for _, opt := range opts {
		opt(ret)
	}

	return ret
}

func NewDSPWorkerBB(name, displayName string, inputRate, outputRate int, worker BBWorker, opts ...DSPWorkerOption) *DSPWorker {
	ret := baseWorker(name, displayName, inputRate, outputRate)
	ret.inputDataType = DataTypeBytes
	ret.outputDataType = DataTypeBytes
	ret.bbWorker = worker

	for _, opt := range opts {
		opt(ret)
	}

	return ret
}

// Complex in, complex out
type CCWorker interface {
	WorkBuffer([]complex64, []complex64) int
	PredictOutputSize(int) int
}

// Complex in, bytes out (one symbol index per byte)
type CBWorker interface {
	WorkBuffer([]complex64, []byte) int
	PredictOutputSize(int) int
}

// Bytes in (one symbol index per byte), complex out
type BCWorker interface {
	WorkBuffer([]byte, []complex64) int
	PredictOutputSize(int) int
}

type BBWorker interface {
	WorkBuffer([]byte, []byte) int
	PredictOutputSize(int) int
}
