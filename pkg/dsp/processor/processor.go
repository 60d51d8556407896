package processor

import (
	"errors"
	"fmt"
	"time"

	"github.com/crosslink-radio/crosslink/pkg/crosslink/types"
	"github.com/crosslink-radio/crosslink/pkg/dsp/viz"
)

// Processor runs an ordered chain of DSP workers over one stream direction.
// Adjacent blocks must agree on data type and rate; mismatches are caught at
// initialization, not at runtime.
type Processor struct {
	Name        string
	InputName   string
	blocks      []*DSPWorker
	vizServer   *viz.Server
	initialized bool
	inputFFT    *viz.FFTPlotter
}

// NewProcessor creates a chain runner.  vizServer may be nil to disable
// plotting entirely (tests, headless operation).
func NewProcessor(name, inputName string, vizServer *viz.Server) *Processor {
	return &Processor{
		Name:      name,
		InputName: inputName,
		vizServer: vizServer,
	}
}

func (p *Processor) AddBlock(worker *DSPWorker) {
	p.blocks = append(p.blocks, worker)
}

func (p *Processor) registerViz(w *DSPWorker, nextIndexString func(string) string) {
	if p.vizServer == nil || w.outputDataType != DataTypeComplex {
		return
	}

	if w.plotIQ {
		vizLength := 512
		if w.vizSize > 0 {
			vizLength = w.vizSize
		}
		w.constellation = viz.NewConstellationPlotter(nextIndexString(w.DisplayName), vizLength)
		for _, opt := range w.plotOptions {
			w.constellation.AddPlotOption(opt)
		}
		p.vizServer.Register(p.Name, w.constellation)
		return
	}

	vizLength := 1024
	if w.vizSize > 0 {
		vizLength = w.vizSize
	}
	w.fft = viz.NewFFTPlotterComplex(nextIndexString(w.DisplayName), vizLength, w.OutputRate)
	w.fft.ShowBalance(w.showBalance)
	for _, opt := range w.plotOptions {
		w.fft.AddPlotOption(opt)
	}
	p.vizServer.Register(p.Name, w.fft)
}

func (p *Processor) Initialize() error {
	if p.initialized {
		return nil
	}
	if len(p.blocks) < 2 {
		return fmt.Errorf("must specify at least 2 blocks")
	}

	vizIndex := 0
	nextIndexString := func(s string) string {
		vizIndex++
		return fmt.Sprintf("%02d. %s", vizIndex, s)
	}

	cur := p.blocks[0]
	if p.vizServer != nil && cur.inputDataType == DataTypeComplex {
		p.inputFFT = viz.NewFFTPlotterComplex(nextIndexString(p.InputName), 1024, cur.InputRate)
		p.vizServer.Register(p.Name, p.inputFFT)
	}

	for i := 1; i < len(p.blocks); i++ {
		next := p.blocks[i]

		if cur.outputDataType != next.inputDataType {
			return fmt.Errorf("cur: %s next %s data type mismatch (%d %d)", cur.Name, next.Name, cur.outputDataType, next.inputDataType)
		}
		if cur.OutputRate != next.InputRate {
			return fmt.Errorf("cur: %s next %s rate mismatch (%d %d)", cur.Name, next.Name, cur.OutputRate, next.InputRate)
		}

		p.registerViz(cur, nextIndexString)
		cur = next
	}
	p.registerViz(cur, nextIndexString)

	p.initialized = true

	return nil
}

func (p *Processor) processData(cmplxInput []complex64, byteInput []byte, expectedInputType, expectedOutputType DataType, metrics map[string]interface{}) ([]complex64, []byte, error) {
	if cmplxInput == nil && byteInput == nil {
		return nil, nil, errors.New("must specify input")
	}
	if cmplxInput != nil && byteInput != nil {
		return nil, nil, errors.New("may only specify one input")
	}

	if p.blocks[0].inputDataType != expectedInputType {
		return nil, nil, fmt.Errorf("invalid input type: got %d expected %d", p.blocks[0].inputDataType, expectedInputType)
	}
	if p.blocks[len(p.blocks)-1].outputDataType != expectedOutputType {
		return nil, nil, fmt.Errorf("invalid output type: got %d expected %d", p.blocks[len(p.blocks)-1].outputDataType, expectedOutputType)
	}

	if cmplxInput != nil && p.inputFFT != nil {
		p.inputFFT.AppendComplex(cmplxInput)
	}

	var cmplxOutput []complex64
	var byteOutput []byte

	for _, block := range p.blocks {
		if block.inputDataType != expectedInputType {
			return nil, nil, fmt.Errorf("error in %s: expected %d got %d input type", block.Name, expectedInputType, block.inputDataType)
		}

		var work func()

		switch block.inputDataType {
		case DataTypeComplex:
			switch block.outputDataType {
			case DataTypeComplex:
				if block.cOutputBuffer == nil {
					block.cOutputBuffer = make([]complex64, block.ccWorker.PredictOutputSize(len(cmplxInput))*2)
				}
				work = func() {
					length := block.ccWorker.WorkBuffer(cmplxInput, block.cOutputBuffer)
					cmplxOutput = block.cOutputBuffer[:length]

					if block.fft != nil {
						block.fft.AppendComplex(cmplxOutput)
					}
					if block.constellation != nil {
						block.constellation.AppendComplex(cmplxOutput)
					}
				}

			case DataTypeBytes:
				if block.bOutputBuffer == nil {
					block.bOutputBuffer = make([]byte, block.cbWorker.PredictOutputSize(len(cmplxInput))*2)
				}
				work = func() {
					length := block.cbWorker.WorkBuffer(cmplxInput, block.bOutputBuffer)
					byteOutput = block.bOutputBuffer[:length]
				}

			default:
				return nil, nil, fmt.Errorf("%s unknown output type %d for input %d", block.Name, block.outputDataType, block.inputDataType)
			}

		case DataTypeBytes:
			switch block.outputDataType {
			case DataTypeComplex:
				if block.cOutputBuffer == nil {
					block.cOutputBuffer = make([]complex64, block.bcWorker.PredictOutputSize(len(byteInput))*2)
				}
				work = func() {
					length := block.bcWorker.WorkBuffer(byteInput, block.cOutputBuffer)
					cmplxOutput = block.cOutputBuffer[:length]

					if block.fft != nil {
						block.fft.AppendComplex(cmplxOutput)
					}
					if block.constellation != nil {
						block.constellation.AppendComplex(cmplxOutput)
					}
				}

			case DataTypeBytes:
				if block.bOutputBuffer == nil {
					block.bOutputBuffer = make([]byte, block.bbWorker.PredictOutputSize(len(byteInput))*2)
				}
				work = func() {
					length := block.bbWorker.WorkBuffer(byteInput, block.bOutputBuffer)
					byteOutput = block.bOutputBuffer[:length]
				}

			default:
				return nil, nil, fmt.Errorf("%s unknown output type %d for input %d", block.Name, block.outputDataType, block.inputDataType)
			}

		default:
			return nil, nil, fmt.Errorf("unknown input type %d", block.inputDataType)
		}

		start := time.Now()
		work()
		metrics[fmt.Sprintf("%s_duration", block.Name)] = time.Since(start).Microseconds()

		if block != p.blocks[len(p.blocks)-1] {
			cmplxInput = cmplxOutput
			byteInput = byteOutput

			cmplxOutput = nil
			byteOutput = nil
			expectedInputType = block.outputDataType
		}
	}
	return cmplxOutput, byteOutput, nil
}

// ProcessComplexToBytes runs the receive direction: complex baseband in,
// byte-oriented stream out.
func (p *Processor) ProcessComplexToBytes(input *types.SegmentComplex64, metrics map[string]interface{}) (*types.SegmentBytes, error) {
	if !p.initialized {
		if err := p.Initialize(); err != nil {
			return nil, err
		}
	}

	_, byteOutput, err := p.processData(input.Data, nil, DataTypeComplex, DataTypeBytes, metrics)
	if err != nil {
		return nil, err
	}

	return &types.SegmentBytes{
		SymbolRate:    p.blocks[len(p.blocks)-1].OutputRate,
		Data:          byteOutput,
		SegmentNumber: input.SegmentNumber,
	}, nil
}

// ProcessBytesToComplex runs the transmit direction: packed payload bytes in,
// complex baseband out.
func (p *Processor) ProcessBytesToComplex(input *types.SegmentBytes, metrics map[string]interface{}) (*types.SegmentComplex64, error) {
	if !p.initialized {
		if err := p.Initialize(); err != nil {
			return nil, err
		}
	}

	cmplxOutput, _, err := p.processData(nil, input.Data, DataTypeBytes, DataTypeComplex, metrics)
	if err != nil {
		return nil, err
	}

	return &types.SegmentComplex64{
		SampleRate:    p.blocks[len(p.blocks)-1].OutputRate,
		Data:          cmplxOutput,
		SegmentNumber: input.SegmentNumber,
	}, nil
}
