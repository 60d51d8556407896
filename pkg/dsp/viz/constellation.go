package viz

import (
	"bytes"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ConstellationPlotter renders complex samples as an IQ scatter.  Pointed at
// the carrier recovery output it shows the four QPSK clusters (rotated by
// whatever ambiguity the loop settled on).
type ConstellationPlotter struct {
	buf         []complex64
	size        int
	name        string
	plotOptions []PlotOptions
}

func NewConstellationPlotter(name string, size int) *ConstellationPlotter {
	return &ConstellationPlotter{
		buf:  make([]complex64, 0, size),
		size: size,
		name: name,
	}
}

func (c *ConstellationPlotter) Name() string {
	return c.name
}

func (c *ConstellationPlotter) AppendComplex(s []complex64) {
	c.buf = append(c.buf, s...)

	if len(c.buf) > c.size {
		c.buf = c.buf[len(c.buf)-c.size:]
	}
}

func (c *ConstellationPlotter) AddPlotOption(opt PlotOptions) {
	c.plotOptions = append(c.plotOptions, opt)
}

func (c *ConstellationPlotter) GetImage() *ImageContainer {
	if len(c.buf) < c.size {
		return nil
	}

	p := plotWithDefaults()

	p.Title.Text = c.name
	p.X.Label.Text = "I"
	p.Y.Label.Text = "Q"
	p.X.Min = -2
	p.X.Max = 2
	p.Y.Min = -2
	p.Y.Max = 2

	for _, opt := range c.plotOptions {
		opt(p)
	}

	grid := plotter.NewGrid()
	p.Add(grid)

	plotutil.AddScatters(p, "IQ", func() plotter.XYs {
		ret := make(plotter.XYs, len(c.buf))
		for i, s := range c.buf {
			ret[i] = plotter.XY{X: float64(real(s)), Y: float64(imag(s))}
		}
		return ret
	}())

	var imageData bytes.Buffer
	w, err := p.WriterTo(6*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		panic(err)
	}
	w.WriteTo(&imageData)
	return &ImageContainer{name: c.name, data: imageData.Bytes()}
}
