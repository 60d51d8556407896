package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

type Config struct {
	CenterFreq int `yaml:"center_freq"`
	SampleRate int `yaml:"sample_rate"`

	// IFRate, when set, is the rate the demodulator runs at; the front end
	// bandpass-decimates the device stream down to it.  Zero means the
	// device rate is used directly.
	IFRate int `yaml:"if_rate"`

	Link Link `yaml:"link"`

	RXGain int `yaml:"rx_gain"`
	TXGain int `yaml:"tx_gain"`
	PPM    int `yaml:"ppm"`

	Device            string `yaml:"device"`
	RTLSDRDeviceIndex int    `yaml:"rtlsdr_device_index"`
	RecordLocation    string `yaml:"record_location"`
	PlaybackLocation  string `yaml:"playback_location"`

	OutputFile         string              `yaml:"output_file"`
	OutputDestinations []OutputDestination `yaml:"output_destinations"`

	Batch struct {
		InputDir    string        `yaml:"input_dir"`
		PacketDelay time.Duration `yaml:"packet_delay"`
	} `yaml:"batch"`

	VizServer struct {
		Port           int           `yaml:"port"`
		UpdateInterval time.Duration `yaml:"update_interval_ms"`
	} `yaml:"viz_server"`
	InfluxDB struct {
		Host         string `yaml:"host"`
		Organization string `yaml:"organization"`
		Bucket       string `yaml:"bucket"`
	} `yaml:"influxdb"`
}

type OutputDestination struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Link describes the air interface shared by both ends.
type Link struct {
	SamplesPerSymbol int     `yaml:"samples_per_symbol"`
	ExcessBandwidth  float64 `yaml:"excess_bandwidth"`
	TimingLoopBw     float64 `yaml:"timing_loop_bw"`
	CostasLoopBw     float64 `yaml:"costas_loop_bw"`
	PacketLength     int     `yaml:"packet_length"`
	SyncWord         string  `yaml:"sync_word"`
	SyncThreshold    int     `yaml:"sync_threshold"`
}

func Default() Config {
	var cfg Config
	cfg.CenterFreq = 985000000
	cfg.SampleRate = 1000000
	cfg.RXGain = 30
	cfg.TXGain = 35
	cfg.PPM = 30
	cfg.Device = "rtlsdr"
	cfg.Batch.PacketDelay = 5 * time.Second
	cfg.Link = Link{
		SamplesPerSymbol: 8,
		ExcessBandwidth:  0.35,
		TimingLoopBw:     0.0628,
		CostasLoopBw:     0.0628,
		PacketLength:     256,
		SyncWord:         "7e6d757368617272",
		SyncThreshold:    2,
	}
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Link.SamplesPerSymbol <= 0 {
		return fmt.Errorf("samples_per_symbol must be positive, got %d", c.Link.SamplesPerSymbol)
	}
	if c.IFRate > 0 && c.SampleRate%c.IFRate != 0 {
		return fmt.Errorf("sample_rate %d not divisible by if_rate %d", c.SampleRate, c.IFRate)
	}
	if c.ProcessRate()%c.Link.SamplesPerSymbol != 0 {
		return fmt.Errorf("rate %d not divisible by samples_per_symbol %d",
			c.ProcessRate(), c.Link.SamplesPerSymbol)
	}
	if c.Link.PacketLength <= 0 {
		return fmt.Errorf("packet_length must be positive, got %d", c.Link.PacketLength)
	}
	sw, err := hex.DecodeString(c.Link.SyncWord)
	if err != nil {
		return fmt.Errorf("sync_word is not valid hex: %w", err)
	}
	if len(sw) == 0 || len(sw) > 8 {
		return fmt.Errorf("sync_word must be 1 to 8 bytes, got %d", len(sw))
	}
	if c.Link.SyncThreshold < 0 || c.Link.SyncThreshold >= len(sw)*8 {
		return fmt.Errorf("sync_threshold %d out of range for %d-bit sync word",
			c.Link.SyncThreshold, len(sw)*8)
	}
	switch c.Device {
	case "rtlsdr", "hackrf", "file":
	default:
		return fmt.Errorf("unknown device %q", c.Device)
	}
	return nil
}

// ProcessRate is the rate the demodulator runs at.
func (c *Config) ProcessRate() int {
	if c.IFRate > 0 {
		return c.IFRate
	}
	return c.SampleRate
}

// SymbolRate is derived rather than configured so both ends stay consistent.
func (c *Config) SymbolRate() int {
	return c.ProcessRate() / c.Link.SamplesPerSymbol
}

// SyncWordBytes returns the decoded sync word.  Call Validate first.
func (c *Config) SyncWordBytes() []byte {
	sw, _ := hex.DecodeString(c.Link.SyncWord)
	return sw
}
