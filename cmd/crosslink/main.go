package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flag"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/crosslink-radio/crosslink/pkg/crosslink"
	"github.com/crosslink-radio/crosslink/pkg/crosslink/config"
	"github.com/crosslink-radio/crosslink/pkg/crosslink/device"
	"github.com/crosslink-radio/crosslink/pkg/crosslink/device/file"
	hackrfDevice "github.com/crosslink-radio/crosslink/pkg/crosslink/device/hackrf"
	"github.com/crosslink-radio/crosslink/pkg/crosslink/device/rtlsdr"
	"github.com/crosslink-radio/crosslink/pkg/crosslink/output"
	"github.com/crosslink-radio/crosslink/pkg/dsp/viz"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/samuel/go-hackrf/hackrf"
	"golang.org/x/sync/errgroup"
)

const (
	fileByteReadSize = 262144
	fileReadDelay    = time.Microsecond * 16384
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	configFile := flag.String("config", "crosslink.yaml", "YAML config file")
	mode := flag.String("mode", "rx", "rx, tx or batch")
	input := flag.String("input", "", "tx packet file / batch directory (overrides config)")

	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("error loading config file")
	}

	switch *mode {
	case "rx":
		runReceive(cfg)
	case "tx", "batch":
		runTransmit(cfg, *mode, *input)
	default:
		flag.Usage()
		os.Exit(1)
	}
}

func runReceive(cfg config.Config) {
	var dev device.Source
	var err error

	// Tuner ppm error is corrected in hardware where the device supports
	// it, otherwise by a mixer in the front end.
	frequencyOffset := 0

	if cfg.PlaybackLocation != "" {
		cfg.Device = "file"
	}

	switch cfg.Device {
	case "rtlsdr":
		log.Info().Str("device", "rtlsdr").Msg("initializing device...")
		dev, err = rtlsdr.NewRTLSDRDevice(cfg.RTLSDRDeviceIndex, cfg.RXGain, cfg.PPM)
		if err != nil {
			log.Fatal().Str("device", "rtlsdr").Err(err).Msg("failed to initialize RTLSDR")
		}
	case "file":
		log.Info().Str("device", "file").Msg("initializing device...")
		// Playback expects a HackRF-format CS8 capture.
		dev, err = file.NewFileSource(cfg.PlaybackLocation, fileByteReadSize, cfg.SampleRate, cfg.CenterFreq, fileReadDelay)
		if err != nil {
			log.Fatal().Str("device", "file").Err(err).Msg("failed to init file reader")
		}
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	default:
		log.Info().Str("device", "hackrf").Msg("initializing device...")
		if err := hackrf.Init(); err != nil {
			log.Fatal().Str("device", "hackrf").Err(err).Msg("failed to initialize hackRF")
		}
		defer hackrf.Exit()
		frequencyOffset = int(int64(cfg.CenterFreq) * int64(cfg.PPM) / 1e6)

		if cfg.RecordLocation != "" {
			dev, err = hackrfDevice.NewRecordingHackRFSource(cfg.RecordLocation)
			if err != nil {
				log.Fatal().Str("device", "hackrf").Err(err).Msg("failed to create hackRF recording device")
			}
		} else {
			dev, err = hackrfDevice.NewHackRFSource()
			if err != nil {
				log.Fatal().Str("device", "hackrf").Err(err).Msg("failed to create hackRF device")
			}
		}
	}

	vizServer := viz.NewServer(cfg.VizServer.Port, cfg.VizServer.UpdateInterval)

	influxWriteAPI := influxdb2.NewClient(cfg.InfluxDB.Host, "").WriteAPI(cfg.InfluxDB.Organization, cfg.InfluxDB.Bucket)

	var outputs []output.PayloadOutput
	if cfg.OutputFile != "" {
		outFile, err := os.OpenFile(cfg.OutputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open output file")
		}
		defer outFile.Close()
		outputs = append(outputs, output.NewFileOutput(outFile))
	}
	if len(cfg.OutputDestinations) > 0 {
		outputs = append(outputs, output.NewPayloadUDPOutput(cfg.OutputDestinations, influxWriteAPI))
	}

	receiver, err := crosslink.NewReceiver(dev,
		crosslink.Options{
			CenterFreq:      cfg.CenterFreq,
			SampleRate:      cfg.SampleRate,
			IFRate:          cfg.IFRate,
			Link:            cfg.Link,
			FrequencyOffset: frequencyOffset,
			Outputs:         outputs,
		}, crosslink.WithInfluxDB(
			influxWriteAPI,
		),
		crosslink.WithImageServer(vizServer),
		crosslink.WithLogger(log.Logger))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create receiver")
	}

	eg, ctx := errgroup.WithContext(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	eg.Go(func() error {

		select {
		case <-sigChan:
		case <-ctx.Done():
		}

		return receiver.Stop()
	})

	eg.Go(func() error {
		return receiver.Start(ctx)
	})

	if err := eg.Wait(); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("exited program")
	}
}

func runTransmit(cfg config.Config, mode, input string) {
	var sink device.Sink
	var err error

	switch cfg.Device {
	case "file":
		log.Info().Str("device", "file").Msg("initializing sink...")
		if cfg.RecordLocation == "" {
			log.Fatal().Msg("file sink requires record_location")
		}
		sink, err = file.NewFileSink(cfg.RecordLocation)
		if err != nil {
			log.Fatal().Str("device", "file").Err(err).Msg("failed to create file sink")
		}
	default:
		log.Info().Str("device", "hackrf").Msg("initializing sink...")
		if err := hackrf.Init(); err != nil {
			log.Fatal().Str("device", "hackrf").Err(err).Msg("failed to initialize hackRF")
		}
		defer hackrf.Exit()
		sink, err = hackrfDevice.NewHackRFSink(cfg.TXGain)
		if err != nil {
			log.Fatal().Str("device", "hackrf").Err(err).Msg("failed to create hackRF sink")
		}
	}

	influxWriteAPI := influxdb2.NewClient(cfg.InfluxDB.Host, "").WriteAPI(cfg.InfluxDB.Organization, cfg.InfluxDB.Bucket)

	tx, err := crosslink.NewTransmitter(sink,
		crosslink.Options{
			CenterFreq: cfg.CenterFreq,
			SampleRate: cfg.SampleRate,
			IFRate:     cfg.IFRate,
			Link:       cfg.Link,
		},
		crosslink.WithTransmitterInfluxDB(influxWriteAPI),
		crosslink.WithTransmitterLogger(log.Logger))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create transmitter")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := tx.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start transmitter")
	}

	switch mode {
	case "tx":
		if input == "" {
			log.Fatal().Msg("tx mode requires -input packet file")
		}
		err = tx.TransmitFile(ctx, input)
	case "batch":
		dir := input
		if dir == "" {
			dir = cfg.Batch.InputDir
		}
		if dir == "" {
			log.Fatal().Msg("batch mode requires -input directory or batch.input_dir")
		}
		err = crosslink.NewBatcher(tx, dir, cfg.Batch.PacketDelay).Run(ctx)
	}

	if cerr := tx.Close(); err == nil {
		err = cerr
	}
	if err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("exited program")
	}
}
