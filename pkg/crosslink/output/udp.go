package output

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/crosslink-radio/crosslink/pkg/crosslink/config"
	"github.com/crosslink-radio/crosslink/pkg/crosslink/types"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const receiveChannels = 8

// PayloadUDPOutput forwards each recovered payload to one or more UDP
// destinations.  Datagram format: uint16 little-endian payload length,
// uint64 little-endian payload number, then the payload bytes.
type PayloadUDPOutput struct {
	dests    []config.OutputDestination
	recvChan chan *types.Payload
	metrics  api.WriteAPI
}

func NewPayloadUDPOutput(dests []config.OutputDestination, metrics api.WriteAPI) *PayloadUDPOutput {
	return &PayloadUDPOutput{
		dests:    dests,
		recvChan: make(chan *types.Payload, receiveChannels),
		metrics:  metrics,
	}
}

func (s *PayloadUDPOutput) Receive() chan<- *types.Payload {
	return s.recvChan
}

func (s *PayloadUDPOutput) Start(ctx context.Context) error {

	eg, ctx := errgroup.WithContext(ctx)

	const numSenders int = 4

	destAddrs := make([]*net.UDPAddr, 0, len(s.dests))
	for _, dest := range s.dests {

		ips, err := net.LookupIP(dest.Host)
		if err != nil {
			return err
		}
		if len(ips) == 0 {
			return fmt.Errorf("no IPs returned for %s", dest.Host)
		}

		destAddr := &net.UDPAddr{IP: ips[0], Port: dest.Port}
		destAddrs = append(destAddrs, destAddr)
		log.Info().IPAddr("dest_ip", destAddr.IP).Int("port", dest.Port).Msg("payload output starting")
	}

	for i := 0; i < numSenders; i++ {
		eg.Go(func() error {

			conn, err := net.ListenUDP("udp", nil)
			if err != nil {
				return err
			}
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case p := <-s.recvChan:

					var msgBuf bytes.Buffer
					if err := binary.Write(&msgBuf, binary.LittleEndian, uint16(len(p.Data))); err != nil {
						log.Warn().Err(err).Msg("error encoding header size")
						continue
					}
					if err := binary.Write(&msgBuf, binary.LittleEndian, p.Number); err != nil {
						log.Warn().Err(err).Msg("error encoding payload number")
						continue
					}
					if _, err := msgBuf.Write(p.Data); err != nil {
						log.Warn().Err(err).Msg("error writing payload")
						continue
					}

					success := true
					var bytesWritten int
					for _, destAddr := range destAddrs {
						bytesWritten, err = conn.WriteToUDP(msgBuf.Bytes(), destAddr)
						if err != nil {
							log.Error().Err(err).Msg("error writing")
							success = false
						}
					}

					go s.metrics.WritePoint(influxdb2.NewPoint("payload.sent",
						map[string]string{
							"frequency": strconv.Itoa(p.Frequency),
						},
						map[string]interface{}{
							"bytes_written":  bytesWritten,
							"payload_length": len(p.Data),
							"sent": func() int {
								if success {
									return 1
								}
								return 0
							}(),
							"dropped": func() int {
								if success {
									return 0
								}
								return 1
							}(),
						}, time.Now()))
				}
			}
		})
	}

	return eg.Wait()
}
