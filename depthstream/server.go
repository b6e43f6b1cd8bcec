// Package depthstream ships depth frames over UDP multicast so the sensor and
// the viewer can run on different machines.
package depthstream

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"essaim.dev/depthbasics/depth"
	"essaim.dev/depthbasics/sensor"
)

type Server struct {
	conn *net.UDPConn

	source sensor.Source
	logger *zap.SugaredLogger

	encoder *zstd.Encoder

	stream uuid.UUID
	seq    uint32
}

func NewServer(addr netip.AddrPort, source sensor.Source, logger *zap.SugaredLogger) (*Server, error) {
	conn, err := net.DialUDP("udp4", nil, net.UDPAddrFromAddrPort(addr))
	if err != nil {
		return nil, fmt.Errorf("could not dial udp address: %w", err)
	}
	conn.SetWriteBuffer(4 * maxDatagramSize)

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, multierr.Combine(fmt.Errorf("could not create encoder: %w", err), conn.Close())
	}

	return &Server{
		conn:    conn,
		source:  source,
		logger:  logger,
		encoder: encoder,
		stream:  uuid.New(),
	}, nil
}

func (s *Server) Close() error {
	s.encoder.Close()
	return s.conn.Close()
}

// Run publishes every frame of the source until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Infow("publishing depth stream", "stream", s.stream, "addr", s.conn.RemoteAddr())

	reader := sensor.NewReader(s.source, s.logger)
	if err := reader.Run(ctx, s.publish); err != nil {
		return fmt.Errorf("depth stream stopped: %w", err)
	}
	return nil
}

func (s *Server) publish(frame *depth.Frame) {
	datagrams, err := s.encode(frame)
	if err != nil {
		s.logger.Warnw("could not encode depth frame", "error", err)
		return
	}

	for _, d := range datagrams {
		if _, err := s.conn.Write(d); err != nil {
			s.logger.Warnw("could not send depth frame chunk", "error", err)
			return
		}
	}
}

func (s *Server) encode(frame *depth.Frame) ([][]byte, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	raw := encodeFrame(frame)
	compressed := s.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2))

	seq := s.seq
	s.seq++

	return splitChunks(s.stream, seq, compressed)
}
