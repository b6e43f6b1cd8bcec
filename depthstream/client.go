package depthstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"essaim.dev/depthbasics/depth"
	"essaim.dev/depthbasics/sensor"
)

const (
	readTimeout = 500 * time.Millisecond

	// After this long without a frame the stream is reported unavailable.
	frameTimeout = 2 * time.Second
)

// Client receives a depth stream and serves it as a sensor.Source.
type Client struct {
	conn *net.UDPConn

	desc   depth.Descriptor
	logger *zap.SugaredLogger

	decoder   *zstd.Decoder
	assembler assembler

	frames chan *depth.Frame

	closed    chan struct{}
	closeOnce sync.Once
}

var _ sensor.Source = (*Client)(nil)

// NewClient joins the multicast group at addr. desc describes the frames the
// server is expected to send.
func NewClient(addr netip.AddrPort, desc depth.Descriptor, logger *zap.SugaredLogger) (*Client, error) {
	conn, err := net.ListenMulticastUDP("udp4", nil, net.UDPAddrFromAddrPort(addr))
	if err != nil {
		return nil, fmt.Errorf("could not listen on multicast address: %w", err)
	}
	conn.SetReadBuffer(16 * maxDatagramSize)

	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(metaSize+2*maxFrameSamples)))
	if err != nil {
		return nil, multierr.Combine(fmt.Errorf("could not create decoder: %w", err), conn.Close())
	}

	return &Client{
		conn:    conn,
		desc:    desc,
		logger:  logger,
		decoder: decoder,
		frames:  make(chan *depth.Frame, 1),
		closed:  make(chan struct{}),
	}, nil
}

func (c *Client) Descriptor() depth.Descriptor {
	return c.desc
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	c.decoder.Close()
	return c.conn.Close()
}

// Run receives datagrams until ctx is canceled or the connection is closed.
func (c *Client) Run(ctx context.Context) error {
	b := make([]byte, maxDatagramSize)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context canceled: %w", ctx.Err())
		default:
		}

		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := c.conn.Read(b)
		if errors.Is(err, os.ErrDeadlineExceeded) {
			continue
		}
		if err != nil {
			return fmt.Errorf("connection closed: %w", err)
		}

		if frame, ok := c.handleDatagram(b[:n]); ok {
			c.push(frame)
		}
	}
}

func (c *Client) handleDatagram(b []byte) (*depth.Frame, bool) {
	h, payload, err := parseChunk(b)
	if err != nil {
		c.logger.Debugw("dropping datagram", "error", err)
		return nil, false
	}

	compressed, ok := c.assembler.add(h, payload)
	if !ok {
		return nil, false
	}

	raw, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		c.logger.Warnw("could not decompress depth frame", "seq", h.seq, "error", err)
		return nil, false
	}

	frame, err := decodeFrame(raw, h.seq)
	if err != nil {
		c.logger.Warnw("could not decode depth frame", "seq", h.seq, "error", err)
		return nil, false
	}

	return frame, true
}

// push keeps only the latest frame.
func (c *Client) push(frame *depth.Frame) {
	for {
		select {
		case c.frames <- frame:
			return
		default:
		}

		select {
		case <-c.frames:
		default:
		}
	}
}

func (c *Client) NextFrame(ctx context.Context) (*depth.Frame, func(), error) {
	timer := time.NewTimer(frameTimeout)
	defer timer.Stop()

	select {
	case frame := <-c.frames:
		return frame, func() {}, nil
	case <-timer.C:
		return nil, nil, sensor.ErrUnavailable
	case <-c.closed:
		return nil, nil, sensor.ErrClosed
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}
