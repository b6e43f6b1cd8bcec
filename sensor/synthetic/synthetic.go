// Package synthetic provides sensor sources that generate depth frames
// without hardware.
package synthetic

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"essaim.dev/depthbasics/depth"
	"essaim.dev/depthbasics/sensor"
)

// ErrExhausted is returned by a replay source once every frame was delivered.
var ErrExhausted = errors.New("replay exhausted")

// Generator fills samples for frame number seq.
type Generator func(seq uint32, desc depth.Descriptor, samples []uint16)

// Constant fills every sample with v.
func Constant(v uint16) Generator {
	return func(_ uint32, _ depth.Descriptor, samples []uint16) {
		for i := range samples {
			samples[i] = v
		}
	}
}

// VerticalRamp fills row y with start + y*step.
func VerticalRamp(start, step uint16) Generator {
	return func(_ uint32, desc depth.Descriptor, samples []uint16) {
		for y := 0; y < desc.Height; y++ {
			row := samples[y*desc.Width : (y+1)*desc.Width]
			for x := range row {
				row[x] = start + uint16(y)*step
			}
		}
	}
}

// Option configures a Source.
type Option func(*Source)

// WithClock sets the clock driving the frame interval.
func WithClock(c clock.Clock) Option {
	return func(s *Source) {
		s.clock = c
	}
}

// WithInterval sets the time between frames. Zero produces frames as fast
// as they are requested.
func WithInterval(d time.Duration) Option {
	return func(s *Source) {
		s.interval = d
	}
}

// Source generates frames on a fixed interval.
type Source struct {
	desc depth.Descriptor
	gen  Generator

	clock    clock.Clock
	interval time.Duration
	ticker   *clock.Ticker

	seqMu sync.Mutex
	seq   uint32

	pool sync.Pool

	closed    chan struct{}
	closeOnce sync.Once
}

var _ sensor.Source = (*Source)(nil)

func New(desc depth.Descriptor, gen Generator, opts ...Option) *Source {
	s := &Source{
		desc:   desc,
		gen:    gen,
		clock:  clock.New(),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.pool.New = func() any {
		return make([]uint16, desc.Len())
	}
	if s.interval > 0 {
		s.ticker = s.clock.Ticker(s.interval)
	}

	return s
}

func (s *Source) Descriptor() depth.Descriptor {
	return s.desc
}

func (s *Source) NextFrame(ctx context.Context) (*depth.Frame, func(), error) {
	if err := s.waitTick(ctx); err != nil {
		return nil, nil, err
	}

	samples := s.pool.Get().([]uint16)

	s.seqMu.Lock()
	seq := s.seq
	s.seq++
	s.seqMu.Unlock()

	s.gen(seq, s.desc, samples)

	frame := depth.NewFrame(s.desc.Width, s.desc.Height, samples, s.desc.MinReliableDepth, s.desc.MaxReliableDepth)
	frame.Sequence = seq
	frame.Timestamp = s.clock.Now()

	return frame, func() { s.pool.Put(samples) }, nil
}

func (s *Source) waitTick(ctx context.Context) error {
	if s.ticker == nil {
		select {
		case <-s.closed:
			return sensor.ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	select {
	case <-s.ticker.C:
		return nil
	case <-s.closed:
		return sensor.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.closed)
	})
	return nil
}
