// Package kinect reads depth frames from a Kinect through libfreenect.
package kinect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"essaim.dev/depthbasics/depth"
	"essaim.dev/depthbasics/freenect"
	"essaim.dev/depthbasics/sensor"
)

const (
	processEventsTimeout = 500 * time.Millisecond

	// After this long without a frame the sensor is reported unavailable.
	frameTimeout = 2 * time.Second
)

// Descriptor describes the frames produced by the source.
var Descriptor = sensor.KinectDescriptor

type Source struct {
	fctx   *freenect.Context
	device *freenect.Device

	logger *zap.SugaredLogger

	frames chan *depth.Frame
	pool   sync.Pool

	seqMu sync.Mutex
	seq   uint32
}

var _ sensor.Source = (*Source)(nil)

func NewSource(logger *zap.SugaredLogger) (*Source, error) {
	fctx, err := freenect.NewContext()
	if err != nil {
		return nil, fmt.Errorf("could not create freenect context: %w", err)
	}

	device, err := fctx.OpenDevice(0)
	if err != nil {
		return nil, multierr.Combine(fmt.Errorf("could not open kinect device: %w", err), fctx.Destroy())
	}

	if err := device.SetLED(freenect.LEDColorYellow); err != nil {
		logger.Warnw("could not set kinect led", "error", err)
	}

	s := &Source{
		fctx:   fctx,
		device: device,
		logger: logger,
		frames: make(chan *depth.Frame, 1),
	}
	s.pool.New = func() any {
		return make([]uint16, Descriptor.Len())
	}

	return s, nil
}

func (s *Source) Descriptor() depth.Descriptor {
	return Descriptor
}

// Run streams depth frames until ctx is canceled. Frames are only produced
// while Run is active.
func (s *Source) Run(ctx context.Context) error {
	s.device.SetDepthCallback(s.depthFunc)

	if err := s.device.StartDepthStream(freenect.ResolutionMedium, freenect.DepthFormatMM); err != nil {
		return fmt.Errorf("could not start kinect depth stream: %w", err)
	}
	defer s.device.StopDepthStream()

	if err := s.device.SetLED(freenect.LEDColorGreen); err != nil {
		s.logger.Warnw("could not set kinect led", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Do not handle errors, they are most likely timeouts.
			s.fctx.ProcessEvents(processEventsTimeout)
		}
	}
}

// depthFunc runs on the Run goroutine. The depth slice belongs to libfreenect
// so it is copied before being handed over.
func (s *Source) depthFunc(_ *freenect.Device, samples []uint16, _ uint32) {
	if len(samples) != Descriptor.Len() {
		s.logger.Warnw("unexpected depth buffer size", "samples", len(samples))
		return
	}

	buf := s.pool.Get().([]uint16)
	copy(buf, samples)

	s.seqMu.Lock()
	seq := s.seq
	s.seq++
	s.seqMu.Unlock()

	frame := depth.NewFrame(Descriptor.Width, Descriptor.Height, buf, Descriptor.MinReliableDepth, Descriptor.MaxReliableDepth)
	frame.Sequence = seq
	frame.Timestamp = time.Now()

	for {
		select {
		case s.frames <- frame:
			return
		default:
		}

		// Latest frame wins.
		select {
		case old := <-s.frames:
			s.pool.Put(old.Samples()[:Descriptor.Len()])
		default:
		}
	}
}

func (s *Source) NextFrame(ctx context.Context) (*depth.Frame, func(), error) {
	timer := time.NewTimer(frameTimeout)
	defer timer.Stop()

	select {
	case frame := <-s.frames:
		return frame, func() { s.pool.Put(frame.Samples()[:Descriptor.Len()]) }, nil
	case <-timer.C:
		return nil, nil, sensor.ErrUnavailable
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

func (s *Source) Close() error {
	if err := s.device.SetLED(freenect.LEDColorRed); err != nil {
		s.logger.Warnw("could not set kinect led", "error", err)
	}

	return multierr.Combine(
		s.device.Destroy(),
		s.fctx.Destroy(),
	)
}
