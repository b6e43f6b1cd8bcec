package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"essaim.dev/depthbasics/depth"
)

const defaultRetryInterval = time.Second

// FrameHandler receives frames from a Reader. The frame is released when the
// handler returns.
type FrameHandler func(frame *depth.Frame)

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithClock sets the clock used to wait between retries.
func WithClock(c clock.Clock) ReaderOption {
	return func(r *Reader) {
		r.clock = c
	}
}

// WithRetryInterval sets how long the reader waits after ErrUnavailable.
func WithRetryInterval(d time.Duration) ReaderOption {
	return func(r *Reader) {
		r.retryInterval = d
	}
}

// WithStatusFunc registers a callback invoked whenever the status changes.
func WithStatusFunc(f func(Status)) ReaderOption {
	return func(r *Reader) {
		r.statusFunc = f
	}
}

// Reader pulls frames from a Source and hands them to a handler, never
// invoking the handler concurrently.
type Reader struct {
	source Source
	logger *zap.SugaredLogger

	clock         clock.Clock
	retryInterval time.Duration
	statusFunc    func(Status)

	statusMu sync.RWMutex
	status   Status
}

func NewReader(source Source, logger *zap.SugaredLogger, opts ...ReaderOption) *Reader {
	r := &Reader{
		source:        source,
		logger:        logger,
		clock:         clock.New(),
		retryInterval: defaultRetryInterval,
		status:        NoSensor,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Status returns the last reported status.
func (r *Reader) Status() Status {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()

	return r.status
}

// Run delivers frames to handler until ctx is canceled or the source fails.
func (r *Reader) Run(ctx context.Context, handler FrameHandler) error {
	for {
		frame, release, err := r.source.NextFrame(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ErrUnavailable):
			r.setStatus(SensorNotAvailable)
			if err := r.wait(ctx); err != nil {
				return err
			}
			continue
		default:
			r.setStatus(NoSensor)
			return fmt.Errorf("could not read depth frame: %w", err)
		}

		r.setStatus(Running)
		r.deliver(frame, release, handler)
	}
}

func (r *Reader) deliver(frame *depth.Frame, release func(), handler FrameHandler) {
	defer release()

	handler(frame)
}

func (r *Reader) wait(ctx context.Context) error {
	timer := r.clock.Timer(r.retryInterval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reader) setStatus(s Status) {
	r.statusMu.Lock()
	changed := r.status != s
	r.status = s
	r.statusMu.Unlock()

	if !changed {
		return
	}

	r.logger.Infow("sensor status changed", "status", s.String())
	if r.statusFunc != nil {
		r.statusFunc(s)
	}
}
