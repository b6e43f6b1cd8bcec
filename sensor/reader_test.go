package sensor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"essaim.dev/depthbasics/depth"
	"essaim.dev/depthbasics/sensor"
	"essaim.dev/depthbasics/sensor/synthetic"
)

var testDescriptor = depth.Descriptor{Width: 2, Height: 2, BytesPerPixel: 2}

func TestReaderDeliversAndReleases(t *testing.T) {
	frames := []*depth.Frame{
		depth.NewFrame(2, 2, []uint16{1, 2, 3, 4}, 0, 0),
		depth.NewFrame(2, 2, []uint16{5, 6, 7, 8}, 0, 0),
	}
	replay := synthetic.NewReplay(testDescriptor, frames...)

	var got []*depth.Frame
	r := sensor.NewReader(replay, zaptest.NewLogger(t).Sugar())
	err := r.Run(context.Background(), func(f *depth.Frame) {
		got = append(got, f)
	})

	assert.ErrorIs(t, err, synthetic.ErrExhausted)
	assert.Equal(t, frames, got)
	assert.Equal(t, 2, replay.Released())
	assert.Equal(t, sensor.NoSensor, r.Status())
}

func TestReaderContextCanceled(t *testing.T) {
	src := synthetic.New(testDescriptor, synthetic.Constant(1), synthetic.WithInterval(time.Hour))
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := sensor.NewReader(src, zaptest.NewLogger(t).Sugar())
	err := r.Run(ctx, func(*depth.Frame) {
		t.Error("handler must not be called")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

// flakySource is unavailable for its first calls, then delivers frames.
type flakySource struct {
	mu          sync.Mutex
	unavailable int
	calls       int
}

func (s *flakySource) Descriptor() depth.Descriptor { return testDescriptor }

func (s *flakySource) NextFrame(ctx context.Context) (*depth.Frame, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.unavailable > 0 {
		s.unavailable--
		return nil, nil, sensor.ErrUnavailable
	}
	return depth.NewFrame(2, 2, make([]uint16, 4), 0, 0), func() {}, nil
}

func (s *flakySource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

func (s *flakySource) Close() error { return nil }

func TestReaderRetriesUnavailable(t *testing.T) {
	const retryInterval = 5 * time.Second

	src := &flakySource{unavailable: 2}
	mock := clock.NewMock()

	var statuses []sensor.Status
	r := sensor.NewReader(src, zaptest.NewLogger(t).Sugar(),
		sensor.WithClock(mock),
		sensor.WithRetryInterval(retryInterval),
		sensor.WithStatusFunc(func(s sensor.Status) {
			statuses = append(statuses, s)
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, func(*depth.Frame) {
			calls++
			cancel()
		})
	}()

	// Without the clock moving the reader stays in its first retry wait.
	assert.Eventually(t, func() bool { return r.Status() == sensor.SensorNotAvailable }, time.Second, time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("reader returned before the retry interval elapsed: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, src.Calls())

	var err error
	require.Eventually(t, func() bool {
		select {
		case err = <-done:
			return true
		default:
			mock.Add(retryInterval)
			return false
		}
	}, 5*time.Second, time.Millisecond)

	require.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 3, src.Calls())
	assert.Equal(t, 1, calls)
	assert.Equal(t, []sensor.Status{sensor.SensorNotAvailable, sensor.Running}, statuses)
	assert.Equal(t, sensor.Running, r.Status())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Running", sensor.Running.String())
	assert.Equal(t, "Sensor not available", sensor.SensorNotAvailable.String())
	assert.Equal(t, "No ready sensor found", sensor.NoSensor.String())
}
