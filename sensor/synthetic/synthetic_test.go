package synthetic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"essaim.dev/depthbasics/depth"
	"essaim.dev/depthbasics/sensor"
)

var testDescriptor = depth.Descriptor{
	Width:            3,
	Height:           2,
	BytesPerPixel:    2,
	MinReliableDepth: 500,
	MaxReliableDepth: 4500,
}

func TestSourceConstant(t *testing.T) {
	mock := clock.NewMock()
	s := New(testDescriptor, Constant(1200), WithClock(mock), WithInterval(33*time.Millisecond))
	defer s.Close()

	mock.Add(33 * time.Millisecond)

	frame, release, err := s.NextFrame(context.Background())
	require.NoError(t, err)
	defer release()

	require.NoError(t, frame.Validate())
	assert.Equal(t, []uint16{1200, 1200, 1200, 1200, 1200, 1200}, frame.Samples())
	assert.Equal(t, uint16(500), frame.MinReliableDepth)
	assert.Equal(t, uint16(4500), frame.MaxReliableDepth)
	assert.Equal(t, uint32(0), frame.Sequence)
	assert.Equal(t, mock.Now(), frame.Timestamp)
}

func TestSourceWaitsForTick(t *testing.T) {
	mock := clock.NewMock()
	s := New(testDescriptor, Constant(1), WithClock(mock), WithInterval(time.Second))
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := s.NextFrame(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSourceSequence(t *testing.T) {
	s := New(testDescriptor, VerticalRamp(1000, 10))
	defer s.Close()

	for want := uint32(0); want < 3; want++ {
		frame, release, err := s.NextFrame(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, frame.Sequence)
		assert.Equal(t, []uint16{1000, 1000, 1000, 1010, 1010, 1010}, frame.Samples())
		release()
	}
}

func TestSourceClose(t *testing.T) {
	s := New(testDescriptor, Constant(1), WithInterval(time.Hour))

	errs := make(chan error, 1)
	go func() {
		_, _, err := s.NextFrame(context.Background())
		errs <- err
	}()

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	select {
	case err := <-errs:
		assert.True(t, errors.Is(err, sensor.ErrClosed))
	case <-time.After(time.Second):
		t.Fatal("NextFrame did not return after Close")
	}
}

func TestReplay(t *testing.T) {
	first := depth.NewFrame(3, 2, make([]uint16, 6), 0, 0)
	r := NewReplay(testDescriptor, first, nil)

	frame, release, err := r.NextFrame(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, frame)
	release()

	frame, release, err = r.NextFrame(context.Background())
	require.NoError(t, err)
	assert.Nil(t, frame)
	release()

	_, _, err = r.NextFrame(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 2, r.Released())

	require.NoError(t, r.Close())
	_, _, err = r.NextFrame(context.Background())
	assert.ErrorIs(t, err, sensor.ErrClosed)
}
