package synthetic

import (
	"context"
	"sync"

	"essaim.dev/depthbasics/depth"
	"essaim.dev/depthbasics/sensor"
)

// Replay delivers a fixed list of frames in order, then ErrExhausted.
// A nil entry is delivered as a nil frame.
type Replay struct {
	desc depth.Descriptor

	mu       sync.Mutex
	frames   []*depth.Frame
	next     int
	released int
	closed   bool
}

var _ sensor.Source = (*Replay)(nil)

func NewReplay(desc depth.Descriptor, frames ...*depth.Frame) *Replay {
	return &Replay{
		desc:   desc,
		frames: frames,
	}
}

func (r *Replay) Descriptor() depth.Descriptor {
	return r.desc
}

func (r *Replay) NextFrame(ctx context.Context) (*depth.Frame, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, nil, sensor.ErrClosed
	}
	if r.next >= len(r.frames) {
		return nil, nil, ErrExhausted
	}

	frame := r.frames[r.next]
	r.next++

	return frame, r.release, nil
}

func (r *Replay) release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.released++
}

// Released returns how many delivered frames have been released.
func (r *Replay) Released() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.released
}

func (r *Replay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	return nil
}
