// Package depth holds depth frames and the conversion of a frame into an
// 8-bit luminance buffer.
package depth

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// ErrSampleCount is returned by Frame.Validate when the sample count does not
// match the frame dimensions.
var ErrSampleCount = errors.New("sample count does not match frame dimensions")

// Descriptor describes the frames a sensor produces for a whole session.
type Descriptor struct {
	Width         int
	Height        int
	BytesPerPixel int

	// Field of view in degrees.
	HorizontalFOV float64
	VerticalFOV   float64

	MinReliableDepth uint16
	MaxReliableDepth uint16
}

// Size returns the frame size as a point.
func (d Descriptor) Size() image.Point {
	return image.Pt(d.Width, d.Height)
}

// Len returns the number of pixels in a frame.
func (d Descriptor) Len() int {
	return d.Width * d.Height
}

func (d Descriptor) validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", d.Width, d.Height)
	}
	return nil
}

// Frame is an immutable snapshot of one depth image. Samples are millimeters,
// row-major, one per pixel. A zero sample means no reading.
type Frame struct {
	Width  int
	Height int

	MinReliableDepth uint16
	MaxReliableDepth uint16

	Sequence  uint32
	Timestamp time.Time

	samples []uint16
}

// NewFrame wraps samples without copying them. The caller must not modify
// samples while the frame is in use.
func NewFrame(width, height int, samples []uint16, minDepth, maxDepth uint16) *Frame {
	return &Frame{
		Width:            width,
		Height:           height,
		MinReliableDepth: minDepth,
		MaxReliableDepth: maxDepth,
		samples:          samples,
	}
}

// Validate checks that the frame has exactly Width*Height samples.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d: %w", f.Width, f.Height, ErrSampleCount)
	}
	if len(f.samples) != f.Width*f.Height {
		return fmt.Errorf("got %d samples for %dx%d: %w", len(f.samples), f.Width, f.Height, ErrSampleCount)
	}
	return nil
}

// Len returns the number of samples held by the frame.
func (f *Frame) Len() int {
	return len(f.samples)
}

// At returns the sample at row-major index i. The second result is false if i
// is out of range.
func (f *Frame) At(i int) (uint16, bool) {
	if i < 0 || i >= len(f.samples) {
		return 0, false
	}
	return f.samples[i], true
}

// DepthAt returns the sample at (x, y).
func (f *Frame) DepthAt(x, y int) (uint16, bool) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0, false
	}
	return f.At(y*f.Width + x)
}

// Samples returns a read-only view of the samples. Callers must not modify
// the returned slice.
func (f *Frame) Samples() []uint16 {
	return f.samples[:len(f.samples):len(f.samples)]
}
