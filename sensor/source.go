// Package sensor defines how depth frames are pulled from a device and
// delivered to a handler one at a time.
package sensor

import (
	"context"
	"errors"

	"essaim.dev/depthbasics/depth"
)

var (
	// ErrUnavailable is returned by a source while its device is paused,
	// closed or unplugged. Readers retry after it.
	ErrUnavailable = errors.New("sensor not available")

	// ErrClosed is returned once a source has been closed.
	ErrClosed = errors.New("sensor closed")
)

// KinectDescriptor describes the medium resolution millimeter depth stream of
// a first generation Kinect.
var KinectDescriptor = depth.Descriptor{
	Width:            640,
	Height:           480,
	BytesPerPixel:    2,
	HorizontalFOV:    58.5,
	VerticalFOV:      46.6,
	MinReliableDepth: 500,
	MaxReliableDepth: 4000,
}

// Source produces depth frames. The release function returned with each frame
// must be called exactly once, after which the frame must not be used.
type Source interface {
	Descriptor() depth.Descriptor
	NextFrame(ctx context.Context) (*depth.Frame, func(), error)
	Close() error
}

// Status is the user-facing state of the sensor.
type Status int

const (
	NoSensor Status = iota
	Running
	SensorNotAvailable
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case SensorNotAvailable:
		return "Sensor not available"
	default:
		return "No ready sensor found"
	}
}
