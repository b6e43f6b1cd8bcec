// Package pointcloud projects depth frames into 3D points and writes them as
// ASCII PCD files.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"

	"essaim.dev/depthbasics/depth"
)

// Project converts every pixel of frame into a vertex in meters. The pixel
// offset from the image centre is divided by the field of view to get the
// azimuth (theta) and polar (phi) angles, then the depth sample is used as
// the radius. Pixels without a reading project to the origin.
func Project(frame *depth.Frame, desc depth.Descriptor) []r3.Vector {
	points := make([]r3.Vector, frame.Width*frame.Height)

	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			i := frame.Width*y + x
			d, ok := frame.At(i)
			if !ok {
				continue
			}
			points[i] = vertex(x, y, d, frame.Width, frame.Height, desc)
		}
	}

	return points
}

// PointAt projects a single pixel.
func PointAt(frame *depth.Frame, desc depth.Descriptor, x, y int) (r3.Vector, bool) {
	d, ok := frame.DepthAt(x, y)
	if !ok {
		return r3.Vector{}, false
	}
	return vertex(x, y, d, frame.Width, frame.Height, desc), true
}

func vertex(x, y int, d uint16, width, height int, desc depth.Descriptor) r3.Vector {
	theta := float64(2*x-width) / desc.HorizontalFOV
	phi := float64(height-2*y) / desc.VerticalFOV
	r := float64(d)

	return r3.Vector{
		X: r * math.Cos(theta) * math.Sin(phi),
		Y: r * math.Sin(theta) * math.Sin(phi),
		Z: r * math.Cos(phi),
	}.Mul(1. / 1000.)
}
