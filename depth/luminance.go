package depth

import "image"

// Luminance is a single-channel 8-bit pixel buffer with the dimensions of the
// frames it is converted from.
type Luminance struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewLuminance allocates a zeroed buffer.
func NewLuminance(width, height int) *Luminance {
	return &Luminance{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Gray returns an image view over the buffer. The pixels are shared.
func (l *Luminance) Gray() *image.Gray {
	return &image.Gray{
		Pix:    l.Pix,
		Stride: l.Width,
		Rect:   image.Rect(0, 0, l.Width, l.Height),
	}
}

// Clone returns a deep copy of the buffer.
func (l *Luminance) Clone() *Luminance {
	c := &Luminance{
		Width:  l.Width,
		Height: l.Height,
		Pix:    make([]uint8, len(l.Pix)),
	}
	copy(c.Pix, l.Pix)
	return c
}
