// Package render turns luminance buffers into images for display.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"essaim.dev/depthbasics/depth"
)

// Flip selects how an image is mirrored before display.
type Flip int

const (
	FlipNone Flip = iota
	FlipVertical
	FlipHorizontal
)

func (f Flip) String() string {
	switch f {
	case FlipVertical:
		return "vertical"
	case FlipHorizontal:
		return "horizontal"
	default:
		return "none"
	}
}

// ParseFlip parses the names returned by Flip.String.
func ParseFlip(s string) (Flip, error) {
	for _, f := range []Flip{FlipNone, FlipVertical, FlipHorizontal} {
		if f.String() == s {
			return f, nil
		}
	}
	return FlipNone, fmt.Errorf("unknown flip %q", s)
}

// Gray returns a copy of the buffer as a grayscale image.
func Gray(l *depth.Luminance) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, l.Width, l.Height))
	copy(img.Pix, l.Pix)
	return img
}

// RGBA renders the buffer as an opaque RGBA image, mirrored according to flip.
func RGBA(l *depth.Luminance, flip Flip) *image.RGBA {
	var img image.Image = l.Gray()

	switch flip {
	case FlipVertical:
		img = imaging.FlipV(img)
	case FlipHorizontal:
		img = imaging.FlipH(img)
	}

	return ToRGBA(img)
}

// ToRGBA converts any image to RGBA.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}

	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}

// DrawStatus writes text in the top left corner of img.
func DrawStatus(img draw.Image, text string) {
	if text == "" {
		return
	}

	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()

	background := image.Rect(0, 0, width+8, face.Height+6).Intersect(img.Bounds())
	draw.Draw(img, background, image.NewUniform(color.RGBA{0, 0, 0, 160}), image.Point{}, draw.Over)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(4),
			Y: fixed.I(3 + face.Ascent),
		},
	}
	drawer.DrawString(text)
}
