// Package sink receives converted luminance buffers.
package sink

import (
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"essaim.dev/depthbasics/depth"
	"essaim.dev/depthbasics/render"
)

// Sink displays or stores a luminance buffer. Show must not keep l after it
// returns.
type Sink interface {
	Show(l *depth.Luminance) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(l *depth.Luminance) error

func (f SinkFunc) Show(l *depth.Luminance) error {
	return f(l)
}

// PNG writes every buffer it is shown to a fixed path.
type PNG struct {
	Path string
}

func (p PNG) Show(l *depth.Luminance) error {
	return SavePNG(p.Path, render.Gray(l))
}

// SavePNG encodes img to path.
func SavePNG(path string, img image.Image) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("could not save %s: %w", path, err)
	}
	return nil
}

// ScreenshotPath returns the file a screenshot taken at t is saved to.
func ScreenshotPath(dir string, t time.Time) string {
	return filepath.Join(dir, "KinectScreenshot-Depth-"+t.Format("03-04-05")+".png")
}
