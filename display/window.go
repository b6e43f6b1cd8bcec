// Package display shows luminance buffers in a desktop window.
package display

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/size"

	"essaim.dev/depthbasics/depth"
	"essaim.dev/depthbasics/render"
	"essaim.dev/depthbasics/sink"
)

// Option configures a Window.
type Option func(*Window)

// WithTitle sets the window title.
func WithTitle(title string) Option {
	return func(w *Window) {
		w.title = title
	}
}

// WithFlip mirrors every buffer before display.
func WithFlip(flip render.Flip) Option {
	return func(w *Window) {
		w.flip = flip
	}
}

// WithScreenshotFunc is called when the user presses "s".
func WithScreenshotFunc(f func()) Option {
	return func(w *Window) {
		w.onScreenshot = f
	}
}

// WithClickFunc is called with image coordinates when the user clicks the
// image.
func WithClickFunc(f func(x, y int)) Option {
	return func(w *Window) {
		w.onClick = f
	}
}

// Window is a sink that renders buffers into a shiny window. Main must run on
// the goroutine handed to driver.Main.
type Window struct {
	title string
	size  image.Point
	flip  render.Flip

	logger *zap.SugaredLogger

	onScreenshot func()
	onClick      func(x, y int)

	events  chan any
	stopped chan error
	done    chan struct{}
	once    sync.Once

	statusMu sync.RWMutex
	status   string
}

var _ sink.Sink = (*Window)(nil)

func New(size image.Point, logger *zap.SugaredLogger, opts ...Option) *Window {
	w := &Window{
		title:   "Depth Basics",
		size:    size,
		logger:  logger,
		events:  make(chan any, 4),
		stopped: make(chan error, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Stopped receives nil when the user closes the window, or the error that
// prevented it from opening.
func (w *Window) Stopped() <-chan error {
	return w.stopped
}

// Show renders l and queues it for display.
func (w *Window) Show(l *depth.Luminance) error {
	if l.Width != w.size.X || l.Height != w.size.Y {
		return fmt.Errorf("buffer is %dx%d, window is %dx%d", l.Width, l.Height, w.size.X, w.size.Y)
	}

	return w.send(uploadEvent{Image: render.RGBA(l, w.flip)})
}

// SetStatus replaces the status line drawn over the image.
func (w *Window) SetStatus(text string) {
	w.statusMu.Lock()
	w.status = text
	w.statusMu.Unlock()

	if err := w.send(statusEvent{}); err != nil {
		w.logger.Debugw("status not displayed", "error", err)
	}
}

func (w *Window) statusText() string {
	w.statusMu.RLock()
	defer w.statusMu.RUnlock()

	return w.status
}

func (w *Window) send(e any) error {
	select {
	case <-w.done:
		return fmt.Errorf("window closed")
	default:
	}

	select {
	case w.events <- e:
		return nil
	case <-w.done:
		return fmt.Errorf("window closed")
	}
}

// Close stops accepting buffers. It does not close an open window.
func (w *Window) Close() {
	w.stop(nil)
}

func (w *Window) stop(err error) {
	w.once.Do(func() {
		close(w.done)
		w.stopped <- err
	})
}

// Main opens the window and runs its event loop until it is closed.
func (w *Window) Main(s screen.Screen) {
	win, err := s.NewWindow(&screen.NewWindowOptions{
		Title:  w.title,
		Width:  w.size.X,
		Height: w.size.Y,
	})
	if err != nil {
		w.stop(fmt.Errorf("could not create window: %w", err))
		return
	}
	defer win.Release()

	tex, err := s.NewTexture(w.size)
	if err != nil {
		w.stop(fmt.Errorf("could not create texture: %w", err))
		return
	}
	defer tex.Release()

	buf, err := s.NewBuffer(w.size)
	if err != nil {
		w.stop(fmt.Errorf("could not create buffer: %w", err))
		return
	}
	defer buf.Release()

	go publishEvents(win, w.events, w.done)

	frame := image.NewRGBA(image.Rectangle{Max: w.size})
	upload := func() {
		draw.Draw(buf.RGBA(), buf.Bounds(), frame, image.Point{}, draw.Src)
		render.DrawStatus(buf.RGBA(), w.statusText())
		tex.Upload(image.Point{}, buf, buf.Bounds())
	}

	sizeEvent := size.Event{}
	for {
		event := win.NextEvent()

		switch e := event.(type) {
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				w.stop(nil)
				return
			}

		case key.Event:
			if e.Code == key.CodeEscape {
				w.stop(nil)
				return
			}
			if e.Rune == 's' && e.Direction == key.DirPress && w.onScreenshot != nil {
				w.onScreenshot()
			}

		case mouse.Event:
			if e.Button == mouse.ButtonLeft && e.Direction == mouse.DirPress && w.onClick != nil {
				if x, y, ok := imagePoint(e, sizeEvent, w.size); ok {
					w.onClick(x, y)
				}
			}

		case size.Event:
			sizeEvent = e

		case uploadEvent:
			copy(frame.Pix, e.Image.Pix)
			upload()

		case statusEvent:
			upload()
		}

		win.Scale(sizeEvent.Bounds(), tex, tex.Bounds(), draw.Src, nil)
		win.Publish()
	}
}

// imagePoint maps window coordinates onto the image, which is scaled to fill
// the window.
func imagePoint(e mouse.Event, sz size.Event, img image.Point) (int, int, bool) {
	if sz.WidthPx == 0 || sz.HeightPx == 0 {
		return 0, 0, false
	}

	x := int(e.X) * img.X / sz.WidthPx
	y := int(e.Y) * img.Y / sz.HeightPx
	if x < 0 || y < 0 || x >= img.X || y >= img.Y {
		return 0, 0, false
	}

	return x, y, true
}

func publishEvents(q screen.EventDeque, events chan any, done chan struct{}) {
	for {
		select {
		case e := <-events:
			q.Send(e)
		case <-done:
			return
		}
	}
}

type uploadEvent struct {
	Image *image.RGBA
}

type statusEvent struct{}
