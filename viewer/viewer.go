// Package viewer connects a depth sensor to a converter and a sink: the first
// frame the sensor delivers is converted and shown, optionally with its point
// cloud exported.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"go.uber.org/zap"

	"essaim.dev/depthbasics/depth"
	"essaim.dev/depthbasics/pointcloud"
	"essaim.dev/depthbasics/render"
	"essaim.dev/depthbasics/sensor"
	"essaim.dev/depthbasics/sink"
)

// ErrNoFrame is returned by Screenshot before any frame was converted.
var ErrNoFrame = errors.New("no frame converted yet")

// Option configures a Viewer.
type Option func(*Viewer)

// WithConverterOptions forwards options to the depth converter.
func WithConverterOptions(opts ...depth.Option) Option {
	return func(v *Viewer) {
		v.converterOpts = append(v.converterOpts, opts...)
	}
}

// WithReaderOptions forwards options to the sensor reader.
func WithReaderOptions(opts ...sensor.ReaderOption) Option {
	return func(v *Viewer) {
		v.readerOpts = append(v.readerOpts, opts...)
	}
}

// WithSurface sets the display surface size. It defaults to the sensor frame
// size.
func WithSurface(size image.Point) Option {
	return func(v *Viewer) {
		v.surface = size
	}
}

// WithPointCloud enables the point cloud exporter. Every converted frame is
// projected and written to path.
func WithPointCloud(path string) Option {
	return func(v *Viewer) {
		v.pcdPath = path
	}
}

// WithStatusFunc is called with the status text whenever it changes.
func WithStatusFunc(f func(string)) Option {
	return func(v *Viewer) {
		v.statusFunc = f
	}
}

// WithClock sets the clock used to name screenshots.
func WithClock(c clock.Clock) Option {
	return func(v *Viewer) {
		v.clock = c
	}
}

type Viewer struct {
	source sensor.Source
	sink   sink.Sink
	logger *zap.SugaredLogger

	converter     *depth.Converter
	converterOpts []depth.Option
	readerOpts    []sensor.ReaderOption
	surface       image.Point

	pcdPath    string
	statusFunc func(string)
	clock      clock.Clock

	mu        sync.RWMutex
	snapshot  *depth.Luminance
	cloud     []r3.Vector
	cloudSize image.Point
	status    string

	converted     chan struct{}
	convertedOnce sync.Once
}

func New(source sensor.Source, out sink.Sink, logger *zap.SugaredLogger, opts ...Option) (*Viewer, error) {
	desc := source.Descriptor()

	v := &Viewer{
		source:    source,
		sink:      out,
		logger:    logger,
		surface:   desc.Size(),
		clock:     clock.New(),
		status:    sensor.NoSensor.String(),
		converted: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}

	converter, err := depth.NewConverter(desc, v.surface, logger, v.converterOpts...)
	if err != nil {
		return nil, fmt.Errorf("could not create viewer: %w", err)
	}
	v.converter = converter

	return v, nil
}

// Run reads frames until ctx is canceled or the sensor fails.
func (v *Viewer) Run(ctx context.Context) error {
	opts := append([]sensor.ReaderOption{sensor.WithStatusFunc(v.onSensorStatus)}, v.readerOpts...)

	reader := sensor.NewReader(v.source, v.logger, opts...)
	return reader.Run(ctx, v.onFrame)
}

// Converted is closed once the first frame has been converted and shown.
func (v *Viewer) Converted() <-chan struct{} {
	return v.converted
}

// Gate returns the converter's gate state.
func (v *Viewer) Gate() depth.GateState {
	return v.converter.State()
}

// Status returns the current status text.
func (v *Viewer) Status() string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.status
}

// Luminance returns a copy of the last converted buffer, or nil.
func (v *Viewer) Luminance() *depth.Luminance {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.snapshot == nil {
		return nil
	}
	return v.snapshot.Clone()
}

func (v *Viewer) onFrame(frame *depth.Frame) {
	if !v.converter.Convert(frame).Processed() {
		return
	}

	lum := v.converter.Luminance()

	var cloud []r3.Vector
	if v.pcdPath != "" {
		cloud = pointcloud.Project(frame, v.source.Descriptor())
	}

	v.mu.Lock()
	v.snapshot = lum.Clone()
	if cloud != nil {
		v.cloud = cloud
		v.cloudSize = image.Pt(frame.Width, frame.Height)
	}
	v.mu.Unlock()

	if cloud != nil {
		if err := pointcloud.WritePCDFile(v.pcdPath, frame.Width, frame.Height, cloud); err != nil {
			v.logger.Warnw("could not export point cloud", "path", v.pcdPath, "error", err)
		} else {
			v.logger.Infow("point cloud exported", "path", v.pcdPath, "points", len(cloud))
		}
	}

	if err := v.sink.Show(lum); err != nil {
		v.logger.Warnw("could not show depth frame", "error", err)
	}

	v.convertedOnce.Do(func() {
		close(v.converted)
	})
}

// PointAt returns the exported point cloud vertex for pixel (x, y). It is
// only available when the point cloud exporter is enabled.
func (v *Viewer) PointAt(x, y int) (r3.Vector, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.cloud == nil || x < 0 || y < 0 || x >= v.cloudSize.X || y >= v.cloudSize.Y {
		return r3.Vector{}, false
	}

	return v.cloud[y*v.cloudSize.X+x], true
}

// Screenshot saves the last converted buffer as a PNG in dir.
func (v *Viewer) Screenshot(dir string) (string, error) {
	lum := v.Luminance()
	if lum == nil {
		return "", ErrNoFrame
	}

	path := sink.ScreenshotPath(dir, v.clock.Now())
	if err := sink.SavePNG(path, render.Gray(lum)); err != nil {
		v.setStatus(fmt.Sprintf("Failed to write screenshot to %s", path))
		return path, err
	}

	v.setStatus(fmt.Sprintf("Screenshot saved to %s", path))
	return path, nil
}

func (v *Viewer) onSensorStatus(s sensor.Status) {
	v.setStatus(s.String())
}

func (v *Viewer) setStatus(text string) {
	v.mu.Lock()
	changed := v.status != text
	v.status = text
	v.mu.Unlock()

	if changed && v.statusFunc != nil {
		v.statusFunc(text)
	}
}
