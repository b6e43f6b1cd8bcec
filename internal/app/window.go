// Package app runs a sensor source through a viewer into a window.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/exp/shiny/driver"

	"essaim.dev/depthbasics/depth"
	"essaim.dev/depthbasics/display"
	"essaim.dev/depthbasics/render"
	"essaim.dev/depthbasics/sensor"
	"essaim.dev/depthbasics/viewer"
)

// Config holds the viewer settings shared by the window commands.
type Config struct {
	Mode          depth.Mode
	EveryFrame    bool
	PointCloud    string
	ScreenshotDir string
	Flip          render.Flip
}

// ViewerOptions converts the configuration into viewer options.
func (c Config) ViewerOptions() []viewer.Option {
	converterOpts := []depth.Option{depth.WithMode(c.Mode)}
	if c.EveryFrame {
		converterOpts = append(converterOpts, depth.WithGatePolicy(depth.GateEveryFrame))
	}

	opts := []viewer.Option{viewer.WithConverterOptions(converterOpts...)}
	if c.PointCloud != "" {
		opts = append(opts, viewer.WithPointCloud(c.PointCloud))
	}

	return opts
}

// RunWindow shows source in a window until the user closes it. run, if not
// nil, drives the source and is canceled when the window closes. RunWindow
// returns only after run and the viewer have stopped. It must be called from
// the main goroutine.
func RunWindow(source sensor.Source, run func(context.Context) error, cfg Config, title string, logger *zap.SugaredLogger) error {
	var v *viewer.Viewer

	window := display.New(source.Descriptor().Size(), logger,
		display.WithTitle(title),
		display.WithFlip(cfg.Flip),
		display.WithScreenshotFunc(func() {
			if _, err := v.Screenshot(cfg.ScreenshotDir); err != nil {
				logger.Warnw("could not take screenshot", "error", err)
			}
		}),
		display.WithClickFunc(func(x, y int) {
			if p, ok := v.PointAt(x, y); ok {
				logger.Infow("point", "x", x, "y", y, "point", p)
			}
		}),
	)

	opts := append(cfg.ViewerOptions(), viewer.WithStatusFunc(window.SetStatus))

	v, err := viewer.New(source, window, logger, opts...)
	if err != nil {
		return fmt.Errorf("could not create viewer: %w", err)
	}

	_, stop := Start(context.Background(), logger,
		Task{Name: "sensor", Run: run},
		Task{Name: "viewer", Run: v.Run},
	)
	driver.Main(window.Main)
	window.Close()
	stop()

	if err := <-window.Stopped(); err != nil {
		return fmt.Errorf("window stopped with error: %w", err)
	}
	return nil
}
