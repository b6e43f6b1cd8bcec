package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"net/netip"
	"os"
	"time"

	"go.uber.org/zap"

	"essaim.dev/depthbasics/depth"
	"essaim.dev/depthbasics/depthstream"
	"essaim.dev/depthbasics/internal/app"
	"essaim.dev/depthbasics/internal/logging"
	"essaim.dev/depthbasics/sensor"
	"essaim.dev/depthbasics/sensor/synthetic"
	"essaim.dev/depthbasics/sink"
	"essaim.dev/depthbasics/viewer"
)

var (
	sourceFlag     string
	streamAddrFlag string
	widthFlag      int
	heightFlag     int
	depthFlag      uint
	rampStepFlag   uint
	modeFlag       string
	outFlag        string
	pcdFlag        string
	timeoutFlag    time.Duration
	jsonFlag       bool
)

func init() {
	flag.StringVar(&sourceFlag, "source", "synthetic", "frame source: synthetic or stream")
	flag.StringVar(&streamAddrFlag, "stream-addr", "224.76.78.75:20810", "multicast address and port the depth stream is received on")
	flag.IntVar(&widthFlag, "width", sensor.KinectDescriptor.Width, "frame width")
	flag.IntVar(&heightFlag, "height", sensor.KinectDescriptor.Height, "frame height")
	flag.UintVar(&depthFlag, "depth", 1500, "depth of the first row of synthetic frames, in millimeters")
	flag.UintVar(&rampStepFlag, "ramp-step", 0, "depth added per row of synthetic frames")
	flag.StringVar(&modeFlag, "mode", depth.ModeRowDifference.String(), "conversion mode: row-difference, depth-gradient or scaled")
	flag.StringVar(&outFlag, "out", "depth.png", "png file the converted frame is written to")
	flag.StringVar(&pcdFlag, "pcd", "", "export the point cloud of the converted frame to this file")
	flag.DurationVar(&timeoutFlag, "timeout", 10*time.Second, "give up if no frame is converted in time")
	flag.BoolVar(&jsonFlag, "json", false, "log as json")
}

func main() {
	flag.Parse()

	logger, err := logging.New(jsonFlag)
	if err != nil {
		log.Fatalf("could not create logger: %s", err)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Errorw("depthsnap failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *zap.SugaredLogger) error {
	mode, err := depth.ParseMode(modeFlag)
	if err != nil {
		return fmt.Errorf("could not parse mode: %w", err)
	}

	if err := checkDepthFlags(depthFlag, rampStepFlag); err != nil {
		return err
	}

	desc := sensor.KinectDescriptor
	desc.Width, desc.Height = widthFlag, heightFlag

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	source, runSource, err := openSource(desc, logger)
	if err != nil {
		return err
	}
	defer source.Close()

	ctx, stop := app.Start(ctx, logger, app.Task{Name: "source", Run: runSource})
	defer stop()

	opts := []viewer.Option{viewer.WithConverterOptions(depth.WithMode(mode))}
	if pcdFlag != "" {
		opts = append(opts, viewer.WithPointCloud(pcdFlag))
	}

	v, err := viewer.New(source, sink.PNG{Path: outFlag}, logger, opts...)
	if err != nil {
		return err
	}

	stopped := make(chan error, 1)
	go func() {
		stopped <- v.Run(ctx)
	}()

	select {
	case <-v.Converted():
		cancel()
		<-stopped
		logger.Infow("depth frame written", "path", outFlag)
		return nil
	case err := <-stopped:
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("no frame converted within %s", timeoutFlag)
		}
		return fmt.Errorf("viewer stopped: %w", err)
	}
}

// checkDepthFlags rejects synthetic depths that do not fit a 16-bit sample.
func checkDepthFlags(firstRow, rampStep uint) error {
	if firstRow > math.MaxUint16 {
		return fmt.Errorf("depth %d is larger than %d", firstRow, math.MaxUint16)
	}
	if rampStep > math.MaxUint16 {
		return fmt.Errorf("ramp step %d is larger than %d", rampStep, math.MaxUint16)
	}
	return nil
}

func openSource(desc depth.Descriptor, logger *zap.SugaredLogger) (sensor.Source, func(context.Context) error, error) {
	switch sourceFlag {
	case "synthetic":
		gen := synthetic.Constant(uint16(depthFlag))
		if rampStepFlag > 0 {
			gen = synthetic.VerticalRamp(uint16(depthFlag), uint16(rampStepFlag))
		}
		return synthetic.New(desc, gen, synthetic.WithInterval(33*time.Millisecond)), nil, nil

	case "stream":
		addr, err := netip.ParseAddrPort(streamAddrFlag)
		if err != nil {
			return nil, nil, fmt.Errorf("could not parse stream address: %w", err)
		}
		c, err := depthstream.NewClient(addr, desc, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("could not create depthstream client: %w", err)
		}
		return c, c.Run, nil

	default:
		return nil, nil, fmt.Errorf("unknown source %q", sourceFlag)
	}
}
