package main

import (
	"flag"
	"log"
	"net/netip"
	"os"

	"essaim.dev/depthbasics/depth"
	"essaim.dev/depthbasics/depthstream"
	"essaim.dev/depthbasics/internal/app"
	"essaim.dev/depthbasics/internal/logging"
	"essaim.dev/depthbasics/render"
	"essaim.dev/depthbasics/sensor"
)

var (
	streamAddrFlag    string
	widthFlag         int
	heightFlag        int
	modeFlag          string
	everyFrameFlag    bool
	pcdFlag           string
	screenshotDirFlag string
	flipFlag          string
	jsonFlag          bool
)

func init() {
	home, _ := os.UserHomeDir()

	flag.StringVar(&streamAddrFlag, "stream-addr", "224.76.78.75:20810", "multicast address and port the depth stream is received on")
	flag.IntVar(&widthFlag, "width", sensor.KinectDescriptor.Width, "expected frame width")
	flag.IntVar(&heightFlag, "height", sensor.KinectDescriptor.Height, "expected frame height")
	flag.StringVar(&modeFlag, "mode", depth.ModeRowDifference.String(), "conversion mode: row-difference, depth-gradient or scaled")
	flag.BoolVar(&everyFrameFlag, "every-frame", false, "convert every frame instead of only the first one")
	flag.StringVar(&pcdFlag, "pcd", "", "export the point cloud of converted frames to this file")
	flag.StringVar(&screenshotDirFlag, "screenshot-dir", home, "directory screenshots are saved to")
	flag.StringVar(&flipFlag, "flip", render.FlipHorizontal.String(), "mirror the image: none, vertical or horizontal")
	flag.BoolVar(&jsonFlag, "json", false, "log as json")
}

func main() {
	flag.Parse()

	logger, err := logging.New(jsonFlag)
	if err != nil {
		log.Fatalf("could not create logger: %s", err)
	}
	defer logger.Sync()

	addr, err := netip.ParseAddrPort(streamAddrFlag)
	if err != nil {
		logger.Fatalf("could not parse stream address: %s", err)
	}

	mode, err := depth.ParseMode(modeFlag)
	if err != nil {
		logger.Fatalf("could not parse mode: %s", err)
	}

	flip, err := render.ParseFlip(flipFlag)
	if err != nil {
		logger.Fatalf("could not parse flip: %s", err)
	}

	desc := sensor.KinectDescriptor
	desc.Width, desc.Height = widthFlag, heightFlag

	c, err := depthstream.NewClient(addr, desc, logger)
	if err != nil {
		logger.Fatalf("could not create depthstream client: %s", err)
	}
	defer c.Close()

	cfg := app.Config{
		Mode:          mode,
		EveryFrame:    everyFrameFlag,
		PointCloud:    pcdFlag,
		ScreenshotDir: screenshotDirFlag,
		Flip:          flip,
	}
	if err := app.RunWindow(c, c.Run, cfg, "Depth Basics - "+addr.String(), logger); err != nil {
		logger.Fatalf("could not run depth viewer: %s", err)
	}
}
