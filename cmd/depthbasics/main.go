package main

import (
	"flag"
	"log"
	"os"

	"essaim.dev/depthbasics/depth"
	"essaim.dev/depthbasics/internal/app"
	"essaim.dev/depthbasics/internal/logging"
	"essaim.dev/depthbasics/kinect"
	"essaim.dev/depthbasics/render"
)

var (
	modeFlag          string
	everyFrameFlag    bool
	pcdFlag           string
	screenshotDirFlag string
	flipFlag          string
	jsonFlag          bool
)

func init() {
	home, _ := os.UserHomeDir()

	flag.StringVar(&modeFlag, "mode", depth.ModeRowDifference.String(), "conversion mode: row-difference, depth-gradient or scaled")
	flag.BoolVar(&everyFrameFlag, "every-frame", false, "convert every frame instead of only the first one")
	flag.StringVar(&pcdFlag, "pcd", "", "export the point cloud of converted frames to this file")
	flag.StringVar(&screenshotDirFlag, "screenshot-dir", home, "directory screenshots are saved to")
	flag.StringVar(&flipFlag, "flip", render.FlipVertical.String(), "mirror the image: none, vertical or horizontal")
	flag.BoolVar(&jsonFlag, "json", false, "log as json")
}

func main() {
	flag.Parse()

	logger, err := logging.New(jsonFlag)
	if err != nil {
		log.Fatalf("could not create logger: %s", err)
	}
	defer logger.Sync()

	mode, err := depth.ParseMode(modeFlag)
	if err != nil {
		logger.Fatalf("could not parse mode: %s", err)
	}

	flip, err := render.ParseFlip(flipFlag)
	if err != nil {
		logger.Fatalf("could not parse flip: %s", err)
	}

	k, err := kinect.NewSource(logger)
	if err != nil {
		logger.Fatalf("could not create kinect source: %s", err)
	}
	defer k.Close()

	cfg := app.Config{
		Mode:          mode,
		EveryFrame:    everyFrameFlag,
		PointCloud:    pcdFlag,
		ScreenshotDir: screenshotDirFlag,
		Flip:          flip,
	}
	if err := app.RunWindow(k, k.Run, cfg, "Depth Basics - Kinect", logger); err != nil {
		logger.Fatalf("could not run depth viewer: %s", err)
	}
}
