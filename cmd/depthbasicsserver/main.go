package main

import (
	"context"
	"flag"
	"log"
	"net/netip"
	"os/signal"
	"syscall"

	"essaim.dev/depthbasics/depthstream"
	"essaim.dev/depthbasics/internal/app"
	"essaim.dev/depthbasics/internal/logging"
	"essaim.dev/depthbasics/kinect"
)

var (
	streamAddrFlag string
	jsonFlag       bool
)

func init() {
	flag.StringVar(&streamAddrFlag, "stream-addr", "224.76.78.75:20810", "multicast address and port the depth stream is sent to")
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

	k, err := kinect.NewSource(logger)
	if err != nil {
		logger.Fatalf("could not create kinect source: %s", err)
	}
	defer k.Close()

	s, err := depthstream.NewServer(addr, k, logger)
	if err != nil {
		logger.Fatalf("could not create depthstream server: %s", err)
	}
	defer s.Close()

	sigCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The kinect must stop processing events before it is closed.
	ctx, stop := app.Start(sigCtx, logger, app.Task{Name: "kinect", Run: k.Run})
	err = s.Run(ctx)
	failed := err != nil && ctx.Err() == nil
	stop()

	if failed {
		logger.Fatalf("could not run depthstream server: %s", err)
	}
}
