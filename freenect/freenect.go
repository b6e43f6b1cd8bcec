// Package freenect implements a Go binding for the libfreenect library.
package freenect

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include -I/usr/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfreenect
#include <stdint.h>
#include <sys/time.h>
#include <libfreenect/libfreenect.h>

extern void goDepthCallback(freenect_device *dev, void *depth, uint32_t timestamp);

void freenectgo_set_depth_callback(freenect_device *dev) {
	freenect_set_depth_callback(dev, (freenect_depth_cb)goDepthCallback);
}

int freenectgo_process_events_timeout_ms(freenect_context *ctx, long ms) {
	struct timeval tv;
	tv.tv_sec = ms / 1000;
	tv.tv_usec = (ms % 1000) * 1000;
	return freenect_process_events_timeout(ctx, &tv);
}
*/
import "C"

import (
	"fmt"
	"sync"
)

var (
	registryMu sync.RWMutex
	contexts   map[*C.freenect_context]*Context
	devices    map[*C.freenect_device]*Device
)

func init() {

	contexts = make(map[*C.freenect_context]*Context)
	devices = make(map[*C.freenect_device]*Device)
}

// Resolution is a frame resolution supported by the device.
type Resolution int

const (
	ResolutionLow    = Resolution(C.FREENECT_RESOLUTION_LOW)
	ResolutionMedium = Resolution(C.FREENECT_RESOLUTION_MEDIUM)
	ResolutionHigh   = Resolution(C.FREENECT_RESOLUTION_HIGH)
)

// DepthFormat is the encoding of depth samples.
type DepthFormat int

const (
	DepthFormat11Bit      = DepthFormat(C.FREENECT_DEPTH_11BIT)
	DepthFormat10Bit      = DepthFormat(C.FREENECT_DEPTH_10BIT)
	DepthFormatRegistered = DepthFormat(C.FREENECT_DEPTH_REGISTERED)
	DepthFormatMM         = DepthFormat(C.FREENECT_DEPTH_MM)
)

// LEDColor is a state of the front LED.
type LEDColor int

const (
	LEDColorOff            = LEDColor(C.LED_OFF)
	LEDColorGreen          = LEDColor(C.LED_GREEN)
	LEDColorRed            = LEDColor(C.LED_RED)
	LEDColorYellow         = LEDColor(C.LED_YELLOW)
	LEDColorBlinkGreen     = LEDColor(C.LED_BLINK_GREEN)
	LEDColorBlinkRedYellow = LEDColor(C.LED_BLINK_RED_YELLOW)
)

func errorFromCode(op string, code C.int) error {
	if code < 0 {
		return fmt.Errorf("%s failed with code %d", op, int(code))
	}
	return nil
}
