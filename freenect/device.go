package freenect

/*
#include <libfreenect/libfreenect.h>

void freenectgo_set_depth_callback(freenect_device *dev);
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// DepthFunc receives depth frames. depth is only valid until the function
// returns.
type DepthFunc func(device *Device, depth []uint16, timestamp uint32)

// Device is an opened Kinect.
type Device struct {
	ptr *C.freenect_device

	mu        sync.RWMutex
	depthFunc DepthFunc
	width     int
	height    int
}

// SetLED sets the front LED.
func (d *Device) SetLED(color LEDColor) error {
	return errorFromCode("freenect_set_led", C.freenect_set_led(d.ptr, C.freenect_led_options(color)))
}

// SetDepthCallback registers f to receive depth frames once the depth stream
// is started.
func (d *Device) SetDepthCallback(f DepthFunc) {
	d.mu.Lock()
	d.depthFunc = f
	d.mu.Unlock()

	C.freenectgo_set_depth_callback(d.ptr)
}

// StartDepthStream sets the depth mode and starts streaming.
func (d *Device) StartDepthStream(resolution Resolution, format DepthFormat) error {
	mode := C.freenect_find_depth_mode(C.freenect_resolution(resolution), C.freenect_depth_format(format))
	if mode.is_valid == 0 {
		return errors.New("unsupported depth mode")
	}

	if err := errorFromCode("freenect_set_depth_mode", C.freenect_set_depth_mode(d.ptr, mode)); err != nil {
		return fmt.Errorf("could not set depth mode: %w", err)
	}

	d.mu.Lock()
	d.width = int(mode.width)
	d.height = int(mode.height)
	d.mu.Unlock()

	return errorFromCode("freenect_start_depth", C.freenect_start_depth(d.ptr))
}

// StopDepthStream stops streaming depth frames.
func (d *Device) StopDepthStream() error {
	return errorFromCode("freenect_stop_depth", C.freenect_stop_depth(d.ptr))
}

// Destroy closes the device.
func (d *Device) Destroy() error {
	registryMu.Lock()
	delete(devices, d.ptr)
	registryMu.Unlock()

	return errorFromCode("freenect_close_device", C.freenect_close_device(d.ptr))
}

func (d *Device) handleDepth(data unsafe.Pointer, timestamp uint32) {
	d.mu.RLock()
	f, n := d.depthFunc, d.width*d.height
	d.mu.RUnlock()

	if f == nil || data == nil || n == 0 {
		return
	}

	f(d, unsafe.Slice((*uint16)(data), n), timestamp)
}
