package freenect

/*
#include <libfreenect/libfreenect.h>

int freenectgo_process_events_timeout_ms(freenect_context *ctx, long ms);
*/
import "C"

import (
	"errors"
	"fmt"
	"time"
)

// Context is a libfreenect library context.
type Context struct {
	ptr *C.freenect_context
}

// NewContext initializes libfreenect and selects the camera subdevice.
func NewContext() (*Context, error) {
	var ptr *C.freenect_context
	if err := errorFromCode("freenect_init", C.freenect_init(&ptr, nil)); err != nil {
		return nil, err
	}

	C.freenect_select_subdevices(ptr, C.freenect_device_flags(C.FREENECT_DEVICE_CAMERA))

	ctx := &Context{ptr: ptr}

	registryMu.Lock()
	contexts[ptr] = ctx
	registryMu.Unlock()

	return ctx, nil
}

// DeviceCount returns the number of devices attached.
func (c *Context) DeviceCount() int {
	return int(C.freenect_num_devices(c.ptr))
}

// OpenDevice opens the device at index.
func (c *Context) OpenDevice(index int) (*Device, error) {
	if c.DeviceCount() <= index {
		return nil, errors.New("no device found at index")
	}

	var ptr *C.freenect_device
	if err := errorFromCode("freenect_open_device", C.freenect_open_device(c.ptr, &ptr, C.int(index))); err != nil {
		return nil, err
	}

	dev := &Device{ptr: ptr}

	registryMu.Lock()
	devices[ptr] = dev
	registryMu.Unlock()

	return dev, nil
}

// ProcessEvents handles pending USB events, invoking callbacks on the calling
// goroutine. It blocks for at most timeout.
func (c *Context) ProcessEvents(timeout time.Duration) error {
	code := C.freenectgo_process_events_timeout_ms(c.ptr, C.long(timeout.Milliseconds()))
	if err := errorFromCode("freenect_process_events", code); err != nil {
		return fmt.Errorf("could not process events: %w", err)
	}
	return nil
}

// Destroy shuts the library context down.
func (c *Context) Destroy() error {
	registryMu.Lock()
	delete(contexts, c.ptr)
	registryMu.Unlock()

	return errorFromCode("freenect_shutdown", C.freenect_shutdown(c.ptr))
}
