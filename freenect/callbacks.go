package freenect

/*
#include <stdint.h>
#include <libfreenect/libfreenect.h>
*/
import "C"

import "unsafe"

//export goDepthCallback
func goDepthCallback(dev *C.freenect_device, depth unsafe.Pointer, timestamp C.uint32_t) {
	registryMu.RLock()
	d, ok := devices[dev]
	registryMu.RUnlock()

	if !ok {
		return
	}

	d.handleDepth(depth, uint32(timestamp))
}
