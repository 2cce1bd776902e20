//go:build libiio && cgo

package native

/*
#include <stdint.h>
#include <iio.h>

extern int goStoreAttr(char *attr, char *val, size_t len, void *data);

static int device_attr_cb(struct iio_device *dev, const char *attr,
		const char *val, size_t len, void *d)
{
	return goStoreAttr((char *) attr, (char *) val, len, d);
}

static int channel_attr_cb(struct iio_channel *chn, const char *attr,
		const char *val, size_t len, void *d)
{
	return goStoreAttr((char *) attr, (char *) val, len, d);
}

static int device_read_all(struct iio_device *dev, uintptr_t h)
{
	return iio_device_attr_read_all(dev, device_attr_cb, (void *) h);
}

static int buffer_read_all(struct iio_device *dev, uintptr_t h)
{
	return iio_device_buffer_attr_read_all(dev, device_attr_cb, (void *) h);
}

static int channel_read_all(struct iio_channel *chn, uintptr_t h)
{
	return iio_channel_attr_read_all(chn, channel_attr_cb, (void *) h);
}
*/
import "C"

import (
	"runtime/cgo"
	"strings"
)

func deviceReadAll(d *C.struct_iio_device) func(C.uintptr_t) C.int {
	return func(h C.uintptr_t) C.int { return C.device_read_all(d, h) }
}

func bufferReadAll(d *C.struct_iio_device) func(C.uintptr_t) C.int {
	return func(h C.uintptr_t) C.int { return C.buffer_read_all(d, h) }
}

func channelReadAll(c *C.struct_iio_channel) func(C.uintptr_t) C.int {
	return func(h C.uintptr_t) C.int { return C.channel_read_all(c, h) }
}

// storeAttr records one attribute delivered by a libiio read_all callback.
// Values may arrive with their terminating NUL counted in the length.
func storeAttr(h cgo.Handle, attr, val string) {
	if i := strings.IndexByte(val, 0); i >= 0 {
		val = val[:i]
	}
	h.Value().(map[string]string)[attr] = val
}
