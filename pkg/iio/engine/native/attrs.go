//go:build libiio && cgo

package native

/*
#include <stdint.h>
#include <stdlib.h>
#include <iio.h>
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

// attrSet adapts one of libiio's parallel attribute families (device,
// buffer, debug, channel) to engine.AttrSet.
type attrSet struct {
	count      func() int
	name       func(i int) *C.char
	read       func(attr, dst *C.char, n C.size_t) C.ssize_t
	write      func(attr, src *C.char) C.ssize_t
	readInt    func(attr *C.char, v *C.longlong) C.int
	readFloat  func(attr *C.char, v *C.double) C.int
	writeInt   func(attr *C.char, v C.longlong) C.int
	writeFloat func(attr *C.char, v C.double) C.int
	// readAll fetches every attribute in one call; nil for debug attributes.
	readAll    func(h C.uintptr_t) C.int
}

func deviceAttrs(d *C.struct_iio_device) *attrSet {
	return &attrSet{
		count: func() int { return int(C.iio_device_get_attrs_count(d)) },
		name:  func(i int) *C.char { return C.iio_device_get_attr(d, C.uint(i)) },
		read: func(a, dst *C.char, n C.size_t) C.ssize_t {
			return C.iio_device_attr_read(d, a, dst, n)
		},
		write:      func(a, src *C.char) C.ssize_t { return C.iio_device_attr_write(d, a, src) },
		readInt:    func(a *C.char, v *C.longlong) C.int { return C.iio_device_attr_read_longlong(d, a, v) },
		readFloat:  func(a *C.char, v *C.double) C.int { return C.iio_device_attr_read_double(d, a, v) },
		writeInt:   func(a *C.char, v C.longlong) C.int { return C.iio_device_attr_write_longlong(d, a, v) },
		writeFloat: func(a *C.char, v C.double) C.int { return C.iio_device_attr_write_double(d, a, v) },
		readAll:    deviceReadAll(d),
	}
}

func bufferAttrs(d *C.struct_iio_device) *attrSet {
	return &attrSet{
		count: func() int { return int(C.iio_device_get_buffer_attrs_count(d)) },
		name:  func(i int) *C.char { return C.iio_device_get_buffer_attr(d, C.uint(i)) },
		read: func(a, dst *C.char, n C.size_t) C.ssize_t {
			return C.iio_device_buffer_attr_read(d, a, dst, n)
		},
		write:      func(a, src *C.char) C.ssize_t { return C.iio_device_buffer_attr_write(d, a, src) },
		readInt:    func(a *C.char, v *C.longlong) C.int { return C.iio_device_buffer_attr_read_longlong(d, a, v) },
		readFloat:  func(a *C.char, v *C.double) C.int { return C.iio_device_buffer_attr_read_double(d, a, v) },
		writeInt:   func(a *C.char, v C.longlong) C.int { return C.iio_device_buffer_attr_write_longlong(d, a, v) },
		writeFloat: func(a *C.char, v C.double) C.int { return C.iio_device_buffer_attr_write_double(d, a, v) },
		readAll:    bufferReadAll(d),
	}
}

func debugAttrs(d *C.struct_iio_device) *attrSet {
	return &attrSet{
		count: func() int { return int(C.iio_device_get_debug_attrs_count(d)) },
		name:  func(i int) *C.char { return C.iio_device_get_debug_attr(d, C.uint(i)) },
		read: func(a, dst *C.char, n C.size_t) C.ssize_t {
			return C.iio_device_debug_attr_read(d, a, dst, n)
		},
		write:      func(a, src *C.char) C.ssize_t { return C.iio_device_debug_attr_write(d, a, src) },
		readInt:    func(a *C.char, v *C.longlong) C.int { return C.iio_device_debug_attr_read_longlong(d, a, v) },
		readFloat:  func(a *C.char, v *C.double) C.int { return C.iio_device_debug_attr_read_double(d, a, v) },
		writeInt:   func(a *C.char, v C.longlong) C.int { return C.iio_device_debug_attr_write_longlong(d, a, v) },
		writeFloat: func(a *C.char, v C.double) C.int { return C.iio_device_debug_attr_write_double(d, a, v) },
	}
}

func channelAttrs(c *C.struct_iio_channel) *attrSet {
	return &attrSet{
		count: func() int { return int(C.iio_channel_get_attrs_count(c)) },
		name:  func(i int) *C.char { return C.iio_channel_get_attr(c, C.uint(i)) },
		read: func(a, dst *C.char, n C.size_t) C.ssize_t {
			return C.iio_channel_attr_read(c, a, dst, n)
		},
		write:      func(a, src *C.char) C.ssize_t { return C.iio_channel_attr_write(c, a, src) },
		readInt:    func(a *C.char, v *C.longlong) C.int { return C.iio_channel_attr_read_longlong(c, a, v) },
		readFloat:  func(a *C.char, v *C.double) C.int { return C.iio_channel_attr_read_double(c, a, v) },
		writeInt:   func(a *C.char, v C.longlong) C.int { return C.iio_channel_attr_write_longlong(c, a, v) },
		writeFloat: func(a *C.char, v C.double) C.int { return C.iio_channel_attr_write_double(c, a, v) },
		readAll:    channelReadAll(c),
	}
}

var _ engine.AttrSet = (*attrSet)(nil)

func (s *attrSet) Names() []string {
	n := s.count()
	out := make([]string, n)
	for i := range out {
		out[i] = C.GoString(s.name(i))
	}
	return out
}

func (s *attrSet) Read(name string) (string, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	buf := (*C.char)(C.malloc(maxAttrLen))
	defer C.free(unsafe.Pointer(buf))
	ret := s.read(cname, buf, maxAttrLen)
	if err := check(int64(ret)); err != nil {
		return "", err
	}
	return C.GoString(buf), nil
}

func (s *attrSet) Write(name, value string) error {
	cname, cvalue := C.CString(name), C.CString(value)
	defer C.free(unsafe.Pointer(cname))
	defer C.free(unsafe.Pointer(cvalue))
	return check(int64(s.write(cname, cvalue)))
}

// ReadAll fetches the family in a single libiio read_all call. Debug
// attributes have no bulk read and go one by one.
func (s *attrSet) ReadAll() (map[string]string, error) {
	out := make(map[string]string)
	if s.readAll != nil {
		h := cgo.NewHandle(out)
		defer h.Delete()
		if err := check(int64(s.readAll(C.uintptr_t(h)))); err != nil {
			return nil, err
		}
		return out, nil
	}
	for _, name := range s.Names() {
		v, err := s.Read(name)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func (s *attrSet) ReadInt64(name string) (int64, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var v C.longlong
	if err := check(int64(s.readInt(cname, &v))); err != nil {
		return 0, err
	}
	return int64(v), nil
}

func (s *attrSet) ReadFloat64(name string) (float64, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var v C.double
	if err := check(int64(s.readFloat(cname, &v))); err != nil {
		return 0, err
	}
	return float64(v), nil
}

func (s *attrSet) WriteInt64(name string, v int64) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return check(int64(s.writeInt(cname, C.longlong(v))))
}

func (s *attrSet) WriteFloat64(name string, v float64) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return check(int64(s.writeFloat(cname, C.double(v))))
}
