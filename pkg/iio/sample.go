package iio

import "unsafe"

// This file holds every unsafe conversion of the package. Callers check
// sample widths before reaching these helpers; the helpers themselves only
// check what is needed to stay inside the given slices.

// sizeOf is the byte width of T.
func sizeOf[T Sample]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// asBytes views s as its backing bytes in host order.
func asBytes[T Sample](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*sizeOf[T]())
}

// valueBytes views a single value as bytes.
func valueBytes[T Sample](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), sizeOf[T]())
}

// load reads one T from data at off. Sample memory is not guaranteed to be
// aligned for T, so the bytes are copied rather than dereferenced in place.
// It reports false when the value would cross the end of data.
func load[T Sample](data []byte, off int) (T, bool) {
	var v T
	n := sizeOf[T]()
	if off < 0 || off+n > len(data) {
		return v, false
	}
	copy(valueBytes(&v), data[off:off+n])
	return v, true
}
