//go:build libiio && cgo

package native

/*
#include <stddef.h>
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"
)

//export goStoreAttr
func goStoreAttr(attr, val *C.char, n C.size_t, data unsafe.Pointer) C.int {
	storeAttr(cgo.Handle(uintptr(data)), C.GoString(attr), C.GoStringN(val, C.int(n)))
	return 0
}
