// Package native binds the engine interfaces to libiio 0.2x through cgo.
//
// The binding is only compiled with the "libiio" build tag and cgo enabled;
// otherwise every constructor fails with ENOSYS and Available is false. Each
// wrapper call maps to one libiio function and failures carry the errno of
// that call. The cgo side is type checked and tested with
//
//	go test -tags libiio ./pkg/iio/engine/native/
//
// libiio contexts are not thread safe. Callers keep one goroutine per
// context, which the iio package documents and enforces by convention.
package native
