//go:build !libiio || !cgo

package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestStubReportsENOSYS(t *testing.T) {
	assert.False(t, Available)
	assert.Zero(t, LibraryVersion())

	opens := map[string]func() error{
		"local":   func() error { _, err := Local(); return err },
		"network": func() error { _, err := Network("192.168.2.1"); return err },
		"uri":     func() error { _, err := URI("usb:"); return err },
	}
	for name, open := range opens {
		assert.ErrorIs(t, open(), unix.ENOSYS, name)
	}
}
