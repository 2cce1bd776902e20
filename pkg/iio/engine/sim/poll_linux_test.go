//go:build linux

package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func readable(t *testing.T, fd int) bool {
	t.Helper()
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	require.NoError(t, err)
	return n == 1 && fds[0].Revents&unix.POLLIN != 0
}

func TestPollFDSignalsData(t *testing.T) {
	dev := NewDummy().Dev("dummydev")
	dev.Chan("voltage0").Enable()
	buf, err := dev.CreateBuffer(2, false)
	require.NoError(t, err)
	defer buf.Destroy()

	fd, err := buf.PollFD()
	require.NoError(t, err)
	again, err := buf.PollFD()
	require.NoError(t, err)
	assert.Equal(t, fd, again)

	assert.False(t, readable(t, fd))
	dev.Feed([]byte{1})
	assert.False(t, readable(t, fd), "half a buffer is not enough")
	dev.Feed([]byte{2})
	assert.True(t, readable(t, fd))

	_, err = buf.Refill()
	require.NoError(t, err)
	assert.False(t, readable(t, fd))
}

func TestPollFDSignalsCancel(t *testing.T) {
	dev := NewDummy().Dev("dummydev")
	dev.Chan("voltage0").Enable()
	buf, err := dev.CreateBuffer(2, false)
	require.NoError(t, err)
	defer buf.Destroy()

	fd, err := buf.PollFD()
	require.NoError(t, err)
	buf.Cancel()
	assert.True(t, readable(t, fd))
}
