//go:build !linux

package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

func TestPollFDNotImplemented(t *testing.T) {
	dev := NewDummy().Dev("dummydev")
	dev.Chan("voltage0").Enable()
	buf, err := dev.CreateBuffer(2, false)
	require.NoError(t, err)
	defer buf.Destroy()

	fd, err := buf.PollFD()
	assert.ErrorIs(t, err, engine.ErrNotImplemented)
	assert.Equal(t, -1, fd)
}
