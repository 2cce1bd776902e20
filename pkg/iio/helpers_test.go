package iio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceIIO/internal/logging/logtest"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine/sim"
)

const dummyXML = "../iioxml/testdata/dummy.xml"

// openDummy wraps a fresh dummy engine. The context is closed when the test
// ends.
func openDummy(t *testing.T, simOpts ...sim.Option) (*Context, *sim.Context) {
	t.Helper()
	eng := sim.NewDummy(simOpts...)
	ctx, err := WrapEngine(eng, WithLogger(logtest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx, eng
}

func mustDevice(t *testing.T, ctx *Context, name string) Device {
	t.Helper()
	d, ok := ctx.FindDevice(name)
	require.True(t, ok, "device %s", name)
	return d
}

func mustChannel(t *testing.T, d Device, name string, dir Direction) Channel {
	t.Helper()
	ch, ok := d.FindChannel(name, dir)
	require.True(t, ok, "channel %s", name)
	return ch
}

func enable(t *testing.T, chans ...Channel) {
	t.Helper()
	for _, ch := range chans {
		require.NoError(t, ch.Enable())
	}
}
