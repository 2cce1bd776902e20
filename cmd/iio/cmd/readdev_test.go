package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine/sim"
)

func TestChannelTextScalesBlock(t *testing.T) {
	eng := sim.NewDummy()
	ctx, err := iio.WrapEngine(eng)
	require.NoError(t, err)
	defer ctx.Close()

	dev, ok := ctx.FindDevice("dummydev")
	require.True(t, ok)
	v0, ok := dev.FindChannel("voltage0", iio.Input)
	require.True(t, ok)
	v1, ok := dev.FindChannel("voltage1", iio.Input)
	require.True(t, ok)
	require.NoError(t, v0.Enable())
	require.NoError(t, v1.Enable())

	buf, err := dev.CreateBuffer(3, false)
	require.NoError(t, err)
	defer buf.Close()
	feedPair(eng.Dev("dummydev"), []uint8{1, 2, 3}, []int16{-2, 0, 30})
	_, err = buf.Refill()
	require.NoError(t, err)

	raw, err := channelText(v1, buf, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"-2", "0", "30"}, raw)

	scaled, err := channelText(v1, buf, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"-6", "-5", "10"}, scaled)

	_, err = channelText(v0, buf, true)
	require.NoError(t, err)
}
