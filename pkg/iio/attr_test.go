package iio

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttr(t *testing.T) {
	i, err := ParseAttr[int]("42\n")
	require.NoError(t, err)
	assert.Equal(t, 42, i)

	i32, err := ParseAttr[int32]("0x10")
	require.NoError(t, err)
	assert.Equal(t, int32(16), i32)

	u64, err := ParseAttr[uint64]("18446744073709551615")
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), u64)

	f, err := ParseAttr[float64](" 1.5 ")
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	s, err := ParseAttr[string](" keep spaces ")
	require.NoError(t, err)
	assert.Equal(t, " keep spaces ", s)

	n, err := ParseAttr[*big.Int]("340282366920938463463374607431768211455")
	require.NoError(t, err)
	want := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	assert.Zero(t, want.Cmp(n))
}

func TestParseAttrRejects(t *testing.T) {
	_, err := ParseAttr[uint8]("300")
	assert.ErrorIs(t, err, ErrStringConversion)
	_, err = ParseAttr[uint32]("-1")
	assert.ErrorIs(t, err, ErrStringConversion)
	_, err = ParseAttr[int8]("-129")
	assert.ErrorIs(t, err, ErrStringConversion)
	_, err = ParseAttr[int]("twelve")
	assert.ErrorIs(t, err, ErrStringConversion)
	_, err = ParseAttr[float32]("1e39")
	assert.ErrorIs(t, err, ErrStringConversion)
	_, err = ParseAttr[*big.Int]("0xZZ")
	assert.ErrorIs(t, err, ErrStringConversion)
	_, err = ParseAttr[bool]("maybe")
	assert.ErrorIs(t, err, ErrStringConversion)
}

func TestParseAttrRejectsInvalidUTF8(t *testing.T) {
	_, err := ParseAttr[string]("ad\xff\xfec")
	assert.ErrorIs(t, err, ErrStringConversion)
	_, err = ParseAttr[int]("1\xc0")
	assert.ErrorIs(t, err, ErrStringConversion)

	s, err := ParseAttr[string]("µV")
	require.NoError(t, err)
	assert.Equal(t, "µV", s)
}

func TestParseAttrBool(t *testing.T) {
	tests := map[string]bool{
		"1":     true,
		"0":     false,
		"2":     true,
		"-1":    true,
		"true":  true,
		"false": false,
		"1\n":   true,
	}
	for in, want := range tests {
		got, err := ParseAttr[bool](in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestFormatAttr(t *testing.T) {
	s, err := FormatAttr(true)
	require.NoError(t, err)
	assert.Equal(t, "1", s)
	s, err = FormatAttr(false)
	require.NoError(t, err)
	assert.Equal(t, "0", s)

	s, err = FormatAttr(float32(0.1))
	require.NoError(t, err)
	assert.Equal(t, "0.1", s)

	s, err = FormatAttr(int8(-5))
	require.NoError(t, err)
	assert.Equal(t, "-5", s)

	_, err = FormatAttr[*big.Int](nil)
	assert.ErrorIs(t, err, ErrStringConversion)
}

func TestAttrRoundTrip(t *testing.T) {
	ctx, _ := openDummy(t)
	dev := mustDevice(t, ctx, "dummydev")
	attrs := dev.Attrs()

	require.NoError(t, WriteAttr(attrs, "powerdown", true))
	raw, err := attrs.Read("powerdown")
	require.NoError(t, err)
	assert.Equal(t, "1", raw)
	on, err := ReadAttr[bool](attrs, "powerdown")
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, attrs.WriteBool("powerdown", false))
	raw, err = attrs.Read("powerdown")
	require.NoError(t, err)
	assert.Equal(t, "0", raw)

	require.NoError(t, WriteAttr(attrs, "sampling_frequency", uint32(48000)))
	hz, err := ReadAttr[uint32](attrs, "sampling_frequency")
	require.NoError(t, err)
	assert.Equal(t, uint32(48000), hz)

	require.NoError(t, attrs.WriteFloat("sampling_frequency", 0.25))
	f, err := attrs.ReadFloat("sampling_frequency")
	require.NoError(t, err)
	assert.Equal(t, 0.25, f)

	big128 := new(big.Int).Lsh(big.NewInt(1), 100)
	require.NoError(t, WriteAttr(attrs, "sampling_frequency", big128))
	back, err := ReadAttr[*big.Int](attrs, "sampling_frequency")
	require.NoError(t, err)
	assert.Zero(t, big128.Cmp(back))

	require.NoError(t, attrs.WriteString("sampling_frequency", "fast"))
	_, err = attrs.ReadInt("sampling_frequency")
	assert.ErrorIs(t, err, ErrStringConversion)
	_, err = ReadAttr[int](attrs, "sampling_frequency")
	assert.ErrorIs(t, err, ErrStringConversion)
	assert.Contains(t, err.Error(), `device dummydev attribute "sampling_frequency"`)
}

func TestChannelAttrs(t *testing.T) {
	ctx, _ := openDummy(t)
	temp := mustChannel(t, mustDevice(t, ctx, "dummydev"), "temp", Input)

	v, err := temp.Attrs().ReadInt("input")
	require.NoError(t, err)
	assert.Equal(t, int64(21500), v)

	var names []string
	for n := range temp.Attributes() {
		names = append(names, n)
	}
	assert.Equal(t, []string{"input"}, names)
}

func TestZeroAttrs(t *testing.T) {
	var a Attrs
	assert.Zero(t, a.Len())
	assert.False(t, a.Has("x"))
	_, err := a.Read("x")
	assert.ErrorIs(t, err, ErrClosed)
}
