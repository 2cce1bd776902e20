package iio

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine/sim"
)

func TestIterateU8Samples(t *testing.T) {
	ctx, eng := openDummy(t)
	dev := mustDevice(t, ctx, "dummydev")
	v0 := mustChannel(t, dev, "voltage0", Input)
	enable(t, v0)

	buf, err := dev.CreateBuffer(4, false)
	require.NoError(t, err)
	defer buf.Close()

	eng.Dev("dummydev").Feed([]byte{10, 20, 30, 40})
	n, err := buf.Refill()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	it, err := ChannelIter[uint8](buf, v0)
	require.NoError(t, err)
	assert.Equal(t, 4, it.Len())
	var got []uint8
	for v := range it.All() {
		got = append(got, v)
	}
	assert.Equal(t, []uint8{10, 20, 30, 40}, got)
	assert.Zero(t, it.Len())
	_, ok := it.Next()
	assert.False(t, ok)

	values, err := Read[uint8](v0, buf)
	require.NoError(t, err)
	assert.Equal(t, []uint8{10, 20, 30, 40}, values)
}

func TestIterEndsAtRefill(t *testing.T) {
	ctx, eng := openDummy(t)
	dev := mustDevice(t, ctx, "dummydev")
	v0 := mustChannel(t, dev, "voltage0", Input)
	enable(t, v0)

	buf, err := dev.CreateBuffer(4, false)
	require.NoError(t, err)
	defer buf.Close()

	sdev := eng.Dev("dummydev")
	sdev.Feed([]byte{1, 2, 3, 4})
	_, err = buf.Refill()
	require.NoError(t, err)

	it, err := ChannelIter[uint8](buf, v0)
	require.NoError(t, err)
	first, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, uint8(1), first)

	sdev.Feed([]byte{91, 92, 93, 94})
	_, err = buf.Refill()
	require.NoError(t, err)

	assert.Zero(t, it.Len())
	_, ok = it.Next()
	assert.False(t, ok, "an iterator does not cross into the next block")

	fresh, err := ChannelIter[uint8](buf, v0)
	require.NoError(t, err)
	var got []uint8
	for v := range fresh.All() {
		got = append(got, v)
	}
	assert.Equal(t, []uint8{91, 92, 93, 94}, got)
}

func TestIterEndsAtClose(t *testing.T) {
	ctx, eng := openDummy(t)
	dev := mustDevice(t, ctx, "dummydev")
	v0 := mustChannel(t, dev, "voltage0", Input)
	enable(t, v0)

	buf, err := dev.CreateBuffer(4, false)
	require.NoError(t, err)
	eng.Dev("dummydev").Feed([]byte{5, 6, 7, 8})
	_, err = buf.Refill()
	require.NoError(t, err)

	it, err := ChannelIter[uint8](buf, v0)
	require.NoError(t, err)
	assert.Equal(t, 4, it.Len())

	require.NoError(t, buf.Close())
	assert.Zero(t, it.Len())
	v, ok := it.Next()
	assert.False(t, ok)
	assert.Zero(t, v)
}

// feedMixed queues rows for voltage0, voltage1 and timestamp: offsets 0, 2
// and 8 in a 16 byte row.
func feedMixed(dev *sim.Device, rows int) {
	data := make([]byte, 16*rows)
	for i := 0; i < rows; i++ {
		row := data[i*16:]
		row[0] = byte(i + 1)
		binary.LittleEndian.PutUint16(row[2:], uint16(int16(-(i+1))<<4))
		binary.LittleEndian.PutUint64(row[8:], uint64(1000+i))
	}
	dev.Feed(data)
}

func mixedBuffer(t *testing.T, samples int) (*Buffer, Device, *sim.Device) {
	t.Helper()
	ctx, eng := openDummy(t)
	dev := mustDevice(t, ctx, "dummydev")
	enable(t,
		mustChannel(t, dev, "voltage0", Input),
		mustChannel(t, dev, "voltage1", Input),
		mustChannel(t, dev, "timestamp", Input))
	buf, err := dev.CreateBuffer(samples, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = buf.Close() })
	return buf, dev, eng.Dev("dummydev")
}

func TestMixedChannels(t *testing.T) {
	buf, dev, sdev := mixedBuffer(t, 3)
	assert.Equal(t, 16, buf.Step())
	assert.Equal(t, 3, buf.Capacity())

	feedMixed(sdev, 3)
	n, err := buf.Refill()
	require.NoError(t, err)
	assert.Equal(t, 48, n)
	assert.Equal(t, 48, buf.Len())

	v0 := mustChannel(t, dev, "voltage0", Input)
	v1 := mustChannel(t, dev, "voltage1", Input)
	ts := mustChannel(t, dev, "timestamp", Input)

	u8s, err := Read[uint8](v0, buf)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 3}, u8s)

	converted, err := Read[int16](v1, buf)
	require.NoError(t, err)
	assert.Equal(t, []int16{-1, -2, -3}, converted)

	raw, err := ReadRaw[int16](v1, buf)
	require.NoError(t, err)
	assert.Equal(t, []int16{-16, -32, -48}, raw)

	stamps, err := Samples[int64](buf, ts)
	require.NoError(t, err)
	var got []int64
	for v := range stamps {
		got = append(got, v)
	}
	assert.Equal(t, []int64{1000, 1001, 1002}, got)

	b, err := v1.ReadBytes(buf, false)
	require.NoError(t, err)
	assert.Len(t, b, 6)
}

func TestWidthMismatchIsRejected(t *testing.T) {
	buf, dev, sdev := mixedBuffer(t, 2)
	feedMixed(sdev, 2)
	_, err := buf.Refill()
	require.NoError(t, err)

	v1 := mustChannel(t, dev, "voltage1", Input)

	_, err = ChannelIter[uint32](buf, v1)
	assert.ErrorIs(t, err, ErrWrongDataType)
	_, err = Samples[uint8](buf, v1)
	assert.ErrorIs(t, err, ErrWrongDataType)

	_, err = Read[uint32](v1, buf)
	assert.ErrorIs(t, err, ErrWrongDataType)
	// Same width, wrong sign.
	_, err = Read[uint16](v1, buf)
	assert.ErrorIs(t, err, ErrWrongDataType)

	// Raw iteration only checks the width.
	it, err := ChannelIter[uint16](buf, v1)
	require.NoError(t, err)
	first, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, uint16(0xFFF0), first)
}

func TestShortRefillTruncates(t *testing.T) {
	buf, dev, sdev := mixedBuffer(t, 4)
	feedMixed(sdev, 2)
	sdev.Flush()

	n, err := buf.Refill()
	require.NoError(t, err)
	assert.Equal(t, 32, n)

	v0 := mustChannel(t, dev, "voltage0", Input)
	values, err := Read[uint8](v0, buf)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2}, values)

	it, err := ChannelIter[uint8](buf, v0)
	require.NoError(t, err)
	assert.Equal(t, 2, it.Len())
}

func TestRefillTimeout(t *testing.T) {
	mock := clock.NewMock()
	ctx, _ := openDummy(t, sim.WithClock(mock))
	dev := mustDevice(t, ctx, "dummydev")
	enable(t, mustChannel(t, dev, "voltage0", Input))
	require.NoError(t, ctx.SetTimeout(100*time.Millisecond))

	buf, err := dev.CreateBuffer(4, false)
	require.NoError(t, err)
	defer buf.Close()

	done := make(chan error, 1)
	go func() {
		_, err := buf.Refill()
		done <- err
	}()

	var refillErr error
	require.Eventually(t, func() bool {
		mock.Add(10 * time.Millisecond)
		select {
		case refillErr = <-done:
			return true
		default:
			return false
		}
	}, 5*time.Second, time.Millisecond)

	assert.True(t, IsErrno(refillErr, unix.ETIMEDOUT))
	var sysErr *SysError
	require.ErrorAs(t, refillErr, &sysErr)
	assert.Equal(t, "refill on dummydev", sysErr.Op)
}

func TestZeroTimeoutBlocksUntilCancel(t *testing.T) {
	ctx, _ := openDummy(t)
	dev := mustDevice(t, ctx, "dummydev")
	enable(t, mustChannel(t, dev, "voltage0", Input))
	require.NoError(t, ctx.SetTimeout(0))

	buf, err := dev.CreateBuffer(4, false)
	require.NoError(t, err)
	defer buf.Close()

	done := make(chan error, 1)
	go func() {
		_, err := buf.Refill()
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("refill returned without data: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	buf.Cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("refill did not return after cancel")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	buf, _, sdev := mixedBuffer(t, 1)

	buf.Cancel()
	assert.Equal(t, BufferCancelled, buf.State())
	buf.Cancel()
	assert.Equal(t, BufferCancelled, buf.State())

	feedMixed(sdev, 1)
	_, err := buf.Refill()
	assert.ErrorIs(t, err, ErrCancelled)
	_, err = buf.Refill()
	assert.ErrorIs(t, err, ErrCancelled)

	require.NoError(t, buf.Close())
	assert.Equal(t, BufferClosed, buf.State())
	buf.Cancel()
	assert.Equal(t, BufferClosed, buf.State())
	_, err = buf.Refill()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNonBlockingRefill(t *testing.T) {
	buf, _, sdev := mixedBuffer(t, 2)
	require.NoError(t, buf.SetBlockingMode(false))

	_, err := buf.Refill()
	assert.True(t, IsErrno(err, unix.EAGAIN))
	assert.Equal(t, BufferCreated, buf.State())

	feedMixed(sdev, 2)
	_, err = buf.Refill()
	require.NoError(t, err)
	assert.Equal(t, BufferActive, buf.State())
}

func TestBufferKeepsSessionAlive(t *testing.T) {
	eng := sim.NewDummy()
	ctx, err := WrapEngine(eng)
	require.NoError(t, err)
	dev := mustDevice(t, ctx, "dummydev")
	v0 := mustChannel(t, dev, "voltage0", Input)
	enable(t, v0)
	buf, err := dev.CreateBuffer(2, false)
	require.NoError(t, err)

	require.NoError(t, ctx.Close())
	assert.False(t, eng.Destroyed())

	eng.Dev("dummydev").Feed([]byte{7, 9})
	_, err = buf.Refill()
	require.NoError(t, err)
	values, err := Read[uint8](v0, buf)
	require.NoError(t, err)
	assert.Equal(t, []uint8{7, 9}, values)

	require.NoError(t, buf.Close())
	require.NoError(t, buf.Close())
	assert.True(t, eng.Destroyed())
	_, err = Read[uint8](v0, buf)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPushOutput(t *testing.T) {
	ctx, eng := openDummy(t)
	dac := mustDevice(t, ctx, "dummydac")
	out := mustChannel(t, dac, "voltage0", Output)
	enable(t, out)

	buf, err := dac.CreateBuffer(3, false)
	require.NoError(t, err)
	defer buf.Close()

	n, err := Write(out, buf, []uint16{1, 2, 0x0300})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	pushed, err := buf.Push()
	require.NoError(t, err)
	assert.Equal(t, 6, pushed)

	pushed, err = buf.PushPartial(1)
	require.NoError(t, err)
	assert.Equal(t, 2, pushed)

	_, err = buf.PushPartial(4)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	blocks := eng.Dev("dummydac").Pushed()
	require.Len(t, blocks, 2)
	assert.Equal(t, []byte{1, 0, 2, 0, 0, 3}, blocks[0])
	assert.Equal(t, []byte{1, 0}, blocks[1])

	_, err = Write(out, buf, []int16{1})
	assert.ErrorIs(t, err, ErrWrongDataType)
	_, err = buf.Refill()
	assert.True(t, IsErrno(err, unix.EINVAL))
}

func TestCyclicPushOnce(t *testing.T) {
	ctx, _ := openDummy(t)
	dac := mustDevice(t, ctx, "dummydac")
	out := mustChannel(t, dac, "voltage0", Output)
	enable(t, out)

	buf, err := dac.CreateBuffer(2, true)
	require.NoError(t, err)
	defer buf.Close()
	assert.True(t, buf.IsCyclic())

	_, err = WriteRaw(out, buf, []uint16{0xAAAA, 0x5555})
	require.NoError(t, err)
	_, err = buf.Push()
	require.NoError(t, err)
	_, err = buf.Push()
	assert.True(t, IsErrno(err, unix.EBUSY))
}

func TestBufferAccessors(t *testing.T) {
	buf, dev, _ := mixedBuffer(t, 2)
	assert.True(t, buf.Device().Same(dev))
	assert.False(t, buf.IsCyclic())
	assert.Len(t, buf.Channels(), 3)
	assert.True(t, buf.Attrs().Has("watermark"))
	assert.Equal(t, "created", buf.State().String())
}

func TestPollFD(t *testing.T) {
	buf, _, _ := mixedBuffer(t, 2)
	fd, err := buf.PollFD()
	if err != nil {
		// eventfd is Linux only.
		assert.ErrorIs(t, err, engine.ErrNotImplemented)
	} else {
		assert.GreaterOrEqual(t, fd, 0)
	}

	require.NoError(t, buf.Close())
	_, err = buf.PollFD()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, buf.SetBlockingMode(false), ErrClosed)
}
