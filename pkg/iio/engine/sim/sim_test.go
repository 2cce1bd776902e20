package sim

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

func enable(t *testing.T, dev *Device, ids ...string) {
	t.Helper()
	for _, id := range ids {
		ch := dev.Chan(id)
		require.NotNil(t, ch, id)
		ch.Enable()
	}
}

func TestLayoutAlignsEachChannel(t *testing.T) {
	dev := NewDummy().Dev("dummydev")
	enable(t, dev, "voltage0", "voltage1", "timestamp")

	size, err := dev.SampleSize()
	require.NoError(t, err)
	assert.Equal(t, 16, size)

	buf, err := dev.CreateBuffer(4, false)
	require.NoError(t, err)
	defer buf.Destroy()

	for id, want := range map[string]int{"voltage0": 0, "voltage1": 2, "timestamp": 8} {
		off, err := buf.First(dev.Chan(id))
		require.NoError(t, err)
		assert.Equal(t, want, off, id)
	}
	assert.Equal(t, 16, buf.Step())
}

func TestSampleSizeWithoutChannels(t *testing.T) {
	size, err := NewDummy().Dev("dummydev").SampleSize()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestRefillReadsFedRows(t *testing.T) {
	dev := NewDummy().Dev("dummydev")
	enable(t, dev, "voltage0")

	buf, err := dev.CreateBuffer(4, false)
	require.NoError(t, err)
	defer buf.Destroy()
	assert.Empty(t, buf.Data())

	dev.Feed([]byte{10, 20, 30, 40, 50})
	n, err := buf.Refill()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{10, 20, 30, 40}, buf.Data())
	assert.Equal(t, 1, dev.Queued())

	dst := make([]byte, 4)
	n, err = dev.Chan("voltage0").Read(buf, dst, false)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{10, 20, 30, 40}, dst)
}

func TestFlushProducesShortRead(t *testing.T) {
	dev := NewDummy().Dev("dummydev")
	enable(t, dev, "voltage0")
	buf, err := dev.CreateBuffer(8, false)
	require.NoError(t, err)
	defer buf.Destroy()

	dev.Feed([]byte{1, 2, 3})
	dev.Flush()
	n, err := buf.Refill()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, buf.Data(), 3)
}

func TestFlushWithNothingQueued(t *testing.T) {
	dev := NewDummy().Dev("dummydev")
	enable(t, dev, "voltage0")
	buf, err := dev.CreateBuffer(2, false)
	require.NoError(t, err)
	defer buf.Destroy()

	dev.Flush()
	n, err := buf.Refill()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRefillNonBlocking(t *testing.T) {
	dev := NewDummy().Dev("dummydev")
	enable(t, dev, "voltage0")
	buf, err := dev.CreateBuffer(2, false)
	require.NoError(t, err)
	defer buf.Destroy()

	require.NoError(t, buf.SetBlockingMode(false))
	_, err = buf.Refill()
	assert.Equal(t, unix.EAGAIN, err)
}

func TestRefillTimesOut(t *testing.T) {
	mock := clock.NewMock()
	ctx := NewDummy(WithClock(mock))
	require.NoError(t, ctx.SetTimeout(time.Second))
	dev := ctx.Dev("dummydev")
	enable(t, dev, "voltage0")
	buf, err := dev.CreateBuffer(2, false)
	require.NoError(t, err)
	defer buf.Destroy()

	done := make(chan error, 1)
	go func() {
		_, err := buf.Refill()
		done <- err
	}()

	deadline := time.After(5 * time.Second)
	for {
		mock.Add(500 * time.Millisecond)
		select {
		case err := <-done:
			assert.Equal(t, unix.ETIMEDOUT, err)
			return
		case <-deadline:
			t.Fatal("refill did not time out")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestZeroTimeoutBlocksUntilCancel(t *testing.T) {
	mock := clock.NewMock()
	dev := NewDummy(WithClock(mock)).Dev("dummydev")
	enable(t, dev, "voltage0")
	buf, err := dev.CreateBuffer(2, false)
	require.NoError(t, err)
	defer buf.Destroy()

	done := make(chan error, 1)
	go func() {
		_, err := buf.Refill()
		done <- err
	}()

	mock.Add(time.Hour)
	select {
	case err := <-done:
		t.Fatalf("refill returned early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	buf.Cancel()
	select {
	case err := <-done:
		assert.Equal(t, unix.EBADF, err)
	case <-time.After(5 * time.Second):
		t.Fatal("cancel did not wake refill")
	}
}

func TestCancelIsSticky(t *testing.T) {
	dev := NewDummy().Dev("dummydev")
	enable(t, dev, "voltage0")
	b, err := dev.CreateBuffer(1, false)
	require.NoError(t, err)
	defer b.Destroy()

	buf := b.(*Buffer)
	buf.Cancel()
	buf.Cancel()
	assert.True(t, buf.Cancelled())

	dev.Feed([]byte{1})
	_, err = buf.Refill()
	assert.Equal(t, unix.EBADF, err)
}

func TestPushRecordsOutput(t *testing.T) {
	dac := NewDummy().Dev("dummydac")
	enable(t, dac, "voltage0")
	buf, err := dac.CreateBuffer(3, false)
	require.NoError(t, err)
	defer buf.Destroy()

	n, err := dac.Chan("voltage0").Write(buf, []byte{1, 0, 2, 0, 3, 0}, true)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	n, err = buf.Push()
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	n, err = buf.PushPartial(1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, [][]byte{{1, 0, 2, 0, 3, 0}, {1, 0}}, dac.Pushed())

	_, err = buf.PushPartial(4)
	assert.Equal(t, unix.EINVAL, err)
	_, err = buf.Refill()
	assert.Equal(t, unix.EINVAL, err)
}

func TestCyclicBufferPushesOnce(t *testing.T) {
	dac := NewDummy().Dev("dummydac")
	enable(t, dac, "voltage0")
	buf, err := dac.CreateBuffer(2, true)
	require.NoError(t, err)
	defer buf.Destroy()

	_, err = buf.Push()
	require.NoError(t, err)
	_, err = buf.Push()
	assert.Equal(t, unix.EBUSY, err)
}

func TestCreateBufferErrors(t *testing.T) {
	dev := NewDummy().Dev("dummydev")

	_, err := dev.CreateBuffer(4, false)
	assert.Equal(t, unix.EINVAL, err, "no channel enabled")

	dev.Chan("temp").Enable()
	assert.False(t, dev.Chan("temp").IsEnabled())
	_, err = dev.CreateBuffer(4, false)
	assert.Equal(t, unix.EINVAL, err, "non scan element cannot be enabled")

	enable(t, dev, "voltage0")
	_, err = dev.CreateBuffer(0, false)
	assert.Equal(t, unix.EINVAL, err)

	buf, err := dev.CreateBuffer(4, false)
	require.NoError(t, err)
	_, err = dev.CreateBuffer(4, false)
	assert.Equal(t, unix.EBUSY, err)
	assert.Equal(t, unix.EBUSY, dev.SetKernelBuffersCount(8))

	buf.Destroy()
	buf, err = dev.CreateBuffer(4, false)
	require.NoError(t, err)
	buf.Destroy()
}

func TestTriggers(t *testing.T) {
	ctx := NewTriggered()
	dev := ctx.Dev("adc")
	enable(t, dev, "voltage0")

	_, err := dev.CreateBuffer(4, false)
	assert.ErrorIs(t, err, engine.ErrTriggerRequired)

	assert.Equal(t, unix.EINVAL, dev.SetTrigger(dev))
	require.NoError(t, dev.SetTrigger(ctx.Dev("hrtimer0")))
	trig, err := dev.Trigger()
	require.NoError(t, err)
	assert.Equal(t, "trigger0", trig.ID())

	buf, err := dev.CreateBuffer(4, false)
	require.NoError(t, err)
	buf.Destroy()

	require.NoError(t, dev.SetTrigger(nil))
	trig, err = dev.Trigger()
	require.NoError(t, err)
	assert.Nil(t, trig)
}

func TestRegisters(t *testing.T) {
	dev := NewDummy().Dev("dummydev")
	v, err := dev.RegRead(0x10)
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, dev.RegWrite(0x10, 0xdeadbeef))
	v, err = dev.RegRead(0x10)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), v)
}

func TestAttrSet(t *testing.T) {
	dev := NewDummy().Dev("dummydev")
	attrs := dev.Attrs()

	assert.Equal(t, []string{"sampling_frequency", "powerdown"}, attrs.Names())
	_, err := attrs.Read("nope")
	assert.Equal(t, unix.ENOENT, err)
	assert.Equal(t, unix.ENOENT, attrs.Write("nope", "1"))

	require.NoError(t, attrs.WriteInt64("sampling_frequency", 2000))
	v, err := attrs.ReadInt64("sampling_frequency")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), v)

	require.NoError(t, attrs.Write("powerdown", "0x10\n"))
	v, err = attrs.ReadInt64("powerdown")
	require.NoError(t, err)
	assert.Equal(t, int64(16), v)

	require.NoError(t, attrs.WriteFloat64("powerdown", 1.5))
	f, err := attrs.ReadFloat64("powerdown")
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	require.NoError(t, attrs.Write("powerdown", "on"))
	_, err = attrs.ReadInt64("powerdown")
	assert.Equal(t, unix.EINVAL, err)

	dev.attrs.OnWrite(func(name, value string) error {
		if value == "-1" {
			return unix.ERANGE
		}
		return nil
	})
	assert.Equal(t, unix.ERANGE, attrs.Write("sampling_frequency", "-1"))
}

func TestFindDevice(t *testing.T) {
	ctx := NewDummy()
	for _, name := range []string{"iio:device0", "dummydev", "bench-adc"} {
		dev := ctx.FindDevice(name)
		require.NotNil(t, dev, name)
		assert.Equal(t, "iio:device0", dev.ID())
	}
	assert.Nil(t, ctx.FindDevice("nope"))
	assert.Nil(t, ctx.Device(ctx.NumDevices()))
	assert.Nil(t, ctx.Device(-1))
}

func TestFromXMLFile(t *testing.T) {
	ctx, err := FromXMLFile(filepath.Join("..", "..", "..", "iioxml", "testdata", "dummy.xml"))
	require.NoError(t, err)

	v, err := ctx.Version()
	require.NoError(t, err)
	assert.Equal(t, engine.Version{Major: 0, Minor: 25, Git: "b6028fd"}, v)
	assert.Equal(t, 3, ctx.NumDevices())

	dev := ctx.Dev("dummydev")
	require.NotNil(t, dev)
	raw, err := dev.Chan("voltage0").Attrs().Read("raw")
	require.NoError(t, err)
	assert.Equal(t, "42", raw)

	f := dev.Chan("voltage1").DataFormat()
	assert.True(t, f.Signed)
	assert.Equal(t, uint(4), f.Shift)
	assert.InDelta(t, 0.5, f.Scale, 1e-9)

	assert.True(t, ctx.Dev("trigger0").IsTrigger())
	assert.False(t, dev.IsTrigger())
	assert.Equal(t, engine.ChanAltVoltage, dev.FindChannel("altvoltage0", true).Type())
}

func TestXMLRoundTrip(t *testing.T) {
	ctx := NewDummy()
	doc, err := ctx.XML()
	require.NoError(t, err)

	again, err := FromXMLString(doc)
	require.NoError(t, err)
	assert.Equal(t, ctx.NumDevices(), again.NumDevices())
	assert.Equal(t, FormatS12, again.Dev("dummydev").Chan("voltage1").DataFormat())
	assert.Equal(t, FormatTS, again.Dev("dummydev").Chan("timestamp").DataFormat())
	assert.True(t, again.Dev("trigger0").IsTrigger())
}

func TestCloneIsIndependent(t *testing.T) {
	ctx := NewTriggered()
	dev := ctx.Dev("adc")
	require.NoError(t, dev.SetTrigger(ctx.Dev("trigger1")))
	require.NoError(t, ctx.SetTimeout(time.Second))

	c, err := ctx.Clone()
	require.NoError(t, err)
	clone := c.(*Context)
	assert.Equal(t, time.Second, clone.Timeout())

	cdev := clone.Dev("adc")
	trig, err := cdev.Trigger()
	require.NoError(t, err)
	assert.Same(t, clone.Dev("trigger1"), trig)

	require.NoError(t, cdev.RegWrite(4, 7))
	v, err := dev.RegRead(4)
	require.NoError(t, err)
	assert.Zero(t, v)

	dev.Chan("voltage0").Enable()
	assert.False(t, cdev.Chan("voltage0").IsEnabled())
}
