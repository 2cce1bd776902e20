package iio

import (
	"iter"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

// Device is a view of one function block of a context. It does not own the
// session; once the last owner closes, its methods fail with ErrClosed.
type Device struct {
	h     *handle
	eng   engine.Device
	id    string
	name  string
	label string
}

func newDevice(h *handle, d engine.Device) Device {
	return Device{h: h, eng: d, id: d.ID(), name: d.Name(), label: d.Label()}
}

func (d Device) check() error {
	if d.h == nil || d.eng == nil || !d.h.alive() {
		return ErrClosed
	}
	return nil
}

func (d Device) ID() string    { return d.id }
func (d Device) Name() string  { return d.name }
func (d Device) Label() string { return d.label }

// String names the device for messages: its name, or its ID when unnamed.
func (d Device) String() string {
	if d.name != "" {
		return d.name
	}
	return d.id
}

// Context returns a new owner of the device's session; close it when done.
func (d Device) Context() (*Context, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if !d.h.acquire() {
		return nil, ErrClosed
	}
	return &Context{h: d.h}, nil
}

// Same reports whether both values refer to one device of one session.
func (d Device) Same(other Device) bool {
	return d.h == other.h && d.eng == other.eng && d.eng != nil
}

func (d Device) IsTrigger() bool {
	return d.check() == nil && d.eng.IsTrigger()
}

// Trigger returns the associated trigger device, or ErrNoTrigger.
func (d Device) Trigger() (Device, error) {
	if err := d.check(); err != nil {
		return Device{}, err
	}
	t, err := d.eng.Trigger()
	if err != nil {
		return Device{}, wrapEngine(err, "get trigger of "+d.String())
	}
	if t == nil {
		return Device{}, errors.Wrapf(ErrNoTrigger, "device %s", d)
	}
	return newDevice(d.h, t), nil
}

// SetTrigger associates trig with the device. The engine rejects devices
// that are not triggers.
func (d Device) SetTrigger(trig Device) error {
	if err := d.check(); err != nil {
		return err
	}
	if err := trig.check(); err != nil {
		return err
	}
	if trig.h != d.h {
		return errors.Wrapf(ErrInvalidArgument, "trigger %s belongs to another context", trig)
	}
	return wrapEngine(d.eng.SetTrigger(trig.eng), "set trigger of "+d.String()+" to "+trig.String())
}

// RemoveTrigger clears the trigger association.
func (d Device) RemoveTrigger() error {
	if err := d.check(); err != nil {
		return err
	}
	return wrapEngine(d.eng.SetTrigger(nil), "remove trigger of "+d.String())
}

func (d Device) attrs(set func() engine.AttrSet, kind string) Attrs {
	if d.check() != nil {
		return Attrs{}
	}
	return newAttrs(d.h, set(), kind+" "+d.String())
}

// Attrs returns the device attributes.
func (d Device) Attrs() Attrs {
	return d.attrs(func() engine.AttrSet { return d.eng.Attrs() }, "device")
}

// BufferAttrs returns the buffer attributes of the device.
func (d Device) BufferAttrs() Attrs {
	return d.attrs(func() engine.AttrSet { return d.eng.BufferAttrs() }, "buffer of")
}

// DebugAttrs returns the debug attributes of the device.
func (d Device) DebugAttrs() Attrs {
	return d.attrs(func() engine.AttrSet { return d.eng.DebugAttrs() }, "debug")
}

func (d Device) NumAttrs() int                                 { return d.Attrs().Len() }
func (d Device) Attr(i int) (string, error)                    { return d.Attrs().Name(i) }
func (d Device) HasAttr(name string) bool                      { return d.Attrs().Has(name) }
func (d Device) Attributes() iter.Seq[string]                  { return d.Attrs().All() }
func (d Device) AttrReadAll() (map[string]string, error)       { return d.Attrs().ReadAll() }
func (d Device) NumBufferAttrs() int                           { return d.BufferAttrs().Len() }
func (d Device) BufferAttr(i int) (string, error)              { return d.BufferAttrs().Name(i) }
func (d Device) HasBufferAttr(name string) bool                { return d.BufferAttrs().Has(name) }
func (d Device) BufferAttributes() iter.Seq[string]            { return d.BufferAttrs().All() }
func (d Device) BufferAttrReadAll() (map[string]string, error) { return d.BufferAttrs().ReadAll() }

// DecodeAttrs reads every device attribute in one round trip and decodes
// them into the struct pointed to by v. Fields are matched by their "iio"
// tag and text is converted to the field type.
func (d Device) DecodeAttrs(v any) error {
	m, err := d.AttrReadAll()
	if err != nil {
		return err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "iio",
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}
	if err := dec.Decode(m); err != nil {
		return errors.Wrapf(ErrStringConversion, "decode attributes of %s: %v", d, err)
	}
	return nil
}

// SamplingFrequency reads the sampling_frequency attribute through the int64
// fast path.
func (d Device) SamplingFrequency() (int64, error) {
	return d.Attrs().ReadInt("sampling_frequency")
}

// SetSamplingFrequency writes the sampling_frequency attribute.
func (d Device) SetSamplingFrequency(hz int64) error {
	return d.Attrs().WriteInt("sampling_frequency", hz)
}

// NumChannels is 0 once the session is gone.
func (d Device) NumChannels() int {
	if d.check() != nil {
		return 0
	}
	return d.eng.NumChannels()
}

// GetChannel returns channel i or ErrInvalidIndex.
func (d Device) GetChannel(i int) (Channel, error) {
	if err := d.check(); err != nil {
		return Channel{}, err
	}
	n := d.eng.NumChannels()
	if i < 0 || i >= n {
		return Channel{}, errors.Wrapf(ErrInvalidIndex, "channel %d of %d on %s", i, n, d)
	}
	return newChannel(d, d.eng.Channel(i)), nil
}

// FindChannel looks a channel up by ID or name and direction.
func (d Device) FindChannel(name string, dir Direction) (Channel, bool) {
	if d.check() != nil {
		return Channel{}, false
	}
	ch := d.eng.FindChannel(name, dir == Output)
	if ch == nil {
		return Channel{}, false
	}
	return newChannel(d, ch), true
}

// Channels yields every channel. The count is taken when iteration starts.
func (d Device) Channels() iter.Seq[Channel] {
	return func(yield func(Channel) bool) {
		n := d.NumChannels()
		for i := 0; i < n; i++ {
			ch, err := d.GetChannel(i)
			if err != nil || !yield(ch) {
				return
			}
		}
	}
}

func (d Device) channelList() []Channel {
	var out []Channel
	for ch := range d.Channels() {
		out = append(out, ch)
	}
	return out
}

// EnabledChannels lists the channels currently enabled.
func (d Device) EnabledChannels() []Channel {
	return lo.Filter(d.channelList(), func(ch Channel, _ int) bool { return ch.IsEnabled() })
}

// IsBufferCapable reports whether at least one channel is a scan element.
func (d Device) IsBufferCapable() bool {
	return lo.SomeBy(d.channelList(), func(ch Channel) bool { return ch.IsScanElement() })
}

// SampleSize is the byte size of one row for the channels enabled now.
func (d Device) SampleSize() (int, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	n, err := d.eng.SampleSize()
	if err != nil {
		return 0, wrapEngine(err, "sample size of "+d.String())
	}
	return n, nil
}

// SetKernelBuffersCount sets how many blocks the kernel queues. It applies
// to buffers created afterwards.
func (d Device) SetKernelBuffersCount(n uint) error {
	if err := d.check(); err != nil {
		return err
	}
	return wrapEngine(d.eng.SetKernelBuffersCount(n), "set kernel buffers count of "+d.String())
}

// RegRead reads a raw device register.
func (d Device) RegRead(addr uint32) (uint32, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	v, err := d.eng.RegRead(addr)
	if err != nil {
		return 0, wrapEngine(err, "read register of "+d.String())
	}
	return v, nil
}

// RegWrite writes a raw device register.
func (d Device) RegWrite(addr, value uint32) error {
	if err := d.check(); err != nil {
		return err
	}
	return wrapEngine(d.eng.RegWrite(addr, value), "write register of "+d.String())
}

// CreateBuffer snapshots the enabled channels and allocates room for
// sampleCount rows. The buffer owns a reference to the session until it is
// closed. cyclic output buffers replay their content until cancelled.
func (d Device) CreateBuffer(sampleCount int, cyclic bool) (*Buffer, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if sampleCount <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "buffer of %d samples on %s", sampleCount, d)
	}
	enabled := d.EnabledChannels()
	if len(enabled) == 0 {
		return nil, errors.Wrapf(ErrNoChannelsEnabled, "create buffer on %s", d)
	}
	if !d.h.acquire() {
		return nil, ErrClosed
	}
	eb, err := d.eng.CreateBuffer(sampleCount, cyclic)
	if err != nil {
		d.h.release()
		return nil, wrapEngine(err, "create buffer on "+d.String())
	}
	b := newBuffer(d, eb, enabled, sampleCount, cyclic)
	d.h.logger.Debug("buffer created",
		zap.Stringer("device", d),
		zap.Int("samples", sampleCount),
		zap.Bool("cyclic", cyclic),
		zap.Int("step", eb.Step()))
	return b, nil
}

// StopAll resets acquisition on every buffer capable device of ctx: it
// enables one scan element, then opens and closes a small buffer, and
// restores the previous channel state. Failures are collected, not fatal.
func StopAll(ctx *Context) error {
	if err := ctx.check(); err != nil {
		return err
	}
	var errs error
	for d := range ctx.Devices() {
		if d.IsTrigger() || !d.IsBufferCapable() {
			continue
		}
		errs = multierr.Append(errs, d.stop())
	}
	return errs
}

func (d Device) stop() error {
	chans := d.channelList()
	scan, ok := lo.Find(chans, func(ch Channel) bool { return ch.IsScanElement() })
	if !ok {
		return nil
	}
	enabled := lo.Filter(chans, func(ch Channel, _ int) bool { return ch.IsEnabled() })
	for _, ch := range enabled {
		_ = ch.Disable()
	}
	if err := scan.Enable(); err != nil {
		return err
	}
	buf, err := d.CreateBuffer(1, false)
	if err == nil {
		err = buf.Close()
	}
	_ = scan.Disable()
	for _, ch := range enabled {
		_ = ch.Enable()
	}
	return errors.Wrapf(err, "stop %s", d)
}
