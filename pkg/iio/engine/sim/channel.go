package sim

import (
	"go.uber.org/atomic"
	"golang.org/x/sys/unix"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

// Channel is a simulated data lane.
type Channel struct {
	dev    *Device
	id     string
	name   string
	output bool
	index  int
	format engine.DataFormat
	typ    engine.ChanType
	attrs  *AttrSet

	enabled atomic.Bool
}

var _ engine.Channel = (*Channel)(nil)

func newChannel(dev *Device, id string, output bool, index int, f engine.DataFormat) *Channel {
	return &Channel{
		dev:    dev,
		id:     id,
		output: output,
		index:  index,
		format: f,
		typ:    engine.ParseChanType(id),
		attrs:  newAttrSet(),
	}
}

// SetName sets the extended channel name.
func (c *Channel) SetName(name string) *Channel {
	c.name = name
	return c
}

// AddAttr declares a channel attribute.
func (c *Channel) AddAttr(name, value string) *Channel {
	c.attrs.Add(name, value)
	return c
}

func (c *Channel) ID() string            { return c.id }
func (c *Channel) Name() string          { return c.name }
func (c *Channel) IsOutput() bool        { return c.output }
func (c *Channel) IsScanElement() bool   { return c.index >= 0 }
func (c *Channel) Index() int            { return c.index }
func (c *Channel) Type() engine.ChanType { return c.typ }

func (c *Channel) Attrs() engine.AttrSet { return c.attrs }

// Enable has no effect on channels that are not scan elements.
func (c *Channel) Enable() {
	if c.IsScanElement() {
		c.enabled.Store(true)
	}
}

func (c *Channel) Disable()        { c.enabled.Store(false) }
func (c *Channel) IsEnabled() bool { return c.enabled.Load() }

func (c *Channel) DataFormat() engine.DataFormat { return c.format }

func (c *Channel) Read(buf engine.Buffer, dst []byte, raw bool) (int, error) {
	b, first, err := c.locate(buf)
	if err != nil {
		return 0, err
	}
	return engine.ReadChannel(c.format, b.Data(), first, b.step, dst, raw), nil
}

func (c *Channel) Write(buf engine.Buffer, src []byte, raw bool) (int, error) {
	b, first, err := c.locate(buf)
	if err != nil {
		return 0, err
	}
	return engine.WriteChannel(c.format, b.data, first, b.step, src, raw), nil
}

func (c *Channel) locate(buf engine.Buffer) (*Buffer, int, error) {
	b, ok := buf.(*Buffer)
	if !ok || b.dev != c.dev {
		return nil, 0, unix.EINVAL
	}
	first, err := b.First(c)
	if err != nil {
		return nil, 0, err
	}
	return b, first, nil
}

func (c *Channel) clone(dev *Device) *Channel {
	n := newChannel(dev, c.id, c.output, c.index, c.format)
	n.name = c.name
	n.typ = c.typ
	n.attrs = c.attrs.clone()
	n.enabled.Store(c.enabled.Load())
	return n
}
