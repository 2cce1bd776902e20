package sim

import (
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iioxml"
)

// FromXML builds a context from a parsed description. Devices whose ID
// starts with "trigger" are trigger devices.
func FromXML(desc *iioxml.Context, opts ...Option) (*Context, error) {
	major, minor := desc.Version()
	base := []Option{WithDescription(desc.Description)}
	if desc.VersionMajor != "" || desc.VersionMinor != "" {
		base = append(base, WithVersion(engine.Version{Major: major, Minor: minor, Git: desc.VersionGit}))
	}
	ctx := NewContext(desc.Name, append(base, opts...)...)
	for _, a := range desc.Attributes {
		ctx.AddAttr(a.Name, a.Value)
	}

	for _, xd := range desc.Devices {
		dev := ctx.AddDevice(xd.ID, xd.Name).SetLabel(xd.Label)
		dev.isTrigger = isTriggerID(xd.ID)
		for _, a := range xd.Attributes {
			dev.AddAttr(a.Name, a.Value)
		}
		for _, a := range xd.BufferAttributes {
			dev.AddBufferAttr(a.Name, a.Value)
		}
		for _, a := range xd.DebugAttributes {
			dev.AddDebugAttr(a.Name, a.Value)
		}
		for _, xc := range xd.Channels {
			var ch *Channel
			if xc.ScanElement != nil {
				f, err := xc.ScanElement.DataFormat()
				if err != nil {
					return nil, err
				}
				ch = dev.AddScanChannel(xc.ID, xc.IsOutput(), xc.ScanElement.Index, f)
			} else {
				ch = dev.AddChannel(xc.ID, xc.IsOutput())
			}
			ch.SetName(xc.Name)
			for _, a := range xc.Attributes {
				ch.AddAttr(a.Name, a.Value)
			}
		}
	}
	return ctx, nil
}

// FromXMLString parses data and builds a context from it.
func FromXMLString(data string, opts ...Option) (*Context, error) {
	desc, err := iioxml.ParseString(data)
	if err != nil {
		return nil, err
	}
	return FromXML(desc, opts...)
}

// FromXMLFile parses the file at path and builds a context from it.
func FromXMLFile(path string, opts ...Option) (*Context, error) {
	desc, err := iioxml.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return FromXML(desc, opts...)
}

func isTriggerID(id string) bool {
	return strings.HasPrefix(id, "trigger")
}

// describe renders the current tree, attribute values included.
func (c *Context) describe() *iioxml.Context {
	desc := &iioxml.Context{
		Name:         c.name,
		Description:  c.description,
		VersionMajor: strconv.FormatUint(uint64(c.version.Major), 10),
		VersionMinor: strconv.FormatUint(uint64(c.version.Minor), 10),
		VersionGit:   c.version.Git,
	}
	for _, a := range c.attrs {
		desc.Attributes = append(desc.Attributes, iioxml.ContextAttribute{Name: a.Name, Value: a.Value})
	}
	for _, d := range c.devices {
		xd := iioxml.Device{
			ID:               d.id,
			Name:             d.name,
			Label:            d.label,
			Attributes:       describeAttrs(d.attrs),
			BufferAttributes: describeAttrs(d.bufAttrs),
			DebugAttributes:  describeAttrs(d.dbgAttrs),
		}
		for _, ch := range d.channels {
			xc := iioxml.Channel{
				ID:         ch.id,
				Name:       ch.name,
				Type:       "input",
				Attributes: describeAttrs(ch.attrs),
			}
			if ch.output {
				xc.Type = "output"
			}
			if ch.IsScanElement() {
				se := &iioxml.ScanElement{Index: ch.index, Format: ch.format.String()}
				if ch.format.WithScale {
					se.Scale = strconv.FormatFloat(ch.format.Scale, 'f', 6, 64)
				}
				xc.ScanElement = se
			}
			xd.Channels = append(xd.Channels, xc)
		}
		desc.Devices = append(desc.Devices, xd)
	}
	return desc
}

func describeAttrs(set *AttrSet) []iioxml.Attribute {
	values, _ := set.ReadAll()
	var out []iioxml.Attribute
	for _, name := range set.Names() {
		out = append(out, iioxml.Attribute{Name: name, Value: values[name]})
	}
	return out
}
