// Package iioxml reads and writes the XML description of an IIO context, the
// same document an IIO daemon serves and libiio's XML backend loads.
//
// Attribute elements may carry a value attribute. The stock schema has no
// such field; it is used by the simulator to seed attribute contents.
package iioxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Context is the root <context> element.
type Context struct {
	XMLName      xml.Name           `xml:"context"`
	Name         string             `xml:"name,attr"`
	VersionMajor string             `xml:"version-major,attr,omitempty"`
	VersionMinor string             `xml:"version-minor,attr,omitempty"`
	VersionGit   string             `xml:"version-git,attr,omitempty"`
	Description  string             `xml:"description,attr,omitempty"`
	Attributes   []ContextAttribute `xml:"context-attribute"`
	Devices      []Device           `xml:"device"`
}

// ContextAttribute is a read-only name/value pair of the context.
type ContextAttribute struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Device is one <device> element.
type Device struct {
	ID    string `xml:"id,attr"`
	Name  string `xml:"name,attr,omitempty"`
	Label string `xml:"label,attr,omitempty"`

	Channels         []Channel   `xml:"channel"`
	Attributes       []Attribute `xml:"attribute"`
	BufferAttributes []Attribute `xml:"buffer-attribute"`
	DebugAttributes  []Attribute `xml:"debug-attribute"`
}

// Channel is one <channel> element.
type Channel struct {
	ID          string       `xml:"id,attr"`
	Name        string       `xml:"name,attr,omitempty"`
	Type        string       `xml:"type,attr"` // input | output
	ScanElement *ScanElement `xml:"scan-element"`
	Attributes  []Attribute  `xml:"attribute"`
}

// IsOutput reports whether the channel type is "output".
func (c Channel) IsOutput() bool {
	return c.Type == "output"
}

// ScanElement marks a channel as able to take part in buffered I/O.
type ScanElement struct {
	Index  int    `xml:"index,attr"`
	Format string `xml:"format,attr"`
	Scale  string `xml:"scale,attr,omitempty"`
}

// Attribute is a device, buffer, debug or channel attribute.
type Attribute struct {
	Name     string `xml:"name,attr"`
	Filename string `xml:"filename,attr,omitempty"`
	Value    string `xml:"value,attr,omitempty"`
}

// Parse decodes a context description.
func Parse(r io.Reader) (*Context, error) {
	var ctx Context
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&ctx); err != nil {
		return nil, fmt.Errorf("iioxml: decode: %w", err)
	}
	if err := ctx.validate(); err != nil {
		return nil, err
	}
	return &ctx, nil
}

// ParseString decodes a context description held in memory.
func ParseString(data string) (*Context, error) {
	return Parse(bytes.NewBufferString(data))
}

// ParseFile decodes a context description from a file.
func ParseFile(path string) (*Context, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("iioxml: open: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Marshal encodes the context with an XML header and indentation.
func (c *Context) Marshal() (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("iioxml: encode: %w", err)
	}
	return buf.String(), nil
}

// Version returns the numeric version attributes, zero when absent.
func (c *Context) Version() (major, minor uint) {
	ma, _ := strconv.ParseUint(c.VersionMajor, 10, 32)
	mi, _ := strconv.ParseUint(c.VersionMinor, 10, 32)
	return uint(ma), uint(mi)
}

func (c *Context) validate() error {
	seen := make(map[string]bool, len(c.Devices))
	for _, dev := range c.Devices {
		if dev.ID == "" {
			return fmt.Errorf("iioxml: device without id")
		}
		if seen[dev.ID] {
			return fmt.Errorf("iioxml: duplicate device id %q", dev.ID)
		}
		seen[dev.ID] = true
		for _, ch := range dev.Channels {
			if ch.ID == "" {
				return fmt.Errorf("iioxml: device %s: channel without id", dev.ID)
			}
			if ch.Type != "input" && ch.Type != "output" {
				return fmt.Errorf("iioxml: device %s: channel %s: bad type %q", dev.ID, ch.ID, ch.Type)
			}
			if ch.ScanElement != nil {
				if _, err := ParseFormat(ch.ScanElement.Format); err != nil {
					return fmt.Errorf("iioxml: device %s: channel %s: %w", dev.ID, ch.ID, err)
				}
			}
		}
	}
	return nil
}
