package iioxml

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDummy(t *testing.T) *Context {
	t.Helper()
	ctx, err := ParseFile(filepath.Join("testdata", "dummy.xml"))
	require.NoError(t, err)
	return ctx
}

func TestParseFile(t *testing.T) {
	ctx := loadDummy(t)

	assert.Equal(t, "xml", ctx.Name)
	assert.Equal(t, "iio_dummy test context", ctx.Description)
	major, minor := ctx.Version()
	assert.Equal(t, uint(0), major)
	assert.Equal(t, uint(25), minor)
	require.Len(t, ctx.Attributes, 2)
	assert.Equal(t, "hw_carrier", ctx.Attributes[1].Name)

	require.Len(t, ctx.Devices, 3)
	dev := ctx.Devices[0]
	assert.Equal(t, "iio:device0", dev.ID)
	assert.Equal(t, "dummydev", dev.Name)
	assert.Equal(t, "bench-adc", dev.Label)
	require.Len(t, dev.Channels, 4)
	assert.Len(t, dev.Attributes, 2)
	assert.Len(t, dev.BufferAttributes, 2)
	assert.Len(t, dev.DebugAttributes, 1)

	v0 := dev.Channels[0]
	assert.False(t, v0.IsOutput())
	require.NotNil(t, v0.ScanElement)
	assert.Equal(t, 0, v0.ScanElement.Index)
	assert.Equal(t, "le:u8/8>>0", v0.ScanElement.Format)
	assert.Equal(t, "42", v0.Attributes[0].Value)

	assert.True(t, dev.Channels[3].IsOutput())
	assert.Nil(t, dev.Channels[3].ScanElement)
	assert.Empty(t, ctx.Devices[2].Channels)
}

func TestParseRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"not xml", "<context", "decode"},
		{"missing id", `<context name="x"><device name="d"/></context>`, "without id"},
		{"duplicate id", `<context name="x"><device id="a"/><device id="a"/></context>`, "duplicate"},
		{"channel type", `<context name="x"><device id="a"><channel id="c" type="sideways"/></device></context>`, "bad type"},
		{"channel id", `<context name="x"><device id="a"><channel type="input"/></device></context>`, "channel without id"},
		{"format", `<context name="x"><device id="a"><channel id="c" type="input"><scan-element index="0" format="le:u7/7>>0"/></channel></device></context>`, "whole number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.doc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join("testdata", "nope.xml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iioxml: open")
}

func TestMarshalReparses(t *testing.T) {
	ctx := loadDummy(t)
	out, err := ctx.Marshal()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<?xml"))

	again, err := ParseString(out)
	require.NoError(t, err)
	assert.Equal(t, ctx.Devices, again.Devices)
	assert.Equal(t, ctx.Attributes, again.Attributes)
}
