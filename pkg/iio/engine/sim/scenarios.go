package sim

import "github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"

// Common formats for building scenarios.
var (
	FormatU8  = engine.DataFormat{Length: 8, Bits: 8, FullyDefined: true, Repeat: 1, WithScale: true, Scale: 1}
	FormatS12 = engine.DataFormat{Length: 16, Bits: 12, Shift: 4, Signed: true, Repeat: 1, WithScale: true, Scale: 0.5}
	FormatU16 = engine.DataFormat{Length: 16, Bits: 16, FullyDefined: true, Repeat: 1}
	FormatTS  = engine.DataFormat{Length: 64, Bits: 64, Signed: true, FullyDefined: true, Repeat: 1}
)

// NewDummy builds the reference test context: an input device "dummydev"
// with an 8 bit voltage channel, a 12 bit voltage channel in 16 bit storage
// and a timestamp, an output device "dummydac", and a trigger.
func NewDummy(opts ...Option) *Context {
	ctx := NewContext("dummy", append([]Option{WithDescription("simulated IIO context")}, opts...)...)
	ctx.AddAttr("sim,version", EngineVersion.String())

	adc := ctx.AddDevice("iio:device0", "dummydev").SetLabel("bench-adc")
	adc.AddAttr("sampling_frequency", "100").
		AddAttr("powerdown", "0").
		AddBufferAttr("watermark", "1").
		AddBufferAttr("length", "0").
		AddDebugAttr("direct_reg_access", "0x0")
	adc.AddScanChannel("voltage0", false, 0, FormatU8).
		AddAttr("raw", "0").
		AddAttr("scale", "1.000000").
		AddAttr("offset", "0")
	adc.AddScanChannel("voltage1", false, 1, FormatS12).
		AddAttr("raw", "0").
		AddAttr("scale", "0.500000").
		AddAttr("offset", "-10")
	adc.AddScanChannel("timestamp", false, 2, FormatTS)
	adc.AddChannel("temp", false).
		AddAttr("input", "21500")

	dac := ctx.AddDevice("iio:device1", "dummydac")
	dac.AddScanChannel("voltage0", true, 0, FormatU16).
		AddAttr("raw", "0")

	ctx.AddTrigger("trigger0", "sysfstrig0").
		AddAttr("trigger_now", "0")
	return ctx
}

// NewTriggered builds a context whose single device refuses to buffer
// without a trigger.
func NewTriggered(opts ...Option) *Context {
	ctx := NewContext("triggered", opts...)
	dev := ctx.AddDevice("iio:device0", "adc").RequireTrigger()
	dev.AddScanChannel("voltage0", false, 0, FormatU16)
	ctx.AddTrigger("trigger0", "hrtimer0")
	ctx.AddTrigger("trigger1", "sysfstrig1")
	return ctx
}
