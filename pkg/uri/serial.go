package uri

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"go.bug.st/serial"
)

// Serial defaults applied when the URI leaves them out.
const (
	DefaultBaudRate = 115200
	DefaultDataBits = 8
)

// FlowControl is the optional trailing letter of a serial frame spec.
type FlowControl int

const (
	FlowNone FlowControl = iota
	FlowXonXoff
	FlowRTSCTS
	FlowDTRDSR
)

var flowLetters = map[string]FlowControl{
	"":  FlowNone,
	"x": FlowXonXoff,
	"r": FlowRTSCTS,
	"d": FlowDTRDSR,
}

func (f FlowControl) letter() string {
	for l, v := range flowLetters {
		if v == f {
			return l
		}
	}
	return ""
}

func (f FlowControl) String() string {
	switch f {
	case FlowXonXoff:
		return "xon/xoff"
	case FlowRTSCTS:
		return "rts/cts"
	case FlowDTRDSR:
		return "dtr/dsr"
	}
	return "none"
}

// SerialSpec is a port name plus line settings.
type SerialSpec struct {
	Port string
	Mode serial.Mode
	Flow FlowControl
}

// serialParams is the part after the first comma, e.g. "115200,8n1r".
type serialParams struct {
	Baud  int          `parser:"@Int"`
	Frame *serialFrame `parser:"( \",\" @@ )?"`
}

type serialFrame struct {
	DataBits int    `parser:"@Int"`
	Parity   string `parser:"@Parity"`
	StopBits int    `parser:"@Int"`
	Flow     string `parser:"@Flow?"`
}

var serialLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Parity", Pattern: `[noems]`},
	{Name: "Flow", Pattern: `[xrd]`},
	{Name: "Comma", Pattern: `,`},
})

var serialParser = participle.MustBuild[serialParams](participle.Lexer(serialLexer))

var parityLetters = map[string]serial.Parity{
	"n": serial.NoParity,
	"o": serial.OddParity,
	"e": serial.EvenParity,
	"m": serial.MarkParity,
	"s": serial.SpaceParity,
}

// ParseSerial parses "<port>[,<baud>[,<bits><parity><stop>[<flow>]]]".
func ParseSerial(s string) (SerialSpec, error) {
	port, params, hasParams := strings.Cut(s, ",")
	if port == "" {
		return SerialSpec{}, fmt.Errorf("%w: serial %q: missing port", ErrInvalid, s)
	}
	spec := SerialSpec{
		Port: port,
		Mode: serial.Mode{
			BaudRate: DefaultBaudRate,
			DataBits: DefaultDataBits,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
	if !hasParams {
		return spec, nil
	}

	p, err := serialParser.ParseString("", params)
	if err != nil {
		return SerialSpec{}, fmt.Errorf("%w: serial %q: %v", ErrInvalid, s, err)
	}
	if p.Baud <= 0 {
		return SerialSpec{}, fmt.Errorf("%w: serial %q: baud rate must be positive", ErrInvalid, s)
	}
	spec.Mode.BaudRate = p.Baud
	if p.Frame == nil {
		return spec, nil
	}

	if p.Frame.DataBits < 5 || p.Frame.DataBits > 9 {
		return SerialSpec{}, fmt.Errorf("%w: serial %q: %d data bits", ErrInvalid, s, p.Frame.DataBits)
	}
	spec.Mode.DataBits = p.Frame.DataBits
	spec.Mode.Parity = parityLetters[p.Frame.Parity]
	switch p.Frame.StopBits {
	case 1:
		spec.Mode.StopBits = serial.OneStopBit
	case 2:
		spec.Mode.StopBits = serial.TwoStopBits
	default:
		return SerialSpec{}, fmt.Errorf("%w: serial %q: %d stop bits", ErrInvalid, s, p.Frame.StopBits)
	}
	spec.Flow = flowLetters[p.Frame.Flow]
	return spec, nil
}

func (s SerialSpec) String() string {
	parity := "n"
	for l, p := range parityLetters {
		if p == s.Mode.Parity {
			parity = l
		}
	}
	stop := 1
	if s.Mode.StopBits == serial.TwoStopBits {
		stop = 2
	}
	return fmt.Sprintf("%s,%d,%d%s%d%s", s.Port, s.Mode.BaudRate, s.Mode.DataBits, parity, stop, s.Flow.letter())
}
