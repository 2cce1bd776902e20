// Package uri parses the context URIs understood by IIO backends:
//
//	local:
//	xml:<file>
//	ip:<host>                 (empty host asks for ZeroConf discovery)
//	usb:[<bus>.<addr>[.<intf>]]
//	serial:<port>[,<baud>[,<bits><parity><stop>[<flow>]]]
package uri

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Scheme is the backend selector in front of the colon.
type Scheme string

const (
	SchemeLocal  Scheme = "local"
	SchemeXML    Scheme = "xml"
	SchemeIP     Scheme = "ip"
	SchemeUSB    Scheme = "usb"
	SchemeSerial Scheme = "serial"
)

// ErrInvalid is wrapped by every parse failure.
var ErrInvalid = errors.New("uri: invalid")

// URI is a parsed context URI. Only the field matching Scheme is set.
type URI struct {
	Scheme Scheme
	Host   string      // ip
	Path   string      // xml
	USB    *USBAddr    // usb; nil selects the first IIO device found
	Serial *SerialSpec // serial
}

// USBAddr locates one USB interface.
type USBAddr struct {
	Bus       uint `parser:"@Int \".\""`
	Address   uint `parser:"@Int"`
	Interface uint `parser:"( \".\" @Int )?"`
}

func (a USBAddr) String() string {
	return fmt.Sprintf("%d.%d.%d", a.Bus, a.Address, a.Interface)
}

var usbLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Dot", Pattern: `\.`},
})

var usbParser = participle.MustBuild[USBAddr](participle.Lexer(usbLexer))

// Parse splits s into its scheme and backend specific part.
func Parse(s string) (URI, error) {
	scheme, rest, ok := strings.Cut(s, ":")
	if !ok {
		return URI{}, fmt.Errorf("%w: %q has no scheme", ErrInvalid, s)
	}
	u := URI{Scheme: Scheme(scheme)}
	switch u.Scheme {
	case SchemeLocal:
		if rest != "" {
			return URI{}, fmt.Errorf("%w: local takes no argument, got %q", ErrInvalid, rest)
		}
	case SchemeXML:
		if rest == "" {
			return URI{}, fmt.Errorf("%w: xml needs a file name", ErrInvalid)
		}
		u.Path = rest
	case SchemeIP:
		u.Host = rest
	case SchemeUSB:
		if rest == "" {
			break
		}
		addr, err := ParseUSB(rest)
		if err != nil {
			return URI{}, err
		}
		u.USB = &addr
	case SchemeSerial:
		spec, err := ParseSerial(rest)
		if err != nil {
			return URI{}, err
		}
		u.Serial = &spec
	default:
		return URI{}, fmt.Errorf("%w: unknown scheme %q", ErrInvalid, scheme)
	}
	return u, nil
}

// ParseUSB parses "<bus>.<addr>[.<intf>]".
func ParseUSB(s string) (USBAddr, error) {
	addr, err := usbParser.ParseString("", s)
	if err != nil {
		return USBAddr{}, fmt.Errorf("%w: usb %q: %v", ErrInvalid, s, err)
	}
	return *addr, nil
}

// MustParse is Parse for constants; it panics on error.
func MustParse(s string) URI {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

func (u URI) String() string {
	switch u.Scheme {
	case SchemeXML:
		return "xml:" + u.Path
	case SchemeIP:
		return "ip:" + u.Host
	case SchemeUSB:
		if u.USB == nil {
			return "usb:"
		}
		return "usb:" + u.USB.String()
	case SchemeSerial:
		if u.Serial == nil {
			return "serial:"
		}
		return "serial:" + u.Serial.String()
	}
	return string(u.Scheme) + ":"
}
