package iio

import (
	"os"

	"github.com/pkg/errors"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine/native"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine/sim"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/uri"
)

// RemoteEnv names the environment variable the default backend consults.
// When set, the default context is a network context to its value; an empty
// value asks for ZeroConf discovery.
const RemoteEnv = "IIOD_REMOTE"

// BackendKind enumerates the ways a context can be opened.
type BackendKind int

const (
	BackendDefault BackendKind = iota
	BackendLocal
	BackendNetwork
	BackendUSB
	BackendSerial
	BackendXML
	BackendXMLMem
	BackendURI
)

func (k BackendKind) String() string {
	switch k {
	case BackendLocal:
		return "local"
	case BackendNetwork:
		return "network"
	case BackendUSB:
		return "usb"
	case BackendSerial:
		return "serial"
	case BackendXML:
		return "xml"
	case BackendXMLMem:
		return "xml-mem"
	case BackendURI:
		return "uri"
	}
	return "default"
}

// Backend selects the transport of a new context. Build one with Default,
// Local, Network, USB, Serial, XML, XMLMem or URI.
type Backend struct {
	kind BackendKind
	arg  string
}

// Default opens a network context when RemoteEnv is set, a local one
// otherwise.
func Default() Backend { return Backend{kind: BackendDefault} }

// Local opens the local sysfs context (Linux only).
func Local() Backend { return Backend{kind: BackendLocal} }

// Network opens a context on an IIO daemon. An empty host triggers ZeroConf
// discovery.
func Network(host string) Backend { return Backend{kind: BackendNetwork, arg: host} }

// USB opens "<bus>.<addr>.<intf>"; an empty spec takes the first IIO device.
func USB(spec string) Backend { return Backend{kind: BackendUSB, arg: spec} }

// Serial opens "<port>[,<baud>[,<bits><parity><stop>[<flow>]]]".
func Serial(spec string) Backend { return Backend{kind: BackendSerial, arg: spec} }

// XML loads a context description from a file.
func XML(path string) Backend { return Backend{kind: BackendXML, arg: path} }

// XMLMem loads a context description held in memory.
func XMLMem(data string) Backend { return Backend{kind: BackendXMLMem, arg: data} }

// URI dispatches on the scheme of uri.
func URI(u string) Backend { return Backend{kind: BackendURI, arg: u} }

// Kind reports the backend variant.
func (b Backend) Kind() BackendKind { return b.kind }

// String renders the backend as a URI. In-memory XML is shown as
// "xml:<memory>".
func (b Backend) String() string {
	switch b.kind {
	case BackendLocal:
		return "local:"
	case BackendNetwork:
		return "ip:" + b.arg
	case BackendUSB:
		return "usb:" + b.arg
	case BackendSerial:
		return "serial:" + b.arg
	case BackendXML:
		return "xml:" + b.arg
	case BackendXMLMem:
		return "xml:<memory>"
	case BackendURI:
		return b.arg
	}
	return "default:"
}

// resolve turns Default and URI into a concrete variant and validates the
// argument.
func (b Backend) resolve() (Backend, error) {
	switch b.kind {
	case BackendDefault:
		if host, ok := os.LookupEnv(RemoteEnv); ok {
			return Network(host), nil
		}
		return Local(), nil
	case BackendUSB:
		if b.arg != "" {
			if _, err := uri.ParseUSB(b.arg); err != nil {
				return b, errors.Wrap(ErrStringConversion, err.Error())
			}
		}
	case BackendSerial:
		spec, err := uri.ParseSerial(b.arg)
		if err != nil {
			return b, errors.Wrap(ErrStringConversion, err.Error())
		}
		return Serial(spec.String()), nil
	case BackendURI:
		u, err := uri.Parse(b.arg)
		if err != nil {
			return b, errors.Wrap(ErrStringConversion, err.Error())
		}
		switch u.Scheme {
		case uri.SchemeLocal:
			return Local(), nil
		case uri.SchemeXML:
			return XML(u.Path), nil
		case uri.SchemeIP:
			return Network(u.Host), nil
		case uri.SchemeUSB:
			if u.USB == nil {
				return USB(""), nil
			}
			return USB(u.USB.String()), nil
		case uri.SchemeSerial:
			return Serial(u.Serial.String()), nil
		}
	}
	return b, nil
}

// open creates the engine for a resolved backend. The XML variants use the
// in-memory engine; the others need libiio.
func (b Backend) open(simOpts ...sim.Option) (engine.Context, error) {
	switch b.kind {
	case BackendLocal:
		return native.Local()
	case BackendNetwork:
		return native.Network(b.arg)
	case BackendUSB, BackendSerial:
		return native.URI(b.String())
	case BackendXML, BackendXMLMem:
		load := sim.FromXMLFile
		if b.kind == BackendXMLMem {
			load = sim.FromXMLString
		}
		ctx, err := load(b.arg, simOpts...)
		if err != nil {
			return nil, err
		}
		return ctx, nil
	}
	return nil, errors.Wrapf(ErrInvalidArgument, "backend %s", b.kind)
}
