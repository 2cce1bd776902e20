package discover

import (
	"context"
	"fmt"

	"github.com/google/gousb"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/uri"
)

// Vendor IDs of boards that ship an IIO USB gadget.
const (
	VendorIDAnalogDevices uint16 = 0x0456
	VendorIDOpenMoko      uint16 = 0x1d50
)

// KnownVendors maps the vendor IDs scanned by default to their names.
var KnownVendors = map[uint16]string{
	VendorIDAnalogDevices: "Analog Devices Inc.",
	VendorIDOpenMoko:      "OpenMoko",
}

// USBScanner lists vendor specific interfaces of known IIO vendors.
type USBScanner struct {
	// Vendors overrides KnownVendors.
	Vendors map[uint16]string
}

func (s *USBScanner) Name() string { return "usb" }

func (s *USBScanner) vendors() map[uint16]string {
	if s.Vendors != nil {
		return s.Vendors
	}
	return KnownVendors
}

// Scan inspects device descriptors only; no device is opened.
func (s *USBScanner) Scan(ctx context.Context) ([]Entry, error) {
	usb := gousb.NewContext()
	defer usb.Close()

	var entries []Entry
	_, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		entries = append(entries, s.classify(desc)...)
		return false
	})
	if err != nil && err != gousb.ErrorAccess {
		return entries, err
	}
	return entries, ctx.Err()
}

func (s *USBScanner) classify(desc *gousb.DeviceDesc) []Entry {
	vendor, ok := s.vendors()[uint16(desc.Vendor)]
	if !ok {
		return nil
	}
	var entries []Entry
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			if !vendorSpecific(intf) {
				continue
			}
			addr := uri.USBAddr{Bus: uint(desc.Bus), Address: uint(desc.Address), Interface: uint(intf.Number)}
			entries = append(entries, Entry{
				URI:         uri.URI{Scheme: uri.SchemeUSB, USB: &addr}.String(),
				Description: fmt.Sprintf("%s:%s (%s)", desc.Vendor, desc.Product, vendor),
			})
		}
	}
	return entries
}

func vendorSpecific(intf gousb.InterfaceDesc) bool {
	for _, alt := range intf.AltSettings {
		if alt.Class == gousb.ClassVendorSpec {
			return true
		}
	}
	return false
}
