package gencam

import (
	"encoding/binary"
	"fmt"
)

// Virtual register map. Addresses are part of the control protocol and
// never change between sessions.
const (
	RegVendorName       = 0x0048
	RegModelName        = 0x0068
	RegVersion          = 0x0088
	RegManufacturerInfo = 0x00a8
	RegDeviceID         = 0x00d8

	RegWidth              = 0x0100
	RegHeight             = 0x0104
	RegPayloadSize        = 0x0118
	RegAcquisitionCommand = 0x0124
	RegPixelFormat        = 0x0128
)

const manufacturerInfo = "gencam"

// acquisitionControl is what the acquisition command register drives.
type acquisitionControl interface {
	Start() error
	Stop() error
}

// registers dispatches memory accesses over the virtual register map.
// String registers copy into the caller's buffer with truncation and a
// guaranteed NUL terminator; numeric registers are 4 bytes, little
// endian, and any other access size is an invalid address.
type registers struct {
	vendor   string
	model    string
	version  string
	deviceID string

	catalog *Catalog
	acq     acquisitionControl
}

// ReadMemory fills buf from the register space at addr.
//
// Reading the payload size register renegotiates the capture format
// with the driver, so the answer reflects the driver's authoritative
// image size for the currently selected pixel format.
func (r *registers) ReadMemory(addr uint64, buf []byte) error {
	if len(buf) == 0 {
		return fmt.Errorf("%w: empty read at 0x%04x", ErrInvalidAddress, addr)
	}

	switch addr {
	case RegVendorName:
		return strRegister(buf, r.vendor)
	case RegModelName:
		return strRegister(buf, r.model)
	case RegVersion:
		return strRegister(buf, r.version)
	case RegManufacturerInfo:
		return strRegister(buf, manufacturerInfo)
	case RegDeviceID:
		return strRegister(buf, r.deviceID)
	}

	if len(buf) != 4 {
		return fmt.Errorf("%w: %d byte read at 0x%04x", ErrInvalidAddress, len(buf), addr)
	}

	var value uint32
	switch addr {
	case RegWidth, RegHeight:
		e, ok := r.catalog.Active()
		if !ok {
			return fmt.Errorf("%w: read 0x%04x with no active format", ErrInvalidAddress, addr)
		}
		w, h := e.Size.Max()
		if addr == RegWidth {
			value = w
		} else {
			value = h
		}
	case RegPixelFormat:
		e, ok := r.catalog.Active()
		if !ok {
			return fmt.Errorf("%w: read 0x%04x with no active format", ErrInvalidAddress, addr)
		}
		value = e.Abstract
	case RegPayloadSize:
		pf, err := r.catalog.Negotiate()
		if err != nil {
			return err
		}
		value = pf.SizeImage
	default:
		return fmt.Errorf("%w: read 0x%04x", ErrInvalidAddress, addr)
	}

	binary.LittleEndian.PutUint32(buf, value)
	return nil
}

// WriteMemory stores data into the register space at addr. Only the
// acquisition command and pixel format registers are writable.
func (r *registers) WriteMemory(addr uint64, data []byte) error {
	if len(data) != 4 {
		return fmt.Errorf("%w: %d byte write at 0x%04x", ErrInvalidAddress, len(data), addr)
	}
	value := binary.LittleEndian.Uint32(data)

	switch addr {
	case RegAcquisitionCommand:
		if value != 0 {
			return r.acq.Start()
		}
		return r.acq.Stop()
	case RegPixelFormat:
		return r.catalog.SelectAbstract(value)
	}

	return fmt.Errorf("%w: write 0x%04x", ErrInvalidAddress, addr)
}

// ReadRegister is a 4-byte ReadMemory convenience.
func (r *registers) ReadRegister(addr uint64) (uint32, error) {
	var b [4]byte
	if err := r.ReadMemory(addr, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// WriteRegister is a 4-byte WriteMemory convenience.
func (r *registers) WriteRegister(addr uint64, value uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	return r.WriteMemory(addr, b[:])
}

func strRegister(buf []byte, s string) error {
	n := copy(buf[:len(buf)-1], s)
	buf[n] = 0
	return nil
}
