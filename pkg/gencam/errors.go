// Package gencam exposes a V4L2 capture device behind a GenICam-style
// virtual register map: a fixed set of register addresses for device
// identity, sensor geometry, pixel format selection and acquisition
// control, plus a catalog that translates between driver-native pixel
// formats and their abstract (caller-facing) codes.
package gencam

import "errors"

// Error kinds. Everything this package returns wraps one of these, so
// callers classify with errors.Is.
var (
	// ErrNotFound - device missing or not a capture device, fatal to
	// session construction.
	ErrNotFound = errors.New("gencam: device not found")

	// ErrDeviceIO - a driver call failed during negotiation, buffer
	// setup or acquisition start/stop.
	ErrDeviceIO = errors.New("gencam: device i/o error")

	// ErrInvalidAddress - unmapped or mis-sized register access.
	ErrInvalidAddress = errors.New("gencam: invalid address")

	// ErrInvalidFormat - a pixel format selection matching no catalog
	// entry; the active format stays unchanged.
	ErrInvalidFormat = errors.New("gencam: invalid pixel format")
)
