package stream

import "time"

// Format is the negotiated capture format the loop stamps into every
// completed buffer. PixelFormat carries the abstract (caller-facing)
// pixel format code, not the driver-native one.
type Format struct {
	PixelFormat uint32
	Width       uint32
	Height      uint32
}

// Done reports one completed buffer slot.
type Done struct {
	Slot      uint32
	Bytes     uint32
	Timestamp int64 // device clock, ns
}

// Driver is the slice of kernel streaming I/O the engine needs. It is
// implemented by the V4L2 device session; tests provide fakes.
type Driver interface {
	// Negotiate pushes the currently selected format to the driver and
	// returns the authoritative result.
	Negotiate() (Format, error)

	RequestBuffers(n uint32) (uint32, error)
	QueryBuffer(slot uint32) (offset, length uint32, err error)
	MapBuffer(offset, length uint32) ([]byte, error)
	UnmapBuffer(data []byte) error

	QueueBuffer(slot uint32) error
	DequeueBuffer() (Done, error)
	WaitFrame(timeout time.Duration) (bool, error)

	StreamOn() error
	StreamOff() error
}
