// Package stream implements the buffer pipeline between a capture
// driver and its consumer: a fixed pool of memory-mapped buffers, two
// concurrent hand-off queues and a single acquisition goroutine that
// owns the capture loop.
package stream

type Status uint8

const (
	StatusUnknown Status = iota
	StatusSuccess
	StatusFailed
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusAborted:
		return "aborted"
	}
	return "unknown"
}

// ImagePart describes one contiguous image region inside a buffer.
// This backend always produces exactly one part per buffer.
type ImagePart struct {
	PixelFormat uint32 `json:"pixel_format"`
	Width       uint32 `json:"width"`
	Height      uint32 `json:"height"`
	DataOffset  uint32 `json:"data_offset"`
	XOffset     uint32 `json:"x_offset"`
	YOffset     uint32 `json:"y_offset"`
	XPadding    uint32 `json:"x_padding"`
	YPadding    uint32 `json:"y_padding"`
}

// Buffer is an application-owned capture buffer. Data points into a
// driver-allocated memory-mapped region for the lifetime of one
// streaming session. The metadata fields are written by the acquisition
// goroutine between dequeue and publication; consumers read them after
// popping the buffer from the completed queue.
type Buffer struct {
	Data []byte

	Status          Status
	FrameID         uint64
	Timestamp       int64 // device clock, ns
	SystemTimestamp int64 // local receipt, ns
	Size            uint32
	Parts           []ImagePart

	slot    uint32
	release func()
}

// NewBuffer wraps a data region into a Buffer. release, if not nil, is
// invoked exactly once when the pool tears the buffer down.
func NewBuffer(data []byte, release func()) *Buffer {
	return &Buffer{Data: data, release: release}
}

// BufferFactory produces the externally owned Buffer for one mapped
// region. Returning nil falls back to a plain NewBuffer.
type BufferFactory func(data []byte) *Buffer

type CallbackEvent uint8

const (
	CallbackInit CallbackEvent = iota
	CallbackBufferDone
	CallbackExit
)

// Callback is invoked synchronously on the acquisition goroutine: once
// with CallbackInit before the loop starts polling, with
// CallbackBufferDone for every published buffer, and with CallbackExit
// after the final drain. It must not block.
type Callback func(event CallbackEvent, buffer *Buffer)
