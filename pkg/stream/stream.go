package stream

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// waitTimeout bounds the in-loop wait for driver completion. It is also
// the worst-case latency of Stop, because the cancellation flag is only
// observed at the top of the loop.
const waitTimeout = 2 * time.Second

var (
	ErrNoBuffers = errors.New("stream: no buffers allocated")
	ErrStreaming = errors.New("stream: buffers are in use while streaming")
)

// Stream runs one acquisition session over a Driver. The zero value is
// not usable, construct with New.
//
// Lifecycle: CreateBuffers once, then any sequence of Start/Stop, then
// ReleaseBuffers. Exactly one goroutine (the acquisition loop) exists
// between a successful Start and the return of Stop.
type Stream struct {
	dev      Driver
	log      zerolog.Logger
	callback Callback

	mu      sync.Mutex // guards state transitions, not the loop
	running bool
	cancel  atomic.Bool
	done    chan struct{}

	free      chan *Buffer
	completed chan *Buffer

	bufs []*Buffer // by slot index
	maps [][]byte  // mmap regions, by slot index

	format  Format // valid while running
	frameID uint64 // owned by the loop

	stats counters
}

func New(dev Driver, log zerolog.Logger) *Stream {
	return &Stream{dev: dev, log: log}
}

// SetCallback registers the completion callback. Must not be called
// while the stream is running.
func (s *Stream) SetCallback(cb Callback) {
	s.mu.Lock()
	s.callback = cb
	s.mu.Unlock()
}

// Allocated reports whether a buffer pool exists.
func (s *Stream) Allocated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bufs != nil
}

// Running reports whether the acquisition goroutine is alive.
func (s *Stream) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Format returns the format negotiated by the last successful Start.
func (s *Stream) Format() Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

// Stats may be called from any goroutine at any time.
func (s *Stream) Stats() Statistics {
	return s.stats.snapshot()
}

// PushBuffer hands a free buffer to the acquisition loop. Safe for
// concurrent use with the loop and with PopBuffer.
func (s *Stream) PushBuffer(b *Buffer) error {
	s.mu.Lock()
	free := s.free
	s.mu.Unlock()

	if free == nil {
		return ErrNoBuffers
	}
	free <- b
	return nil
}

// PopBuffer waits up to timeout for a completed buffer. Returns nil on
// timeout or when no buffers were ever allocated.
func (s *Stream) PopBuffer(timeout time.Duration) *Buffer {
	s.mu.Lock()
	completed := s.completed
	s.mu.Unlock()

	if completed == nil {
		return nil
	}
	select {
	case b := <-completed:
		return b
	case <-time.After(timeout):
		return nil
	}
}

// TryPopBuffer returns a completed buffer or nil without blocking.
func (s *Stream) TryPopBuffer() *Buffer {
	s.mu.Lock()
	completed := s.completed
	s.mu.Unlock()

	if completed == nil {
		return nil
	}
	select {
	case b := <-completed:
		return b
	default:
		return nil
	}
}

// Start negotiates the capture format, enables streaming and spawns the
// acquisition loop. It returns only after the loop has begun polling
// the driver. A negotiation or stream-on failure leaves no goroutine
// behind. Starting an already running stream is a no-op.
func (s *Stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.bufs == nil {
		return ErrNoBuffers
	}

	format, err := s.dev.Negotiate()
	if err != nil {
		return fmt.Errorf("stream: negotiate: %w", err)
	}

	if err = s.dev.StreamOn(); err != nil {
		return fmt.Errorf("stream: stream on: %w", err)
	}

	s.format = format
	s.frameID = 0
	s.cancel.Store(false)
	s.done = make(chan struct{})

	started := make(chan struct{})
	go s.run(started)
	<-started

	s.running = true
	return nil
}

// Stop raises the cancellation flag and joins the acquisition loop,
// then disables streaming. The loop observes the flag only at the top
// of an iteration, so Stop can block for up to waitTimeout. Stopping a
// stopped stream is a no-op.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cancel.Store(true)
	<-s.done
	s.running = false

	if err := s.dev.StreamOff(); err != nil {
		return fmt.Errorf("stream: stream off: %w", err)
	}
	return nil
}

// run is the acquisition loop. inflight is the slot to buffer
// association for the current session; it is owned by this goroutine
// and rebuilt every Start.
func (s *Stream) run(started chan<- struct{}) {
	defer close(s.done)

	s.log.Debug().Msg("[stream] acquisition start")

	if s.callback != nil {
		s.callback(CallbackInit, nil)
	}

	inflight := make(map[uint32]*Buffer, len(s.bufs))

	close(started)

	for !s.cancel.Load() {
		// submit every currently available free buffer, never block here
	submit:
		for {
			select {
			case b := <-s.free:
				// drop metadata from a previous completion so a
				// republished buffer is never mistaken for a frame
				b.Status = StatusUnknown
				if err := s.dev.QueueBuffer(b.slot); err != nil {
					s.log.Warn().Err(err).Uint32("slot", b.slot).Msg("[stream] queue buffer")
					b.Status = StatusFailed
					s.stats.failures.Add(1)
					s.completed <- b
					continue
				}
				inflight[b.slot] = b
			default:
				break submit
			}
		}

		ready, err := s.dev.WaitFrame(waitTimeout)
		if err != nil {
			s.log.Warn().Err(err).Msg("[stream] wait frame")
			continue
		}
		if !ready {
			if len(inflight) == 0 {
				s.stats.underruns.Add(1)
			}
			continue
		}

		done, err := s.dev.DequeueBuffer()
		if err != nil {
			s.log.Warn().Err(err).Msg("[stream] dequeue buffer")
			s.stats.failures.Add(1)
			continue
		}

		b, ok := inflight[done.Slot]
		if !ok {
			s.log.Warn().Uint32("slot", done.Slot).Msg("[stream] no buffer for slot")
			s.stats.underruns.Add(1)
			continue
		}
		delete(inflight, done.Slot)

		b.Status = StatusSuccess
		b.FrameID = s.frameID
		s.frameID++
		b.Timestamp = done.Timestamp
		b.SystemTimestamp = time.Now().UnixNano()
		b.Size = done.Bytes
		b.Parts = append(b.Parts[:0], ImagePart{
			PixelFormat: s.format.PixelFormat,
			Width:       s.format.Width,
			Height:      s.format.Height,
		})

		s.stats.completed.Add(1)
		s.stats.transferred.Add(uint64(done.Bytes))

		s.completed <- b

		if s.callback != nil {
			s.callback(CallbackBufferDone, b)
		}
	}

	// republish everything still tracked so no buffer outlives the
	// session inside the association table
	for slot, b := range inflight {
		delete(inflight, slot)
		b.Status = StatusAborted
		s.completed <- b
	}

	if s.callback != nil {
		s.callback(CallbackExit, nil)
	}

	s.log.Debug().Msg("[stream] acquisition stop")
}
