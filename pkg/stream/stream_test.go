package stream

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeDriver simulates the kernel streaming side: slots become ready in
// whatever order the test delivers them, like real completion order.
type fakeDriver struct {
	mu       sync.Mutex
	ready    chan Done
	stash    []Done
	queued   []uint32
	queueErr map[uint32]error

	negotiateErr error
	format       Format

	streamOn  int
	streamOff int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		ready:  make(chan Done, 16),
		format: Format{PixelFormat: 0x01080001, Width: 640, Height: 480},
	}
}

func (f *fakeDriver) deliver(d Done) {
	f.ready <- d
}

func (f *fakeDriver) Negotiate() (Format, error) {
	if f.negotiateErr != nil {
		return Format{}, f.negotiateErr
	}
	return f.format, nil
}

func (f *fakeDriver) RequestBuffers(n uint32) (uint32, error) {
	return n, nil
}

func (f *fakeDriver) QueryBuffer(slot uint32) (uint32, uint32, error) {
	return slot * 4096, 4096, nil
}

func (f *fakeDriver) MapBuffer(offset, length uint32) ([]byte, error) {
	return make([]byte, length), nil
}

func (f *fakeDriver) UnmapBuffer([]byte) error {
	return nil
}

func (f *fakeDriver) QueueBuffer(slot uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.queueErr[slot]; err != nil {
		return err
	}
	f.queued = append(f.queued, slot)
	return nil
}

func (f *fakeDriver) queuedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queued)
}

// waitQueued blocks until the loop has submitted n buffers in total.
func (f *fakeDriver) waitQueued(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for f.queuedCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d queued buffers, got %d", n, f.queuedCount())
		}
		time.Sleep(time.Millisecond)
	}
}

func (f *fakeDriver) WaitFrame(time.Duration) (bool, error) {
	select {
	case d := <-f.ready:
		f.mu.Lock()
		f.stash = append(f.stash, d)
		f.mu.Unlock()
		return true, nil
	case <-time.After(20 * time.Millisecond):
		return false, nil
	}
}

func (f *fakeDriver) DequeueBuffer() (Done, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.stash) == 0 {
		return Done{}, errors.New("no frame ready")
	}
	d := f.stash[0]
	f.stash = f.stash[1:]
	return d, nil
}

func (f *fakeDriver) StreamOn() error {
	f.streamOn++
	return nil
}

func (f *fakeDriver) StreamOff() error {
	f.streamOff++
	return nil
}

func newTestStream(t *testing.T, dev *fakeDriver, n uint32) *Stream {
	t.Helper()
	s := New(dev, zerolog.Nop())
	require.NoError(t, s.CreateBuffers(n, nil))
	return s
}

func TestStartStop(t *testing.T) {
	dev := newFakeDriver()
	s := newTestStream(t, dev, 3)

	require.False(t, s.Running())

	require.NoError(t, s.Start())
	require.True(t, s.Running())
	require.Equal(t, 1, dev.streamOn)

	// second start is a no-op
	require.NoError(t, s.Start())
	require.Equal(t, 1, dev.streamOn)

	require.NoError(t, s.Stop())
	require.False(t, s.Running())
	require.Equal(t, 1, dev.streamOff)

	// second stop is a no-op
	require.NoError(t, s.Stop())
	require.Equal(t, 1, dev.streamOff)

	require.NoError(t, s.ReleaseBuffers())
}

func TestStartWithoutBuffers(t *testing.T) {
	s := New(newFakeDriver(), zerolog.Nop())
	require.ErrorIs(t, s.Start(), ErrNoBuffers)
	require.ErrorIs(t, s.PushBuffer(&Buffer{}), ErrNoBuffers)
}

func TestStartNegotiateFailure(t *testing.T) {
	dev := newFakeDriver()
	dev.negotiateErr = errors.New("EINVAL")

	s := newTestStream(t, dev, 2)
	require.Error(t, s.Start())
	require.False(t, s.Running())
	require.Equal(t, 0, dev.streamOn)
}

func TestFrameIDsGapless(t *testing.T) {
	dev := newFakeDriver()
	s := newTestStream(t, dev, 2)
	require.NoError(t, s.Start())

	// recycle two buffers through ten frames
	slot := uint32(0)
	for i := 0; i < 10; i++ {
		dev.waitQueued(t, 2+i)
		dev.deliver(Done{Slot: slot, Bytes: 100, Timestamp: int64(i) * 1000})
		b := s.PopBuffer(time.Second)
		require.NotNil(t, b)
		require.Equal(t, StatusSuccess, b.Status)
		require.Equal(t, uint64(i), b.FrameID)
		require.Equal(t, uint32(100), b.Size)
		require.Len(t, b.Parts, 1)
		require.Equal(t, uint32(640), b.Parts[0].Width)

		slot = b.slot
		require.NoError(t, s.PushBuffer(b))
	}

	require.NoError(t, s.Stop())

	stats := s.Stats()
	require.Equal(t, uint64(10), stats.Completed)
	require.Equal(t, uint64(1000), stats.Transferred)
}

func TestOrphanSlotDiscarded(t *testing.T) {
	dev := newFakeDriver()
	s := newTestStream(t, dev, 2)
	require.NoError(t, s.Start())

	dev.deliver(Done{Slot: 99, Bytes: 1})
	require.Nil(t, s.PopBuffer(100*time.Millisecond))

	// the loop keeps going after the orphan event
	dev.deliver(Done{Slot: 0, Bytes: 2})
	b := s.PopBuffer(time.Second)
	require.NotNil(t, b)
	require.Equal(t, uint64(0), b.FrameID)

	require.NoError(t, s.Stop())
	require.Equal(t, uint64(1), s.Stats().Underruns)
}

func TestQueueFailureMarksBufferFailed(t *testing.T) {
	dev := newFakeDriver()
	dev.queueErr = map[uint32]error{1: errors.New("EIO")}

	s := newTestStream(t, dev, 2)
	require.NoError(t, s.Start())

	b := s.PopBuffer(time.Second)
	require.NotNil(t, b)
	require.Equal(t, StatusFailed, b.Status)
	require.Equal(t, uint32(1), b.slot)

	require.NoError(t, s.Stop())
	require.Equal(t, uint64(1), s.Stats().Failures)
}

func TestStopRepublishesTrackedBuffers(t *testing.T) {
	dev := newFakeDriver()
	s := newTestStream(t, dev, 3)
	require.NoError(t, s.Start())

	// one frame completes, two slots stay in flight
	dev.deliver(Done{Slot: 2, Bytes: 10})
	b := s.PopBuffer(time.Second)
	require.NotNil(t, b)
	require.Equal(t, StatusSuccess, b.Status)

	require.NoError(t, s.Stop())

	// every buffer ever submitted must come back through the sink
	got := map[uint32]bool{b.slot: true}
	for i := 0; i < 2; i++ {
		b = s.TryPopBuffer()
		require.NotNil(t, b)
		got[b.slot] = true
	}
	require.Len(t, got, 3)
	require.Nil(t, s.TryPopBuffer())
}

func TestStopAbortsInflightBuffers(t *testing.T) {
	dev := newFakeDriver()
	s := newTestStream(t, dev, 1)
	require.NoError(t, s.Start())

	dev.waitQueued(t, 1)
	dev.deliver(Done{Slot: 0, Bytes: 42})
	b := s.PopBuffer(time.Second)
	require.NotNil(t, b)
	require.Equal(t, StatusSuccess, b.Status)
	require.Equal(t, uint32(42), b.Size)

	// recycle the buffer and stop while it is back in flight: the
	// republished buffer must not carry the old completion metadata
	require.NoError(t, s.PushBuffer(b))
	dev.waitQueued(t, 2)
	require.NoError(t, s.Stop())

	b = s.TryPopBuffer()
	require.NotNil(t, b)
	require.Equal(t, StatusAborted, b.Status)
}

func TestCallbackOrder(t *testing.T) {
	dev := newFakeDriver()
	s := newTestStream(t, dev, 1)

	var mu sync.Mutex
	var events []CallbackEvent
	s.SetCallback(func(event CallbackEvent, b *Buffer) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
		if event == CallbackBufferDone {
			require.NotNil(t, b)
		}
	})

	require.NoError(t, s.Start())
	dev.deliver(Done{Slot: 0, Bytes: 1})
	require.NotNil(t, s.PopBuffer(time.Second))
	require.NoError(t, s.Stop())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []CallbackEvent{CallbackInit, CallbackBufferDone, CallbackExit}, events)
}

func TestReleaseInvokesBufferRelease(t *testing.T) {
	dev := newFakeDriver()
	s := New(dev, zerolog.Nop())

	released := 0
	require.NoError(t, s.CreateBuffers(2, func(data []byte) *Buffer {
		return NewBuffer(data, func() { released++ })
	}))

	require.NoError(t, s.ReleaseBuffers())
	require.Equal(t, 2, released)

	// idempotent
	require.NoError(t, s.ReleaseBuffers())
	require.Equal(t, 2, released)
}
