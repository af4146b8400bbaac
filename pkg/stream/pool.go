package stream

import "fmt"

// CreateBuffers requests n memory-mapped buffer slots from the driver,
// wraps every mapped region through factory and pushes the resulting
// buffers onto the free queue. The driver may grant fewer slots than
// requested. On a per-slot failure the already mapped regions are left
// mapped; the caller is expected to tear the whole session down.
func (s *Stream) CreateBuffers(n uint32, factory BufferFactory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrStreaming
	}
	if s.bufs != nil {
		return fmt.Errorf("stream: buffers already allocated")
	}

	granted, err := s.dev.RequestBuffers(n)
	if err != nil {
		return fmt.Errorf("stream: request buffers: %w", err)
	}
	if granted == 0 {
		return fmt.Errorf("stream: driver granted no buffers")
	}

	free := make(chan *Buffer, granted)

	for slot := uint32(0); slot < granted; slot++ {
		offset, length, err := s.dev.QueryBuffer(slot)
		if err != nil {
			return fmt.Errorf("stream: query buffer %d: %w", slot, err)
		}

		data, err := s.dev.MapBuffer(offset, length)
		if err != nil {
			return fmt.Errorf("stream: map buffer %d: %w", slot, err)
		}

		var b *Buffer
		if factory != nil {
			b = factory(data)
		}
		if b == nil {
			b = NewBuffer(data, nil)
		}
		b.slot = slot

		s.maps = append(s.maps, data)
		s.bufs = append(s.bufs, b)
		free <- b
	}

	s.free = free
	s.completed = make(chan *Buffer, granted)

	s.log.Info().Uint32("count", granted).Msg("[stream] created mmap buffers")
	return nil
}

// ReleaseBuffers unmaps every buffer region, fires the per-buffer
// release callbacks and returns the slots to the driver. Idempotent.
// The stream must be stopped first.
func (s *Stream) ReleaseBuffers() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrStreaming
	}
	if s.bufs == nil {
		return nil
	}

	for slot, data := range s.maps {
		if err := s.dev.UnmapBuffer(data); err != nil {
			s.log.Warn().Err(err).Int("slot", slot).Msg("[stream] unmap buffer")
		}
	}
	for _, b := range s.bufs {
		b.Data = nil
		if b.release != nil {
			b.release()
		}
	}

	s.bufs = nil
	s.maps = nil
	s.free = nil
	s.completed = nil

	if _, err := s.dev.RequestBuffers(0); err != nil {
		return fmt.Errorf("stream: release buffers: %w", err)
	}
	return nil
}
