//go:build linux && (386 || arm || amd64 || arm64)

package camera

import (
	"errors"
	"time"

	"github.com/gencam/gencam/internal/api/ws"
	"github.com/gencam/gencam/pkg/stream"
)

// frameEvent is the per-frame metadata pushed to websocket clients.
// Payload bytes stay in the pool; clients pull pixels over the
// snapshot endpoint when they need them.
type frameEvent struct {
	Camera      string `json:"camera"`
	FrameID     uint64 `json:"frame_id"`
	Status      string `json:"status"`
	Size        uint32 `json:"size"`
	Timestamp   int64  `json:"timestamp"`
	SystemTime  int64  `json:"system_time"`
	PixelFormat uint32 `json:"pixel_format"`
	Width       uint32 `json:"width"`
	Height      uint32 `json:"height"`
}

// wsFrames subscribes a websocket client to completed frames of one
// camera: `{"type":"frames","value":"cam1"}`. Acquisition runs while
// at least one subscriber is connected.
func wsFrames(tr *ws.Transport, msg *ws.Message) error {
	name := msg.String()

	cam := Get(name)
	if cam == nil {
		return errors.New("camera: not found: " + name)
	}

	if err := cam.acquire(); err != nil {
		return err
	}

	done := make(chan struct{})
	tr.OnClose(func() {
		close(done)
		cam.release()
	})

	go func() {
		s := cam.dev.Stream()
		for {
			select {
			case <-done:
				return
			default:
			}

			b := s.PopBuffer(time.Second)
			if b == nil {
				continue
			}

			evt := frameEvent{
				Camera:     name,
				FrameID:    b.FrameID,
				Size:       b.Size,
				Timestamp:  b.Timestamp,
				SystemTime: b.SystemTimestamp,
				Status:     b.Status.String(),
			}
			if len(b.Parts) > 0 {
				evt.PixelFormat = b.Parts[0].PixelFormat
				evt.Width = b.Parts[0].Width
				evt.Height = b.Parts[0].Height
			}

			if err := s.PushBuffer(b); err != nil && !errors.Is(err, stream.ErrNoBuffers) {
				return
			}

			tr.Write(&ws.Message{Type: "frames", Value: evt})
		}
	}()

	return nil
}
