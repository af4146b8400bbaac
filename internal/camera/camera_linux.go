//go:build linux && (386 || arm || amd64 || arm64)

// Package camera owns the configured capture devices: it opens one
// gencam session per `cameras:` config entry and exposes them over the
// HTTP and websocket APIs.
package camera

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gencam/gencam/internal/api"
	"github.com/gencam/gencam/internal/api/ws"
	"github.com/gencam/gencam/internal/app"
	"github.com/gencam/gencam/pkg/gencam"
	"github.com/gencam/gencam/pkg/stream"
)

func Init() {
	var cfg struct {
		Mod map[string]string `yaml:"cameras"`

		Camera struct {
			Buffers uint32 `yaml:"buffers"`
		} `yaml:"camera"`
	}

	app.LoadConfig(&cfg)

	log = app.GetLogger("camera")

	if cfg.Camera.Buffers > 0 {
		bufferCount = cfg.Camera.Buffers
	}

	for name, path := range cfg.Mod {
		cam, err := open(name, path)
		if err != nil {
			log.Error().Err(err).Str("name", name).Str("path", path).Msg("[camera] open")
			continue
		}
		mu.Lock()
		cameras[name] = cam
		mu.Unlock()
	}

	api.HandleFunc("api/cameras", apiCameras)
	api.HandleFunc("api/cameras/snapshot", apiSnapshot)
	api.HandleFunc("api/cameras/register", apiRegister)
	api.HandleFunc("api/cameras/xml", apiXML)
	api.HandleFunc("api/v4l2", apiV4L2)

	ws.HandleFunc("frames", wsFrames)
}

// Shutdown stops acquisition and closes every device.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()

	for name, cam := range cameras {
		if err := cam.dev.Close(); err != nil {
			log.Warn().Err(err).Str("name", name).Msg("[camera] close")
		}
		delete(cameras, name)
	}
}

// Get returns a configured camera by name, nil when unknown.
func Get(name string) *Camera {
	mu.Lock()
	defer mu.Unlock()
	return cameras[name]
}

var (
	log zerolog.Logger

	mu      sync.Mutex
	cameras = map[string]*Camera{}

	// pool size for every session, `camera: buffers:` overrides
	bufferCount = uint32(4)
)

// Camera is one configured device with its acquisition refcount. The
// hardware streams while at least one consumer holds an acquire.
type Camera struct {
	ID   string
	Name string
	Path string

	dev *gencam.Device

	acqMu     sync.Mutex
	acquirers int
}

func open(name, path string) (*Camera, error) {
	dev, err := gencam.Open(path, log)
	if err != nil {
		return nil, err
	}

	return &Camera{
		ID:   uuid.NewString(),
		Name: name,
		Path: path,
		dev:  dev,
	}, nil
}

// acquire starts acquisition for one more consumer, allocating the
// buffer pool on first use. Acquisition is driven through the command
// register, same as an external control client would.
func (c *Camera) acquire() error {
	c.acqMu.Lock()
	defer c.acqMu.Unlock()

	if !c.dev.Stream().Allocated() {
		if err := c.dev.Stream().CreateBuffers(bufferCount, nil); err != nil {
			return err
		}
	}

	if c.acquirers == 0 {
		if err := c.dev.WriteRegister(gencam.RegAcquisitionCommand, 1); err != nil {
			return err
		}
	}

	c.acquirers++
	return nil
}

func (c *Camera) release() {
	c.acqMu.Lock()
	defer c.acqMu.Unlock()

	if c.acquirers == 0 {
		return
	}
	if c.acquirers--; c.acquirers == 0 {
		if err := c.dev.WriteRegister(gencam.RegAcquisitionCommand, 0); err != nil {
			log.Warn().Err(err).Str("name", c.Name).Msg("[camera] stop acquisition")
		}
	}
}

// Frame is one captured image detached from the buffer pool.
type Frame struct {
	Data        []byte
	FrameID     uint64
	Timestamp   int64
	PixelFormat uint32
	Width       uint32
	Height      uint32
}

// Snapshot captures a single frame, starting and stopping acquisition
// around it when nothing else is streaming. Failed buffers are recycled
// and the wait continues until the deadline.
func (c *Camera) Snapshot(timeout time.Duration) (*Frame, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	s := c.dev.Stream()
	deadline := time.Now().Add(timeout)

	for {
		b := s.PopBuffer(time.Until(deadline))
		if b == nil {
			return nil, fmt.Errorf("camera: no frame from %s within %s", c.Path, timeout)
		}

		var frame *Frame
		if b.Status == stream.StatusSuccess && len(b.Parts) > 0 {
			data := make([]byte, b.Size)
			copy(data, b.Data)
			frame = &Frame{
				Data:        data,
				FrameID:     b.FrameID,
				Timestamp:   b.Timestamp,
				PixelFormat: b.Parts[0].PixelFormat,
				Width:       b.Parts[0].Width,
				Height:      b.Parts[0].Height,
			}
		}

		if err := s.PushBuffer(b); err != nil {
			return nil, err
		}

		if frame != nil {
			return frame, nil
		}
		if time.Now().After(deadline) {
			return nil, errors.New("camera: only failed frames before deadline")
		}
	}
}
