//go:build linux && (386 || arm || amd64 || arm64)

package camera

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gencam/gencam/internal/api"
	"github.com/gencam/gencam/pkg/gencam"
	"github.com/gencam/gencam/pkg/stream"
	"github.com/gencam/gencam/pkg/v4l2/device"
)

type formatInfo struct {
	Native   string `json:"native"`
	Abstract string `json:"abstract,omitempty"`
	Name     string `json:"name"`
	Width    uint32 `json:"width,omitempty"`
	Height   uint32 `json:"height,omitempty"`
	Active   bool   `json:"active,omitempty"`
}

type cameraInfo struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Path         string            `json:"path"`
	Driver       string            `json:"driver"`
	Card         string            `json:"card"`
	Version      string            `json:"version"`
	SensorWidth  uint32            `json:"sensor_width"`
	SensorHeight uint32            `json:"sensor_height"`
	Formats      []formatInfo      `json:"formats"`
	Running      bool              `json:"running"`
	Stats        stream.Statistics `json:"stats"`
}

func info(c *Camera) *cameraInfo {
	caps := c.dev.Capability()
	w, h := c.dev.SensorSize()

	ci := &cameraInfo{
		ID:           c.ID,
		Name:         c.Name,
		Path:         c.Path,
		Driver:       caps.Driver,
		Card:         caps.Card,
		Version:      caps.Version,
		SensorWidth:  w,
		SensorHeight: h,
		Running:      c.dev.Stream().Running(),
		Stats:        c.dev.Stream().Stats(),
	}

	active, _ := c.dev.Catalog().Active()

	for _, e := range c.dev.Catalog().Entries() {
		fi := formatInfo{
			Native: device.FourCCString(e.Native),
			Name:   e.Name,
		}
		if e.Valid() {
			fi.Abstract = fmt.Sprintf("0x%08x", e.Abstract)
			fi.Width, fi.Height = e.Size.Max()
			fi.Active = e.Native == active.Native
		}
		ci.Formats = append(ci.Formats, fi)
	}

	return ci
}

func apiCameras(w http.ResponseWriter, r *http.Request) {
	if src := r.URL.Query().Get("src"); src != "" {
		cam := Get(src)
		if cam == nil {
			http.Error(w, "camera not found", http.StatusNotFound)
			return
		}
		api.ResponseJSON(w, info(cam))
		return
	}

	mu.Lock()
	items := make([]*cameraInfo, 0, len(cameras))
	for _, cam := range cameras {
		items = append(items, info(cam))
	}
	mu.Unlock()

	api.ResponseJSON(w, items)
}

func apiSnapshot(w http.ResponseWriter, r *http.Request) {
	cam := Get(r.URL.Query().Get("src"))
	if cam == nil {
		http.Error(w, "camera not found", http.StatusNotFound)
		return
	}

	timeout := 3 * time.Second
	if s := r.URL.Query().Get("timeout"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			timeout = d
		}
	}

	frame, err := cam.Snapshot(timeout)
	if err != nil {
		api.Error(w, err)
		return
	}

	w.Header().Set("X-Frame-Id", strconv.FormatUint(frame.FrameID, 10))
	w.Header().Set("X-Pixel-Format", fmt.Sprintf("0x%08x", frame.PixelFormat))
	w.Header().Set("X-Image-Size", fmt.Sprintf("%dx%d", frame.Width, frame.Height))
	api.Response(w, frame.Data, "application/octet-stream")
}

// apiRegister exposes raw register access for debugging control flows:
// GET  /api/cameras/register?src=cam1&addr=0x0100
// POST /api/cameras/register?src=cam1&addr=0x0128&value=0x0210001f
func apiRegister(w http.ResponseWriter, r *http.Request) {
	cam := Get(r.URL.Query().Get("src"))
	if cam == nil {
		http.Error(w, "camera not found", http.StatusNotFound)
		return
	}

	addr, err := strconv.ParseUint(r.URL.Query().Get("addr"), 0, 64)
	if err != nil {
		http.Error(w, "bad addr", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case "GET":
		value, err := cam.dev.ReadRegister(addr)
		if err != nil {
			registerError(w, err)
			return
		}
		api.ResponseJSON(w, map[string]any{
			"addr":  fmt.Sprintf("0x%04x", addr),
			"value": value,
		})

	case "POST":
		value, err := strconv.ParseUint(r.URL.Query().Get("value"), 0, 32)
		if err != nil {
			http.Error(w, "bad value", http.StatusBadRequest)
			return
		}
		if err = cam.dev.WriteRegister(addr, uint32(value)); err != nil {
			registerError(w, err)
			return
		}
		api.Response(w, "OK", api.MimeText)

	default:
		http.Error(w, "", http.StatusMethodNotAllowed)
	}
}

func registerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gencam.ErrInvalidAddress), errors.Is(err, gencam.ErrInvalidFormat):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		api.Error(w, err)
	}
}

func apiXML(w http.ResponseWriter, r *http.Request) {
	cam := Get(r.URL.Query().Get("src"))
	if cam == nil {
		http.Error(w, "camera not found", http.StatusNotFound)
		return
	}
	api.Response(w, cam.dev.FeatureXML(), "text/xml")
}

// apiV4L2 scans /dev for capture nodes and lists their formats, so a
// user can build the `cameras:` config section from real hardware.
func apiV4L2(w http.ResponseWriter, r *http.Request) {
	files, err := os.ReadDir("/dev")
	if err != nil {
		return
	}

	var sources []*api.Source

	for _, file := range files {
		if !strings.HasPrefix(file.Name(), "video") {
			continue
		}

		path := "/dev/" + file.Name()

		dev, err := gencam.Open(path, log)
		if err != nil {
			continue
		}

		for _, e := range dev.Catalog().Entries() {
			source := &api.Source{
				ID:       device.FourCCString(e.Native),
				Name:     e.Name,
				Location: path,
			}

			if e.Valid() {
				width, height := e.Size.Max()
				source.Info = fmt.Sprintf("%dx%d", width, height)
				source.URL = fmt.Sprintf("gencam:%s?format=0x%08x", path, e.Abstract)
			}

			sources = append(sources, source)
		}

		_ = dev.Close()
	}

	api.ResponseSources(w, sources)
}
