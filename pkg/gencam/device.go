//go:build linux

package gencam

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gencam/gencam/pkg/stream"
	"github.com/gencam/gencam/pkg/v4l2/device"
)

// Device is one open capture session: the raw V4L2 handle, the format
// catalog built at open time, the virtual register map and the
// acquisition stream.
type Device struct {
	path    string
	dev     *device.Device
	cap     *device.Capability
	catalog *Catalog
	regs    registers
	stream  *stream.Stream
	log     zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open builds a session on a V4L2 capture node. Nodes that cannot be
// opened, fail the capability query or lack video capture all report
// ErrNotFound.
func Open(path string, log zerolog.Logger) (*Device, error) {
	dev, err := device.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	caps, err := dev.Capability()
	if err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("%w: %s is not a v4l2 device", ErrNotFound, path)
	}
	if !caps.VideoCapture() {
		_ = dev.Close()
		return nil, fmt.Errorf("%w: %s is not a video capture device", ErrNotFound, path)
	}

	d := &Device{path: path, dev: dev, cap: caps, log: log}

	if d.catalog, err = NewCatalog(dev, log); err != nil {
		_ = dev.Close()
		return nil, err
	}

	d.stream = stream.New(driver{d}, log)
	d.regs = registers{
		vendor:   caps.Driver,
		model:    caps.Card,
		version:  caps.Version,
		deviceID: path,
		catalog:  d.catalog,
		acq:      d.stream,
	}

	log.Info().Str("path", path).Str("card", caps.Card).Str("driver", caps.Driver).
		Msg("[gencam] device open")

	return d, nil
}

func (d *Device) Path() string {
	return d.path
}

func (d *Device) Capability() *device.Capability {
	return d.cap
}

func (d *Device) Catalog() *Catalog {
	return d.catalog
}

func (d *Device) Stream() *stream.Stream {
	return d.stream
}

func (d *Device) SensorSize() (width, height uint32) {
	return d.catalog.SensorSize()
}

// FeatureXML is the GenICam feature fragment for this device.
func (d *Device) FeatureXML() string {
	return featureXML(d.catalog)
}

func (d *Device) ReadMemory(addr uint64, buf []byte) error {
	return d.regs.ReadMemory(addr, buf)
}

func (d *Device) WriteMemory(addr uint64, data []byte) error {
	return d.regs.WriteMemory(addr, data)
}

func (d *Device) ReadRegister(addr uint64) (uint32, error) {
	return d.regs.ReadRegister(addr)
}

func (d *Device) WriteRegister(addr uint64, value uint32) error {
	return d.regs.WriteRegister(addr, value)
}

// Close stops acquisition, releases the buffer pool and closes the
// handle. Safe to call more than once; the descriptor is closed once.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		if err := d.stream.Stop(); err != nil {
			d.log.Warn().Err(err).Msg("[gencam] stop on close")
		}
		if err := d.stream.ReleaseBuffers(); err != nil {
			d.log.Warn().Err(err).Msg("[gencam] release on close")
		}
		d.closeErr = d.dev.Close()
	})
	return d.closeErr
}

// driver adapts the session to the streaming engine. Failed driver
// calls are classified as ErrDeviceIO so the kind survives the engine's
// own wrapping.
type driver struct {
	d *Device
}

func devErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrDeviceIO, err)
}

func (a driver) Negotiate() (stream.Format, error) {
	pf, err := a.d.catalog.Negotiate()
	if err != nil {
		return stream.Format{}, err
	}
	e, _ := a.d.catalog.Active()
	return stream.Format{
		PixelFormat: e.Abstract,
		Width:       pf.Width,
		Height:      pf.Height,
	}, nil
}

func (a driver) RequestBuffers(n uint32) (uint32, error) {
	granted, err := a.d.dev.RequestBuffers(n)
	return granted, devErr(err)
}

func (a driver) QueryBuffer(slot uint32) (uint32, uint32, error) {
	offset, length, err := a.d.dev.QueryBuffer(slot)
	return offset, length, devErr(err)
}

func (a driver) MapBuffer(offset, length uint32) ([]byte, error) {
	data, err := a.d.dev.MapBuffer(offset, length)
	return data, devErr(err)
}

func (a driver) UnmapBuffer(data []byte) error {
	return devErr(a.d.dev.UnmapBuffer(data))
}

func (a driver) QueueBuffer(slot uint32) error {
	return devErr(a.d.dev.QueueBuffer(slot))
}

func (a driver) DequeueBuffer() (stream.Done, error) {
	done, err := a.d.dev.DequeueBuffer()
	if err != nil {
		return stream.Done{}, devErr(err)
	}
	return stream.Done{
		Slot:      done.Index,
		Bytes:     done.Bytes,
		Timestamp: done.Timestamp,
	}, nil
}

func (a driver) WaitFrame(timeout time.Duration) (bool, error) {
	return a.d.dev.WaitFrame(timeout)
}

func (a driver) StreamOn() error {
	return devErr(a.d.dev.StreamOn())
}

func (a driver) StreamOff() error {
	return devErr(a.d.dev.StreamOff())
}
