package gencam

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gencam/gencam/pkg/v4l2/device"
)

// FormatSource is the slice of the V4L2 device the catalog needs.
type FormatSource interface {
	EnumFormats() ([]device.FmtDesc, error)
	EnumFrameSizes(fourCC uint32) ([]device.FrameSize, error)
	SetFormat(pf *device.PixFormat) error
	GetFormat() (*device.PixFormat, error)
}

// Entry is one native pixel format with its abstract mapping and the
// first frame size the driver reported for it.
type Entry struct {
	Native   uint32
	Abstract uint32 // 0 when no mapping exists
	Name     string // driver description, used as display name
	Size     device.FrameSize
}

func (e Entry) Valid() bool {
	return e.Abstract != 0
}

// Catalog is the ordered set of native formats a device supports.
// Entry indexes are stable for the session lifetime; unmapped entries
// are retained so the indexes of later entries never shift. The active
// index, when set, always points at an entry with a valid mapping.
//
// The catalog is not safe for concurrent mutation; register traffic is
// expected to be serialized by the schema engine, and the documented
// precondition is that the format never changes while acquisition runs.
type Catalog struct {
	dev FormatSource
	log zerolog.Logger

	entries []Entry
	active  int // -1 when no entry is selectable

	sensorWidth  uint32
	sensorHeight uint32
}

// NewCatalog enumerates the device formats once. Natives without an
// abstract mapping are logged and kept; the first mapped entry becomes
// the initial active format.
func NewCatalog(dev FormatSource, log zerolog.Logger) (*Catalog, error) {
	c := &Catalog{dev: dev, log: log, active: -1}

	formats, err := dev.EnumFormats()
	if err != nil {
		return nil, fmt.Errorf("%w: enum formats: %w", ErrDeviceIO, err)
	}

	for i, f := range formats {
		entry := Entry{
			Native:   f.FourCC,
			Abstract: AbstractFormat(f.FourCC),
			Name:     f.Description,
		}

		if !entry.Valid() {
			log.Warn().Str("fourcc", device.FourCCString(f.FourCC)).
				Msg("[gencam] no abstract mapping for native format")
			c.entries = append(c.entries, entry)
			continue
		}

		sizes, err := dev.EnumFrameSizes(f.FourCC)
		if err != nil {
			return nil, fmt.Errorf("%w: enum frame sizes: %w", ErrDeviceIO, err)
		}

		for j, fs := range sizes {
			w, h := fs.Max()
			if w > c.sensorWidth {
				c.sensorWidth = w
			}
			if h > c.sensorHeight {
				c.sensorHeight = h
			}
			if j == 0 {
				entry.Size = fs
			}
		}

		if c.active < 0 {
			c.active = i
		}

		c.entries = append(c.entries, entry)
	}

	return c, nil
}

func (c *Catalog) Entries() []Entry {
	return c.entries
}

// SensorSize is the maximum width/height observed across every frame
// size of every mapped format.
func (c *Catalog) SensorSize() (width, height uint32) {
	return c.sensorWidth, c.sensorHeight
}

// Active returns the selected entry, false when nothing is selectable.
func (c *Catalog) Active() (Entry, bool) {
	if c.active < 0 {
		return Entry{}, false
	}
	return c.entries[c.active], true
}

// Select activates the first entry with the given native code. Entries
// without an abstract mapping are not selectable.
func (c *Catalog) Select(native uint32) error {
	for i, e := range c.entries {
		if e.Native != native {
			continue
		}
		if !e.Valid() {
			return fmt.Errorf("%w: native format %s has no abstract mapping",
				ErrInvalidFormat, device.FourCCString(native))
		}
		c.active = i
		return nil
	}
	return fmt.Errorf("%w: native format %s not in catalog",
		ErrInvalidFormat, device.FourCCString(native))
}

// SelectAbstract activates the first entry whose mapping equals code.
func (c *Catalog) SelectAbstract(code uint32) error {
	for i, e := range c.entries {
		if e.Valid() && e.Abstract == code {
			c.active = i
			return nil
		}
	}
	return fmt.Errorf("%w: abstract pixel format 0x%08x not in catalog",
		ErrInvalidFormat, code)
}

// Negotiate pushes the active entry to the driver as the desired
// capture format and returns the driver's authoritative answer, which
// may carry an adjusted stride or image size.
func (c *Catalog) Negotiate() (*device.PixFormat, error) {
	e, ok := c.Active()
	if !ok {
		return nil, fmt.Errorf("%w: no selectable pixel format", ErrInvalidFormat)
	}

	w, h := e.Size.Max()
	pf := device.PixFormat{
		Width:  w,
		Height: h,
		FourCC: e.Native,
		Field:  device.V4L2_FIELD_NONE,
	}
	if err := c.dev.SetFormat(&pf); err != nil {
		return nil, fmt.Errorf("%w: set format: %w", ErrDeviceIO, err)
	}

	got, err := c.dev.GetFormat()
	if err != nil {
		return nil, fmt.Errorf("%w: get format: %w", ErrDeviceIO, err)
	}
	return got, nil
}
