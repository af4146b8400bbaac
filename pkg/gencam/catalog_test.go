package gencam

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gencam/gencam/pkg/v4l2/device"
)

// fakeFormatSource plays the driver side of format negotiation.
type fakeFormatSource struct {
	formats []device.FmtDesc
	sizes   map[uint32][]device.FrameSize

	enumErr error
	setErr  error
	getErr  error

	lastSet *device.PixFormat
}

func (f *fakeFormatSource) EnumFormats() ([]device.FmtDesc, error) {
	return f.formats, f.enumErr
}

func (f *fakeFormatSource) EnumFrameSizes(fourCC uint32) ([]device.FrameSize, error) {
	return f.sizes[fourCC], nil
}

func (f *fakeFormatSource) SetFormat(pf *device.PixFormat) error {
	if f.setErr != nil {
		return f.setErr
	}
	// drivers report a stride and image size with the accepted format
	pf.BytesPerLine = pf.Width * 2
	pf.SizeImage = pf.Width * pf.Height * 2
	cp := *pf
	f.lastSet = &cp
	return nil
}

func (f *fakeFormatSource) GetFormat() (*device.PixFormat, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	cp := *f.lastSet
	return &cp, nil
}

var (
	fccRGB24 = device.FourCC('R', 'G', 'B', '3')
	fccYUYV  = device.FourCC('Y', 'U', 'Y', 'V')
	fccMJPG  = device.FourCC('M', 'J', 'P', 'G') // no abstract mapping
)

func newFakeFormatSource() *fakeFormatSource {
	return &fakeFormatSource{
		formats: []device.FmtDesc{
			{FourCC: fccRGB24, Description: "24-bit RGB"},
			{FourCC: fccMJPG, Description: "Motion-JPEG"},
			{FourCC: fccYUYV, Description: "YUYV 4:2:2"},
		},
		sizes: map[uint32][]device.FrameSize{
			fccRGB24: {
				{Discrete: true, Width: 640, Height: 480},
				{Discrete: true, Width: 320, Height: 240},
			},
			fccYUYV: {
				{MinWidth: 160, MaxWidth: 1280, StepWidth: 16,
					MinHeight: 120, MaxHeight: 720, StepHeight: 8},
			},
		},
	}
}

func newTestCatalog(t *testing.T) (*Catalog, *fakeFormatSource) {
	t.Helper()
	dev := newFakeFormatSource()
	c, err := NewCatalog(dev, zerolog.Nop())
	require.NoError(t, err)
	return c, dev
}

func TestCatalogEnumerate(t *testing.T) {
	c, _ := newTestCatalog(t)

	entries := c.Entries()
	require.Len(t, entries, 3)

	require.Equal(t, uint32(PixelFormatRGB8Packed), entries[0].Abstract)
	require.True(t, entries[0].Valid())

	// unmapped natives stay in place so later indexes never shift
	require.False(t, entries[1].Valid())
	require.Equal(t, fccMJPG, entries[1].Native)

	require.Equal(t, uint32(PixelFormatYUV422Packed), entries[2].Abstract)

	// first mapped entry with its first reported size is active
	active, ok := c.Active()
	require.True(t, ok)
	require.Equal(t, fccRGB24, active.Native)
	w, h := active.Size.Max()
	require.Equal(t, uint32(640), w)
	require.Equal(t, uint32(480), h)

	// sensor bounds span every size of every mapped format
	w, h = c.SensorSize()
	require.Equal(t, uint32(1280), w)
	require.Equal(t, uint32(720), h)
}

func TestCatalogEnumerateFailure(t *testing.T) {
	dev := newFakeFormatSource()
	dev.enumErr = errors.New("EIO")

	_, err := NewCatalog(dev, zerolog.Nop())
	require.ErrorIs(t, err, ErrDeviceIO)
}

func TestCatalogSelect(t *testing.T) {
	c, _ := newTestCatalog(t)

	require.NoError(t, c.Select(fccYUYV))
	active, _ := c.Active()
	require.Equal(t, fccYUYV, active.Native)

	// unmapped and unknown natives are both rejected without
	// disturbing the active entry
	require.ErrorIs(t, c.Select(fccMJPG), ErrInvalidFormat)
	require.ErrorIs(t, c.Select(device.FourCC('N', 'V', '1', '2')), ErrInvalidFormat)
	active, _ = c.Active()
	require.Equal(t, fccYUYV, active.Native)
}

func TestCatalogSelectAbstract(t *testing.T) {
	c, _ := newTestCatalog(t)

	require.NoError(t, c.SelectAbstract(PixelFormatYUV422Packed))
	active, _ := c.Active()
	require.Equal(t, fccYUYV, active.Native)

	require.ErrorIs(t, c.SelectAbstract(0xdeadbeef), ErrInvalidFormat)
	active, _ = c.Active()
	require.Equal(t, fccYUYV, active.Native)
}

func TestCatalogNegotiate(t *testing.T) {
	c, dev := newTestCatalog(t)
	require.NoError(t, c.SelectAbstract(PixelFormatYUV422Packed))

	pf, err := c.Negotiate()
	require.NoError(t, err)

	// stepwise sizes resolve to their upper bound
	require.Equal(t, fccYUYV, dev.lastSet.FourCC)
	require.Equal(t, uint32(1280), pf.Width)
	require.Equal(t, uint32(720), pf.Height)
	require.Equal(t, uint32(1280*720*2), pf.SizeImage)
}

func TestCatalogNegotiateFailure(t *testing.T) {
	c, dev := newTestCatalog(t)
	dev.setErr = errors.New("EBUSY")

	_, err := c.Negotiate()
	require.ErrorIs(t, err, ErrDeviceIO)
}

func TestFeatureXML(t *testing.T) {
	c, _ := newTestCatalog(t)

	xml := featureXML(c)
	require.Contains(t, xml, `<Enumeration Name="PixelFormat"`)
	require.Contains(t, xml, `"24-bit RGB"`)
	require.Contains(t, xml, `"YUYV 4:2:2"`)
	require.NotContains(t, xml, "Motion-JPEG")
	require.Contains(t, xml, "<Value>35127316</Value>") // RGB8Packed
	require.Contains(t, xml, "SensorWidth")
	require.Contains(t, xml, "<Value>1280</Value>")
}
