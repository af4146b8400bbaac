package gencam

// Abstract pixel format codes follow the GenICam pixel format naming
// convention values used by GigE Vision transports.
const (
	PixelFormatMono8        = 0x01080001
	PixelFormatRGB8Packed   = 0x02180014
	PixelFormatBGR8Packed   = 0x02180015
	PixelFormatYUV422Packed = 0x0210001f
)

const (
	fourccRGB24 = 'R' | 'G'<<8 | 'B'<<16 | '3'<<24
	fourccBGR24 = 'B' | 'G'<<8 | 'R'<<16 | '3'<<24
	fourccYUYV  = 'Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24
	fourccGREY  = 'G' | 'R'<<8 | 'E'<<16 | 'Y'<<24
)

// pixelFormats is the fixed native to abstract translation table.
// Natives not listed here stay in the catalog with code 0 and can
// never become the active format.
var pixelFormats = map[uint32]uint32{
	fourccRGB24: PixelFormatRGB8Packed,
	fourccBGR24: PixelFormatBGR8Packed,
	fourccYUYV:  PixelFormatYUV422Packed,
	fourccGREY:  PixelFormatMono8,
}

// AbstractFormat returns the abstract code for a native pixel format,
// or 0 when no mapping exists.
func AbstractFormat(native uint32) uint32 {
	return pixelFormats[native]
}
