package device

type Capability struct {
	Driver       string
	Card         string
	BusInfo      string
	Version      string
	Capabilities uint32
}

func (c *Capability) VideoCapture() bool {
	return c.Capabilities&V4L2_CAP_VIDEO_CAPTURE != 0
}

func (c *Capability) Streaming() bool {
	return c.Capabilities&V4L2_CAP_STREAMING != 0
}

type FmtDesc struct {
	FourCC      uint32
	Description string
}

type FrameSize struct {
	Discrete bool

	Width  uint32
	Height uint32

	MinWidth   uint32
	MaxWidth   uint32
	StepWidth  uint32
	MinHeight  uint32
	MaxHeight  uint32
	StepHeight uint32
}

// Max resolves a frame size to a single width/height pair: the value
// itself for discrete sizes, the upper bound for stepwise ranges.
func (fs FrameSize) Max() (width, height uint32) {
	if fs.Discrete {
		return fs.Width, fs.Height
	}
	return fs.MaxWidth, fs.MaxHeight
}

type PixFormat struct {
	Width        uint32
	Height       uint32
	FourCC       uint32
	Field        uint32
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   uint32
}

type Done struct {
	Index     uint32
	Bytes     uint32
	Sequence  uint32
	Timestamp int64 // device clock, nanoseconds
}
