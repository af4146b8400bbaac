package device

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestSize(t *testing.T) {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		require.Equal(t, 104, int(unsafe.Sizeof(v4l2_capability{})))
		require.Equal(t, 64, int(unsafe.Sizeof(v4l2_fmtdesc{})))
		require.Equal(t, 44, int(unsafe.Sizeof(v4l2_frmsizeenum{})))
		require.Equal(t, 208, int(unsafe.Sizeof(v4l2_format{})))
		require.Equal(t, 20, int(unsafe.Sizeof(v4l2_requestbuffers{})))
		require.Equal(t, 88, int(unsafe.Sizeof(v4l2_buffer{})))
		require.Equal(t, 16, int(unsafe.Sizeof(v4l2_timecode{})))
	case "386", "arm":
		require.Equal(t, 104, int(unsafe.Sizeof(v4l2_capability{})))
		require.Equal(t, 64, int(unsafe.Sizeof(v4l2_fmtdesc{})))
		require.Equal(t, 44, int(unsafe.Sizeof(v4l2_frmsizeenum{})))
		require.Equal(t, 204, int(unsafe.Sizeof(v4l2_format{})))
		require.Equal(t, 20, int(unsafe.Sizeof(v4l2_requestbuffers{})))
		require.Equal(t, 68, int(unsafe.Sizeof(v4l2_buffer{})))
		require.Equal(t, 16, int(unsafe.Sizeof(v4l2_timecode{})))
	}
}

func TestBufferOffsets(t *testing.T) {
	b := v4l2_buffer{}

	require.Equal(t, uintptr(8), unsafe.Offsetof(b.bytesused))
	require.Equal(t, uintptr(16), unsafe.Offsetof(b.field))

	switch runtime.GOARCH {
	case "amd64", "arm64":
		require.Equal(t, uintptr(24), unsafe.Offsetof(b.tv_sec))
		require.Equal(t, uintptr(40), unsafe.Offsetof(b.timecode))
		require.Equal(t, uintptr(64), unsafe.Offsetof(b.offset))
		require.Equal(t, uintptr(72), unsafe.Offsetof(b.length))
	case "386", "arm":
		require.Equal(t, uintptr(20), unsafe.Offsetof(b.tv_sec))
		require.Equal(t, uintptr(28), unsafe.Offsetof(b.timecode))
		require.Equal(t, uintptr(52), unsafe.Offsetof(b.offset))
		require.Equal(t, uintptr(56), unsafe.Offsetof(b.length))
	}
}

func TestFourCC(t *testing.T) {
	yuyv := FourCC('Y', 'U', 'Y', 'V')
	require.Equal(t, uint32(0x56595559), yuyv)
	require.Equal(t, "YUYV", FourCCString(yuyv))
}
