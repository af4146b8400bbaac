//go:build linux

// Package device is a thin wrapper around the V4L2 video capture API.
// It covers capability queries, format negotiation and memory-mapped
// streaming I/O. Everything above it works with these wrappers only and
// never touches ioctl numbers directly.
package device

import (
	"bytes"
	"errors"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

type Device struct {
	fd int
}

func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", path, err)
	}
	return &Device{fd: fd}, nil
}

func (d *Device) Fd() int {
	return d.fd
}

func (d *Device) Close() error {
	return unix.Close(d.fd)
}

func (d *Device) Capability() (*Capability, error) {
	c := v4l2_capability{}
	if err := d.ioctl(VIDIOC_QUERYCAP, unsafe.Pointer(&c)); err != nil {
		return nil, err
	}
	return &Capability{
		Driver:       str(c.driver[:]),
		Card:         str(c.card[:]),
		BusInfo:      str(c.bus_info[:]),
		Version:      fmt.Sprintf("%d.%d.%d", byte(c.version>>16), byte(c.version>>8), byte(c.version)),
		Capabilities: c.capabilities,
	}, nil
}

// EnumFormats lists every native pixel format the driver reports for
// video capture. The driver ends the enumeration with EINVAL.
func (d *Device) EnumFormats() ([]FmtDesc, error) {
	var items []FmtDesc

	for i := uint32(0); ; i++ {
		fd := v4l2_fmtdesc{
			index: i,
			typ:   V4L2_BUF_TYPE_VIDEO_CAPTURE,
		}
		if err := d.ioctl(VIDIOC_ENUM_FMT, unsafe.Pointer(&fd)); err != nil {
			if !errors.Is(err, unix.EINVAL) {
				return nil, err
			}
			break
		}

		items = append(items, FmtDesc{
			FourCC:      fd.pixelformat,
			Description: str(fd.description[:]),
		})
	}

	return items, nil
}

func (d *Device) EnumFrameSizes(fourCC uint32) ([]FrameSize, error) {
	var items []FrameSize

	for i := uint32(0); ; i++ {
		fs := v4l2_frmsizeenum{
			index:        i,
			pixel_format: fourCC,
		}
		if err := d.ioctl(VIDIOC_ENUM_FRAMESIZES, unsafe.Pointer(&fs)); err != nil {
			if !errors.Is(err, unix.EINVAL) {
				return nil, err
			}
			break
		}

		if fs.typ == V4L2_FRMSIZE_TYPE_DISCRETE {
			discrete := (*v4l2_frmsize_discrete)(unsafe.Pointer(&fs.union[0]))
			items = append(items, FrameSize{
				Discrete: true,
				Width:    discrete.width,
				Height:   discrete.height,
			})
		} else {
			// continuous sizes are stepwise with step 1
			stepwise := (*v4l2_frmsize_stepwise)(unsafe.Pointer(&fs.union[0]))
			items = append(items, FrameSize{
				MinWidth:   stepwise.min_width,
				MaxWidth:   stepwise.max_width,
				StepWidth:  stepwise.step_width,
				MinHeight:  stepwise.min_height,
				MaxHeight:  stepwise.max_height,
				StepHeight: stepwise.step_height,
			})
		}
	}

	return items, nil
}

// SetFormat pushes the desired capture format and updates pf with the
// driver's authoritative answer, which may differ from the request.
func (d *Device) SetFormat(pf *PixFormat) error {
	f := v4l2_format{
		typ: V4L2_BUF_TYPE_VIDEO_CAPTURE,
		pix: v4l2_pix_format{
			width:       pf.Width,
			height:      pf.Height,
			pixelformat: pf.FourCC,
			field:       pf.Field,
			colorspace:  V4L2_COLORSPACE_DEFAULT,
		},
	}
	if err := d.ioctl(VIDIOC_S_FMT, unsafe.Pointer(&f)); err != nil {
		return err
	}
	*pf = pixFormat(&f.pix)
	return nil
}

func (d *Device) GetFormat() (*PixFormat, error) {
	f := v4l2_format{typ: V4L2_BUF_TYPE_VIDEO_CAPTURE}
	if err := d.ioctl(VIDIOC_G_FMT, unsafe.Pointer(&f)); err != nil {
		return nil, err
	}
	pf := pixFormat(&f.pix)
	return &pf, nil
}

// RequestBuffers asks the driver for n memory-mapped buffer slots and
// returns the granted count, which may be lower than requested.
func (d *Device) RequestBuffers(n uint32) (uint32, error) {
	rb := v4l2_requestbuffers{
		count:  n,
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	if err := d.ioctl(VIDIOC_REQBUFS, unsafe.Pointer(&rb)); err != nil {
		return 0, err
	}
	return rb.count, nil
}

func (d *Device) QueryBuffer(index uint32) (offset, length uint32, err error) {
	qb := v4l2_buffer{
		index:  index,
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	if err = d.ioctl(VIDIOC_QUERYBUF, unsafe.Pointer(&qb)); err != nil {
		return 0, 0, err
	}
	return qb.offset, qb.length, nil
}

func (d *Device) MapBuffer(offset, length uint32) ([]byte, error) {
	return unix.Mmap(d.fd, int64(offset), int(length),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func (d *Device) UnmapBuffer(data []byte) error {
	return unix.Munmap(data)
}

func (d *Device) QueueBuffer(index uint32) error {
	qb := v4l2_buffer{
		index:  index,
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	return d.ioctl(VIDIOC_QBUF, unsafe.Pointer(&qb))
}

func (d *Device) DequeueBuffer() (*Done, error) {
	dq := v4l2_buffer{
		typ:    V4L2_BUF_TYPE_VIDEO_CAPTURE,
		memory: V4L2_MEMORY_MMAP,
	}
	if err := d.ioctl(VIDIOC_DQBUF, unsafe.Pointer(&dq)); err != nil {
		return nil, err
	}
	return &Done{
		Index:     dq.index,
		Bytes:     dq.bytesused,
		Sequence:  dq.sequence,
		Timestamp: int64(dq.tv_sec)*1e9 + int64(dq.tv_usec)*1e3,
	}, nil
}

func (d *Device) StreamOn() error {
	typ := uint32(V4L2_BUF_TYPE_VIDEO_CAPTURE)
	return d.ioctl(VIDIOC_STREAMON, unsafe.Pointer(&typ))
}

func (d *Device) StreamOff() error {
	typ := uint32(V4L2_BUF_TYPE_VIDEO_CAPTURE)
	return d.ioctl(VIDIOC_STREAMOFF, unsafe.Pointer(&typ))
}

// WaitFrame blocks until the driver has a completed buffer or the
// timeout expires. Returns false on timeout. EINTR is retried.
func (d *Device) WaitFrame(timeout time.Duration) (bool, error) {
	for {
		fds := &unix.FdSet{}
		fds.Set(d.fd)

		tv := unix.NsecToTimeval(timeout.Nanoseconds())

		n, err := unix.Select(d.fd+1, fds, nil, nil, &tv)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
}

func (d *Device) ioctl(req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func str(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

func pixFormat(pix *v4l2_pix_format) PixFormat {
	return PixFormat{
		Width:        pix.width,
		Height:       pix.height,
		FourCC:       pix.pixelformat,
		Field:        pix.field,
		BytesPerLine: pix.bytesperline,
		SizeImage:    pix.sizeimage,
		Colorspace:   pix.colorspace,
	}
}
