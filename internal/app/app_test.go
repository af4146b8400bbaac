package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConfString(t *testing.T) {
	require.Nil(t, parseConfString("gencam.yaml"))
	require.Nil(t, parseConfString("level=trace"))

	data := parseConfString("log.level=trace")
	require.Equal(t, "{log: {level: trace}}", string(data))

	data = parseConfString("cameras.cam1=/dev/video0")
	require.Equal(t, "{cameras: {cam1: /dev/video0}}", string(data))
}

func TestLoadConfigOrder(t *testing.T) {
	configs = [][]byte{
		[]byte("api:\n  listen: :1984\nlog:\n  level: info\n"),
		[]byte("{log: {level: trace}}"),
	}
	t.Cleanup(func() { configs = nil })

	var cfg struct {
		API struct {
			Listen string `yaml:"listen"`
		} `yaml:"api"`
		Log map[string]string `yaml:"log"`
	}
	LoadConfig(&cfg)

	// later sources override earlier ones
	require.Equal(t, ":1984", cfg.API.Listen)
	require.Equal(t, "trace", cfg.Log["level"])
}

func TestMemoryLog(t *testing.T) {
	m := newMemoryLog(2)

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	require.Empty(t, buf.Bytes())

	_, _ = m.Write([]byte("one\n"))
	_, _ = m.Write([]byte("two\n"))
	_, _ = m.Write([]byte("three\n"))

	// the oldest line is overwritten
	buf.Reset()
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, "two\nthree\n", buf.String())

	m.Reset()
	buf.Reset()
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	require.Empty(t, buf.Bytes())
}
