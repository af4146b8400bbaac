package app

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

var Logger zerolog.Logger

// MemoryLog keeps the most recent log lines for the api/log endpoint.
var MemoryLog = newMemoryLog(1024)

// GetLogger returns the root logger, optionally clamped to a per-module
// level from the `log:` config section.
func GetLogger(module string) zerolog.Logger {
	if s, ok := modules[module]; ok {
		lvl, err := zerolog.ParseLevel(s)
		if err == nil {
			return Logger.Level(lvl)
		}
		Logger.Warn().Err(err).Caller().Send()
	}

	return Logger
}

// initLogger support:
// - output: empty (only to memory), stderr, stdout
// - format: empty (autodetect color support), color, json, text
// - time:   empty (disable timestamp), UNIXMS, UNIXMICRO, UNIXNANO
// - level:  disabled, trace, debug, info, warn, error...
func initLogger() {
	var cfg struct {
		Mod map[string]string `yaml:"log"`
	}

	cfg.Mod = modules // defaults

	LoadConfig(&cfg)

	var writer io.Writer

	switch modules["output"] {
	case "stderr":
		writer = os.Stderr
	case "stdout":
		writer = os.Stdout
	}

	timeFormat := modules["time"]

	if writer != nil {
		if format := modules["format"]; format != "json" {
			console := &zerolog.ConsoleWriter{Out: writer}

			switch format {
			case "text":
				console.NoColor = true
			case "color":
				console.NoColor = false
			default:
				// autodetect color support of the output
				console.NoColor = !isatty.IsTerminal(writer.(*os.File).Fd())
			}

			if timeFormat != "" {
				console.TimeFormat = "15:04:05.000"
			} else {
				console.PartsOrder = []string{
					zerolog.LevelFieldName,
					zerolog.CallerFieldName,
					zerolog.MessageFieldName,
				}
			}

			writer = console
		}

		writer = zerolog.MultiLevelWriter(writer, MemoryLog)
	} else {
		writer = MemoryLog
	}

	lvl, _ := zerolog.ParseLevel(modules["level"])
	Logger = zerolog.New(writer).Level(lvl)

	if timeFormat != "" {
		zerolog.TimeFieldFormat = timeFormat
		Logger = Logger.With().Timestamp().Logger()
	}
}

// per-module log levels plus logger settings, all in one config section
var modules = map[string]string{
	"format": "",
	"level":  "info",
	"output": "stdout",
	"time":   zerolog.TimeFormatUnixMs,
}

// memoryLog is a bounded ring of complete log lines. Writes past the
// capacity overwrite the oldest lines.
type memoryLog struct {
	mu    sync.Mutex
	lines [][]byte
	next  int
	full  bool
}

func newMemoryLog(capacity int) *memoryLog {
	return &memoryLog{lines: make([][]byte, capacity)}
}

func (m *memoryLog) Write(p []byte) (int, error) {
	line := make([]byte, len(p))
	copy(line, p)

	m.mu.Lock()
	m.lines[m.next] = line
	if m.next++; m.next == len(m.lines) {
		m.next = 0
		m.full = true
	}
	m.mu.Unlock()

	return len(p), nil
}

func (m *memoryLog) WriteTo(w io.Writer) (n int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := 0
	if m.full {
		start = m.next
	}
	for i := 0; i < len(m.lines); i++ {
		line := m.lines[(start+i)%len(m.lines)]
		if line == nil {
			break
		}
		var nn int
		if nn, err = w.Write(line); err != nil {
			return
		}
		n += int64(nn)
	}
	return
}

func (m *memoryLog) Reset() {
	m.mu.Lock()
	for i := range m.lines {
		m.lines[i] = nil
	}
	m.next = 0
	m.full = false
	m.mu.Unlock()
}
