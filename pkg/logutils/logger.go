package logutils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// MirrorLevel is the lowest level copied to mirror writers.
const MirrorLevel = zerolog.WarnLevel

// New returns a new logger that appends JSON to the specified file.
// If file is empty, logs are written to stderr so stdout stays free for
// command output.
//
// Events at MirrorLevel and above are also written, human readable, to each
// mirror. The level parameter can be one of: debug, info, warn, error, fatal.
func New(level string, file string, mirrors ...io.Writer) (zerolog.Logger, func(), error) {
	closer := func() {}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, closer, err
	}

	// File Setup
	var writer io.Writer = os.Stderr
	if file != "" {
		logsDir := filepath.Dir(file)
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("create logs dir: %w", err)
		}

		osFile, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, closer, err
		}
		closer = func() { _ = osFile.Close() }
		writer = osFile
	}

	if len(mirrors) > 0 {
		writers := []io.Writer{writer}
		for _, m := range mirrors {
			writers = append(writers, &levelFilter{
				w:   zerolog.ConsoleWriter{Out: m, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}},
				min: MirrorLevel,
			})
		}
		writer = zerolog.MultiLevelWriter(writers...)
	}

	l := zerolog.New(writer).
		With().
		Timestamp().
		Logger().
		Level(lvl)

	return l, closer, nil
}

// levelFilter drops events below min.
type levelFilter struct {
	w   io.Writer
	min zerolog.Level
}

func (f *levelFilter) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f *levelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < f.min {
		return len(p), nil
	}
	return f.w.Write(p)
}
