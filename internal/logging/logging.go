// Package logging configures zerolog for tickerdeck.
//
// The TUI owns the terminal, so records go to a rotated file by default.
// CLI subcommands may add a console writer on stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options holds logger configuration.
type Options struct {
	Level   string // debug, info, warn, error
	File    string // empty disables file output
	Console bool   // pretty output on stderr
	Version string

	RotationSizeMB int
	RetentionDays  int
}

const (
	defaultRotationSizeMB = 10
	defaultRetentionDays  = 14
)

// Init builds the process logger, installs it as the zerolog global and
// returns it with a closer for the file writer.
func Init(opts Options) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("invalid log level: %w", err)
		}
		level = parsed
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("create log directory: %w", err)
		}
		size := opts.RotationSizeMB
		if size <= 0 {
			size = defaultRotationSizeMB
		}
		age := opts.RetentionDays
		if age <= 0 {
			age = defaultRetentionDays
		}
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    size,
			MaxAge:     age,
			MaxBackups: 5,
			Compress:   true,
		}
		writers = append(writers, file)
		closer = file
	}

	if opts.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("service", "tickerdeck").
		Str("version", opts.Version).
		Logger()

	log.Logger = logger

	logger.Debug().
		Str("level", level.String()).
		Str("file", opts.File).
		Bool("console", opts.Console).
		Msg("logger initialized")

	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
