// Package logging builds the envrefresh process logger on top of zerowrap.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bnema/zerowrap"
)

// Config controls log level, format and the optional rotating log file.
type Config struct {
	Level      string
	Format     string // "console" or "json"
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
	Out        io.Writer
}

// Setup builds the process logger. The returned cleanup closes the log
// file when one is configured and is never nil.
func Setup(cfg Config) (zerowrap.Logger, func(), error) {
	logConfig := zerowrap.Config{
		Level:      cfg.Level,
		Format:     cfg.Format,
		TimeFormat: "15:04:05",
		Output:     cfg.Out,
	}

	if cfg.File == "" {
		return zerowrap.New(logConfig), func() {}, nil
	}

	// Create logs directory with secure permissions (0700 - owner only)
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
		return zerowrap.Default(), func() {}, fmt.Errorf("failed to create logs directory: %w", err)
	}

	log, cleanup, err := zerowrap.NewWithFile(logConfig, zerowrap.FileConfig{
		Enabled:    true,
		Path:       cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	})
	if err != nil {
		return zerowrap.Default(), func() {}, fmt.Errorf("failed to create logger with file: %w", err)
	}
	return log, cleanup, nil
}
