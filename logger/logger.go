// Package logger wraps zerolog with rotating file output.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Debug(msg string)

	WithStr(key, value string) Logger
	WithInt(key string, value int) Logger
	WithErr(err error) Logger
}

type logger struct {
	base zerolog.Logger
}

// New returns a logger writing to a rotating file at path.
func New(path string) Logger {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}

	return &logger{
		base: zerolog.New(w).With().Timestamp().Logger(),
	}
}

// NewMultiWriter also mirrors log lines to stderr.
func NewMultiWriter(path string) Logger {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}

	return &logger{
		base: zerolog.New(io.MultiWriter(os.Stderr, w)).With().Timestamp().Logger(),
	}
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() Logger {
	return &logger{base: zerolog.Nop()}
}

func (l *logger) Info(msg string)  { l.base.Info().Msg(msg) }
func (l *logger) Warn(msg string)  { l.base.Warn().Msg(msg) }
func (l *logger) Error(msg string) { l.base.Error().Msg(msg) }
func (l *logger) Debug(msg string) { l.base.Debug().Msg(msg) }

func (l *logger) WithStr(key, value string) Logger {
	return &logger{base: l.base.With().Str(key, value).Logger()}
}

func (l *logger) WithInt(key string, value int) Logger {
	return &logger{base: l.base.With().Int(key, value).Logger()}
}

func (l *logger) WithErr(err error) Logger {
	return &logger{base: l.base.With().Err(err).Logger()}
}

// LogPath resolves ~/lanlink/<dir>/lanlink.log, creating the directory.
func LogPath(dir string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	logDir := filepath.Join(homeDir, "lanlink", dir)

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	return filepath.Join(logDir, "lanlink.log"), nil
}
