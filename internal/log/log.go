// Package log provides structured logging for the eToken engine.
package log

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation settings for the log file sink.
const (
	FileMaxSizeMB  = 50
	FileMaxBackups = 5
	FileMaxAgeDays = 28
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers.
var (
	Gateway   zerolog.Logger
	Wallet    zerolog.Logger
	Ledger    zerolog.Logger
	Registry  zerolog.Logger
	TxBuilder zerolog.Logger
	Vault     zerolog.Logger
)

func init() {
	Logger = NewConsoleLogger(os.Stderr, "info")
	initComponentLoggers()
}

// Init initializes the logger with the given configuration.
// When file is non-empty, logs are written to the console and to a rotating
// JSON file.
func Init(level string, jsonOutput bool, file string) io.Closer {
	var consoleWriter io.Writer
	if jsonOutput {
		consoleWriter = os.Stderr
	} else {
		consoleWriter = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}
	}

	var closer io.Closer = nopCloser{}
	out := consoleWriter
	if file != "" {
		rotating := NewFileWriter(file)
		out = zerolog.MultiLevelWriter(consoleWriter, rotating)
		closer = rotating
	}

	Logger = zerolog.New(out).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()

	initComponentLoggers()
	return closer
}

// NewFileWriter returns a size-rotated writer for path.
func NewFileWriter(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    FileMaxSizeMB,
		MaxBackups: FileMaxBackups,
		MaxAge:     FileMaxAgeDays,
		Compress:   true,
	}
}

// NewConsoleLogger creates a human-readable console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}
	return zerolog.New(output).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// NewJSONLogger creates a structured JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel converts a string level to zerolog.Level. Unknown values map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func initComponentLoggers() {
	Gateway = WithComponent("gateway")
	Wallet = WithComponent("wallet")
	Ledger = WithComponent("ledger")
	Registry = WithComponent("registry")
	TxBuilder = WithComponent("txbuilder")
	Vault = WithComponent("vault")
}

// WithComponent returns a logger with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
