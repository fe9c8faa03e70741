package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Time layouts
const (
	ConsoleTimeLayout = "2006/01/02 15:04:05"
	FileTimeLayout    = "2006/01/02 15:04:05.000000"
)

// New creates a console logger writing to w, normally stderr so that stdout
// carries only results. Debug entries are only written when verbose is set.
func New(w io.Writer, verbose bool) *zap.Logger {
	if f, ok := w.(*os.File); ok {
		return build(zapcore.Lock(f), ConsoleTimeLayout, verbose)
	}
	return build(zapcore.AddSync(w), ConsoleTimeLayout, verbose)
}

// NewWriter creates a logger that writes to the provided writer with
// microsecond timestamps.
func NewWriter(w io.Writer, verbose bool) *zap.Logger {
	return build(zapcore.AddSync(w), FileTimeLayout, verbose)
}

func build(ws zapcore.WriteSyncer, layout string, verbose bool) *zap.Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(layout)
	encoderConfig.CallerKey = zapcore.OmitKey

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), ws, level)
	return zap.New(core)
}
