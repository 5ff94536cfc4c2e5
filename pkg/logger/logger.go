package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options configure the logger
type Options struct {
	// Verbosity enables V(1)..V(n) messages; 0 logs info and above
	Verbosity int
	// Quiet keeps only errors and wins over Verbosity
	Quiet bool
	// Format is console (default) or json
	Format string
	// Output defaults to stderr
	Output io.Writer
}

// New builds a logr.Logger backed by zap
func New(opts Options) (logr.Logger, error) {
	var encoder zapcore.Encoder
	switch opts.Format {
	case "", FormatConsole:
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if opts.Output != nil {
			encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(encCfg)
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return logr.Discard(), fmt.Errorf("invalid log format %q (want %s or %s)", opts.Format, FormatConsole, FormatJSON)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), zap.NewAtomicLevelAt(level(opts)))
	return zapr.NewLogger(zap.New(core)), nil
}

// level maps logr verbosity onto zap, where V(n) is zap level -n
func level(opts Options) zapcore.Level {
	if opts.Quiet {
		return zapcore.ErrorLevel
	}
	if opts.Verbosity <= 0 {
		return zapcore.InfoLevel
	}
	return zapcore.Level(-opts.Verbosity)
}
