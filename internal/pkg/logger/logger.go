package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/doeshing/pdqa/internal/ports"
)

// ZapLogger adapts a zap logger to ports.Logger.
type ZapLogger struct {
	inner *zap.Logger
}

// New returns a logger writing to stderr. When verbose is true it uses the
// development config (human-readable, debug level); otherwise the production
// config at the given level, so only warnings and errors reach the terminal
// by default. format "console" switches the production encoder off JSON.
func New(verbose bool, level, format string) *ZapLogger {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
		cfg.Sampling = nil
		if strings.EqualFold(format, "console") {
			cfg.Encoding = "console"
		}
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	z, err := cfg.Build()
	if err != nil {
		z = zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.Lock(os.Stderr),
			zapcore.WarnLevel,
		))
	}
	return &ZapLogger{inner: z}
}

// NewNop returns a logger that discards everything.
func NewNop() *ZapLogger {
	return &ZapLogger{inner: zap.NewNop()}
}

// Wrap adapts an existing zap logger.
func Wrap(z *zap.Logger) *ZapLogger {
	return &ZapLogger{inner: z}
}

// Zap exposes the underlying logger for components that take *zap.Logger.
func (l *ZapLogger) Zap() *zap.Logger {
	return l.inner
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() {
	_ = l.inner.Sync()
}

func (l *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	l.inner.Debug(msg, toFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields map[string]interface{}) {
	l.inner.Info(msg, toFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	l.inner.Warn(msg, toFields(fields)...)
}

func (l *ZapLogger) Error(msg string, err error, fields map[string]interface{}) {
	zf := toFields(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.inner.Error(msg, zf...)
}

func toFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

var _ ports.Logger = (*ZapLogger)(nil)
