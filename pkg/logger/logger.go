package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It defaults to a no-op logger so
// packages may log before Init runs (tests in particular).
var Log = zap.NewNop()

// Init configures the global logger. The level argument wins over the
// SLACKTUI_LOG_LEVEL environment variable; format is "console" or "json"
// (json is the default).
func Init(level, format string) {
	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "" {
		lvl = strings.ToLower(strings.TrimSpace(os.Getenv("SLACKTUI_LOG_LEVEL")))
	}
	var zl zapcore.Level
	switch lvl {
	case "debug":
		zl = zapcore.DebugLevel
	case "warn", "warning":
		zl = zapcore.WarnLevel
	case "error":
		zl = zapcore.ErrorLevel
	default:
		zl = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		enc = zapcore.NewJSONEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), zl)
	Log = zap.New(core)
}

// Sync flushes buffered log entries. Safe to call on the no-op logger.
func Sync() { _ = Log.Sync() }
