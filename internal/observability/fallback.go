package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewFallbackLogger returns a logger that appends timestamped plain-text
// lines to path. It backs best-effort writes whose primary sink failed.
func NewFallbackLogger(path string) (*zap.Logger, error) {
	cfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(zapcore.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:       "message",
			TimeKey:          "ts",
			EncodeTime:       zapcore.ISO8601TimeEncoder,
			ConsoleSeparator: " ",
		},
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}
