package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the demo logger. The closer is nil unless logs go to a file.
func newLogger(cfg *demoConfig) (*zap.Logger, io.Closer, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch cfg.LogFormat {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	case "console", "":
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		return nil, nil, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	var closer io.Closer
	if cfg.LogFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     7, // days
		}
		sink = zapcore.AddSync(rotating)
		closer = rotating
	}

	return zap.New(zapcore.NewCore(encoder, sink, level)), closer, nil
}
