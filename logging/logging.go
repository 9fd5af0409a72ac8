package logging

import (
	"fmt"

	"github.com/milk9111/assetman/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Name is the root logger name; managers add their payload type as a field.
const Name = "assetman"

// New builds the process logger from the [logging] section. Console output
// is compact for watching reloads in a terminal, json is for collectors.
// When File is set every entry is written there as well as to stderr.
// Unknown levels fall back to info with a warning.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	badLevel := level.UnmarshalText([]byte(cfg.Level)) != nil
	if badLevel {
		level = zapcore.InfoLevel
	}

	format := cfg.Format
	if format == "" {
		format = "console"
	}
	zc := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Encoding:          format,
		EncoderConfig:     encoderConfig(format),
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.Caller,
		DisableStacktrace: format != "json",
	}
	if cfg.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}

	log, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	log = log.Named(Name)
	if badLevel {
		log.Warn("unknown log level, using info", zap.String("level", cfg.Level))
	}
	return log, nil
}

func encoderConfig(format string) zapcore.EncoderConfig {
	if format == "json" {
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		return enc
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	enc.ConsoleSeparator = "  "
	return enc
}
