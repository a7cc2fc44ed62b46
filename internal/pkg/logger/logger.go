package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/geopin-service/internal/config"
)

// New создает zap логгер процесса. Формат: json или console; пустой формат
// означает console для уровня debug и json для остальных.
func New(cfg *config.LogConfig, process string) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "json"
		if level == zapcore.DebugLevel {
			format = "console"
		}
	}

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields: map[string]interface{}{
			"service": "geopin",
			"process": process,
		},
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		zc.Development = true
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return zc.Build()
}
