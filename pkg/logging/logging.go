package logging

import (
	"strings"

	"github.com/example/bloomcart/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger from the log config section. Unknown levels fall back
// to info and unknown encodings to json.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(cfg.Level)))); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	encoding := strings.ToLower(strings.TrimSpace(cfg.Encoding))
	if encoding != "console" {
		encoding = "json"
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	zcfg.Encoding = encoding
	zcfg.OutputPaths = outputs
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	if encoding == "console" {
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return zcfg.Build()
}
