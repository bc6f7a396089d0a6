package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options are the identity fields stamped on every line and an optional level override.
type Options struct {
	Service  string
	Env      string
	Instance string
	Level    string // "debug", "info", ...; empty keeps the config default
}

func New(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if opts.Env == "local" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if opts.Level != "" {
		lvl, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	fields := []zap.Field{
		zap.String("service", opts.Service),
		zap.String("env", opts.Env),
	}
	if opts.Instance != "" {
		fields = append(fields, zap.String("instance", opts.Instance))
	}

	return cfg.Build(zap.Fields(fields...))
}
