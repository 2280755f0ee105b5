package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "vinylstore-be"

var log *zap.Logger

// Build returns a logger for env tagged with the running component.
// LOG_LEVEL overrides the environment's default level when it parses.
func Build(env, component string) (*zap.Logger, error) {
	var cfg zap.Config

	switch strings.ToLower(env) {
	case "production", "staging":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.MessageKey = "message"
		cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.OutputPaths = []string{"stdout"}
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if lvl, err := zapcore.ParseLevel(raw); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	fields := []zap.Field{zap.String("service", serviceName)}
	if component != "" {
		fields = append(fields, zap.String("component", component))
	}
	return cfg.Build(zap.AddCaller(), zap.Fields(fields...))
}

// Init installs the global logger. It panics if the config cannot build.
func Init(env, component string) {
	l, err := Build(env, component)
	if err != nil {
		panic(err)
	}
	log = l
}

// L returns the global logger, building a default one on first use.
func L() *zap.Logger {
	if log == nil {
		Init(os.Getenv("APP_ENV"), "")
	}
	return log
}

// Replace swaps the global logger and returns a func restoring the old one.
func Replace(l *zap.Logger) func() {
	prev := log
	log = l
	return func() { log = prev }
}

func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
