// Package logging builds the zap loggers the engine's components take
// as constructor arguments. The engine never calls zap.NewProduction
// itself deep inside a component — loggers are always threaded in from
// the top, so an embedder can redirect or silence them.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment selects the base zap configuration, mirroring the
// coordinator's own production/development switch.
type Environment string

const (
	Production  Environment = "production"
	Development Environment = "development"
)

// New builds a *zap.Logger for env, named component (added as a
// "component" field on every entry so multi-engine deployments can
// filter logs per shard or per subsystem).
func New(env Environment, component string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case Development:
		cfg = zap.NewDevelopmentConfig()
	case Production, "":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("logging.New: unknown environment %q", env)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging.New: %w", err)
	}
	return logger.With(zap.String("component", component)), nil
}

// Nop returns a logger that discards everything, for tests and for
// embedders that don't want engine logging at all.
func Nop() *zap.Logger {
	return zap.NewNop()
}
