package ecs

import "go.uber.org/zap"

// WorldBuilderOption is a functional option for configuring a World.
type WorldBuilderOption func(*World)

// WithLogger sets the logger the world and its repositories log through.
//
// Parameters:
//   - logger: the logger, nil keeps the no-op default
//
// Returns:
//   - WorldBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) WorldBuilderOption {
	return func(w *World) {
		if logger != nil {
			w.logger = logger
		}
	}
}
