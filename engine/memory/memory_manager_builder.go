package memory

import "go.uber.org/zap"

// MemoryManagerBuilderOption is a functional option for configuring a MemoryManager.
type MemoryManagerBuilderOption func(*memoryManager)

// WithLogger sets the logger used for allocation messages.
//
// Parameters:
//   - logger: the logger, nil keeps the no-op default
//
// Returns:
//   - MemoryManagerBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) MemoryManagerBuilderOption {
	return func(m *memoryManager) {
		if logger != nil {
			m.logger = logger.Named("memory")
		}
	}
}
