// Package memory implements the structure-of-arrays allocator components store their members in.
// Large Buffers are split into BufferViews, which yield typed Accessors indexed by ComponentSID.
package memory

import (
	"fmt"

	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"go.uber.org/zap"
)

// memoryManager implements the MemoryManager interface.
type memoryManager struct {
	cfg    *config.Config
	logger *zap.Logger

	buffers  map[BufferUse]*Buffer
	onDemand map[string]*Buffer
}

// MemoryManager owns every Buffer in a World.
// Pre-sized buffers are keyed by BufferUse; per-object buffers are keyed by an owner name.
type MemoryManager interface {
	// CreateOrGetBuffer returns the buffer for use, allocating it from the configured size on first request.
	//
	// Parameters:
	//   - use: which pre-sized buffer to return
	//
	// Returns:
	//   - *Buffer: the buffer
	CreateOrGetBuffer(use BufferUse) *Buffer

	// Buffer returns the buffer for use if it was already created.
	//
	// Parameters:
	//   - use: which pre-sized buffer to look up
	//
	// Returns:
	//   - *Buffer: the buffer, or nil
	//   - bool: false if the buffer has not been created
	Buffer(use BufferUse) (*Buffer, bool)

	// CreateBufferOnDemand allocates a buffer dedicated to one owner (e.g. a mesh's vertex data).
	// Creating a buffer for an owner that already has one replaces it.
	//
	// Parameters:
	//   - byteLength: buffer capacity
	//   - owner: unique owner name
	//   - byteAlign: view alignment
	//
	// Returns:
	//   - *Buffer: the new buffer
	CreateBufferOnDemand(byteLength int, owner string, byteAlign int) *Buffer

	// BufferOnDemand returns the dedicated buffer of owner.
	BufferOnDemand(owner string) (*Buffer, bool)

	// RemoveBufferOnDemand drops the dedicated buffer of owner.
	RemoveBufferOnDemand(owner string)

	// Stats returns the taken and total byte counts of every pre-sized buffer.
	Stats() map[BufferUse][2]int
}

var _ MemoryManager = &memoryManager{}

// NewMemoryManager creates a MemoryManager sized from cfg.
//
// Parameters:
//   - cfg: engine configuration; buffer sizes are read from cfg.Memory
//   - options: functional options
//
// Returns:
//   - MemoryManager: the new manager
func NewMemoryManager(cfg *config.Config, options ...MemoryManagerBuilderOption) MemoryManager {
	m := &memoryManager{
		cfg:      cfg,
		logger:   zap.NewNop(),
		buffers:  make(map[BufferUse]*Buffer),
		onDemand: make(map[string]*Buffer),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *memoryManager) CreateOrGetBuffer(use BufferUse) *Buffer {
	if b, ok := m.buffers[use]; ok {
		return b
	}

	var size float64
	align := 4
	switch use {
	case CPUGeneric:
		size = m.cfg.Memory.CPUGenericMiB
	case GPUInstanceData:
		size = m.cfg.Memory.GPUInstanceDataMiB
		align = 16
	case GPUVertexData:
		size = m.cfg.Memory.GPUVertexDataMiB
	case UBOGeneric:
		size = m.cfg.Memory.UBOGenericMiB
		align = 16
	}

	b := NewBuffer(use.String(), config.MiB(size), align)
	m.buffers[use] = b
	m.logger.Debug("buffer allocated", zap.Stringer("use", use), zap.Int("bytes", b.ByteLength()))
	return b
}

func (m *memoryManager) Buffer(use BufferUse) (*Buffer, bool) {
	b, ok := m.buffers[use]
	return b, ok
}

func (m *memoryManager) CreateBufferOnDemand(byteLength int, owner string, byteAlign int) *Buffer {
	b := NewBuffer(fmt.Sprintf("OnDemand:%s", owner), byteLength, byteAlign)
	m.onDemand[owner] = b
	return b
}

func (m *memoryManager) BufferOnDemand(owner string) (*Buffer, bool) {
	b, ok := m.onDemand[owner]
	return b, ok
}

func (m *memoryManager) RemoveBufferOnDemand(owner string) {
	delete(m.onDemand, owner)
}

func (m *memoryManager) Stats() map[BufferUse][2]int {
	out := make(map[BufferUse][2]int, len(m.buffers))
	for use, b := range m.buffers {
		out[use] = [2]int{b.TakenSizeInByte(), b.ByteLength()}
	}
	return out
}
