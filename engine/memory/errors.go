package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrBufferExhausted is returned when a Buffer has no room for a requested BufferView.
	ErrBufferExhausted = errors.New("buffer exhausted")
	// ErrAccessorOutOfRange is returned when a BufferView has no room for a requested Accessor.
	ErrAccessorOutOfRange = errors.New("accessor exceeds buffer view")
)

// AllocationError reports a failed TakeBufferView with the sizes involved.
// It unwraps to ErrBufferExhausted.
type AllocationError struct {
	Buffer          string
	ByteLength      int
	TakenSizeInByte int
	Capacity        int
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("%s: buffer %q needs %d bytes, %d of %d already taken",
		ErrBufferExhausted, e.Buffer, e.ByteLength, e.TakenSizeInByte, e.Capacity)
}

func (e *AllocationError) Unwrap() error {
	return ErrBufferExhausted
}
