package memory

import "github.com/Carmen-Shannon/rhodonite-go/common"

// Field is a live value bound to one row of an Accessor.
// Reads and writes go straight to the backing buffer, so the value is shared with anything else reading that row.
type Field struct {
	accessor *Accessor
	index    int
}

// NewField binds a Field to row index of a.
func NewField(a *Accessor, index int) Field {
	return Field{accessor: a, index: index}
}

func (f Field) Accessor() *Accessor { return f.accessor }

func (f Field) Index() int { return f.index }

// IsValid reports whether the field is bound to an accessor.
func (f Field) IsValid() bool { return f.accessor != nil }

func (f Field) Scalar() float32 { return f.accessor.GetScalar(f.index) }

func (f Field) SetScalar(v float32) { f.accessor.SetScalar(f.index, v) }

func (f Field) Vec3() common.Vec3 { return f.accessor.GetVec3(f.index) }

func (f Field) SetVec3(v common.Vec3) { f.accessor.SetVec3(f.index, v) }

func (f Field) Vec4() common.Vec4 { return f.accessor.GetVec4(f.index) }

func (f Field) SetVec4(v common.Vec4) { f.accessor.SetVec4(f.index, v) }

func (f Field) Mat4() common.Mat4 { return f.accessor.GetMat4(f.index) }

func (f Field) SetMat4(m common.Mat4) { f.accessor.SetMat4(f.index, m) }

// Values copies the row into out.
func (f Field) Values(out []float32) { f.accessor.GetElement(f.index, out) }

// Set writes raw scalars into the row.
func (f Field) Set(values ...float32) { f.accessor.SetElement(f.index, values...) }
