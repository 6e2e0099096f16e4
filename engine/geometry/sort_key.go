package geometry

// PrimitiveSortKey packs the draw-order fields of a primitive into 32 bits.
// Fields from the least significant bit:
//
//	primitive type   3 bits
//	material TID    10 bits
//	translucency     2 bits
//	viewport layer   3 bits
//	viewport         3 bits
//	fullscreen layer 2 bits
//
// Sorting keys ascending therefore groups by material inside each translucency bucket
// and puts every opaque primitive before every translucent or blended one.
type PrimitiveSortKey uint32

const (
	PrimitiveTypeOffset   = 0
	PrimitiveTypeBits     = 3
	MaterialTIDOffset     = 3
	MaterialTIDBits       = 10
	TranslucencyOffset    = 13
	TranslucencyBits      = 2
	ViewportLayerOffset   = 15
	ViewportLayerBits     = 3
	ViewportOffset        = 18
	ViewportBits          = 3
	FullscreenLayerOffset = 21
	FullscreenLayerBits   = 2
)

// TranslucencyType is the 2-bit translucency class stored in the sort key.
type TranslucencyType uint32

const (
	Opaque TranslucencyType = iota
	Translucent
	BlendWithZWrite
	BlendWithoutZWrite
)

func (t TranslucencyType) String() string {
	switch t {
	case Opaque:
		return "Opaque"
	case Translucent:
		return "Translucent"
	case BlendWithZWrite:
		return "BlendWithZWrite"
	case BlendWithoutZWrite:
		return "BlendWithoutZWrite"
	}
	return "Unknown"
}

// SetSortKeyField returns key with the bits at [offset, offset+bits) replaced by value.
// Values wider than bits are truncated.
//
// Parameters:
//   - key: the original key
//   - offset: bit position of the field
//   - bits: field width
//   - value: the new field value
//
// Returns:
//   - PrimitiveSortKey: the updated key
func SetSortKeyField(key PrimitiveSortKey, offset, bits uint, value uint32) PrimitiveSortKey {
	mask := uint32(1)<<bits - 1
	cleared := uint32(key) &^ (mask << offset)
	return PrimitiveSortKey(cleared | (value&mask)<<offset)
}

// Field returns the value of the bits at [offset, offset+bits).
func (k PrimitiveSortKey) Field(offset, bits uint) uint32 {
	return uint32(k) >> offset & (uint32(1)<<bits - 1)
}

func (k PrimitiveSortKey) PrimitiveType() PrimitiveMode {
	return PrimitiveMode(k.Field(PrimitiveTypeOffset, PrimitiveTypeBits))
}

func (k PrimitiveSortKey) MaterialTID() uint32 {
	return k.Field(MaterialTIDOffset, MaterialTIDBits)
}

func (k PrimitiveSortKey) Translucency() TranslucencyType {
	return TranslucencyType(k.Field(TranslucencyOffset, TranslucencyBits))
}

func (k PrimitiveSortKey) ViewportLayer() uint32 {
	return k.Field(ViewportLayerOffset, ViewportLayerBits)
}

func (k PrimitiveSortKey) Viewport() uint32 {
	return k.Field(ViewportOffset, ViewportBits)
}

func (k PrimitiveSortKey) FullscreenLayer() uint32 {
	return k.Field(FullscreenLayerOffset, FullscreenLayerBits)
}

// IsOpaque reports whether the key's translucency class is Opaque.
func (k PrimitiveSortKey) IsOpaque() bool { return k.Translucency() == Opaque }

// IsTranslucent reports whether the key's translucency class is Translucent.
func (k PrimitiveSortKey) IsTranslucent() bool { return k.Translucency() == Translucent }

// IsBlend reports whether the key is in either blend class.
func (k PrimitiveSortKey) IsBlend() bool {
	t := k.Translucency()
	return t == BlendWithZWrite || t == BlendWithoutZWrite
}

// IsBlendWithZWrite reports whether the key is in the blend class that still writes depth.
func (k PrimitiveSortKey) IsBlendWithZWrite() bool { return k.Translucency() == BlendWithZWrite }

// IsBlendWithoutZWrite reports whether the key is in the blend class without depth writes.
func (k PrimitiveSortKey) IsBlendWithoutZWrite() bool { return k.Translucency() == BlendWithoutZWrite }

// IsOpaque reports whether p is drawn in the opaque bucket.
func IsOpaque(p *Primitive) bool { return p.SortKey().IsOpaque() }

// IsTranslucent reports whether p is drawn in the translucent bucket.
func IsTranslucent(p *Primitive) bool { return p.SortKey().IsTranslucent() }

// IsBlend reports whether p is drawn in one of the blend buckets.
func IsBlend(p *Primitive) bool { return p.SortKey().IsBlend() }

// IsBlendWithZWrite reports whether p is blended with depth writes.
func IsBlendWithZWrite(p *Primitive) bool { return p.SortKey().IsBlendWithZWrite() }

// IsBlendWithoutZWrite reports whether p is blended without depth writes.
func IsBlendWithoutZWrite(p *Primitive) bool { return p.SortKey().IsBlendWithoutZWrite() }
