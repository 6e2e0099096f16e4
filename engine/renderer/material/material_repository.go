package material

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

var (
	// ErrMaterialTypeNotFound is returned when creating a material of an unregistered type.
	ErrMaterialTypeNotFound = errors.New("material type not found")
	// ErrMaterialTypeExists is returned when a type name is registered twice.
	ErrMaterialTypeExists = errors.New("material type already registered")
	// ErrMaterialTIDOverflow is returned when more types are registered than the sort key can encode.
	ErrMaterialTIDOverflow = errors.New("material type ID exceeds sort key range")
	// ErrMaterialInstanceLimit is returned when a type already has its maximum number of instances.
	ErrMaterialInstanceLimit = errors.New("material instance limit reached")
)

// Built-in material type names registered by NewMaterialRepository.
const (
	StandardMaterialType   = "Standard"
	FullscreenMaterialType = "Fullscreen"
)

type materialType struct {
	name         string
	tid          uint32
	shaderSource string
	maxInstances int
	instances    []Material
}

// materialRepository implements the MaterialRepository interface.
type materialRepository struct {
	logger *zap.Logger

	types   map[string]*materialType
	nextTID uint32
	nextUID int
}

// MaterialRepository registers material types and creates their instances.
// Each type gets a material TID used to group draws in the primitive sort key.
type MaterialRepository interface {
	// RegisterMaterial declares a material type.
	//
	// Parameters:
	//   - typeName: unique type name
	//   - shaderSource: the WGSL program instances use by default
	//   - maxInstances: the maximum number of live instances
	//
	// Returns:
	//   - uint32: the assigned material TID
	//   - error: ErrMaterialTypeExists or ErrMaterialTIDOverflow
	RegisterMaterial(typeName, shaderSource string, maxInstances int) (uint32, error)

	// CreateMaterial creates an instance of a registered type.
	//
	// Parameters:
	//   - typeName: the registered type name
	//   - options: builder options applied after the type defaults
	//
	// Returns:
	//   - Material: the new instance
	//   - error: ErrMaterialTypeNotFound or ErrMaterialInstanceLimit
	CreateMaterial(typeName string, options ...MaterialBuilderOption) (Material, error)

	// IsRegistered reports whether a type name is known.
	IsRegistered(typeName string) bool

	// Materials returns every instance of a type in creation order.
	Materials(typeName string) []Material

	// TypeNames returns the registered type names ordered by TID.
	TypeNames() []string
}

var _ MaterialRepository = &materialRepository{}

// NewMaterialRepository creates a repository with the Standard and Fullscreen types registered.
//
// Parameters:
//   - maxInstancesPerType: the instance limit of the built-in types
//   - logger: the logger, nil for none
//
// Returns:
//   - MaterialRepository: the repository
func NewMaterialRepository(maxInstancesPerType int, logger *zap.Logger) MaterialRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &materialRepository{
		logger:  logger.Named("materials"),
		types:   make(map[string]*materialType),
		nextTID: 1,
	}
	// the built-in registrations cannot collide or overflow on an empty repository
	_, _ = r.RegisterMaterial(StandardMaterialType, StandardShaderSource, maxInstancesPerType)
	_, _ = r.RegisterMaterial(FullscreenMaterialType, FullscreenShaderSource, maxInstancesPerType)
	return r
}

func (r *materialRepository) RegisterMaterial(typeName, shaderSource string, maxInstances int) (uint32, error) {
	if _, ok := r.types[typeName]; ok {
		return 0, fmt.Errorf("register material %q: %w", typeName, ErrMaterialTypeExists)
	}
	if r.nextTID > MaxMaterialTID {
		return 0, fmt.Errorf("register material %q: %w", typeName, ErrMaterialTIDOverflow)
	}
	t := &materialType{
		name:         typeName,
		tid:          r.nextTID,
		shaderSource: shaderSource,
		maxInstances: maxInstances,
	}
	r.types[typeName] = t
	r.nextTID++
	r.logger.Debug("material type registered", zap.String("type", typeName), zap.Uint32("tid", t.tid))
	return t.tid, nil
}

func (r *materialRepository) CreateMaterial(typeName string, options ...MaterialBuilderOption) (Material, error) {
	t, ok := r.types[typeName]
	if !ok {
		return nil, fmt.Errorf("create material %q: %w", typeName, ErrMaterialTypeNotFound)
	}
	if len(t.instances) >= t.maxInstances {
		return nil, fmt.Errorf("create material %q: %w (max %d)", typeName, ErrMaterialInstanceLimit, t.maxInstances)
	}

	base := []MaterialBuilderOption{WithShaderSource(t.shaderSource)}
	m := NewMaterial(append(base, options...)...).(*material)
	m.typeName = t.name
	m.materialTID = t.tid
	m.materialSID = len(t.instances)
	m.materialUID = r.nextUID
	if m.name == "" {
		m.name = fmt.Sprintf("%s_%d", t.name, m.materialSID)
	}
	r.nextUID++
	t.instances = append(t.instances, m)
	return m, nil
}

func (r *materialRepository) IsRegistered(typeName string) bool {
	_, ok := r.types[typeName]
	return ok
}

func (r *materialRepository) Materials(typeName string) []Material {
	t, ok := r.types[typeName]
	if !ok {
		return nil
	}
	out := make([]Material, len(t.instances))
	copy(out, t.instances)
	return out
}

func (r *materialRepository) TypeNames() []string {
	types := make([]*materialType, 0, len(r.types))
	for _, t := range r.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].tid < types[j].tid })
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.name
	}
	return out
}
