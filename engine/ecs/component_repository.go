package ecs

import (
	"fmt"
	"slices"
	"sort"

	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
	"go.uber.org/zap"
)

// componentStore is the per-World storage of one component type.
// instances is indexed by ComponentSID; a nil slot is a released SID listed in free.
type componentStore struct {
	class     *ComponentClass
	maxCount  int
	accessors map[string]*memory.Accessor
	instances []Component
	free      []ComponentSID // ascending
	live      int
}

// componentRepository implements the ComponentRepository interface.
type componentRepository struct {
	world  *World
	logger *zap.Logger

	stores map[ComponentTID]*componentStore
	names  map[string]ComponentTID
	tids   []ComponentTID // ascending
}

// ComponentRepository registers component classes and owns every component instance of a World.
type ComponentRepository interface {
	// RegisterComponentClass allocates storage for every member of class, sized for its max count.
	//
	// Parameters:
	//   - class: the component class
	//
	// Returns:
	//   - error: ErrComponentClassExists for a duplicate TID, or the allocation error from memory
	RegisterComponentClass(class *ComponentClass) error

	// ComponentClass returns the class registered for tid.
	//
	// Parameters:
	//   - tid: the component type ID
	//
	// Returns:
	//   - *ComponentClass: the class, or nil
	//   - bool: false if tid is not registered
	ComponentClass(tid ComponentTID) (*ComponentClass, bool)

	// ComponentClassByName returns the class registered under name.
	ComponentClassByName(name string) (*ComponentClass, bool)

	// CreateComponent instantiates a component of type tid for the entity uid.
	// The lowest released SID is reused before the SID range is extended; the row is reset to the member init values.
	//
	// Parameters:
	//   - tid: the component type ID
	//   - uid: the owning entity
	//
	// Returns:
	//   - Component: the new component
	//   - error: ErrComponentClassNotFound or ErrComponentLimit
	CreateComponent(tid ComponentTID, uid EntityUID) (Component, error)

	// DestroyComponent runs OnDestroy, marks the component dead and releases its SID.
	//
	// Parameters:
	//   - c: the component to destroy; dead components are ignored
	DestroyComponent(c Component)

	// Component returns the live component of type tid at sid.
	Component(tid ComponentTID, sid ComponentSID) (Component, bool)

	// Components returns the live components of type tid in SID order.
	Components(tid ComponentTID) []Component

	// ComponentTIDs returns the registered type IDs in ascending order.
	ComponentTIDs() []ComponentTID

	// LiveCount returns the number of live components of type tid.
	LiveCount(tid ComponentTID) int

	// Accessor returns the storage accessor of a member of type tid.
	Accessor(tid ComponentTID, member string) (*memory.Accessor, bool)

	// Process runs stage on every live component of type tid in SID order.
	// It is a no-op for types that do not implement the stage.
	//
	// Parameters:
	//   - tid: the component type ID
	//   - stage: the stage to run
	Process(tid ComponentTID, stage ProcessStage)

	// ProcessAll runs stage for every registered type in ascending TID.
	// Callers must not depend on the order between types.
	//
	// Parameters:
	//   - stage: the stage to run
	ProcessAll(stage ProcessStage)

	// CopyMembers copies every member row of src into dst. Both must be of the same type.
	CopyMembers(dst, src Component)
}

var _ ComponentRepository = &componentRepository{}

func newComponentRepository(w *World) *componentRepository {
	return &componentRepository{
		world:  w,
		logger: w.logger.Named("components"),
		stores: make(map[ComponentTID]*componentStore),
		names:  make(map[string]ComponentTID),
	}
}

func (r *componentRepository) RegisterComponentClass(class *ComponentClass) error {
	if _, ok := r.stores[class.tid]; ok {
		return fmt.Errorf("register %s (tid %d): %w", class.name, class.tid, ErrComponentClassExists)
	}

	maxCount := class.MaxCount(r.world.cfg)
	store := &componentStore{
		class:     class,
		maxCount:  maxCount,
		accessors: make(map[string]*memory.Accessor, len(class.members)),
	}
	if err := r.submitToAllocation(store, maxCount); err != nil {
		r.logger.Error("component allocation failed", zap.String("class", class.name), zap.Error(err))
		return fmt.Errorf("register %s (tid %d): %w", class.name, class.tid, err)
	}

	r.stores[class.tid] = store
	r.names[class.name] = class.tid
	r.tids = append(r.tids, class.tid)
	sort.Slice(r.tids, func(i, j int) bool { return r.tids[i] < r.tids[j] })

	r.logger.Debug("component class registered",
		zap.String("class", class.name),
		zap.Int32("tid", int32(class.tid)),
		zap.Int("maxCount", maxCount))
	return nil
}

// submitToAllocation takes one BufferView and Accessor per member, sized for count rows.
func (r *componentRepository) submitToAllocation(store *componentStore, count int) error {
	for _, m := range store.class.members {
		buf := r.world.memory.CreateOrGetBuffer(m.BufferUse)
		elemSize := m.CompositionType.NumberOfComponents() * m.ComponentType.SizeInBytes()
		view, err := buf.TakeBufferView(elemSize*count, 0)
		if err != nil {
			return fmt.Errorf("member %s: %w", m.Name, err)
		}
		acc, err := view.TakeAccessor(memory.AccessorDescriptor{
			CompositionType: m.CompositionType,
			ComponentType:   m.ComponentType,
			Count:           count,
		})
		if err != nil {
			return fmt.Errorf("member %s: %w", m.Name, err)
		}
		store.accessors[m.Name] = acc
	}
	return nil
}

func (r *componentRepository) ComponentClass(tid ComponentTID) (*ComponentClass, bool) {
	s, ok := r.stores[tid]
	if !ok {
		return nil, false
	}
	return s.class, true
}

func (r *componentRepository) ComponentClassByName(name string) (*ComponentClass, bool) {
	tid, ok := r.names[name]
	if !ok {
		return nil, false
	}
	return r.ComponentClass(tid)
}

func (r *componentRepository) CreateComponent(tid ComponentTID, uid EntityUID) (Component, error) {
	store, ok := r.stores[tid]
	if !ok {
		return nil, fmt.Errorf("create component tid %d: %w", tid, ErrComponentClassNotFound)
	}

	var sid ComponentSID
	switch {
	case len(store.free) > 0:
		sid = store.free[0]
		store.free = store.free[1:]
	case len(store.instances) < store.maxCount:
		sid = ComponentSID(len(store.instances))
		store.instances = append(store.instances, nil)
	default:
		return nil, fmt.Errorf("create %s: %w (max %d)", store.class.name, ErrComponentLimit, store.maxCount)
	}

	r.resetRow(store, sid)

	c := store.class.newFunc()
	b := c.componentBase()
	b.tid = tid
	b.sid = sid
	b.entityUID = uid
	b.alive = true
	b.store = store
	b.world = r.world

	store.instances[sid] = c
	store.live++

	if mb, ok := c.(MemberBinder); ok {
		mb.BindMembers()
	}
	return c, nil
}

func (r *componentRepository) resetRow(store *componentStore, sid ComponentSID) {
	for _, m := range store.class.members {
		acc := store.accessors[m.Name]
		vals := make([]float32, acc.ElementCount())
		copy(vals, m.InitValues)
		acc.SetElement(int(sid), vals...)
	}
}

func (r *componentRepository) DestroyComponent(c Component) {
	if c == nil || !c.IsAlive() {
		return
	}
	b := c.componentBase()
	store := b.store

	if d, ok := c.(Destroyer); ok {
		d.OnDestroy()
	}
	b.alive = false

	if store == nil || int(b.sid) >= len(store.instances) || store.instances[b.sid] != c {
		return
	}
	store.instances[b.sid] = nil
	store.live--

	i := sort.Search(len(store.free), func(i int) bool { return store.free[i] >= b.sid })
	store.free = append(store.free, 0)
	copy(store.free[i+1:], store.free[i:])
	store.free[i] = b.sid
}

func (r *componentRepository) Component(tid ComponentTID, sid ComponentSID) (Component, bool) {
	store, ok := r.stores[tid]
	if !ok || sid < 0 || int(sid) >= len(store.instances) {
		return nil, false
	}
	c := store.instances[sid]
	return c, c != nil
}

func (r *componentRepository) Components(tid ComponentTID) []Component {
	store, ok := r.stores[tid]
	if !ok {
		return nil
	}
	out := make([]Component, 0, store.live)
	for _, c := range store.instances {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (r *componentRepository) ComponentTIDs() []ComponentTID {
	out := make([]ComponentTID, len(r.tids))
	copy(out, r.tids)
	return out
}

func (r *componentRepository) LiveCount(tid ComponentTID) int {
	if store, ok := r.stores[tid]; ok {
		return store.live
	}
	return 0
}

func (r *componentRepository) Accessor(tid ComponentTID, member string) (*memory.Accessor, bool) {
	store, ok := r.stores[tid]
	if !ok {
		return nil, false
	}
	a, ok := store.accessors[member]
	return a, ok
}

func (r *componentRepository) Process(tid ComponentTID, stage ProcessStage) {
	store, ok := r.stores[tid]
	if !ok {
		return
	}
	// components created during the sweep are visited next frame, including ones that reuse a freed SID
	for _, c := range slices.Clone(store.instances) {
		if c == nil || !c.IsAlive() {
			continue
		}
		if !implementsStage(c, stage) {
			// every instance of a type shares its method set
			return
		}
		runStage(c, stage)
	}
}

func (r *componentRepository) ProcessAll(stage ProcessStage) {
	for _, tid := range r.ComponentTIDs() {
		r.Process(tid, stage)
	}
}

func (r *componentRepository) CopyMembers(dst, src Component) {
	db, sb := dst.componentBase(), src.componentBase()
	if db.store == nil || db.store != sb.store {
		return
	}
	for _, acc := range db.store.accessors {
		acc.CopyElement(int(db.sid), acc, int(sb.sid))
	}
}
