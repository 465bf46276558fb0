package hollowecs

import (
	"reflect"

	"go.uber.org/zap"
)

type pendingComponentRemoval struct {
	entity Entity
	typeID TypeID
}

// EntityStore owns every entity's lifecycle, its component set, its tags,
// and the deferred-removal queues (spec §3 Entity, §4.6, §4.7). Grounded on
// the teacher's entity.go (free-id stack + version-on-reuse scheme) and on
// rdtc8822's destroyQueue/FlushDestroyQueue (internal/core/ecs/world.go),
// whose end-of-tick drain this port's ProcessDeferred mirrors; tag
// membership is grounded on milk9111-sidescroller's sparse_set.go
// (id-indexed set with reverse lookup).
type EntityStore struct {
	registry *ComponentRegistry
	queries  *QueryIndex
	log      *zap.Logger

	metas   []entityMeta
	freeIDs []uint32

	tagIndex map[string]map[uint32]struct{}

	pendingEntityRemoval    []Entity
	pendingComponentRemoval []pendingComponentRemoval

	dispatcher *EventDispatcher
}

func newEntityStore(registry *ComponentRegistry, log *zap.Logger) *EntityStore {
	return &EntityStore{
		registry:   registry,
		log:        log,
		tagIndex:   make(map[string]map[uint32]struct{}),
		dispatcher: NewEventDispatcher(log),
	}
}

// Create allocates a new entity, reusing a freed slot (and its bumped
// version) when one is available, and fires EntityCreated.
func (s *EntityStore) Create() Entity {
	var id uint32
	if n := len(s.freeIDs); n > 0 {
		id = s.freeIDs[n-1]
		s.freeIDs = s.freeIDs[:n-1]
		meta := &s.metas[id]
		meta.alive = true
		meta.mask = componentMask{}
		meta.comps = make(map[TypeID]any)
	} else {
		id = uint32(len(s.metas))
		s.metas = append(s.metas, newEntityMeta(1))
	}
	e := Entity{ID: id, Version: s.metas[id].version}
	s.dispatcher.Emit("EntityCreated", e)
	return e
}

// metaFor returns e's bookkeeping record, or nil if e no longer names a
// live entity (wrong generation, or slot was never allocated).
func (s *EntityStore) metaFor(e Entity) *entityMeta {
	if int(e.ID) >= len(s.metas) {
		return nil
	}
	m := &s.metas[e.ID]
	if !m.alive || m.version != e.Version {
		return nil
	}
	return m
}

// IsValid reports whether e names a currently live entity.
func (s *EntityStore) IsValid(e Entity) bool { return s.metaFor(e) != nil }

// AddTag attaches tag to e (idempotent).
func (s *EntityStore) AddTag(e Entity, tag string) {
	meta := s.metaFor(e)
	if meta == nil {
		return
	}
	if meta.tags == nil {
		meta.tags = make(map[string]struct{})
	}
	if _, ok := meta.tags[tag]; ok {
		return
	}
	meta.tags[tag] = struct{}{}
	set := s.tagIndex[tag]
	if set == nil {
		set = make(map[uint32]struct{})
		s.tagIndex[tag] = set
	}
	set[e.ID] = struct{}{}
}

// RemoveTag detaches tag from e, if present.
func (s *EntityStore) RemoveTag(e Entity, tag string) {
	meta := s.metaFor(e)
	if meta == nil {
		return
	}
	s.untag(e.ID, meta, tag)
}

func (s *EntityStore) untag(id uint32, meta *entityMeta, tag string) {
	if _, ok := meta.tags[tag]; !ok {
		return
	}
	delete(meta.tags, tag)
	if set := s.tagIndex[tag]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(s.tagIndex, tag)
		}
	}
}

// HasTag reports whether e carries tag.
func (s *EntityStore) HasTag(e Entity, tag string) bool {
	meta := s.metaFor(e)
	if meta == nil {
		return false
	}
	_, ok := meta.tags[tag]
	return ok
}

// ByTag returns every live entity currently carrying tag, in no particular
// order (tags, unlike queries, carry no ordering invariant).
func (s *EntityStore) ByTag(tag string) []Entity {
	set := s.tagIndex[tag]
	out := make([]Entity, 0, len(set))
	for id := range set {
		out = append(out, Entity{ID: id, Version: s.metas[id].version})
	}
	return out
}

// AddComponent attaches T to e, auto-registering T if unseen, and returns
// the new instance (copy-initialized from init, if given). Returns the
// existing instance unchanged if e already owns a T (spec §4.5:
// DuplicateAdd). Fires ComponentAdded and updates query membership.
func AddComponent[T any](s *EntityStore, e Entity, init ...T) *T {
	meta := s.metaFor(e)
	if meta == nil {
		return nil
	}
	info := ensureComponentType[T](s.registry)
	if existing, ok := meta.comps[info.id]; ok {
		return existing.(*T)
	}
	v := s.registry.acquire(info.id).(*T)
	if len(init) > 0 {
		s.registry.copyInto(info.id, v, init[0])
	}
	meta.comps[info.id] = v
	meta.mask.set(info.id)
	s.registry.onAttached(info.id)
	s.queries.onComponentAdded(e, meta)
	s.dispatcher.Emit("ComponentAdded", e, info.id)
	return v
}

// GetComponent returns a value copy of e's T, for read-only access (spec
// §4.6: first-level fields are immune to caller mutation; nested pointers or
// slices still alias the stored instance, same as the source's shallow
// freeze). ok is false if e doesn't own a T.
func GetComponent[T any](s *EntityStore, e Entity) (value T, ok bool) {
	meta := s.metaFor(e)
	if meta == nil {
		return value, false
	}
	info, known := s.registry.byType[reflect.TypeFor[T]()]
	if !known {
		return value, false
	}
	v, present := meta.comps[info.id]
	if !present {
		return value, false
	}
	return *v.(*T), true
}

// GetMutableComponent returns a pointer to e's live T instance and marks the
// access as a mutation, notifying any query watching T via
// WatchComponentChanges (spec §4.9 ComponentChanged). ok is false if e
// doesn't own a T.
func GetMutableComponent[T any](s *EntityStore, e Entity) (ptr *T, ok bool) {
	meta := s.metaFor(e)
	if meta == nil {
		return nil, false
	}
	info, known := s.registry.byType[reflect.TypeFor[T]()]
	if !known {
		return nil, false
	}
	v, present := meta.comps[info.id]
	if !present {
		return nil, false
	}
	s.queries.onComponentChanged(info.id, e, meta)
	return v.(*T), true
}

// HasComponent reports whether e owns a T. A T never seen by the registry
// reports false without registering it, since no entity could possibly own
// an unregistered type.
func HasComponent[T any](s *EntityStore, e Entity) bool {
	meta := s.metaFor(e)
	if meta == nil {
		return false
	}
	info, known := s.registry.byType[reflect.TypeFor[T]()]
	if !known {
		return false
	}
	return meta.mask.has(info.id)
}

// HasAllComponents reports whether e satisfies every token (required
// present, forbidden absent) — the same predicate a Query uses, exposed as
// a one-shot check (spec §4.6).
func (s *EntityStore) HasAllComponents(e Entity, tokens ...ComponentToken) bool {
	meta := s.metaFor(e)
	if meta == nil {
		return false
	}
	for _, tok := range tokens {
		info := tok.ensure(s.registry)
		has := meta.mask.has(info.id)
		if tok.forbid == has {
			return false
		}
	}
	return true
}

// RemoveComponent detaches T from e. Query index membership and the
// ComponentRemoved event happen synchronously, here, regardless of force
// (spec §4.5/§5: index update precedes event emission, and both complete
// before control returns to the caller); only the underlying map delete and
// pool release are deferred to the next ProcessDeferred unless force=true. A
// second deferred RemoveComponent for the same (e, T) before the queue
// drains is a no-op.
func RemoveComponent[T any](s *EntityStore, e Entity, force ...bool) {
	info := ensureComponentType[T](s.registry)
	if len(force) > 0 && force[0] {
		s.detachComponent(e, info.id)
		return
	}
	meta := s.metaFor(e)
	if meta == nil {
		return
	}
	if _, owns := meta.comps[info.id]; !owns {
		return
	}
	for _, pending := range meta.pendingComponentRemove {
		if pending == info.id {
			return
		}
	}
	s.notifyComponentWillRemove(e, meta, info.id)
	meta.pendingComponentRemove = append(meta.pendingComponentRemove, info.id)
	s.pendingComponentRemoval = append(s.pendingComponentRemoval, pendingComponentRemoval{entity: e, typeID: info.id})
}

// RemoveAllComponents detaches every component e owns. As with
// RemoveComponent, query membership and ComponentRemoved fire synchronously
// for each type; only the underlying storage release is deferred unless
// force=true.
func (s *EntityStore) RemoveAllComponents(e Entity, force ...bool) {
	meta := s.metaFor(e)
	if meta == nil {
		return
	}
	ids := make([]TypeID, 0, len(meta.comps))
	for id := range meta.comps {
		ids = append(ids, id)
	}
	immediate := len(force) > 0 && force[0]
	for _, id := range ids {
		if immediate {
			s.detachComponent(e, id)
			continue
		}
		already := false
		for _, p := range meta.pendingComponentRemove {
			if p == id {
				already = true
				break
			}
		}
		if already {
			continue
		}
		s.notifyComponentWillRemove(e, meta, id)
		meta.pendingComponentRemove = append(meta.pendingComponentRemove, id)
		s.pendingComponentRemoval = append(s.pendingComponentRemoval, pendingComponentRemoval{entity: e, typeID: id})
	}
}

// notifyComponentWillRemove runs the observable half of detaching id from e:
// dropping e from any query it's about to stop matching and emitting
// ComponentRemoved. Must run while id is still set in meta.mask (see
// QueryIndex.onComponentWillRemove) and before commitComponentRemoval, but
// may run well before it when the removal is deferred.
func (s *EntityStore) notifyComponentWillRemove(e Entity, meta *entityMeta, id TypeID) {
	s.queries.onComponentWillRemove(id, e, meta)
	s.dispatcher.Emit("ComponentRemoved", e, id)
}

// commitComponentRemoval performs the actual storage mutation for detaching
// id from e: clearing the map entry and mask bit, and returning the instance
// to its pool. Assumes notifyComponentWillRemove already ran for this (e,
// id) pair.
func (s *EntityStore) commitComponentRemoval(e Entity, id TypeID) {
	meta := s.metaFor(e)
	if meta == nil {
		return
	}
	v, owns := meta.comps[id]
	if !owns {
		return
	}
	delete(meta.comps, id)
	meta.mask.unset(id)
	s.registry.onDetached(id)
	s.registry.release(id, v)
	for i, p := range meta.pendingComponentRemove {
		if p == id {
			meta.pendingComponentRemove = append(meta.pendingComponentRemove[:i], meta.pendingComponentRemove[i+1:]...)
			break
		}
	}
}

// detachComponent runs the notify and commit halves back to back, for
// force=true callers that want the full removal to happen immediately.
func (s *EntityStore) detachComponent(e Entity, id TypeID) {
	meta := s.metaFor(e)
	if meta == nil {
		return
	}
	if _, owns := meta.comps[id]; !owns {
		return
	}
	s.notifyComponentWillRemove(e, meta, id)
	s.commitComponentRemoval(e, id)
}

// RemoveEntity queues e for destruction, deferred unless force=true (spec
// §4.7). Either way, e is dropped from every query (firing each query's
// EntityRemoved) and the store's EntityRemoved event fires here, before any
// component is detached, so listeners can still read e's components. A
// second deferred RemoveEntity before the queue drains is a no-op.
func (s *EntityStore) RemoveEntity(e Entity, force ...bool) {
	meta := s.metaFor(e)
	if meta == nil {
		return
	}
	if !meta.pendingRemoval {
		s.queries.onEntityRemoved(e, meta)
		s.dispatcher.Emit("EntityRemoved", e)
	}
	if len(force) > 0 && force[0] {
		s.destroyEntity(e)
		return
	}
	if meta.pendingRemoval {
		return
	}
	meta.pendingRemoval = true
	s.pendingEntityRemoval = append(s.pendingEntityRemoval, e)
}

func (s *EntityStore) destroyEntity(e Entity) {
	meta := s.metaFor(e)
	if meta == nil {
		return
	}
	s.queries.onEntityRemoved(e, meta)
	for id, v := range meta.comps {
		s.registry.onDetached(id)
		s.registry.release(id, v)
	}
	for tag := range meta.tags {
		s.untag(e.ID, meta, tag)
	}
	meta.alive = false
	meta.mask = componentMask{}
	meta.comps = nil
	meta.tags = nil
	meta.memberships = nil
	meta.pendingRemoval = false
	meta.pendingComponentRemove = nil
	meta.version++
	s.freeIDs = append(s.freeIDs, e.ID)
}

// ProcessDeferred drains the component-removal queue and then the
// entity-removal queue (spec §4.7), in that order so a component deferred
// for removal on an entity that's also being destroyed this tick is still
// individually detached before the entity itself disappears. Query
// membership and ComponentRemoved already fired synchronously when each
// removal was declared (see notifyComponentWillRemove); this drain only
// commits the underlying storage release.
func (s *EntityStore) ProcessDeferred() {
	removals := s.pendingComponentRemoval
	s.pendingComponentRemoval = nil
	for _, p := range removals {
		s.commitComponentRemoval(p.entity, p.typeID)
	}

	entities := s.pendingEntityRemoval
	s.pendingEntityRemoval = nil
	for _, e := range entities {
		s.destroyEntity(e)
	}
}
