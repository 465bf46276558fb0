package hollowecs

import "go.uber.org/zap"

// World composes the component registry, entity store, query index,
// scheduler and a global event dispatcher into the single façade spec §3
// describes as the root of an ECS runtime. Grounded on the teacher's World
// (world.go/world_api.go): same role, same "one object owns every
// subsystem" shape, rebuilt around this port's map-based entity storage
// instead of archetype/chunk storage.
type World struct {
	components *ComponentRegistry
	entities   *EntityStore
	queries    *QueryIndex
	scheduler  *Scheduler
	dispatcher *EventDispatcher

	log     *zap.Logger
	running bool
	elapsed float64
}

// Option configures a World at construction time. A World is a runtime
// object with no natural on-disk settings, so configuration is a handful of
// functional options rather than a config file (see SPEC_FULL.md's AMBIENT
// STACK section).
type Option func(*World)

// WithLogger overrides the World's zap.Logger. The default is a no-op
// logger, matching the teacher's pattern of accepting a nil logger
// gracefully (eventbus.go).
func WithLogger(log *zap.Logger) Option {
	return func(w *World) { w.log = log }
}

// NewWorld constructs an empty, running World ready for component and
// system registration.
func NewWorld(opts ...Option) *World {
	w := &World{log: zap.NewNop(), running: true}
	for _, opt := range opts {
		opt(w)
	}
	w.components = newComponentRegistry()
	w.entities = newEntityStore(w.components, w.log)
	w.queries = newQueryIndex(w.log, w.entities.metaFor)
	w.entities.queries = w.queries
	w.dispatcher = NewEventDispatcher(w.log)
	w.scheduler = newScheduler(w.components, w.queries, w.dispatcher, w.log)
	return w
}

// Components exposes the World's ComponentRegistry, so that
// RegisterComponent[T]/RegisterSingletonComponent[T] (component.go) can be
// called against it: w.Components() stands in for the generic method Go
// doesn't let World have directly.
func (w *World) Components() *ComponentRegistry { return w.components }

// Entities exposes the World's EntityStore, so that the package-level
// generic component accessors (AddComponent[T], GetComponent[T], ...) in
// store.go can be called against it.
func (w *World) Entities() *EntityStore { return w.entities }

// CreateEntity allocates a new entity and fires EntityCreated.
func (w *World) CreateEntity() Entity { return w.entities.Create() }

// IsValid reports whether e names a currently live entity.
func (w *World) IsValid(e Entity) bool { return w.entities.IsValid(e) }

// Validate returns an *ErrUnknownEntity if e does not name a currently live
// entity. Most entity operations silently no-op on a stale or unknown
// handle (matching source semantics); Validate is for callers that want
// that condition surfaced as an error instead.
func (w *World) Validate(e Entity) error {
	if w.entities.IsValid(e) {
		return nil
	}
	return &ErrUnknownEntity{Entity: e}
}

// RemoveEntity queues e for destruction, deferred unless force=true.
func (w *World) RemoveEntity(e Entity, force ...bool) { w.entities.RemoveEntity(e, force...) }

// RemoveAllComponents detaches every component e owns, deferred unless
// force=true.
func (w *World) RemoveAllComponents(e Entity, force ...bool) { w.entities.RemoveAllComponents(e, force...) }

// HasAllComponents reports whether e satisfies every token.
func (w *World) HasAllComponents(e Entity, tokens ...ComponentToken) bool {
	return w.entities.HasAllComponents(e, tokens...)
}

// AddTag attaches tag to e.
func (w *World) AddTag(e Entity, tag string) { w.entities.AddTag(e, tag) }

// RemoveTag detaches tag from e.
func (w *World) RemoveTag(e Entity, tag string) { w.entities.RemoveTag(e, tag) }

// HasTag reports whether e carries tag.
func (w *World) HasTag(e Entity, tag string) bool { return w.entities.HasTag(e, tag) }

// ByTag returns every live entity carrying tag.
func (w *World) ByTag(tag string) []Entity { return w.entities.ByTag(tag) }

// GetSingleton returns the World's singleton instance of T, or nil if T was
// never registered as a singleton via RegisterSingletonComponent.
func GetSingleton[T any](w *World) *T {
	info := ensureComponentType[T](w.components)
	if !info.isSingleton || info.singleton == nil {
		return nil
	}
	return info.singleton.(*T)
}

// SingletonByName returns a registered singleton's instance (as *T boxed in
// any), looked up by its derived name: the type's name with the first
// letter lowercased (spec §3). Returns nil if no singleton is registered
// under that name. Typed callers should prefer GetSingleton[T].
func (w *World) SingletonByName(name string) any { return w.components.singletonByName(name) }

// Query returns the ad-hoc Query for tokens, creating and silently
// backfilling it on first use (spec §4.4). Returns ErrEmptyQuery if the
// resolved required set is empty — spec §4.4 requires at least one required
// component (|R|≥1); a forbidden-only query (e.g. Not[T]()) resolves to the
// same empty required set as no tokens at all, since forbidding things
// without requiring anything isn't a query, it's every entity, and callers
// that want that should say so with ByTag or a direct entity list rather
// than an empty Query.
func (w *World) Query(tokens ...ComponentToken) (*Query, error) {
	spec := resolveQuerySpec(w.components, tokens...)
	if spec.required.isZero() {
		return nil, ErrEmptyQuery
	}
	q, created := w.queries.getOrCreate(spec)
	if created {
		for i := range w.entities.metas {
			m := &w.entities.metas[i]
			if !m.alive {
				continue
			}
			w.queries.backfill(q, Entity{ID: uint32(i), Version: m.version}, m)
		}
	}
	return q, nil
}

// RegisterSystem runs sys.Init() and adds it to the scheduler.
func (w *World) RegisterSystem(sys System) { w.scheduler.Register(sys) }

// RemoveSystem drops sys from the scheduler.
func (w *World) RemoveSystem(sys System) { w.scheduler.Remove(sys) }

// Tick runs one frame: every enabled system executes once in priority
// order, then every removal deferred during the frame (entities and
// components alike) is drained (spec §4.7, §4.8).
func (w *World) Tick(delta float64) {
	if !w.running {
		return
	}
	w.elapsed += delta
	w.scheduler.Tick(delta, w.elapsed)
	w.entities.ProcessDeferred()
}

// Play resumes Tick processing.
func (w *World) Play() { w.running = true }

// Stop suspends Tick processing; Tick becomes a no-op until the next Play.
func (w *World) Stop() { w.running = false }

// Running reports whether Tick currently does anything.
func (w *World) Running() bool { return w.running }

// EmitEvent fires name on the World's global event bus (spec §4.9's
// world-level events, distinct from per-query reactive events).
func (w *World) EmitEvent(name string, args ...any) { w.dispatcher.Emit(name, args...) }

// AddEventListener subscribes h to the World's global event bus.
func (w *World) AddEventListener(name string, h HandlerFunc) { w.dispatcher.Subscribe(name, h) }

// RemoveEventListener unsubscribes h from the World's global event bus.
func (w *World) RemoveEventListener(name string, h HandlerFunc) { w.dispatcher.Unsubscribe(name, h) }
