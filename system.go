package hollowecs

// System is one unit of per-tick logic (spec §3). Init runs once, at
// Scheduler.Register time, and declares the named queries and event
// subscriptions the system needs; Execute runs every tick the system is
// enabled; ClearEvents drains the system's per-tick event buffers so the
// next tick starts clean (spec §4.8: events are scoped per system, per
// tick). The unexported base() method makes System a sealed interface —
// the only way to satisfy it from outside this package is to embed
// BaseSystem, which is also how a concrete system gets its bookkeeping.
type System interface {
	Init() *SystemConfig
	Execute(delta, elapsed float64)
	ClearEvents()
	base() *BaseSystem
}

type systemEvent struct {
	Topic  string
	Entity Entity
	Args   []any
}

// BaseSystem is embedded by every concrete System to get query lookup,
// per-tick event buffering, and the enabled/priority state the Scheduler
// needs (spec §3's System external state). Grounded on rdtc8822's
// system.go (its embeddable system struct carrying enabled/priority),
// extended with the named-query map and event buffers this port's richer
// subscription model requires.
type BaseSystem struct {
	enabled     bool
	initialized bool
	priority    int

	queries map[string]*Query
	events  map[string][]systemEvent
	dedup   map[string]map[Entity]struct{}

	lastExecuteNanos int64
}

func (b *BaseSystem) base() *BaseSystem { return b }

// Enabled reports whether the Scheduler currently runs this system each
// tick.
func (b *BaseSystem) Enabled() bool { return b.enabled }

// SetEnabled toggles whether the Scheduler runs this system (spec §4.8
// World.Stop/Play apply at the World level; per-system enable is the finer
// grain the source also exposes).
func (b *BaseSystem) SetEnabled(v bool) { b.enabled = v }

// Priority returns the system's current scheduling priority. Lower runs
// first.
func (b *BaseSystem) Priority() int { return b.priority }

// Query returns the live Query this system declared under name in Init. A
// lookup miss means the system is asking for a query it never declared —
// a programmer error surfaced immediately rather than returning a nil
// *Query for the caller to dereference later.
func (b *BaseSystem) Query(name string) *Query {
	q, ok := b.queries[name]
	if !ok {
		panic("hollowecs: system has no query named " + name)
	}
	return q
}

// Events returns this tick's buffered events for topic (empty if none
// fired). The slice is invalidated by the next ClearEvents call.
func (b *BaseSystem) Events(topic string) []systemEvent {
	return b.events[topic]
}

// buffer appends ev to topic's buffer. dedupe collapses repeated events for
// the same entity within one tick — applied to EntityAdded/EntityRemoved
// (spec §4.8: a system sees an entity enter or leave its query at most once
// per tick even if churn happens mid-tick) and to EntityChanged, but never to
// ComponentChanged, which fires once per mutating access and is meant to be
// counted.
func (b *BaseSystem) buffer(topic string, e Entity, dedupe bool, args ...any) {
	if dedupe {
		set := b.dedup[topic]
		if set == nil {
			set = make(map[Entity]struct{})
			b.dedup[topic] = set
		}
		if _, seen := set[e]; seen {
			return
		}
		set[e] = struct{}{}
	}
	b.events[topic] = append(b.events[topic], systemEvent{Topic: topic, Entity: e, Args: args})
}

// ClearEvents drains every buffered topic and its dedup set. Systems that
// embed BaseSystem normally implement their ClearEvents method as a direct
// call to this one.
func (b *BaseSystem) ClearEvents() {
	for k := range b.events {
		delete(b.events, k)
	}
	for k := range b.dedup {
		delete(b.dedup, k)
	}
}

// SystemConfig is the declarative result of System.Init: the named queries
// and event subscriptions a system wants wired before its first Execute.
// Built fluently, grounded on the teacher's Builder[T] (builder.go),
// generalized from building one entity's component set to building one
// system's wiring.
type SystemConfig struct {
	priority   int
	queryDecls []queryDecl
	subs       []systemSubscription
}

type queryDecl struct {
	name   string
	tokens []ComponentToken
}

type systemSubscription struct {
	queryName    string // empty for a World-level event subscription
	topic        string
	changeTokens []ComponentToken // only set for topic == "ComponentChanged" or "EntityChanged"
}

// NewSystemConfig starts a fresh, priority-0 configuration.
func NewSystemConfig() *SystemConfig {
	return &SystemConfig{}
}

// Priority sets the system's scheduling priority (spec §3: lower runs
// first; ties broken by registration order).
func (c *SystemConfig) Priority(p int) *SystemConfig {
	c.priority = p
	return c
}

// Query declares a named query the system will read during Execute,
// returning a builder for its reactive subscriptions.
func (c *SystemConfig) Query(name string, tokens ...ComponentToken) *QueryBuilder {
	return &QueryBuilder{config: c, decl: queryDecl{name: name, tokens: tokens}}
}

// OnWorldEvent subscribes the system to a World-level event name (spec
// §4.9's non-query event subscriptions — world lifecycle and
// user-emitted events rather than entity/component churn).
func (c *SystemConfig) OnWorldEvent(name string) *SystemConfig {
	c.subs = append(c.subs, systemSubscription{topic: name})
	return c
}

// QueryBuilder configures one named query's reactive subscriptions before
// handing control back to the owning SystemConfig via Done.
type QueryBuilder struct {
	config *SystemConfig
	decl   queryDecl
	subs   []systemSubscription
}

// OnEntityAdded buffers an event each time an entity starts matching this
// query.
func (b *QueryBuilder) OnEntityAdded() *QueryBuilder {
	b.subs = append(b.subs, systemSubscription{queryName: b.decl.name, topic: "EntityAdded"})
	return b
}

// OnEntityRemoved buffers an event each time an entity stops matching this
// query, including destruction.
func (b *QueryBuilder) OnEntityRemoved() *QueryBuilder {
	b.subs = append(b.subs, systemSubscription{queryName: b.decl.name, topic: "EntityRemoved"})
	return b
}

// OnComponentChanged buffers an event each time a mutable access
// (GetMutableComponent) touches one of tokens' types on a member entity
// (spec §4.9). Unlike EntityAdded/EntityRemoved/EntityChanged, these are
// never deduped within a tick.
func (b *QueryBuilder) OnComponentChanged(tokens ...ComponentToken) *QueryBuilder {
	b.subs = append(b.subs, systemSubscription{queryName: b.decl.name, topic: "ComponentChanged", changeTokens: tokens})
	return b
}

// OnEntityChanged buffers at most one event per member entity per tick when
// any of tokens' watched component types mutate on it (spec §4.7/§4.9). It
// rides the same underlying watched-component-mutation notification as
// OnComponentChanged, but collapses repeated mutations of the same entity
// within a tick into a single buffered event, the same dedup treatment
// EntityAdded/EntityRemoved get — unlike OnComponentChanged, which counts
// every occurrence.
func (b *QueryBuilder) OnEntityChanged(tokens ...ComponentToken) *QueryBuilder {
	b.subs = append(b.subs, systemSubscription{queryName: b.decl.name, topic: "EntityChanged", changeTokens: tokens})
	return b
}

// Done finalizes this query's declaration and returns the parent
// SystemConfig, enabling chains like
// cfg.Query("a", ...).OnEntityAdded().Done().Query("b", ...).Done().
func (b *QueryBuilder) Done() *SystemConfig {
	b.config.queryDecls = append(b.config.queryDecls, b.decl)
	b.config.subs = append(b.config.subs, b.subs...)
	return b.config
}
