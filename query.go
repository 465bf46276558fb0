package hollowecs

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ComponentToken names one component type in a query's required or
// forbidden set, produced by Comp[T]() or Not[T](). It carries
// ensureComponentType[T] itself as a closure so that resolveQuerySpec can
// register T without knowing T at that call site — Go generics don't let a
// struct hold an unbound type parameter, so the instantiated function is the
// next best thing.
type ComponentToken struct {
	ensure func(r *ComponentRegistry) *componentTypeInfo
	forbid bool
}

// Comp builds a token requiring T to be present.
func Comp[T any]() ComponentToken {
	return ComponentToken{ensure: ensureComponentType[T]}
}

// Not builds a token requiring T to be absent (spec §3, "forbidden set").
func Not[T any]() ComponentToken {
	return ComponentToken{ensure: ensureComponentType[T], forbid: true}
}

// QuerySpec is a resolved required/forbidden componentMask together with its
// canonical key. Grounded on the teacher's filter.go (Filter's cached
// include/exclude bitmask256), generalized to build the mask from named
// ComponentTokens instead of generated fixed-arity FilterN types.
type QuerySpec struct {
	key       string
	required  componentMask
	forbidden componentMask
}

// resolveQuerySpec registers every token's type against r (auto-registering
// on first sight, per component.go) and builds the spec's canonical key: the
// sorted, "!"-prefixed-for-forbidden type names joined with "-", so that two
// equivalent token lists always collide on the same Query (spec §4.4).
func resolveQuerySpec(r *ComponentRegistry, tokens ...ComponentToken) QuerySpec {
	var spec QuerySpec
	names := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		info := tok.ensure(r)
		if tok.forbid {
			spec.forbidden.set(info.id)
			names = append(names, "!"+info.name)
		} else {
			spec.required.set(info.id)
			names = append(names, info.name)
		}
	}
	sort.Strings(names)
	spec.key = strings.Join(names, "-")
	return spec
}

// Query is a live, incrementally-maintained view over every entity whose
// component set satisfies spec (spec §3). Entities is insertion-ordered:
// membership changes append or splice rather than swap-remove, so iteration
// order never depends on removal history (see DESIGN.md, C4/C5 tradeoff
// note). A Query owns its own reactive EventDispatcher for EntityAdded,
// EntityRemoved and ComponentChanged (spec §4.9), separate from the World's
// global bus, mirroring the teacher's per-filter subscription model
// (filter.go) generalized from archetype-level to entity-level events.
type Query struct {
	spec       QuerySpec
	entities   []Entity
	dispatcher *EventDispatcher
	changeMask componentMask // component types this query reports ComponentChanged for
}

func newQuery(spec QuerySpec, log *zap.Logger) *Query {
	return &Query{
		spec:       spec,
		dispatcher: NewEventDispatcher(log),
	}
}

// Key returns the query's canonical identity string.
func (q *Query) Key() string { return q.spec.key }

// Entities returns the query's current member list, in insertion order.
// Callers must not mutate the returned slice.
func (q *Query) Entities() []Entity { return q.entities }

// Len returns the number of entities currently matching the query.
func (q *Query) Len() int { return len(q.entities) }

func (q *Query) matches(mask componentMask) bool {
	return matches(mask, q.spec.required, q.spec.forbidden)
}

// WatchComponentChanges enables ComponentChanged notifications for T on this
// query (spec §4.9's OnComponentChanged(components) filter).
func WatchComponentChanges[T any](r *ComponentRegistry, q *Query) {
	q.changeMask.set(ensureComponentType[T](r).id)
}

func (q *Query) watchesChange(id TypeID) bool { return q.changeMask.has(id) }

// OnEntityAdded subscribes h to entities newly matching this query.
func (q *Query) OnEntityAdded(h HandlerFunc) { q.dispatcher.Subscribe("EntityAdded", h) }

// OnEntityRemoved subscribes h to entities that stop matching this query,
// including entities destroyed outright (spec §4.9).
func (q *Query) OnEntityRemoved(h HandlerFunc) { q.dispatcher.Subscribe("EntityRemoved", h) }

// OnComponentChanged subscribes h to mutation of a watched component on a
// member entity (spec §4.9), see WatchComponentChanges.
func (q *Query) OnComponentChanged(h HandlerFunc) { q.dispatcher.Subscribe("ComponentChanged", h) }
