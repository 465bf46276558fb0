package hollowecs

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

type schedulerEntry struct {
	sys   System
	order int
}

// Scheduler runs registered systems in priority order every tick (spec §3
// Scheduler). Grounded on rdtc8822's internal/core/system/runner.go
// (Register/sortByPhase over a fixed Phase enum), generalized to a numeric
// Priority and corrected to a *stable* sort: rdtc8822 resorts with plain
// sort.Slice, which doesn't guarantee registration order survives among
// equal priorities; spec §8 scenario 6 requires that tie-break, so this
// port uses sort.SliceStable instead.
type Scheduler struct {
	entries         []schedulerEntry
	nextOrder       int
	registry        *ComponentRegistry
	queries         *QueryIndex
	worldDispatcher *EventDispatcher
	log             *zap.Logger
}

func newScheduler(registry *ComponentRegistry, queries *QueryIndex, worldDispatcher *EventDispatcher, log *zap.Logger) *Scheduler {
	return &Scheduler{
		registry:        registry,
		queries:         queries,
		worldDispatcher: worldDispatcher,
		log:             log,
	}
}

// Register runs sys.Init(), resolves and wires its declared queries and
// event subscriptions, and inserts it into the priority-ordered schedule.
// Re-registering the same System keeps its single schedule entry (and its
// registration order): Init runs again, its query map, event buffers and
// priority are rebuilt, and SetEnabled state set before Register is
// preserved (only a system's very first Register forces it enabled).
// Subscriptions made by the earlier registration are not removed.
func (sch *Scheduler) Register(sys System) {
	cfg := sys.Init()
	base := sys.base()
	base.priority = cfg.priority
	if !base.initialized {
		base.enabled = true
		base.initialized = true
	}
	base.queries = make(map[string]*Query, len(cfg.queryDecls))
	base.events = make(map[string][]systemEvent)
	base.dedup = make(map[string]map[Entity]struct{})

	for _, decl := range cfg.queryDecls {
		spec := resolveQuerySpec(sch.registry, decl.tokens...)
		if spec.required.isZero() {
			panic(fmt.Sprintf("hollowecs: system query %q has an empty required set: %v", decl.name, ErrEmptyQuery))
		}
		q, _ := sch.queries.getOrCreate(spec)
		base.queries[decl.name] = q
	}

	for _, sub := range cfg.subs {
		sub := sub
		if sub.queryName == "" {
			sch.worldDispatcher.Subscribe(sub.topic, func(args ...any) {
				var e Entity
				if len(args) > 0 {
					if ent, ok := args[0].(Entity); ok {
						e = ent
					}
				}
				base.buffer(sub.topic, e, false, args...)
			})
			continue
		}

		q := base.queries[sub.queryName]
		switch sub.topic {
		case "EntityAdded":
			q.OnEntityAdded(func(args ...any) {
				base.buffer(sub.topic, args[0].(Entity), true, args...)
			})
		case "EntityRemoved":
			q.OnEntityRemoved(func(args ...any) {
				base.buffer(sub.topic, args[0].(Entity), true, args...)
			})
		case "ComponentChanged":
			for _, tok := range sub.changeTokens {
				q.changeMask.set(tok.ensure(sch.registry).id)
			}
			q.OnComponentChanged(func(args ...any) {
				base.buffer(sub.topic, args[0].(Entity), false, args...)
			})
		case "EntityChanged":
			for _, tok := range sub.changeTokens {
				q.changeMask.set(tok.ensure(sch.registry).id)
			}
			q.OnComponentChanged(func(args ...any) {
				base.buffer(sub.topic, args[0].(Entity), true, args...)
			})
		}
	}

	for _, e := range sch.entries {
		if e.sys == sys {
			sch.resort()
			return
		}
	}
	sch.entries = append(sch.entries, schedulerEntry{sys: sys, order: sch.nextOrder})
	sch.nextOrder++
	sch.resort()
}

// Remove drops sys from the schedule by identity. A no-op if sys was never
// registered.
func (sch *Scheduler) Remove(sys System) {
	for i, e := range sch.entries {
		if e.sys == sys {
			sch.entries = append(sch.entries[:i], sch.entries[i+1:]...)
			return
		}
	}
}

func (sch *Scheduler) resort() {
	sort.SliceStable(sch.entries, func(i, j int) bool {
		return sch.entries[i].sys.base().priority < sch.entries[j].sys.base().priority
	})
}

// Tick runs every enabled system once, in priority order, then clears each
// system's event buffers immediately after its own Execute returns (spec
// §4.8). Entity/component destruction deferred during this pass is left for
// the caller to drain via EntityStore.ProcessDeferred once every system has
// run (spec §4.7: deferred removal happens after the full tick, not
// mid-tick).
func (sch *Scheduler) Tick(delta, elapsed float64) {
	for _, e := range sch.entries {
		base := e.sys.base()
		if !base.enabled {
			continue
		}
		start := time.Now()
		e.sys.Execute(delta, elapsed)
		base.lastExecuteNanos = time.Since(start).Nanoseconds()
		e.sys.ClearEvents()
	}
}

// Systems returns the currently scheduled systems, in execution order.
func (sch *Scheduler) Systems() []System {
	out := make([]System, len(sch.entries))
	for i, e := range sch.entries {
		out[i] = e.sys
	}
	return out
}
