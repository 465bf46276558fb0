package hollowecs

import (
	"fmt"
	"time"
)

// Stats is a point-in-time snapshot of a World's internal counters (spec
// §4.10's diagnostics surface). Grounded on the teacher's World.Stats /
// PrintStats (world.go, world_api.go), generalized from per-chunk counts to
// per-component-pool and per-query counts since this port has no chunk
// storage to report on.
type Stats struct {
	Systems       []SystemStats
	Queries       []QueryStats
	Components    []ComponentStats
	EventsFired   int
	EventsHandled int
}

// SystemStats describes one scheduled system's current configuration and
// last-tick timing.
type SystemStats struct {
	Name        string
	Priority    int
	Enabled     bool
	LastExecute time.Duration
	QueryNames  []string
}

// QueryStats describes one live Query's current membership size.
type QueryStats struct {
	Key      string
	Entities int
}

// ComponentStats describes one registered component type's live count and
// backing pool occupancy.
type ComponentStats struct {
	Name      string
	Live      int
	PoolTotal int
	PoolFree  int
	PoolUsed  int
}

// Stats snapshots the World's current systems, queries, component pools and
// global event counters.
func (w *World) Stats() Stats {
	s := Stats{
		EventsFired:   w.dispatcher.Fired(),
		EventsHandled: w.dispatcher.Handled(),
	}
	for _, sys := range w.scheduler.Systems() {
		base := sys.base()
		names := make([]string, 0, len(base.queries))
		for name := range base.queries {
			names = append(names, name)
		}
		s.Systems = append(s.Systems, SystemStats{
			Name:        fmt.Sprintf("%T", sys),
			Priority:    base.priority,
			Enabled:     base.enabled,
			LastExecute: time.Duration(base.lastExecuteNanos),
			QueryNames:  names,
		})
	}
	for _, q := range w.queries.all {
		s.Queries = append(s.Queries, QueryStats{Key: q.Key(), Entities: q.Len()})
	}
	for _, info := range w.components.byID {
		total, free, used := info.poolStats()
		s.Components = append(s.Components, ComponentStats{
			Name:      info.name,
			Live:      info.liveCount,
			PoolTotal: total,
			PoolFree:  free,
			PoolUsed:  used,
		})
	}
	return s
}
