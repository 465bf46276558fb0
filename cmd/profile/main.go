// Profiling:
// go build ./cmd/profile
// go tool pprof -http=":8000" -nodefraction=0.001 ./profile mem.pprof
package main

import (
	"github.com/kaelvane/hollowecs"
	"github.com/pkg/profile"
)

type position struct {
	X, Y float64
}

type velocity struct {
	DX, DY float64
}

// moveSystem takes its World by constructor injection, the same pattern the
// teacher's profiling mains use to reach the World from inside a query
// callback: a system's Execute only gets its own declared queries from the
// hollowecs.System interface, not a World handle, so anything that needs to
// mutate components has to be handed one up front.
type moveSystem struct {
	hollowecs.BaseSystem
	entities *hollowecs.EntityStore
}

func newMoveSystem(w *hollowecs.World) *moveSystem {
	return &moveSystem{entities: w.Entities()}
}

func (s *moveSystem) Init() *hollowecs.SystemConfig {
	cfg := hollowecs.NewSystemConfig()
	cfg.Query("movers", hollowecs.Comp[position](), hollowecs.Comp[velocity]()).Done()
	return cfg
}

func (s *moveSystem) Execute(delta, elapsed float64) {
	for _, e := range s.Query("movers").Entities() {
		pos, ok := hollowecs.GetMutableComponent[position](s.entities, e)
		if !ok {
			continue
		}
		vel, _ := hollowecs.GetComponent[velocity](s.entities, e)
		pos.X += vel.DX * delta
		pos.Y += vel.DY * delta
	}
}

func main() {
	rounds := 50
	ticks := 10000
	entityCount := 1000

	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, ticks, entityCount)
	p.Stop()
}

func run(rounds, ticks, entityCount int) {
	for range rounds {
		w := hollowecs.NewWorld()
		w.RegisterSystem(newMoveSystem(w))

		entities := make([]hollowecs.Entity, 0, entityCount)
		for range entityCount {
			e := w.CreateEntity()
			hollowecs.AddComponent(w.Entities(), e, position{})
			hollowecs.AddComponent(w.Entities(), e, velocity{DX: 1, DY: 1})
			entities = append(entities, e)
		}

		for range ticks {
			w.Tick(1.0 / 60.0)
		}

		for _, e := range entities {
			w.RemoveEntity(e, true)
		}
	}
}
