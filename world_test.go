package hollowecs

import "testing"

type worldTestPosition struct{ X, Y float64 }
type worldTestVelocity struct{ DX, DY float64 }
type worldTestDead struct{}

func TestWorldQueryBasicMembership(t *testing.T) {
	w := NewWorld()
	e1 := w.CreateEntity()
	e2 := w.CreateEntity()
	AddComponent(w.Entities(), e1, worldTestPosition{X: 1})
	AddComponent(w.Entities(), e2, worldTestPosition{X: 2})
	AddComponent(w.Entities(), e2, worldTestVelocity{DX: 1})

	movers, err := w.Query(Comp[worldTestPosition](), Comp[worldTestVelocity]())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if movers.Len() != 1 || movers.Entities()[0] != e2 {
		t.Fatalf("expected only e2 to match, got %v", movers.Entities())
	}
}

func TestWorldQueryNegation(t *testing.T) {
	w := NewWorld()
	alive := w.CreateEntity()
	dead := w.CreateEntity()
	AddComponent(w.Entities(), alive, worldTestPosition{})
	AddComponent(w.Entities(), dead, worldTestPosition{})
	AddComponent(w.Entities(), dead, worldTestDead{})

	q, err := w.Query(Comp[worldTestPosition](), Not[worldTestDead]())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Len() != 1 || q.Entities()[0] != alive {
		t.Fatalf("expected only the alive entity to match, got %v", q.Entities())
	}
}

func TestWorldQueryRejectsEmptyTokenList(t *testing.T) {
	w := NewWorld()
	_, err := w.Query()
	if err != ErrEmptyQuery {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestWorldQueryRejectsForbiddenOnlyTokenList(t *testing.T) {
	w := NewWorld()
	_, err := w.Query(Not[worldTestDead]())
	if err != ErrEmptyQuery {
		t.Fatalf("expected ErrEmptyQuery for a forbidden-only query with no required components, got %v", err)
	}
}

func TestWorldDeferredEntityRemovalDrainsOnTick(t *testing.T) {
	w := NewWorld()
	e := w.CreateEntity()
	AddComponent(w.Entities(), e, worldTestPosition{})
	w.RemoveEntity(e)
	if !w.IsValid(e) {
		t.Fatal("expected entity to remain valid until the tick's deferred drain")
	}
	w.Tick(0.016)
	if w.IsValid(e) {
		t.Fatal("expected entity invalidated after Tick drains deferred removals")
	}
}

func TestWorldStopSuspendsTicking(t *testing.T) {
	w := NewWorld()
	var ran int
	sys := &recordingSystemW{onExecute: func() { ran++ }}
	w.RegisterSystem(sys)
	w.Stop()
	w.Tick(0.016)
	if ran != 0 {
		t.Fatalf("expected no execution while stopped, got %d", ran)
	}
	w.Play()
	w.Tick(0.016)
	if ran != 1 {
		t.Fatalf("expected 1 execution after Play, got %d", ran)
	}
}

type recordingSystemW struct {
	BaseSystem
	onExecute func()
}

func (s *recordingSystemW) Init() *SystemConfig { return NewSystemConfig() }
func (s *recordingSystemW) Execute(delta, elapsed float64) {
	if s.onExecute != nil {
		s.onExecute()
	}
}

func TestWorldGlobalEventBus(t *testing.T) {
	w := NewWorld()
	var payload string
	w.AddEventListener("game.started", func(args ...any) {
		payload = args[0].(string)
	})
	w.EmitEvent("game.started", "level-1")
	if payload != "level-1" {
		t.Fatalf("expected listener to observe emitted payload, got %q", payload)
	}
}

func TestWorldSingletonComponent(t *testing.T) {
	w := NewWorld()
	RegisterSingletonComponent(w.Components(), worldTestPosition{X: 7, Y: 8})
	got := GetSingleton[worldTestPosition](w)
	if got == nil || got.X != 7 || got.Y != 8 {
		t.Fatalf("expected singleton (7,8), got %+v", got)
	}
}

func TestWorldSingletonByName(t *testing.T) {
	w := NewWorld()
	RegisterSingletonComponent(w.Components(), worldTestPosition{X: 3, Y: 4})
	got := w.SingletonByName("worldTestPosition")
	pos, ok := got.(*worldTestPosition)
	if !ok || pos.X != 3 || pos.Y != 4 {
		t.Fatalf("expected singleton (3,4) by name, got %+v", got)
	}
	if w.SingletonByName("nope") != nil {
		t.Fatal("expected nil for an unregistered singleton name")
	}
}

func TestWorldStatsReportsPoolsQueriesAndSystems(t *testing.T) {
	w := NewWorld()
	sys := &movementSystem{}
	w.RegisterSystem(sys)
	e := w.CreateEntity()
	AddComponent(w.Entities(), e, sysTestPosition{})
	AddComponent(w.Entities(), e, sysTestVelocity{})
	w.Tick(0.016)

	stats := w.Stats()
	if len(stats.Systems) != 1 {
		t.Fatalf("expected 1 system in stats, got %d", len(stats.Systems))
	}
	if len(stats.Queries) != 1 || stats.Queries[0].Entities != 1 {
		t.Fatalf("expected 1 query with 1 entity, got %+v", stats.Queries)
	}
	foundPosition := false
	for _, c := range stats.Components {
		if c.Name == "sysTestPosition" {
			foundPosition = true
			if c.Live != 1 || c.PoolUsed != 1 {
				t.Errorf("expected live=1 used=1 for sysTestPosition, got %+v", c)
			}
		}
	}
	if !foundPosition {
		t.Fatal("expected sysTestPosition to appear in component stats")
	}
}

func TestWorldValidate(t *testing.T) {
	w := NewWorld()
	e := w.CreateEntity()
	if err := w.Validate(e); err != nil {
		t.Fatalf("expected valid entity, got error %v", err)
	}
	w.RemoveEntity(e, true)
	if err := w.Validate(e); err == nil {
		t.Fatal("expected error validating a removed entity")
	}
}
