package hollowecs

import "testing"

type sysTestPosition struct{ X, Y float64 }
type sysTestVelocity struct{ DX, DY float64 }

type movementSystem struct {
	BaseSystem
	addedSeen  int
	movedCount int
}

func (s *movementSystem) Init() *SystemConfig {
	cfg := NewSystemConfig().Priority(5)
	cfg.Query("movers", Comp[sysTestPosition](), Comp[sysTestVelocity]()).
		OnEntityAdded().
		Done()
	return cfg
}

func (s *movementSystem) Execute(delta, elapsed float64) {
	s.addedSeen += len(s.Events("EntityAdded"))
	s.movedCount = s.Query("movers").Len()
}

func TestSystemSeesQueryMembersAndEntityAddedEvents(t *testing.T) {
	w := NewWorld()
	sys := &movementSystem{}
	w.RegisterSystem(sys)

	e := w.CreateEntity()
	AddComponent(w.Entities(), e, sysTestPosition{X: 1})
	AddComponent(w.Entities(), e, sysTestVelocity{DX: 1})

	w.Tick(0.016)

	if sys.addedSeen != 1 {
		t.Fatalf("expected 1 EntityAdded event seen by system, got %d", sys.addedSeen)
	}
	if sys.movedCount != 1 {
		t.Fatalf("expected system's query to contain 1 entity, got %d", sys.movedCount)
	}

	w.Tick(0.016)
	if sys.addedSeen != 1 {
		t.Fatalf("expected EntityAdded buffer cleared after first tick, cumulative count grew to %d", sys.addedSeen)
	}
}

func TestSystemPanicsOnUndeclaredQueryName(t *testing.T) {
	w := NewWorld()
	sys := &movementSystem{}
	w.RegisterSystem(sys)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for undeclared query name")
		}
	}()
	sys.Query("nope")
}

type changeWatchSystem struct {
	BaseSystem
	seen int
}

func (s *changeWatchSystem) Init() *SystemConfig {
	cfg := NewSystemConfig()
	cfg.Query("watched", Comp[sysTestPosition]()).
		OnComponentChanged(Comp[sysTestPosition]()).
		Done()
	return cfg
}

func (s *changeWatchSystem) Execute(delta, elapsed float64) {
	s.seen += len(s.Events("ComponentChanged"))
}

func TestSystemComponentChangedEventIsBuffered(t *testing.T) {
	w := NewWorld()
	sys := &changeWatchSystem{}
	w.RegisterSystem(sys)

	e := w.CreateEntity()
	AddComponent(w.Entities(), e, sysTestPosition{})
	GetMutableComponent[sysTestPosition](w.Entities(), e)

	w.Tick(0.016)

	if sys.seen != 1 {
		t.Fatalf("expected 1 ComponentChanged event observed, got %d", sys.seen)
	}
}

// entityVsComponentChangeSystem watches the same query and component type
// via both OnComponentChanged (counts every mutation) and OnEntityChanged
// (dedups to at most one per entity per tick), mirroring spec §8 scenario 3.
type entityVsComponentChangeSystem struct {
	BaseSystem
	componentChangedCount int
	entityChangedCount    int
}

func (s *entityVsComponentChangeSystem) Init() *SystemConfig {
	cfg := NewSystemConfig()
	cfg.Query("watched", Comp[sysTestPosition]()).
		OnComponentChanged(Comp[sysTestPosition]()).
		OnEntityChanged(Comp[sysTestPosition]()).
		Done()
	return cfg
}

func (s *entityVsComponentChangeSystem) Execute(delta, elapsed float64) {
	s.componentChangedCount += len(s.Events("ComponentChanged"))
	s.entityChangedCount += len(s.Events("EntityChanged"))
}

func TestEntityChangedDedupsWhileComponentChangedCountsEveryMutation(t *testing.T) {
	w := NewWorld()
	sys := &entityVsComponentChangeSystem{}
	w.RegisterSystem(sys)

	e := w.CreateEntity()
	AddComponent(w.Entities(), e, sysTestPosition{})
	GetMutableComponent[sysTestPosition](w.Entities(), e)
	GetMutableComponent[sysTestPosition](w.Entities(), e)
	GetMutableComponent[sysTestPosition](w.Entities(), e)

	w.Tick(0.016)

	if sys.componentChangedCount != 3 {
		t.Fatalf("expected ComponentChanged to count every mutation (3), got %d", sys.componentChangedCount)
	}
	if sys.entityChangedCount != 1 {
		t.Fatalf("expected EntityChanged deduped to 1 per entity per tick, got %d", sys.entityChangedCount)
	}
}
