package hollowecs

import "testing"

type compTestPosition struct {
	X, Y float64
}

type compTestVelocity struct {
	DX, DY float64
}

func (v *compTestVelocity) CopyFrom(src compTestVelocity) {
	v.DX, v.DY = src.DX, src.DY
}

func TestRegisterComponentIsIdempotent(t *testing.T) {
	r := newComponentRegistry()
	id1 := RegisterComponent[compTestPosition](r)
	id2 := RegisterComponent[compTestPosition](r)
	if id1 != id2 {
		t.Errorf("expected same TypeID across repeated registration, got %d and %d", id1, id2)
	}
}

func TestEnsureComponentTypeAutoRegistersDistinctTypes(t *testing.T) {
	r := newComponentRegistry()
	posID := ensureComponentType[compTestPosition](r).id
	velID := ensureComponentType[compTestVelocity](r).id
	if posID == velID {
		t.Fatal("expected distinct component types to get distinct TypeIDs")
	}
}

func TestApplyInitUsesCopyFromWhenPresent(t *testing.T) {
	dst := &compTestVelocity{DX: 1, DY: 1}
	applyInit(dst, compTestVelocity{DX: 9, DY: 9})
	if dst.DX != 9 || dst.DY != 9 {
		t.Errorf("expected CopyFrom to run, got %+v", dst)
	}
}

func TestApplyInitFallsBackToFieldCopy(t *testing.T) {
	dst := &compTestPosition{X: 1, Y: 1}
	applyInit(dst, compTestPosition{X: 5, Y: 6})
	if dst.X != 5 || dst.Y != 6 {
		t.Errorf("expected field-wise copy, got %+v", dst)
	}
}

func TestRegisterSingletonComponent(t *testing.T) {
	r := newComponentRegistry()
	clock := RegisterSingletonComponent(r, compTestPosition{X: 1, Y: 2})
	if clock.X != 1 || clock.Y != 2 {
		t.Fatalf("expected singleton initialized from init value, got %+v", clock)
	}
	info := ensureComponentType[compTestPosition](r)
	if !info.isSingleton {
		t.Error("expected isSingleton to be set on the registered type")
	}
	if info.singleton.(*compTestPosition) != clock {
		t.Error("expected registry to retain the same singleton pointer returned to the caller")
	}
}

func TestComponentRegistryAcquireReleaseTracksPool(t *testing.T) {
	r := newComponentRegistry()
	id := RegisterComponent[compTestPosition](r)
	v := r.acquire(id)
	r.onAttached(id)
	if r.byID[id].liveCount != 1 {
		t.Errorf("expected liveCount 1 after attach, got %d", r.byID[id].liveCount)
	}
	r.copyInto(id, v, compTestPosition{X: 3, Y: 4})
	if got := v.(*compTestPosition); got.X != 3 || got.Y != 4 {
		t.Errorf("expected copyInto to populate component, got %+v", got)
	}
	r.onDetached(id)
	r.release(id, v)
	if r.byID[id].liveCount != 0 {
		t.Errorf("expected liveCount 0 after detach, got %d", r.byID[id].liveCount)
	}
	total, free, used := r.byID[id].poolStats()
	if used != 0 || free != total {
		t.Errorf("expected pool fully free after release, got total=%d free=%d used=%d", total, free, used)
	}
}
