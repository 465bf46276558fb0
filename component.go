package hollowecs

import (
	"fmt"
	"reflect"
	"unicode"
)

// TypeID is a stable numeric identifier assigned to a registered component
// type, per spec §9 Design Notes ("assign each registered component type a
// stable numeric TypeId"). The string type name survives only for
// diagnostics and stats.
type TypeID uint32

// componentTypeInfo is everything the registry knows about one registered
// component type. Operations on T are erased behind closures because a
// ComponentRegistry must hold an arbitrary number of distinct T's in one
// non-generic map (Go has no existential generics).
type componentTypeInfo struct {
	id          TypeID
	name        string
	typ         reflect.Type
	acquire     func() any
	release     func(any)
	copyInto    func(dst, src any)
	poolStats   func() (total, free, used int)
	liveCount   int
	isSingleton bool
	singleton   any
}

// ComponentRegistry interns component types, owns one Pool per type, and
// tracks live-instance counts (spec §4.3). Grounded on the teacher's
// component.go (RegisterComponent[T]/GetID[T]/TryGetID[T] over a
// reflect.Type map), generalized from a package-level registry to one owned
// per World (per spec §9: "scope the counter to the World instance") and
// extended to own a Pool and live count per type instead of a flat
// componentSizes array, since this port needs mutable poolable instances.
type ComponentRegistry struct {
	byType map[reflect.Type]*componentTypeInfo
	byID   []*componentTypeInfo
	nextID TypeID
}

func newComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{byType: make(map[reflect.Type]*componentTypeInfo, 16)}
}

// ensureComponentType returns T's registration, creating it (auto-register)
// if this is the first time T has ever been seen. Spec §4.3 leaves the
// unregistered-attach policy as an implementation choice and requires
// auto-registration to match source behavior; this port applies it wherever
// a TypeID is needed to act: AddComponent, RemoveComponent, query tokens,
// singleton registration and GetSingleton. The read-only lookups
// (GetComponent, GetMutableComponent, HasComponent) do not register an
// unseen type; they report it as absent.
func ensureComponentType[T any](r *ComponentRegistry) *componentTypeInfo {
	t := reflect.TypeFor[T]()
	if info, ok := r.byType[t]; ok {
		return info
	}
	if int(r.nextID) >= maxTypeCount {
		panic(fmt.Sprintf("hollowecs: too many component types (max %d)", maxTypeCount))
	}
	pool := NewPool[T]()
	info := &componentTypeInfo{
		id:   r.nextID,
		name: t.Name(),
		typ:  t,
		acquire: func() any {
			return pool.Acquire()
		},
		release: func(v any) {
			pool.Release(v.(*T))
		},
		copyInto: func(dst, src any) {
			applyInit(dst.(*T), src.(T))
		},
		poolStats: func() (int, int, int) {
			return pool.Total(), pool.Free(), pool.Used()
		},
	}
	r.byType[t] = info
	r.byID = append(r.byID, info)
	r.nextID++
	return info
}

// RegisterComponent explicitly registers T. Idempotent: calling it more than
// once, or attaching T to an entity before ever calling it, both converge on
// the same TypeID.
func RegisterComponent[T any](r *ComponentRegistry) TypeID {
	return ensureComponentType[T](r).id
}

// RegisterSingletonComponent registers T as a singleton (spec §3: "Component
// type with exactly one instance owned by the World itself") and returns a
// pointer to its sole instance, optionally copy-initialized from init.
func RegisterSingletonComponent[T any](r *ComponentRegistry, init ...T) *T {
	info := ensureComponentType[T](r)
	info.isSingleton = true
	inst := new(T)
	if len(init) > 0 {
		applyInit(inst, init[0])
	}
	info.singleton = inst
	return inst
}

// singletonName derives a singleton component's stable lookup name: its type
// name with the first letter lowercased (spec §3).
func singletonName(t reflect.Type) string {
	n := t.Name()
	if n == "" {
		return n
	}
	r := []rune(n)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// singletonByName looks up a registered singleton's instance (as *T boxed
// in any) by its derived name (see singletonName). Returns nil if no
// singleton is registered under that name.
func (r *ComponentRegistry) singletonByName(name string) any {
	for _, info := range r.byID {
		if info.isSingleton && singletonName(info.typ) == name {
			return info.singleton
		}
	}
	return nil
}

func (r *ComponentRegistry) onAttached(id TypeID) {
	r.byID[id].liveCount++
}

func (r *ComponentRegistry) onDetached(id TypeID) {
	r.byID[id].liveCount--
}

func (r *ComponentRegistry) acquire(id TypeID) any {
	return r.byID[id].acquire()
}

func (r *ComponentRegistry) release(id TypeID, v any) {
	r.byID[id].release(v)
}

func (r *ComponentRegistry) copyInto(id TypeID, dst, src any) {
	r.byID[id].copyInto(dst, src)
}

// applyInit restores §4.5's addComponent(initValues?) contract: use
// dst.CopyFrom(init) when the component defines it, else a plain field-wise
// struct copy (Go's `*dst = init` copies every field of T).
func applyInit[T any](dst *T, init T) {
	if c, ok := any(dst).(interface{ CopyFrom(T) }); ok {
		c.CopyFrom(init)
		return
	}
	*dst = init
}
