package hollowecs

import "fmt"

// ErrEmptyQuery is returned when a query is constructed with no required
// component types. A query must require at least one component; "match
// everything" is not a representable query.
var ErrEmptyQuery = fmt.Errorf("hollowecs: query has an empty required set")

// ErrUnknownEntity reports an entity the store has no record of (never
// created, or already released to the entity pool). Only World.Validate
// returns it; the entity operations themselves (RemoveEntity, AddComponent,
// tag calls, ...) silently do nothing for such an entity.
type ErrUnknownEntity struct {
	Entity Entity
}

func (e *ErrUnknownEntity) Error() string {
	return fmt.Sprintf("hollowecs: unknown entity %d (version %d)", e.Entity.ID, e.Entity.Version)
}

// ImmutableWriteError describes a write to a read-only component view,
// carrying the component type and field name. Nothing in this package
// constructs or panics with it: GetComponent returns a value copy, and a
// write to that copy succeeds without touching the stored component.
type ImmutableWriteError struct {
	Component string
	Field     string
}

func (e *ImmutableWriteError) Error() string {
	return fmt.Sprintf("hollowecs: write to immutable component view %s.%s", e.Component, e.Field)
}
