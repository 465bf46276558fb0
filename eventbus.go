package hollowecs

import (
	"reflect"

	"go.uber.org/zap"
)

// HandlerFunc is a topic subscriber. Args are whatever the emitter passes to
// Emit; handlers type-assert the arguments they expect.
type HandlerFunc func(args ...any)

// EventDispatcher is a multi-listener, unordered-topic event bus (spec
// §4.2). Generalized from the teacher's reflect.Type-keyed Subscribe[T]/
// Publish[T] (eventbus.go) to string topics, because this port's topics
// (EntityAdded, ComponentChanged, world-level event names, …) are named at
// System.Init config time rather than known at compile time.
//
// EventDispatcher instances are local to an EntityStore and to each Query,
// and one lives on World for the global event bus (spec §4.5, §4.9).
type EventDispatcher struct {
	topics  map[string][]HandlerFunc
	log     *zap.Logger
	fired   int
	handled int
}

// NewEventDispatcher creates a dispatcher that logs caught handler panics to
// log. A nil logger is replaced with a no-op logger.
func NewEventDispatcher(log *zap.Logger) *EventDispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventDispatcher{
		topics: make(map[string][]HandlerFunc),
		log:    log,
	}
}

// Subscribe registers handler for topic. Duplicate subscriptions (the same
// handler already registered for the same topic) are ignored, per spec
// §4.2. Handler identity is compared by function pointer, the idiomatic Go
// approximation of value equality for funcs (reliable for named functions
// and for a method value obtained the same way each time; distinct closure
// literals are never considered equal, even if their bodies match).
func (d *EventDispatcher) Subscribe(topic string, handler HandlerFunc) {
	if d.Has(topic, handler) {
		return
	}
	d.topics[topic] = append(d.topics[topic], handler)
}

// Unsubscribe removes handler from topic, if present.
func (d *EventDispatcher) Unsubscribe(topic string, handler HandlerFunc) {
	handlers := d.topics[topic]
	target := handlerPointer(handler)
	for i, h := range handlers {
		if handlerPointer(h) == target {
			d.topics[topic] = append(handlers[:i], handlers[i+1:]...)
			return
		}
	}
}

// Has reports whether handler is currently subscribed to topic.
func (d *EventDispatcher) Has(topic string, handler HandlerFunc) bool {
	target := handlerPointer(handler)
	for _, h := range d.topics[topic] {
		if handlerPointer(h) == target {
			return true
		}
	}
	return false
}

// Emit invokes every handler subscribed to topic, in subscription order,
// over a snapshot of the handler list — a handler may unsubscribe itself or
// subscribe new handlers during dispatch without corrupting this Emit call
// (spec §4.2). A handler panic is caught and logged; remaining handlers
// still run, and Handled still counts the panicking call (spec §7,
// HandlerException).
func (d *EventDispatcher) Emit(topic string, args ...any) {
	d.fired++
	handlers := d.topics[topic]
	if len(handlers) == 0 {
		return
	}
	snapshot := make([]HandlerFunc, len(handlers))
	copy(snapshot, handlers)
	for _, h := range snapshot {
		d.invoke(topic, h, args...)
	}
}

func (d *EventDispatcher) invoke(topic string, h HandlerFunc, args ...any) {
	defer func() {
		d.handled++
		if r := recover(); r != nil {
			d.log.Error("event handler panicked",
				zap.String("topic", topic),
				zap.Any("recover", r),
			)
		}
	}()
	h(args...)
}

// Fired returns the number of Emit calls made so far.
func (d *EventDispatcher) Fired() int { return d.fired }

// Handled returns the number of handler invocations completed (including
// ones that panicked and were caught).
func (d *EventDispatcher) Handled() int { return d.handled }

func handlerPointer(h HandlerFunc) uintptr {
	if h == nil {
		return 0
	}
	return reflect.ValueOf(h).Pointer()
}
