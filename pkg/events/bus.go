package events

import (
	"sync"

	"github.com/hashicorp/go-hclog"
)

// DefaultHistoryCapacity bounds the event history buffer; the oldest events
// are evicted once the buffer is full.
const DefaultHistoryCapacity = 1000

// Listener receives events. A listener must not assume any ordering
// guarantees beyond those documented on Emit and EmitAsync.
type Listener func(Event)

// Subscription identifies a registered listener so it can be removed.
type Subscription struct {
	id    uint64
	typ   Type
	async bool
}

type registration struct {
	id   uint64
	fn   Listener
	once bool
}

// Bus is a thread-safe pub/sub mechanism for lifecycle notifications.
//
// Synchronous listeners for the same event type fire in registration order.
// Asynchronous listeners have no relative ordering guarantee. A failure
// (panic) inside one listener is isolated: it is logged and never aborts
// other listeners or the flow that emitted the event.
type Bus struct {
	mu      sync.Mutex
	nextID  uint64
	sync    map[Type][]*registration
	async   map[Type][]*registration
	history []Event
	cap     int
	logger  hclog.Logger
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithHistoryCapacity overrides the default history buffer capacity.
// A capacity of zero disables history recording.
func WithHistoryCapacity(n int) BusOption {
	return func(b *Bus) { b.cap = n }
}

// WithLogger sets the logger used to report listener failures.
func WithLogger(l hclog.Logger) BusOption {
	return func(b *Bus) { b.logger = l }
}

// NewBus creates an event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		sync:   make(map[Type][]*registration),
		async:  make(map[Type][]*registration),
		cap:    DefaultHistoryCapacity,
		logger: hclog.NewNullLogger(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// On registers a synchronous listener for the given type. Use Wildcard to
// receive events of every type.
func (b *Bus) On(t Type, fn Listener) Subscription {
	return b.register(t, fn, false, false)
}

// OnAsync registers an asynchronous listener. EmitAsync waits for all
// asynchronous listeners to return; Emit dispatches them without waiting.
func (b *Bus) OnAsync(t Type, fn Listener) Subscription {
	return b.register(t, fn, true, false)
}

// Once registers a synchronous listener that auto-unregisters after its
// first invocation.
func (b *Bus) Once(t Type, fn Listener) Subscription {
	return b.register(t, fn, false, true)
}

func (b *Bus) register(t Type, fn Listener, async, once bool) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	reg := &registration{id: b.nextID, fn: fn, once: once}
	if async {
		b.async[t] = append(b.async[t], reg)
	} else {
		b.sync[t] = append(b.sync[t], reg)
	}
	return Subscription{id: reg.id, typ: t, async: async}
}

// Off removes a specific listener.
func (b *Bus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	table := b.sync
	if sub.async {
		table = b.async
	}
	regs := table[sub.typ]
	for i, reg := range regs {
		if reg.id == sub.id {
			table[sub.typ] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// OffAll removes every listener (sync and async) for a type.
func (b *Bus) OffAll(t Type) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sync, t)
	delete(b.async, t)
}

// Emit delivers the event to all matching synchronous listeners in
// registration order, then dispatches asynchronous listeners without
// waiting for them. Each listener sees the event at most once.
func (b *Bus) Emit(e Event) {
	syncRegs, asyncRegs := b.collect(e)

	for _, reg := range syncRegs {
		b.invoke(reg, e)
	}
	for _, reg := range asyncRegs {
		go b.invoke(reg, e)
	}
}

// EmitAsync delivers the event like Emit but gathers all asynchronous
// listeners concurrently and waits for them to return.
func (b *Bus) EmitAsync(e Event) {
	syncRegs, asyncRegs := b.collect(e)

	for _, reg := range syncRegs {
		b.invoke(reg, e)
	}

	var wg sync.WaitGroup
	for _, reg := range asyncRegs {
		wg.Add(1)
		go func(r *registration) {
			defer wg.Done()
			b.invoke(r, e)
		}(reg)
	}
	wg.Wait()
}

// collect snapshots the listeners matching a type, records history and
// removes once-listeners so they cannot fire twice.
func (b *Bus) collect(e Event) (syncRegs, asyncRegs []*registration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cap > 0 {
		if len(b.history) >= b.cap {
			b.history = b.history[1:]
		}
		b.history = append(b.history, e)
	}

	syncRegs = append(syncRegs, b.takeLocked(b.sync, e.Type)...)
	asyncRegs = append(asyncRegs, b.takeLocked(b.async, e.Type)...)
	return syncRegs, asyncRegs
}

func (b *Bus) takeLocked(table map[Type][]*registration, t Type) []*registration {
	var out []*registration
	for _, key := range []Type{t, Wildcard} {
		if key == t && t == Wildcard {
			continue
		}
		regs := table[key]
		kept := regs[:0]
		for _, reg := range regs {
			out = append(out, reg)
			if !reg.once {
				kept = append(kept, reg)
			}
		}
		table[key] = kept
	}
	return out
}

// invoke runs a single listener, recovering and logging any panic so one
// bad listener cannot abort the flow.
func (b *Bus) invoke(reg *registration, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked",
				"event_type", e.Type,
				"source", e.Source,
				"panic", r,
			)
		}
	}()
	reg.fn(e)
}

// History returns recorded events, optionally filtered by type. A limit of
// zero (or negative) returns all matching events; otherwise the most recent
// matching events up to limit are returned, oldest first.
func (b *Bus) History(t Type, limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Event
	for _, e := range b.history {
		if t == "" || t == Wildcard || e.Type == t {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
