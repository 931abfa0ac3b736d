// Package dispatch fans extracted records out to listeners registered
// against a server id and OBIS code filter.
package dispatch

import (
	"bytes"
	"sync"

	"github.com/d21d3q/gosml/internal/obis"
)

// Listener accepts one record.
type Listener func(obis.Record)

// Filter selects records. An empty ServerID matches every meter; a
// five-group Code matches any value of the last group.
type Filter struct {
	ServerID []byte
	Code     obis.Code
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec obis.Record) bool {
	if len(f.ServerID) > 0 && !bytes.Equal(f.ServerID, rec.ServerID) {
		return false
	}
	return rec.Code.Matches(f.Code)
}

// Registry holds listeners in registration order.
type Registry struct {
	mu        sync.RWMutex
	listeners []registeredListener
}

type registeredListener struct {
	filter   Filter
	listener Listener
}

// Register adds l for records matching f.
func (r *Registry) Register(f Filter, l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, registeredListener{filter: f, listener: l})
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// Dispatch calls every matching listener once per record and returns how
// many deliveries were made.
func (r *Registry) Dispatch(records []obis.Record) int {
	r.mu.RLock()
	listeners := make([]registeredListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	delivered := 0
	for _, rec := range records {
		for _, rl := range listeners {
			if rl.filter.Match(rec) {
				rl.listener(rec)
				delivered++
			}
		}
	}
	return delivered
}
