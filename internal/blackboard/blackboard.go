// Package blackboard provides the run-scoped fact store shared between the
// control loop, which publishes facts after every turn, and the milestone
// planner, which reads them.
package blackboard

import (
	"maps"
	"sync"
)

// Well-known keys published by the control loop.
const (
	KeyRegion     = "region"
	KeyBranch     = "branch"
	KeyDepth      = "depth"
	KeyStairsDown = "stairsDown"
	KeyStairsUp   = "stairsUp"
	KeyScore      = "score"
	KeyTurn       = "turn"
	KeyMilestone  = "milestone"
)

// Blackboard is a thread-safe key-value store. The zero value is ready to
// use; the map is allocated on first write.
type Blackboard struct {
	mu   sync.RWMutex
	data map[string]any
}

func (b *Blackboard) init() {
	if b.data == nil {
		b.data = make(map[string]any)
	}
}

// Get returns the value for key, or nil.
func (b *Blackboard) Get(key string) any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data[key]
}

// Bool returns the value for key if it is a bool.
func (b *Blackboard) Bool(key string) bool {
	v, _ := b.Get(key).(bool)
	return v
}

// Int returns the value for key if it is an int.
func (b *Blackboard) Int(key string) (int, bool) {
	v, ok := b.Get(key).(int)
	return v, ok
}

// Set stores a value.
func (b *Blackboard) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.init()
	b.data[key] = value
}

// Update stores every entry of values under one lock.
func (b *Blackboard) Update(values map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.init()
	maps.Copy(b.data, values)
}

// Snapshot returns a shallow copy of the entries.
func (b *Blackboard) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.data == nil {
		return nil
	}
	return maps.Clone(b.data)
}
