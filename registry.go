// Copyright 2026 The Colony Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package colony

import (
	"sort"
	"sync"
	"time"
)

// pendingAction records what the supervisor should do once a stopping
// child has actually exited.  Signaling a child that does not exist yet,
// or acting before the old child is gone, would violate the single child
// invariant, so the action is parked here instead.
type pendingAction int

const (
	pendingNone pendingAction = iota
	pendingStart               // start again with the (possibly new) spec
	pendingRestart             // operator restart; bumps the restart count
	pendingDelete              // remove the entry entirely
)

// entry is the live supervision record for one name.
type entry struct {
	spec     ProcessSpec
	state    State
	proc     *Process
	restarts int
	pending  pendingAction
	backoff  time.Duration
	started  time.Time // when the current child was spawned
	stamp    time.Time // when state/reason last changed
	reason   string
}

// ProcessInfo is a point-in-time snapshot of one entry, suitable for
// status displays and the REST API.
type ProcessInfo struct {
	Name     string    `json:"name"`
	State    string    `json:"state"`
	PID      int       `json:"pid"`
	Restarts int       `json:"restarts"`
	Args     []string  `json:"args"`
	Status   string    `json:"status"`
	Stamp    time.Time `json:"tstamp"`
}

// Registry is the authoritative mapping from process name to live
// supervision state.  All mutation happens on the supervisor loop
// goroutine; the registry's lock exists so that read-only snapshots
// (Info, List) can be taken from other goroutines, such as HTTP
// handlers.
type Registry struct {
	mx      sync.Mutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

func (r *Registry) lock() {
	r.mx.Lock()
}

func (r *Registry) unlock() {
	r.mx.Unlock()
}

// Upsert inserts a new entry in state Stopped, or replaces the spec of
// an existing entry.  It never starts or stops a child itself; a caller
// replacing the spec of a running entry is responsible for cycling it.
// An upsert is the "explicit add", so it resets the restart count and
// the restart backoff.
func (r *Registry) Upsert(spec ProcessSpec) {
	r.lock()
	defer r.unlock()
	if e, ok := r.entries[spec.Name]; ok {
		e.spec = spec
		e.restarts = 0
		e.backoff = 0
		e.stamp = time.Now()
		e.reason = "Spec updated"
		return
	}
	r.entries[spec.Name] = &entry{
		spec:   spec,
		state:  Stopped,
		stamp:  time.Now(),
		reason: "Added",
	}
}

// Remove deletes an entry outright.  The caller must have stopped any
// live child first.
func (r *Registry) Remove(name string) error {
	r.lock()
	defer r.unlock()
	if _, ok := r.entries[name]; !ok {
		return ErrUnknownProcess
	}
	delete(r.entries, name)
	return nil
}

// Transition moves an entry to a new state, validating the move against
// the lifecycle state machine.  An illegal move returns
// ErrInvalidTransition and changes nothing; under correct serialization
// this cannot happen, so callers treat it as an invariant failure.
func (r *Registry) Transition(name string, to State, reason string) error {
	r.lock()
	defer r.unlock()
	e, ok := r.entries[name]
	if !ok {
		return ErrUnknownProcess
	}
	if !legalTransition(e.state, to) {
		return ErrInvalidTransition
	}
	if e.state == Failed && to == Starting {
		// Explicit recovery clears the crash history.
		e.restarts = 0
		e.backoff = 0
	}
	e.state = to
	e.stamp = time.Now()
	e.reason = reason
	return nil
}

// State reports the current state of an entry.
func (r *Registry) State(name string) (State, error) {
	r.lock()
	defer r.unlock()
	e, ok := r.entries[name]
	if !ok {
		return Stopped, ErrUnknownProcess
	}
	return e.state, nil
}

// Names returns all entry names, sorted, so that iteration order is
// deterministic.
func (r *Registry) Names() []string {
	r.lock()
	defer r.unlock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.lock()
	defer r.unlock()
	return len(r.entries)
}

func (r *Registry) infoLocked(e *entry) *ProcessInfo {
	info := &ProcessInfo{
		Name:     e.spec.Name,
		State:    e.state.String(),
		PID:      -1,
		Restarts: e.restarts,
		Args:     append([]string{}, e.spec.Args...),
		Status:   e.reason,
		Stamp:    e.stamp,
	}
	if e.proc != nil {
		info.PID = e.proc.PID()
	}
	return info
}

// Info returns a snapshot of one entry.
func (r *Registry) Info(name string) (*ProcessInfo, error) {
	r.lock()
	defer r.unlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, ErrUnknownProcess
	}
	return r.infoLocked(e), nil
}

// List returns snapshots of every entry, sorted by name.
func (r *Registry) List() []*ProcessInfo {
	r.lock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	infos := make([]*ProcessInfo, 0, len(names))
	for _, n := range names {
		infos = append(infos, r.infoLocked(r.entries[n]))
	}
	r.unlock()
	return infos
}

// The accessors below are used only by the supervisor loop, which is the
// single writer; the lock keeps them coherent with concurrent snapshot
// readers.

func (r *Registry) spec(name string) (ProcessSpec, bool) {
	r.lock()
	defer r.unlock()
	e, ok := r.entries[name]
	if !ok {
		return ProcessSpec{}, false
	}
	return e.spec, true
}

func (r *Registry) setProcess(name string, p *Process) {
	r.lock()
	defer r.unlock()
	if e, ok := r.entries[name]; ok {
		e.proc = p
		if p != nil {
			e.started = time.Now()
		}
	}
}

func (r *Registry) process(name string) *Process {
	r.lock()
	defer r.unlock()
	if e, ok := r.entries[name]; ok {
		return e.proc
	}
	return nil
}

func (r *Registry) setPending(name string, p pendingAction) {
	r.lock()
	defer r.unlock()
	if e, ok := r.entries[name]; ok {
		e.pending = p
	}
}

func (r *Registry) takePending(name string) pendingAction {
	r.lock()
	defer r.unlock()
	if e, ok := r.entries[name]; ok {
		p := e.pending
		e.pending = pendingNone
		return p
	}
	return pendingNone
}

func (r *Registry) bumpRestarts(name string) int {
	r.lock()
	defer r.unlock()
	if e, ok := r.entries[name]; ok {
		e.restarts++
		return e.restarts
	}
	return 0
}

func (r *Registry) restarts(name string) int {
	r.lock()
	defer r.unlock()
	if e, ok := r.entries[name]; ok {
		return e.restarts
	}
	return 0
}

// nextBackoff computes the delay before the next respawn of a crashed
// entry.  The delay doubles on each consecutive crash up to max, and resets
// to initial once a child has stayed up longer than resetAfter.
func (r *Registry) nextBackoff(name string, initial, max, resetAfter time.Duration) time.Duration {
	r.lock()
	defer r.unlock()
	e, ok := r.entries[name]
	if !ok {
		return initial
	}
	if e.backoff == 0 || time.Since(e.started) > resetAfter {
		e.backoff = initial
	} else {
		e.backoff *= 2
		if e.backoff > max {
			e.backoff = max
		}
	}
	return e.backoff
}
