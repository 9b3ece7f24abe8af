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
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Default supervision tuning.  The backoff keeps a crash-looping worker
// from consuming all scheduling time while still guaranteeing forward
// progress; the poll interval is only a safety net behind the store's
// fsnotify latch.
const (
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 30 * time.Second
	DefaultBackoffReset   = 30 * time.Second
	DefaultPollInterval   = 5 * time.Second
)

// Options tunes a Supervisor.  The zero value selects the defaults
// above.
type Options struct {
	Name           string        // used in log messages
	InitialBackoff time.Duration // delay before the first respawn
	MaxBackoff     time.Duration // ceiling for the doubling delay
	BackoffReset   time.Duration // uptime that resets the delay
	PollInterval   time.Duration // store poll safety interval
}

func (o *Options) fill() {
	if o.Name == "" {
		o.Name = "colony"
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = DefaultInitialBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = DefaultMaxBackoff
	}
	if o.BackoffReset <= 0 {
		o.BackoffReset = DefaultBackoffReset
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
}

// exitEvent is delivered to the loop when a child exits.  The proc
// pointer lets the loop discard stale notifications from a child that
// has already been replaced.
type exitEvent struct {
	name   string
	proc   *Process
	status ExitStatus
}

// cmdReq carries an internally submitted command (REST API, tests) into
// the loop, so that every registry mutation happens on one goroutine.
type cmdReq struct {
	msg   *Message
	reply chan error
}

// Supervisor is the colony's control loop.  A single goroutine owns all
// registry mutation: it consumes control messages from the store,
// exit notifications from process waiters, and commands submitted via
// Apply, applies the restart policy, and reconciles the registry with
// the live children.
type Supervisor struct {
	name  string
	opts  Options
	reg   *Registry
	store *Store

	logger *log.Logger
	mlog   *MultiLogger
	rlog   *Log

	events  chan exitEvent
	respawn chan string
	cmds    chan cmdReq
	done    chan struct{}
	loop    chan struct{} // closed when the loop goroutine returns

	timers map[string]*time.Timer // loop-owned respawn timers

	startOnce sync.Once
	downOnce  sync.Once
}

// New creates a Supervisor consuming control messages from the given
// store.  Call Seed to load the initial colony, then Start.
func New(store *Store, opts Options) *Supervisor {
	opts.fill()
	s := &Supervisor{
		name:    opts.Name,
		opts:    opts,
		reg:     NewRegistry(),
		store:   store,
		mlog:    NewMultiLogger(),
		rlog:    NewLog(),
		events:  make(chan exitEvent, 64),
		respawn: make(chan string, 64),
		cmds:    make(chan cmdReq),
		done:    make(chan struct{}),
		loop:    make(chan struct{}),
		timers:  make(map[string]*time.Timer),
	}
	s.mlog.AddLogger(log.New(s.rlog, "", 0))
	s.logger = log.New(os.Stderr, "", log.LstdFlags)
	s.mlog.AddLogger(s.logger)
	return s
}

// Registry returns the supervisor's registry, for status inspection.
func (s *Supervisor) Registry() *Registry {
	return s.reg
}

// Name returns the name the supervisor was created with.
func (s *Supervisor) Name() string {
	return s.name
}

// SetLogger replaces the default stderr logger.
func (s *Supervisor) SetLogger(l *log.Logger) {
	if s.logger != nil {
		s.mlog.DelLogger(s.logger)
	}
	s.logger = l
	s.mlog.AddLogger(l)
}

// SetLogWriter is a convenience wrapper around SetLogger.
func (s *Supervisor) SetLogWriter(w io.Writer) {
	s.SetLogger(log.New(w, "", 0))
}

// GetLog returns retained log records, for the REST API.
func (s *Supervisor) GetLog(last int64) ([]LogRecord, int64) {
	return s.rlog.GetRecords(last)
}

// WatchLog blocks until the log changes or expire passes.
func (s *Supervisor) WatchLog(last int64, expire time.Duration) int64 {
	return s.rlog.Watch(last, expire)
}

func (s *Supervisor) logf(format string, v ...interface{}) {
	s.mlog.Logger().Printf(format, v...)
}

// procLogger builds the logger a child's output and lifecycle messages
// go to.
func (s *Supervisor) procLogger(name string) *log.Logger {
	return log.New(s.mlog, "["+name+"] ", 0)
}

// Seed inserts initial specs (from the config loader) into the
// registry.  It must be called before Start.
func (s *Supervisor) Seed(specs []ProcessSpec) {
	for _, spec := range specs {
		s.reg.Upsert(spec)
	}
}

// Start launches the supervision loop, starting every seeded entry.
func (s *Supervisor) Start() {
	s.startOnce.Do(func() {
		s.logf("*** Colony starting: %s ***", s.name)
		go s.run()
	})
}

// Shutdown stops the loop and gracefully stops every child, blocking
// until all of them are gone.
func (s *Supervisor) Shutdown() {
	s.downOnce.Do(func() {
		close(s.done)
	})
	<-s.loop
}

// Apply submits a control command from inside the process (the REST
// API, or tests) and waits for it to be applied.  Commands submitted
// this way and messages from the store go through the same serialized
// dispatch.
func (s *Supervisor) Apply(m *Message) error {
	req := cmdReq{msg: m, reply: make(chan error, 1)}
	select {
	case s.cmds <- req:
	case <-s.done:
		return ErrShutdown
	}
	select {
	case e := <-req.reply:
		return e
	case <-s.loop:
		return ErrShutdown
	}
}

func (s *Supervisor) run() {
	defer close(s.loop)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	s.startAll()
	s.pollStore()

	for {
		select {
		case <-s.done:
			s.teardown()
			return
		case ev := <-s.events:
			s.handleExit(ev)
		case name := <-s.respawn:
			s.handleRespawn(name)
		case req := <-s.cmds:
			e := s.dispatch(req.msg)
			if e != nil {
				s.logf("Command %s failed: %v", req.msg, e)
			}
			req.reply <- e
		case <-s.store.Watch():
			s.pollStore()
		case <-ticker.C:
			s.pollStore()
		}
	}
}

// startAll starts every entry still in Stopped state.
func (s *Supervisor) startAll() {
	for _, name := range s.reg.Names() {
		if st, e := s.reg.State(name); e == nil && st == Stopped {
			s.startEntry(name)
		}
	}
}

// pollStore drains every visible control message.  Between messages any
// queued exit notifications are serviced first, so that a burst of
// commands cannot starve exit handling.
func (s *Supervisor) pollStore() {
	msgs, e := s.store.Poll()
	if e != nil {
		s.logf("Cannot poll message store: %v", e)
		return
	}
	for _, m := range msgs {
		s.drainExits()
		if e := s.dispatch(m); e != nil {
			s.logf("Dropping message %s: %v", m, e)
		}
		if e := s.store.Ack(m); e != nil {
			s.logf("Cannot acknowledge message %s: %v", m, e)
		}
	}
}

func (s *Supervisor) drainExits() {
	for {
		select {
		case ev := <-s.events:
			s.handleExit(ev)
		case name := <-s.respawn:
			s.handleRespawn(name)
		default:
			return
		}
	}
}

// dispatch applies one control command.  Errors are per-command; they
// are logged by the caller and never fatal.
func (s *Supervisor) dispatch(m *Message) error {
	switch m.Type {
	case KindAdd:
		return s.handleAdd(m.Spec())
	case KindRemove:
		return s.handleRemove(m.Name)
	case KindRestart:
		return s.handleRestart(m.Name)
	case KindRestartAll:
		s.handleRestartAll()
		return nil
	}
	return fmt.Errorf("%w: %q", ErrMalformedMessage, m.Type)
}

func (s *Supervisor) handleAdd(spec ProcessSpec) error {
	if e := spec.Valid(); e != nil {
		return e
	}
	name := spec.Name
	st, e := s.reg.State(name)
	if e != nil {
		// Brand new entry.
		s.reg.Upsert(spec)
		s.logf("Added process: %s", name)
		return s.startEntry(name)
	}

	// Spec update under the same name: exactly one stop-then-start
	// cycle, so that two children never overlap.
	s.reg.Upsert(spec)
	s.logf("Updating process: %s", name)
	switch st {
	case Running:
		s.stopEntry(name, pendingStart, "Replacing spec")
	case Stopping:
		// Already on the way down; start the new spec once the old
		// child is gone, even if a removal was pending.
		s.reg.setPending(name, pendingStart)
	case Restarting:
		s.cancelRespawn(name)
		return s.startEntry(name)
	case Stopped, Failed:
		return s.startEntry(name)
	}
	return nil
}

func (s *Supervisor) handleRemove(name string) error {
	st, e := s.reg.State(name)
	if e != nil {
		// Removal is idempotent; a retried command must not error.
		s.logf("Ignoring remove of unknown process: %s", name)
		return nil
	}
	s.logf("Removing process: %s", name)
	switch st {
	case Running:
		s.stopEntry(name, pendingDelete, "Removing")
	case Stopping:
		s.reg.setPending(name, pendingDelete)
	case Restarting:
		s.cancelRespawn(name)
		s.reg.Remove(name)
	case Stopped, Failed:
		s.reg.Remove(name)
	}
	return nil
}

func (s *Supervisor) handleRestart(name string) error {
	st, e := s.reg.State(name)
	if e != nil {
		return ErrUnknownProcess
	}
	s.logf("Restarting process: %s", name)
	switch st {
	case Running:
		s.stopEntry(name, pendingRestart, "Restarting")
	case Stopping:
		if s.reg.takePending(name) == pendingDelete {
			// The earlier removal wins; the name is going away.
			s.reg.setPending(name, pendingDelete)
			return ErrUnknownProcess
		}
		s.reg.setPending(name, pendingRestart)
	case Restarting:
		s.cancelRespawn(name)
		s.reg.bumpRestarts(name)
		return s.startEntry(name)
	case Stopped:
		s.reg.bumpRestarts(name)
		return s.startEntry(name)
	case Failed:
		// Failed -> Starting resets the restart count.
		return s.startEntry(name)
	}
	return nil
}

func (s *Supervisor) handleRestartAll() {
	s.logf("Restarting all processes")
	for _, name := range s.reg.Names() {
		st, e := s.reg.State(name)
		if e != nil || st != Running {
			continue
		}
		s.stopEntry(name, pendingRestart, "Restarting")
	}
}

// startEntry spawns a child for the entry's current spec.  The spawn is
// synchronous within the loop, so no command can ever interleave with
// an in-flight spawn for the same name.
func (s *Supervisor) startEntry(name string) error {
	spec, ok := s.reg.spec(name)
	if !ok {
		return ErrUnknownProcess
	}
	if e := s.reg.Transition(name, Starting, "Starting"); e != nil {
		s.invariant(name, e)
		return e
	}
	p := newProcess(spec, s.procLogger(name))
	if e := p.Start(); e != nil {
		// Deterministic spawn failure; retrying would loop forever.
		s.reg.Transition(name, Failed, "Failed to start: "+e.Error())
		s.logf("Failed to start %s: %v", name, e)
		return e
	}
	s.reg.setProcess(name, p)
	s.reg.Transition(name, Running, "Running")
	s.logf("Started %s (pid %d)", name, p.PID())
	go func() {
		st := <-p.Done()
		select {
		case s.events <- exitEvent{name: name, proc: p, status: st}:
		case <-s.done:
		}
	}()
	return nil
}

// stopEntry begins the graceful stop protocol for a live child and
// parks the follow-up action until its exit arrives.
func (s *Supervisor) stopEntry(name string, p pendingAction, reason string) {
	if e := s.reg.Transition(name, Stopping, reason); e != nil {
		s.invariant(name, e)
		return
	}
	s.reg.setPending(name, p)
	proc := s.reg.process(name)
	if proc == nil {
		// No child after all; treat as already exited.
		s.finishStop(name)
		return
	}
	go proc.Stop()
}

// finishStop applies the parked action for an entry whose child is
// gone.
func (s *Supervisor) finishStop(name string) {
	s.reg.setProcess(name, nil)
	if e := s.reg.Transition(name, Stopped, "Stopped"); e != nil {
		s.invariant(name, e)
		return
	}
	switch s.reg.takePending(name) {
	case pendingDelete:
		s.reg.Remove(name)
		s.logf("Removed process: %s", name)
	case pendingStart:
		s.startEntry(name)
	case pendingRestart:
		s.reg.bumpRestarts(name)
		s.startEntry(name)
	case pendingNone:
		// Operator stop; the entry stays Stopped.
	}
}

// handleExit services one child exit notification.
func (s *Supervisor) handleExit(ev exitEvent) {
	st, e := s.reg.State(ev.name)
	if e != nil {
		// Entry already removed; stale notification.
		return
	}
	if s.reg.process(ev.name) != ev.proc {
		// Notification from a replaced child; ignore.
		return
	}
	switch st {
	case Stopping:
		// Expected: an operator-requested stop, not a crash.
		s.finishStop(ev.name)
	case Running:
		s.logf("Process %s exited unexpectedly: %s", ev.name, ev.status)
		s.reg.setProcess(ev.name, nil)
		if e := s.reg.Transition(ev.name, Restarting,
			"Exited: "+ev.status.String()); e != nil {
			s.invariant(ev.name, e)
			return
		}
		s.scheduleRespawn(ev.name)
	default:
		// Stopped or Failed entries have nothing live to account
		// for; nothing to do.
	}
}

// scheduleRespawn arms the backoff timer for a crashed entry.
func (s *Supervisor) scheduleRespawn(name string) {
	delay := s.reg.nextBackoff(name, s.opts.InitialBackoff,
		s.opts.MaxBackoff, s.opts.BackoffReset)
	s.logf("Respawning %s in %v", name, delay)
	s.timers[name] = time.AfterFunc(delay, func() {
		select {
		case s.respawn <- name:
		case <-s.done:
		}
	})
}

func (s *Supervisor) cancelRespawn(name string) {
	if t, ok := s.timers[name]; ok {
		t.Stop()
		delete(s.timers, name)
	}
}

// handleRespawn fires when a crashed entry's backoff delay expires.
func (s *Supervisor) handleRespawn(name string) {
	delete(s.timers, name)
	st, e := s.reg.State(name)
	if e != nil || st != Restarting {
		// Removed or otherwise dealt with in the meantime.
		return
	}
	s.reg.bumpRestarts(name)
	s.startEntry(name)
}

// invariant reports a state machine violation.  It indicates the
// single-writer guarantee was broken somewhere; the offending entry is
// isolated rather than taking the whole supervisor down.
func (s *Supervisor) invariant(name string, e error) {
	s.logf("INVARIANT VIOLATION on %s: %v", name, e)
	st, err := s.reg.State(name)
	if err != nil {
		return
	}
	if st != Failed {
		// Cannot use Transition here; the transition itself is what
		// just failed.
		s.reg.lock()
		if ent, ok := s.reg.entries[name]; ok {
			ent.state = Failed
			ent.stamp = time.Now()
			ent.reason = "Invariant violation: " + e.Error()
		}
		s.reg.unlock()
	}
}

// teardown runs on the loop goroutine when Shutdown is requested: every
// timer is cancelled and every live child is stopped via the graceful
// stop protocol, concurrently.
func (s *Supervisor) teardown() {
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}

	var wg sync.WaitGroup
	for _, name := range s.reg.Names() {
		st, e := s.reg.State(name)
		if e != nil {
			continue
		}
		switch st {
		case Running:
			s.reg.Transition(name, Stopping, "Shutting down")
			proc := s.reg.process(name)
			if proc == nil {
				s.reg.Transition(name, Stopped, "Shut down")
				continue
			}
			wg.Add(1)
			go func(p *Process) {
				defer wg.Done()
				p.Stop()
			}(proc)
		case Stopping:
			// A stop is already in flight; its kill timer dies with
			// us, so wait it out with our own Stop.
			proc := s.reg.process(name)
			if proc == nil {
				continue
			}
			wg.Add(1)
			go func(p *Process) {
				defer wg.Done()
				p.Stop()
			}(proc)
		case Restarting:
			// No child; park the entry.
			s.reg.Transition(name, Failed, "Shut down while respawning")
		}
	}
	wg.Wait()
	for _, name := range s.reg.Names() {
		if st, e := s.reg.State(name); e == nil && st == Stopping {
			s.reg.setProcess(name, nil)
			s.reg.Transition(name, Stopped, "Shut down")
		}
	}
	s.store.Close()
	s.logf("*** Colony shut down: %s ***", s.name)
}
