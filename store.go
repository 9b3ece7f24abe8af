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
	"log"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Store is a directory used as a durable, ordered inbox of control
// messages.  Writers make a message visible atomically by writing to a
// dot-prefixed temporary name and renaming it into place; readers list
// the directory, consume messages in name order, and delete them on
// acknowledge.
//
// Visible names sort lexically in insertion order: a zero-padded
// nanosecond timestamp, then the writer's pid, then a per-writer
// sequence number.  The pid component keeps two writers from ever
// colliding on a name.
//
// The store carries a level-triggered change latch fed by fsnotify.  A
// missed filesystem event never loses a message: consumers are expected
// to poll periodically as well, and Poll always reports everything
// currently visible.
type Store struct {
	dir    string
	logger *log.Logger

	notify  chan struct{}
	watcher *fsnotify.Watcher

	mx     sync.Mutex
	seq    uint64
	closed bool
}

// OpenStore opens (creating if needed) the message directory.  If the
// fsnotify watch cannot be established the store still works, waking
// consumers only via their periodic poll; that is logged but not fatal.
func OpenStore(dir string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	if e := os.MkdirAll(dir, 0755); e != nil {
		return nil, e
	}
	s := &Store{
		dir:    dir,
		logger: logger,
		notify: make(chan struct{}, 1),
	}
	if w, e := fsnotify.NewWatcher(); e != nil {
		logger.Printf("Message store watch unavailable: %v", e)
	} else if e := w.Add(dir); e != nil {
		logger.Printf("Cannot watch message directory %s: %v", dir, e)
		w.Close()
	} else {
		s.watcher = w
		go s.pump()
	}
	return s, nil
}

// pump coalesces fsnotify events into the change latch.
func (s *Store) pump() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
				s.wake()
			}
		case e, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Printf("Message store watch error: %v", e)
		}
	}
}

func (s *Store) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Watch returns the change latch.  A receive means the directory may
// have new messages; consumers follow it with Poll.
func (s *Store) Watch() <-chan struct{} {
	return s.notify
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Enqueue makes a message visible in the store.  The write is atomic
// from the reader's point of view.
func (s *Store) Enqueue(m *Message) error {
	data, e := m.encode()
	if e != nil {
		return e
	}
	s.mx.Lock()
	s.seq++
	seq := s.seq
	s.mx.Unlock()

	name := fmt.Sprintf("%020d.%d.%d", time.Now().UnixNano(), os.Getpid(), seq)
	tmp := path.Join(s.dir, "."+name)
	if e := os.WriteFile(tmp, data, 0644); e != nil {
		return e
	}
	return os.Rename(tmp, path.Join(s.dir, name))
}

// Poll returns every message currently visible, in insertion order
// (ties broken by name).  Unparseable files are acknowledged and logged
// as warnings rather than returned; the control channel is best-effort
// and must never stall the supervisor.
func (s *Store) Poll() ([]*Message, error) {
	ents, e := os.ReadDir(s.dir)
	if e != nil {
		return nil, e
	}
	names := make([]string, 0, len(ents))
	for _, ent := range ents {
		if ent.IsDir() || len(ent.Name()) == 0 || ent.Name()[0] == '.' {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Strings(names)

	msgs := make([]*Message, 0, len(names))
	for _, n := range names {
		fname := path.Join(s.dir, n)
		data, e := os.ReadFile(fname)
		if e != nil {
			if os.IsNotExist(e) {
				// Raced with another consumer; not ours.
				continue
			}
			s.logger.Printf("Cannot read message %s: %v", n, e)
			continue
		}
		m, e := ParseMessage(data)
		if e != nil {
			s.logger.Printf("Warning: dropping %s: %v", n, e)
			s.remove(fname)
			continue
		}
		m.path = fname
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Ack removes a consumed message.  Acknowledging a message that is
// already gone is not an error: after a crash between processing and
// acknowledge, recovery simply reprocesses or skips.
func (s *Store) Ack(m *Message) error {
	if m.path == "" {
		return nil
	}
	return s.remove(m.path)
}

func (s *Store) remove(fname string) error {
	if e := os.Remove(fname); e != nil && !os.IsNotExist(e) {
		return e
	}
	return nil
}

// Close releases the directory watch.  The directory and any unconsumed
// messages remain for the next supervisor run.
func (s *Store) Close() error {
	s.mx.Lock()
	if s.closed {
		s.mx.Unlock()
		return nil
	}
	s.closed = true
	s.mx.Unlock()
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
