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

// Package ctl is the control-message writer side of colony.  It mutates
// a running supervisor by dropping message files into its message
// directory, and keeps the config directory in step so that additions
// and removals survive a supervisor restart (the registry itself is
// rebuilt from the config directory on every boot).
//
// All writes are atomic: content goes to a dot-prefixed temporary name
// first and is renamed into place, so the supervisor never observes a
// partially written file.
package ctl

import (
	"os"
	"path"

	"github.com/gocolony/colony"
)

// Places names the two directories shared with the supervisor.
type Places struct {
	Config   string // process manifests, one file per process
	Messages string // the control message inbox
}

func writeFileAtomic(dir, name string, data []byte) error {
	if e := os.MkdirAll(dir, 0755); e != nil {
		return e
	}
	tmp := path.Join(dir, "."+name)
	if e := os.WriteFile(tmp, data, 0644); e != nil {
		return e
	}
	return os.Rename(tmp, path.Join(dir, name))
}

func enqueue(p Places, m *colony.Message) error {
	store, e := colony.OpenStore(p.Messages, nil)
	if e != nil {
		return e
	}
	defer store.Close()
	return store.Enqueue(m)
}

// Add declares a new process (or replaces the spec of an existing one):
// the manifest is written to the config directory and an ADD message is
// enqueued for the running supervisor.
func Add(p Places, spec colony.ProcessSpec) error {
	if e := spec.Valid(); e != nil {
		return e
	}
	data, e := spec.Manifest()
	if e != nil {
		return e
	}
	if e := writeFileAtomic(p.Config, spec.Name, data); e != nil {
		return e
	}
	return enqueue(p, colony.AddMessage(spec))
}

// Remove deletes a process: its manifest is removed from the config
// directory and a REMOVE message is enqueued.  Removing a name with no
// manifest is not an error; removal is idempotent end to end.
func Remove(p Places, name string) error {
	if e := os.Remove(path.Join(p.Config, name)); e != nil &&
		!os.IsNotExist(e) {
		return e
	}
	return enqueue(p, &colony.Message{Type: colony.KindRemove, Name: name})
}

// Restart enqueues a RESTART message for one process.
func Restart(p Places, name string) error {
	return enqueue(p, &colony.Message{Type: colony.KindRestart, Name: name})
}

// RestartAll enqueues a RESTART-ALL message.
func RestartAll(p Places) error {
	return enqueue(p, &colony.Message{Type: colony.KindRestartAll})
}
