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
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"
)

// ProcessSpec is the declarative description of one worker.  Args is the
// full argument vector; Args[0] is the executable path.  Env entries
// overlay the supervisor's own environment.  UID and GID, when present,
// set the credentials the child runs with (the supervisor must have
// permission to do so, typically meaning it runs as root).
//
// The JSON form is the manifest format stored in the config directory,
// one file per process, where the file name supplies Name.
type ProcessSpec struct {
	Name     string            `json:"name,omitempty"`
	Args     []string          `json:"args"`
	Env      map[string]string `json:"env,omitempty"`
	UID      *uint32           `json:"uid,omitempty"`
	GID      *uint32           `json:"gid,omitempty"`
	StopTime time.Duration     `json:"stopTime,omitempty"`
}

// Valid checks the spec for structural problems.  Process names become
// file names in the config directory, so path separators and hidden-file
// prefixes are rejected.
func (spec ProcessSpec) Valid() error {
	if spec.Name == "" {
		return fmt.Errorf("%w: empty name", ErrBadSpec)
	}
	if strings.ContainsAny(spec.Name, "/\\") || strings.HasPrefix(spec.Name, ".") {
		return fmt.Errorf("%w: bad name %q", ErrBadSpec, spec.Name)
	}
	if len(spec.Args) == 0 || spec.Args[0] == "" {
		return fmt.Errorf("%w: no command for %q", ErrBadSpec, spec.Name)
	}
	return nil
}

// ParseSpec decodes a manifest.  The name comes from the caller (usually
// the manifest's file name); a name embedded in the manifest itself is
// ignored.
func ParseSpec(name string, data []byte) (ProcessSpec, error) {
	var spec ProcessSpec
	if e := json.Unmarshal(data, &spec); e != nil {
		return spec, fmt.Errorf("%w: %v", ErrBadSpec, e)
	}
	spec.Name = name
	if e := spec.Valid(); e != nil {
		return spec, e
	}
	return spec, nil
}

// Manifest encodes the spec in the on-disk manifest form.  The name is
// omitted, since it is carried by the file name.
func (spec ProcessSpec) Manifest() ([]byte, error) {
	m := spec
	m.Name = ""
	return json.Marshal(m)
}

// environ merges the spec's environment over the supervisor's own.
func (spec ProcessSpec) environ() []string {
	if len(spec.Env) == 0 {
		return nil // inherit as-is
	}
	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			merged[kv[:i]] = kv[i+1:]
		}
	}
	for k, v := range spec.Env {
		merged[k] = v
	}
	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// command builds the exec.Cmd that spawns this spec.
func (spec ProcessSpec) command() *exec.Cmd {
	cmd := exec.Command(spec.Args[0], spec.Args[1:]...)
	cmd.Env = spec.environ()
	if spec.UID != nil || spec.GID != nil {
		cred := &syscall.Credential{}
		if spec.UID != nil {
			cred.Uid = *spec.UID
		}
		if spec.GID != nil {
			cred.Gid = *spec.GID
		}
		cmd.SysProcAttr = &syscall.SysProcAttr{Credential: cred}
	}
	return cmd
}
