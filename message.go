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
	"time"
)

// Kind identifies a control message.  The wire spellings match the
// historical message format, so existing writers keep working.
type Kind string

const (
	KindAdd        Kind = "ADD"
	KindRemove     Kind = "REMOVE"
	KindRestart    Kind = "RESTART"
	KindRestartAll Kind = "RESTART-ALL"
)

// Message is one control command.  Add messages embed the process spec
// fields; Remove and Restart only need a name; RestartAll needs neither.
// Messages are ephemeral: an external writer creates one, the supervisor
// consumes it exactly once, and the store deletes it.
type Message struct {
	Type Kind              `json:"type"`
	Name string            `json:"name,omitempty"`
	Args []string          `json:"args,omitempty"`
	Env  map[string]string `json:"env,omitempty"`
	UID  *uint32           `json:"uid,omitempty"`
	GID  *uint32           `json:"gid,omitempty"`

	// path is where the store read this message from, used by Ack.
	path string
}

// ParseMessage decodes and validates a control message.  Anything that
// cannot be decoded, or that names an unknown kind, is reported as
// ErrMalformedMessage; the supervisor drops such messages with a warning
// rather than stalling the control channel.
func ParseMessage(data []byte) (*Message, error) {
	m := &Message{}
	if e := json.Unmarshal(data, m); e != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, e)
	}
	switch m.Type {
	case KindAdd:
		if e := m.Spec().Valid(); e != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, e)
		}
	case KindRemove, KindRestart:
		if m.Name == "" {
			return nil, fmt.Errorf("%w: %s without a name",
				ErrMalformedMessage, m.Type)
		}
	case KindRestartAll:
	default:
		return nil, fmt.Errorf("%w: unknown type %q",
			ErrMalformedMessage, m.Type)
	}
	return m, nil
}

// Spec extracts the embedded process spec from an Add message.
func (m *Message) Spec() ProcessSpec {
	return ProcessSpec{
		Name: m.Name,
		Args: m.Args,
		Env:  m.Env,
		UID:  m.UID,
		GID:  m.GID,
	}
}

// AddMessage builds an Add message from a spec.
func AddMessage(spec ProcessSpec) *Message {
	return &Message{
		Type: KindAdd,
		Name: spec.Name,
		Args: spec.Args,
		Env:  spec.Env,
		UID:  spec.UID,
		GID:  spec.GID,
	}
}

func (m *Message) encode() ([]byte, error) {
	return json.Marshal(m)
}

func (m *Message) String() string {
	if m.Name == "" {
		return string(m.Type)
	}
	return fmt.Sprintf("%s %s", m.Type, m.Name)
}

// ExitStatus describes how a child process ended.  Err is nil for a
// clean zero exit; otherwise it carries the exec.Cmd wait error, which
// includes death by signal.
type ExitStatus struct {
	PID  int
	Code int
	Err  error
	When time.Time
}

func (st ExitStatus) String() string {
	if st.Err != nil {
		return st.Err.Error()
	}
	return fmt.Sprintf("exit status %d", st.Code)
}
