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

// State is the lifecycle state of one supervised process entry.
//
// Entries move through these states as illustrated below.  Failed is
// terminal in practice; only an explicit add or restart command takes
// an entry out of it.  Stopped is terminal only at shutdown.
//
//	Stopped ---start---> Starting ---spawn ok---> Running
//	Starting ---spawn fail---> Failed
//	Running ---unexpected exit---> Restarting ---start---> Starting
//	Running ---stop requested---> Stopping ---exit---> Stopped
//	Restarting ---give up---> Failed
//	Failed ---add/restart---> Starting
type State int

const (
	Stopped State = iota
	Starting
	Running
	Stopping
	Restarting
	Failed
)

var stateNames = map[State]string{
	Stopped:    "Stopped",
	Starting:   "Starting",
	Running:    "Running",
	Stopping:   "Stopping",
	Restarting: "Restarting",
	Failed:     "Failed",
}

func (st State) String() string {
	if n, ok := stateNames[st]; ok {
		return n
	}
	return "Unknown"
}

// legalTransition reports whether an entry may move from one state to
// another.  The zero-width moves (a state to itself) are not legal; the
// supervisor never needs them and allowing them would mask bugs.
func legalTransition(from, to State) bool {
	switch from {
	case Stopped:
		return to == Starting
	case Starting:
		return to == Running || to == Failed
	case Running:
		return to == Restarting || to == Stopping
	case Stopping:
		return to == Stopped
	case Restarting:
		return to == Starting || to == Failed
	case Failed:
		return to == Starting
	}
	return false
}
