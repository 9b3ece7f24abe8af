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
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStateNames(t *testing.T) {
	Convey("States have stable names", t, func() {
		So(Stopped.String(), ShouldEqual, "Stopped")
		So(Starting.String(), ShouldEqual, "Starting")
		So(Running.String(), ShouldEqual, "Running")
		So(Stopping.String(), ShouldEqual, "Stopping")
		So(Restarting.String(), ShouldEqual, "Restarting")
		So(Failed.String(), ShouldEqual, "Failed")
		So(State(99).String(), ShouldEqual, "Unknown")
	})
}

func TestLegalTransitions(t *testing.T) {
	allowed := map[State][]State{
		Stopped:    {Starting},
		Starting:   {Running, Failed},
		Running:    {Restarting, Stopping},
		Stopping:   {Stopped},
		Restarting: {Starting, Failed},
		Failed:     {Starting},
	}
	states := []State{Stopped, Starting, Running, Stopping, Restarting, Failed}

	Convey("Only lifecycle edges are legal", t, func() {
		for _, from := range states {
			for _, to := range states {
				want := false
				for _, a := range allowed[from] {
					if a == to {
						want = true
					}
				}
				So(legalTransition(from, to), ShouldEqual, want)
			}
		}
	})
}
