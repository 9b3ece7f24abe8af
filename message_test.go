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

func TestParseMessage(t *testing.T) {
	Convey("ParseMessage", t, func() {
		Convey("Accepts an add with an embedded spec", func() {
			m, e := ParseMessage([]byte(
				`{"type": "ADD", "name": "web",
				  "args": ["/bin/cat"], "env": {"A": "B"}}`))
			So(e, ShouldBeNil)
			So(m.Type, ShouldEqual, KindAdd)
			spec := m.Spec()
			So(spec.Name, ShouldEqual, "web")
			So(spec.Args, ShouldResemble, []string{"/bin/cat"})
			So(spec.Env["A"], ShouldEqual, "B")
		})

		Convey("Accepts remove and restart", func() {
			for _, k := range []Kind{KindRemove, KindRestart} {
				m, e := ParseMessage([]byte(
					`{"type": "` + string(k) + `", "name": "web"}`))
				So(e, ShouldBeNil)
				So(m.Type, ShouldEqual, k)
				So(m.Name, ShouldEqual, "web")
			}
		})

		Convey("Accepts restart-all with no name", func() {
			m, e := ParseMessage([]byte(`{"type": "RESTART-ALL"}`))
			So(e, ShouldBeNil)
			So(m.Type, ShouldEqual, KindRestartAll)
		})

		Convey("Rejects junk", func() {
			_, e := ParseMessage([]byte("}{"))
			So(e, ShouldWrap, ErrMalformedMessage)
		})

		Convey("Rejects unknown types", func() {
			_, e := ParseMessage([]byte(`{"type": "EXPLODE"}`))
			So(e, ShouldWrap, ErrMalformedMessage)
		})

		Convey("Rejects commands without a name", func() {
			for _, k := range []Kind{KindRemove, KindRestart} {
				_, e := ParseMessage([]byte(
					`{"type": "` + string(k) + `"}`))
				So(e, ShouldWrap, ErrMalformedMessage)
			}
		})

		Convey("Rejects an add with a broken spec", func() {
			_, e := ParseMessage([]byte(`{"type": "ADD", "name": "web"}`))
			So(e, ShouldWrap, ErrMalformedMessage)
		})
	})
}

func TestAddMessageRoundTrip(t *testing.T) {
	Convey("AddMessage carries the whole spec", t, func() {
		uid := uint32(7)
		spec := ProcessSpec{
			Name: "web",
			Args: []string{"/bin/cat", "-"},
			Env:  map[string]string{"A": "B"},
			UID:  &uid,
		}
		data, e := AddMessage(spec).encode()
		So(e, ShouldBeNil)
		m, e := ParseMessage(data)
		So(e, ShouldBeNil)
		So(m.Spec(), ShouldResemble, spec)
	})
}

func TestMessageString(t *testing.T) {
	Convey("String is readable in logs", t, func() {
		So((&Message{Type: KindRestart, Name: "web"}).String(),
			ShouldEqual, "RESTART web")
		So((&Message{Type: KindRestartAll}).String(),
			ShouldEqual, "RESTART-ALL")
	})
}
