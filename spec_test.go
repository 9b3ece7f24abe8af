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
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSpecValid(t *testing.T) {
	Convey("Valid", t, func() {
		good := ProcessSpec{Name: "web", Args: []string{"/bin/true"}}
		So(good.Valid(), ShouldBeNil)

		Convey("Rejects empty names", func() {
			s := good
			s.Name = ""
			So(s.Valid(), ShouldWrap, ErrBadSpec)
		})

		Convey("Rejects names that escape the config directory", func() {
			for _, n := range []string{"a/b", "a\\b", ".hidden", "../up"} {
				s := good
				s.Name = n
				So(s.Valid(), ShouldWrap, ErrBadSpec)
			}
		})

		Convey("Rejects a missing command", func() {
			s := good
			s.Args = nil
			So(s.Valid(), ShouldWrap, ErrBadSpec)
			s.Args = []string{""}
			So(s.Valid(), ShouldWrap, ErrBadSpec)
		})
	})
}

func TestParseSpec(t *testing.T) {
	Convey("ParseSpec", t, func() {
		Convey("Decodes a manifest", func() {
			data := []byte(`{"args": ["/bin/cat", "-"],
				"env": {"LANG": "C"}, "uid": 5, "gid": 6}`)
			spec, e := ParseSpec("web", data)
			So(e, ShouldBeNil)
			So(spec.Name, ShouldEqual, "web")
			So(spec.Args, ShouldResemble, []string{"/bin/cat", "-"})
			So(spec.Env["LANG"], ShouldEqual, "C")
			So(*spec.UID, ShouldEqual, uint32(5))
			So(*spec.GID, ShouldEqual, uint32(6))
		})

		Convey("The file name wins over an embedded name", func() {
			spec, e := ParseSpec("web", []byte(`{"name": "other", "args": ["/bin/true"]}`))
			So(e, ShouldBeNil)
			So(spec.Name, ShouldEqual, "web")
		})

		Convey("Rejects junk", func() {
			_, e := ParseSpec("web", []byte("not json"))
			So(e, ShouldWrap, ErrBadSpec)
		})

		Convey("Rejects a manifest with no command", func() {
			_, e := ParseSpec("web", []byte(`{"env": {"A": "B"}}`))
			So(e, ShouldWrap, ErrBadSpec)
		})
	})
}

func TestSpecManifest(t *testing.T) {
	Convey("Manifest omits the name", t, func() {
		uid := uint32(12)
		spec := ProcessSpec{
			Name: "web",
			Args: []string{"/bin/true"},
			UID:  &uid,
		}
		data, e := spec.Manifest()
		So(e, ShouldBeNil)

		var m map[string]interface{}
		So(json.Unmarshal(data, &m), ShouldBeNil)
		_, hasName := m["name"]
		So(hasName, ShouldBeFalse)
		So(m["uid"], ShouldEqual, float64(12))

		Convey("And round-trips through ParseSpec", func() {
			back, e := ParseSpec("web", data)
			So(e, ShouldBeNil)
			So(back, ShouldResemble, spec)
		})
	})
}

func TestSpecEnviron(t *testing.T) {
	Convey("environ", t, func() {
		t.Setenv("COLONY_TEST_INHERIT", "kept")
		t.Setenv("COLONY_TEST_CLOBBER", "old")

		Convey("Inherits untouched when Env is empty", func() {
			spec := ProcessSpec{Name: "a", Args: []string{"/bin/true"}}
			So(spec.environ(), ShouldBeNil)
		})

		Convey("Overlays the supervisor environment", func() {
			spec := ProcessSpec{
				Name: "a",
				Args: []string{"/bin/true"},
				Env: map[string]string{
					"COLONY_TEST_CLOBBER": "new",
					"COLONY_TEST_EXTRA":   "added",
				},
			}
			env := spec.environ()
			So(env, ShouldContain, "COLONY_TEST_INHERIT=kept")
			So(env, ShouldContain, "COLONY_TEST_CLOBBER=new")
			So(env, ShouldContain, "COLONY_TEST_EXTRA=added")
			So(env, ShouldNotContain, "COLONY_TEST_CLOBBER=old")
		})
	})
}
