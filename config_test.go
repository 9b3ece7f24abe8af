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
	"os"
	"path"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadConfigDir(t *testing.T) {
	Convey("Given a config directory", t, func() {
		dir := t.TempDir()
		write := func(name, body string) {
			So(os.WriteFile(path.Join(dir, name), []byte(body), 0644),
				ShouldBeNil)
		}

		Convey("An empty directory yields no specs", func() {
			specs, e := LoadConfigDir(dir, testLogger(t))
			So(e, ShouldBeNil)
			So(specs, ShouldBeEmpty)
		})

		Convey("Manifests load sorted, named by file", func() {
			write("zeta", `{"args": ["/bin/true"]}`)
			write("alpha", `{"args": ["/bin/cat", "-"], "env": {"A": "B"}}`)
			specs, e := LoadConfigDir(dir, testLogger(t))
			So(e, ShouldBeNil)
			So(len(specs), ShouldEqual, 2)
			So(specs[0].Name, ShouldEqual, "alpha")
			So(specs[0].Args, ShouldResemble, []string{"/bin/cat", "-"})
			So(specs[1].Name, ShouldEqual, "zeta")
		})

		Convey("Bad manifests are skipped, not fatal", func() {
			write("good", `{"args": ["/bin/true"]}`)
			write("broken", `not json at all`)
			write("empty", `{}`)
			specs, e := LoadConfigDir(dir, testLogger(t))
			So(e, ShouldBeNil)
			So(len(specs), ShouldEqual, 1)
			So(specs[0].Name, ShouldEqual, "good")
		})

		Convey("Hidden files and subdirectories are ignored", func() {
			write(".editor-swap", `junk`)
			So(os.Mkdir(path.Join(dir, "subdir"), 0755), ShouldBeNil)
			specs, e := LoadConfigDir(dir, testLogger(t))
			So(e, ShouldBeNil)
			So(specs, ShouldBeEmpty)
		})

		Convey("A missing directory is an error", func() {
			_, e := LoadConfigDir(path.Join(dir, "nope"), testLogger(t))
			So(e, ShouldNotBeNil)
		})
	})
}
