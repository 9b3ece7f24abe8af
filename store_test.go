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
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, e := OpenStore(path.Join(t.TempDir(), "messages"), testLogger(t))
	if e != nil {
		t.Fatalf("OpenStore: %v", e)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreEnqueuePoll(t *testing.T) {
	Convey("Given an open store", t, func() {
		s := openTestStore(t)

		Convey("It starts empty", func() {
			msgs, e := s.Poll()
			So(e, ShouldBeNil)
			So(msgs, ShouldBeEmpty)
		})

		Convey("Messages come back in insertion order", func() {
			for _, n := range []string{"one", "two", "three"} {
				So(s.Enqueue(&Message{Type: KindRestart, Name: n}),
					ShouldBeNil)
			}
			msgs, e := s.Poll()
			So(e, ShouldBeNil)
			So(len(msgs), ShouldEqual, 3)
			So(msgs[0].Name, ShouldEqual, "one")
			So(msgs[1].Name, ShouldEqual, "two")
			So(msgs[2].Name, ShouldEqual, "three")
		})

		Convey("Poll does not consume", func() {
			So(s.Enqueue(&Message{Type: KindRestartAll}), ShouldBeNil)
			m1, _ := s.Poll()
			m2, _ := s.Poll()
			So(len(m1), ShouldEqual, 1)
			So(len(m2), ShouldEqual, 1)
		})
	})
}

func TestStoreAck(t *testing.T) {
	Convey("Given a store with one message", t, func() {
		s := openTestStore(t)
		So(s.Enqueue(&Message{Type: KindRestart, Name: "web"}), ShouldBeNil)
		msgs, e := s.Poll()
		So(e, ShouldBeNil)
		So(len(msgs), ShouldEqual, 1)

		Convey("Ack removes it", func() {
			So(s.Ack(msgs[0]), ShouldBeNil)
			left, e := s.Poll()
			So(e, ShouldBeNil)
			So(left, ShouldBeEmpty)

			Convey("And acking again is harmless", func() {
				So(s.Ack(msgs[0]), ShouldBeNil)
			})
		})
	})
}

func TestStoreHidesPartialWrites(t *testing.T) {
	Convey("Dot-prefixed files are invisible", t, func() {
		s := openTestStore(t)
		tmp := path.Join(s.Dir(), ".half-written")
		So(os.WriteFile(tmp, []byte(`{"type": "RESTART-ALL"`), 0644),
			ShouldBeNil)
		msgs, e := s.Poll()
		So(e, ShouldBeNil)
		So(msgs, ShouldBeEmpty)

		Convey("Until renamed into place", func() {
			full := path.Join(s.Dir(), "00000000000000000000.1.1")
			So(os.WriteFile(tmp, []byte(`{"type": "RESTART-ALL"}`), 0644),
				ShouldBeNil)
			So(os.Rename(tmp, full), ShouldBeNil)
			msgs, e := s.Poll()
			So(e, ShouldBeNil)
			So(len(msgs), ShouldEqual, 1)
		})
	})
}

func TestStoreDropsMalformed(t *testing.T) {
	Convey("Unparseable messages are removed, not returned", t, func() {
		s := openTestStore(t)
		bad := path.Join(s.Dir(), "00000000000000000001.1.1")
		So(os.WriteFile(bad, []byte("garbage"), 0644), ShouldBeNil)
		So(s.Enqueue(&Message{Type: KindRestart, Name: "web"}), ShouldBeNil)

		msgs, e := s.Poll()
		So(e, ShouldBeNil)
		So(len(msgs), ShouldEqual, 1)
		So(msgs[0].Name, ShouldEqual, "web")
		_, e = os.Stat(bad)
		So(os.IsNotExist(e), ShouldBeTrue)
	})
}

func TestStoreWatch(t *testing.T) {
	Convey("The change latch wakes on new messages", t, func() {
		s := openTestStore(t)

		// Drain anything latched from setup.
		select {
		case <-s.Watch():
		default:
		}

		So(s.Enqueue(&Message{Type: KindRestartAll}), ShouldBeNil)
		select {
		case <-s.Watch():
		case <-time.After(5 * time.Second):
			t.Error("no wakeup from store watch")
		}
	})
}

func TestStoreSurvivesReopen(t *testing.T) {
	Convey("Unconsumed messages persist across Close and reopen", t, func() {
		dir := path.Join(t.TempDir(), "messages")
		s, e := OpenStore(dir, testLogger(t))
		So(e, ShouldBeNil)
		So(s.Enqueue(&Message{Type: KindRestart, Name: "web"}), ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		s2, e := OpenStore(dir, testLogger(t))
		So(e, ShouldBeNil)
		defer s2.Close()
		msgs, e := s2.Poll()
		So(e, ShouldBeNil)
		So(len(msgs), ShouldEqual, 1)
		So(msgs[0].Name, ShouldEqual, "web")
	})
}
