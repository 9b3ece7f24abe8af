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
	"log"
	"strings"
	"sync"
	"testing"
)

// testLog routes daemon logging into the test output so failures come
// with the supervision trace attached.  Writes arriving after the test
// finishes (straggling stop timers, output pumps) are swallowed;
// calling t.Log at that point would panic.
type testLog struct {
	t    *testing.T
	mx   sync.Mutex
	done bool
}

func newTestLog(t *testing.T) *testLog {
	tl := &testLog{t: t}
	t.Cleanup(func() {
		tl.mx.Lock()
		tl.done = true
		tl.mx.Unlock()
	})
	return tl
}

func (tl *testLog) Write(p []byte) (n int, err error) {
	tl.mx.Lock()
	defer tl.mx.Unlock()
	if tl.done {
		return len(p), nil
	}
	tl.t.Log(strings.Trim(string(p), "\n"))
	return len(p), nil
}

func testLogger(t *testing.T) *log.Logger {
	return log.New(newTestLog(t), "", 0)
}
