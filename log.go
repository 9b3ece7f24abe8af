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
	"strings"
	"sync"
	"time"
)

const (
	// MaxLogRecords bounds the in-memory log; older records fall off.
	MaxLogRecords = 1000
)

// LogRecord is one retained log line.  Ids increase monotonically and
// double as cache validators for the REST API.
type LogRecord struct {
	Id   int64     `json:"id,string"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Log is a bounded in-memory ring of log records.  The supervisor's
// MultiLogger feeds it, and the REST API serves it, so that recent
// daemon and worker output can be inspected without tailing files.
type Log struct {
	records    []LogRecord
	numRecords int
	maxRecords int
	id         int64
	cvs        map[*sync.Cond]bool
	mx         sync.Mutex
}

// NewLog returns an empty Log.  The initial id is the current time in
// nanoseconds, which forces clients caching against a prior instance to
// invalidate if the daemon restarts.
func NewLog() *Log {
	return &Log{
		maxRecords: MaxLogRecords,
		id:         time.Now().UnixNano(),
		cvs:        make(map[*sync.Cond]bool),
	}
}

func (l *Log) lock() {
	l.mx.Lock()
}

func (l *Log) unlock() {
	l.mx.Unlock()
}

// Write implements the Writer interface consumed by log.Logger.
func (l *Log) Write(b []byte) (int, error) {
	str := strings.Trim(string(b), "\n")
	l.lock()
	if l.records == nil {
		l.records = make([]LogRecord, l.maxRecords)
		l.numRecords = 0
	}
	for _, line := range strings.Split(str, "\n") {
		idx := l.numRecords % l.maxRecords
		l.id++
		l.records[idx].Text = line
		l.records[idx].Id = l.id
		l.records[idx].Time = time.Now()
		// numRecords may exceed maxRecords; it really tracks the
		// next index once we have looped.
		l.numRecords++
	}
	for cv := range l.cvs {
		cv.Broadcast()
	}
	l.unlock()
	return len(b), nil
}

// GetRecords returns the retained records along with the current id.
// If last matches the current id (nothing new), it returns nil records
// immediately without duplicating anything.
func (l *Log) GetRecords(last int64) ([]LogRecord, int64) {
	l.lock()
	if l.id == last {
		l.unlock()
		return nil, last
	}
	cnt := l.numRecords
	if cnt > l.maxRecords {
		cnt = l.maxRecords
	}
	recs := make([]LogRecord, 0, cnt)
	index := l.numRecords - cnt
	for j := 0; j < cnt; j++ {
		recs = append(recs, l.records[index%l.maxRecords])
		index++
	}
	id := l.id
	l.unlock()
	return recs, id
}

// Watch blocks until the log id differs from last, or the expiration
// passes, and returns the current id.  An expire of 0 polls.
func (l *Log) Watch(last int64, expire time.Duration) int64 {
	expired := false
	var timer *time.Timer
	cv := sync.NewCond(&l.mx)
	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			l.lock()
			expired = true
			cv.Broadcast()
			l.unlock()
		})
	} else {
		expired = true
	}

	l.lock()
	l.cvs[cv] = true
	for {
		if l.id != last || expired {
			break
		}
		cv.Wait()
	}
	delete(l.cvs, cv)
	if l.id != last {
		last = l.id
	}
	l.unlock()
	if timer != nil {
		timer.Stop()
	}
	return last
}
