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

// Package rest exposes a colony supervisor over HTTP, and provides the
// matching client.  All mutating requests funnel through the
// supervisor's serialized command dispatch, so the single-writer
// invariant on the registry holds regardless of how many HTTP clients
// are connected.
package rest

import (
	"github.com/gocolony/colony"
)

const (
	mimeJson = "application/json; charset=UTF-8"
)

// Error is the JSON error body.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// LogChunk is the body of the log endpoint: the retained records plus
// the id to pass back as "since" on the next request.
type LogChunk struct {
	Records []colony.LogRecord `json:"records"`
	Id      int64              `json:"id,string"`
}
