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

// Package colony provides a small process supervisor.  A Supervisor keeps
// a declared set of worker processes (the "colony") running on one host,
// restarts them when they die, and accepts out-of-band control commands
// to add, remove, or restart individual workers while it runs.
//
// Unlike a full init system or a container orchestrator, colony manages
// just a fixed-but-changeable set of long-running child processes, with
// no resource isolation and no multi-host awareness.  The intention is
// that users (or administrators) run one colonyd per deployment, seeded
// from a directory of JSON process manifests.
//
// Control commands arrive through a directory used as a message queue:
// an external writer (typically the colonyctl command, via the ctl
// package) drops JSON message files into the directory using an atomic
// write-then-rename, and the supervisor consumes them in order.  A small
// REST API is also available for status inspection and control, and may
// be mounted inside an existing HTTP server via Go's handler framework.
package colony
