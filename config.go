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
	"os"
	"path"
	"sort"
)

// LoadConfigDir reads a directory of process manifests into the specs
// that seed the registry at startup.  Each visible file is one JSON
// manifest; its file name is the process name.  Manifests that fail to
// parse are logged and skipped, so one bad file cannot keep the rest of
// the colony from starting.  The returned specs are sorted by name.
func LoadConfigDir(dir string, logger *log.Logger) ([]ProcessSpec, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	ents, e := os.ReadDir(dir)
	if e != nil {
		return nil, e
	}
	names := make([]string, 0, len(ents))
	for _, ent := range ents {
		if ent.IsDir() || len(ent.Name()) == 0 || ent.Name()[0] == '.' {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Strings(names)

	specs := make([]ProcessSpec, 0, len(names))
	for _, n := range names {
		fname := path.Join(dir, n)
		data, e := os.ReadFile(fname)
		if e != nil {
			logger.Printf("Failed to read manifest %s: %v", fname, e)
			continue
		}
		spec, e := ParseSpec(n, data)
		if e != nil {
			logger.Printf("Failed to load manifest %s: %v", fname, e)
			continue
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
