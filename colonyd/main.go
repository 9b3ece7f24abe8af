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

// Command colonyd runs the colony supervisor daemon.  It seeds the
// colony from a directory of JSON process manifests, consumes control
// messages from a message directory, and optionally serves a REST
// status API.
//
// A SIGINT, SIGTERM, or SIGHUP delivered to colonyd stops every worker
// via the graceful stop protocol before the daemon exits.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/gocolony/colony"
	"github.com/gocolony/colony/rest"
)

var addr string = "127.0.0.1:8322"
var dir string = "."
var name string = "colonyd"

func main() {
	flag.StringVar(&addr, "a", addr, "listen address (empty disables REST)")
	flag.StringVar(&dir, "d", dir, "colony directory")
	flag.StringVar(&name, "n", name, "colony name")
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfgDir := path.Join(dir, "config")
	msgDir := path.Join(dir, "messages")

	if e := os.MkdirAll(cfgDir, 0755); e != nil {
		log.Fatalf("Cannot create config directory %s: %v", cfgDir, e)
	}
	specs, e := colony.LoadConfigDir(cfgDir, logger)
	if e != nil {
		log.Fatalf("Failed to load config directory %s: %v", cfgDir, e)
	}

	store, e := colony.OpenStore(msgDir, logger)
	if e != nil {
		log.Fatalf("Failed to open message store %s: %v", msgDir, e)
	}

	s := colony.New(store, colony.Options{Name: name})
	s.Seed(specs)
	s.Start()

	if addr != "" {
		go func() {
			log.Fatal(http.ListenAndServe(addr, rest.NewHandler(s)))
		}()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Wait for a termination signal, and shut down cleanly if we get it.
	<-sigs
	s.Shutdown()
	os.Exit(0)
}
