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

package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/gocolony/colony"
)

// Handler wraps a Supervisor, adding http.Handler functionality.
type Handler struct {
	s *colony.Supervisor
	r *mux.Router
}

func (h *Handler) internalError(w http.ResponseWriter, e error) {
	http.Error(w, e.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJson(w http.ResponseWriter, v interface{}) {
	if b, e := json.Marshal(v); e != nil {
		h.internalError(w, e)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.Write(b)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	if b, err := json.Marshal(e); err != nil {
		h.internalError(w, err)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.WriteHeader(e.Code)
		w.Write(b)
	}
}

// errorFor maps supervisor errors onto HTTP statuses.
func errorFor(e error) *Error {
	switch {
	case errors.Is(e, colony.ErrUnknownProcess):
		return &Error{http.StatusNotFound, "Process not found"}
	case errors.Is(e, colony.ErrBadSpec),
		errors.Is(e, colony.ErrMalformedMessage):
		return &Error{http.StatusBadRequest, e.Error()}
	case errors.Is(e, colony.ErrShutdown):
		return &Error{http.StatusServiceUnavailable, e.Error()}
	}
	return &Error{http.StatusInternalServerError, e.Error()}
}

var ok struct{}

func (h *Handler) listProcesses(w http.ResponseWriter, r *http.Request) {
	h.writeJson(w, h.s.Registry().Names())
}

func (h *Handler) getProcess(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["process"]
	if info, e := h.s.Registry().Info(name); e != nil {
		h.writeError(w, errorFor(e))
	} else {
		h.writeJson(w, info)
	}
}

func (h *Handler) addProcess(w http.ResponseWriter, r *http.Request) {
	body, e := io.ReadAll(r.Body)
	if e != nil {
		h.writeError(w, &Error{http.StatusBadRequest, e.Error()})
		return
	}
	var spec colony.ProcessSpec
	if e := json.Unmarshal(body, &spec); e != nil {
		h.writeError(w, &Error{http.StatusBadRequest, e.Error()})
		return
	}
	if e := h.s.Apply(colony.AddMessage(spec)); e != nil {
		h.writeError(w, errorFor(e))
		return
	}
	h.writeJson(w, ok)
}

func (h *Handler) removeProcess(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["process"]
	m := &colony.Message{Type: colony.KindRemove, Name: name}
	if e := h.s.Apply(m); e != nil {
		h.writeError(w, errorFor(e))
		return
	}
	h.writeJson(w, ok)
}

func (h *Handler) restartProcess(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["process"]
	m := &colony.Message{Type: colony.KindRestart, Name: name}
	if e := h.s.Apply(m); e != nil {
		h.writeError(w, errorFor(e))
		return
	}
	h.writeJson(w, ok)
}

func (h *Handler) restartAll(w http.ResponseWriter, r *http.Request) {
	m := &colony.Message{Type: colony.KindRestartAll}
	if e := h.s.Apply(m); e != nil {
		h.writeError(w, errorFor(e))
		return
	}
	h.writeJson(w, ok)
}

// getLog serves the retained log.  With ?since=<id> only newer content
// is returned, and ?wait=<seconds> turns the request into a long poll
// against that id.
func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	since, _ := strconv.ParseInt(q.Get("since"), 10, 64)
	if ws := q.Get("wait"); ws != "" {
		if secs, e := strconv.Atoi(ws); e == nil && secs > 0 {
			h.s.WatchLog(since, time.Duration(secs)*time.Second)
		}
	}
	recs, id := h.s.GetLog(since)
	h.writeJson(w, &LogChunk{Records: recs, Id: id})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

func NewHandler(s *colony.Supervisor) *Handler {
	r := mux.NewRouter()
	h := &Handler{s: s, r: r}
	r.HandleFunc("/processes", h.listProcesses).Methods("GET")
	r.HandleFunc("/processes", h.addProcess).Methods("POST")
	r.HandleFunc("/processes/{process}", h.getProcess).Methods("GET")
	r.HandleFunc("/processes/{process}", h.removeProcess).Methods("DELETE")
	r.HandleFunc("/processes/{process}/restart", h.restartProcess).Methods("POST")
	r.HandleFunc("/restart", h.restartAll).Methods("POST")
	r.HandleFunc("/log", h.getLog).Methods("GET")
	return h
}
