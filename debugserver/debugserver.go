//
// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS-IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
//
// Package debugserver exposes a small read-only HTTP surface over a
// running kernel.Kernel's state, for ad hoc inspection during a
// simulation run. Grounded on server/server.go's mux-router-plus-JSON
// shape, trimmed to this module's much smaller surface.
package debugserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	log "github.com/golang/glog"
	"github.com/gorilla/mux"

	"github.com/google/freqsched/fq"
	"github.com/google/freqsched/inspect"
	"github.com/google/freqsched/kernel"
)

// Server is the debug HTTP surface: current per-CPU snapshots, retained
// snapshot history, and activation queries.
type Server struct {
	k       *kernel.Kernel
	hist    *inspect.History
	index   *inspect.ActivationIndex
	clock   fq.Clock
	unixBase int64
	router  *mux.Router
}

// New builds a Server over k, backed by hist for snapshot history and
// index for activation queries. unixBase is added to the runqueue
// clock's current value to produce wire-ready capture timestamps (spec
// §2: the runqueue clock need not be wall time).
func New(k *kernel.Kernel, clock fq.Clock, hist *inspect.History, index *inspect.ActivationIndex, unixBase int64) *Server {
	s := &Server{k: k, hist: hist, index: index, clock: clock, unixBase: unixBase}
	r := mux.NewRouter()
	r.HandleFunc("/snapshot/{cpu}", s.handleSnapshot)
	r.HandleFunc("/history/{cpu}", s.handleHistory)
	r.HandleFunc("/activations/{cpu}", s.handleActivations)
	s.router = r
	return s
}

// Router returns the underlying mux.Router, for embedding or tests.
func (s *Server) Router() *mux.Router { return s.router }

// ListenAndServe starts serving s's routes on addr. Indirection through a
// package var, following server/server.go's startServer seam, so tests
// can substitute it.
var ListenAndServe = func(addr string, handler http.Handler) error {
	return http.ListenAndServe(addr, handler)
}

func cpuFromVars(req *http.Request) (fq.CPUID, error) {
	v := mux.Vars(req)["cpu"]
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid cpu %q: %w", v, err)
	}
	return fq.CPUID(n), nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, req *http.Request) {
	cpu, err := cpuFromVars(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rq := s.k.RunQueue(cpu)
	if rq == nil {
		http.Error(w, fmt.Sprintf("no such cpu %d", cpu), http.StatusNotFound)
		return
	}
	snap := inspect.Snapshot(rq, s.clock.NowNanos(), s.unixBase)
	writeJSON(w, snap)
}

func (s *Server) handleHistory(w http.ResponseWriter, req *http.Request) {
	cpu, err := cpuFromVars(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n := 0
	if raw := req.URL.Query().Get("n"); raw != "" {
		n, _ = strconv.Atoi(raw)
	}
	writeJSON(w, s.hist.Recent(cpu, n))
}

func (s *Server) handleActivations(w http.ResponseWriter, req *http.Request) {
	cpu, err := cpuFromVars(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, _ := strconv.ParseInt(req.URL.Query().Get("start"), 10, 64)
	end, err := strconv.ParseInt(req.URL.Query().Get("end"), 10, 64)
	if err != nil {
		end = s.clock.NowNanos()
	}
	writeJSON(w, s.index.Query(cpu, start, end))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("debugserver: failed to encode response: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
