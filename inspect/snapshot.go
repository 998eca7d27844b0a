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
package inspect

import (
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/google/freqsched/fq"
)

// CPUSnapshot is a point-in-time read of one CPU's RunQueue counters and
// aggregate activation jitter (spec §1, §3). It never mutates the
// RunQueue it was taken from.
type CPUSnapshot struct {
	CPU         fq.CPUID
	Capturedat  *timestamppb.Timestamp
	NrRunning   int
	NrMigratory int
	Overloaded  bool
	JitterRMS   time.Duration
	Samples     int64
}

// Snapshot captures a CPUSnapshot for rq, stamped with now (the
// runqueue-clock instant the caller took the reading at, converted to a
// wire-ready timestamp via unixNanoBase -- the simulation's own epoch,
// since the runqueue clock is not necessarily wall time).
func Snapshot(rq *fq.RunQueue, now int64, unixNanoBase int64) CPUSnapshot {
	j := rq.Jitter()
	return CPUSnapshot{
		CPU:         rq.CPU(),
		Capturedat:  timestamppb.New(time.Unix(0, unixNanoBase+now)),
		NrRunning:   rq.NrRunning(),
		NrMigratory: rq.NrMigratory(),
		Overloaded:  rq.Overloaded(),
		JitterRMS:   j.RMS(),
		Samples:     j.Samples(),
	}
}

// History retains a bounded number of the most recent CPUSnapshots per
// CPU, for a debug surface to chart jitter/overload over time without
// growing without bound across a long-running simulation. Grounded on
// analysis/sched_metrics.go's summary-over-time style, generalized to a
// size-bounded LRU (hashicorp/golang-lru/simplelru) rather than an
// unbounded slice.
type History struct {
	perCPU map[fq.CPUID]*simplelru.LRU
	size   int
}

// NewHistory returns a History retaining up to size snapshots per CPU.
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{perCPU: map[fq.CPUID]*simplelru.LRU{}, size: size}
}

// Add records snap under a monotonically increasing sequence number, so
// Recent can return them in capture order.
func (h *History) Add(seq uint64, snap CPUSnapshot) {
	lru, ok := h.perCPU[snap.CPU]
	if !ok {
		// simplelru.NewLRU only errors for size <= 0, which NewHistory
		// already guards against.
		lru, _ = simplelru.NewLRU(h.size, nil)
		h.perCPU[snap.CPU] = lru
	}
	lru.Add(seq, snap)
}

// Recent returns up to n of the most recently added snapshots for cpu
// (all retained ones if n <= 0), oldest first: the LRU's Keys are ordered
// oldest to newest, and Recent only peeks, so that order is the order in
// which Add was called.
func (h *History) Recent(cpu fq.CPUID, n int) []CPUSnapshot {
	lru, ok := h.perCPU[cpu]
	if !ok {
		return nil
	}
	keys := lru.Keys()
	if n > 0 && n < len(keys) {
		keys = keys[len(keys)-n:]
	}
	out := make([]CPUSnapshot, 0, len(keys))
	for _, k := range keys {
		if v, ok := lru.Peek(k); ok {
			out = append(out, v.(CPUSnapshot))
		}
	}
	return out
}
