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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/google/freqsched/fq"
)

func TestActivationIndexQueryReturnsOverlapping(t *testing.T) {
	idx := NewActivationIndex()
	idx.Record(1, 0, 0, 10)
	idx.Record(2, 0, 20, 30)
	idx.Record(3, 1, 0, 10)

	got := idx.Query(0, 5, 25)

	want := []*Activation{
		{Task: 1, CPU: 0, Start: 0, End: 10, id: 1},
		{Task: 2, CPU: 0, Start: 20, End: 30, id: 2},
	}
	less := func(a, b *Activation) bool { return a.Task < b.Task }
	if diff := cmp.Diff(want, got, cmpopts.SortSlices(less), cmp.AllowUnexported(Activation{})); diff != "" {
		t.Errorf("Query(cpu0, [5,25]) mismatch (-want +got):\n%s", diff)
	}
}

func TestActivationIndexQueryEmptyForUnknownCPU(t *testing.T) {
	idx := NewActivationIndex()
	if got := idx.Query(7, 0, 100); len(got) != 0 {
		t.Errorf("Query() on never-recorded cpu = %+v, want empty", got)
	}
}

func TestActivationIndexLen(t *testing.T) {
	idx := NewActivationIndex()
	idx.Record(1, 0, 0, 10)
	idx.Record(2, 0, 10, 20)
	if got := idx.Len(0); got != 2 {
		t.Errorf("Len(0) = %d, want 2", got)
	}
	if got := idx.Len(1); got != 0 {
		t.Errorf("Len(1) on never-recorded cpu = %d, want 0", got)
	}
}

func TestSnapshotReflectsRunQueueCounters(t *testing.T) {
	clock := fq.NewManualClock(1000)
	rq := fq.NewRunQueue(0, clock, nil, nil)
	e := fq.NewEntity(1, 10, 0b1, 50)

	rq.Lock()
	fq.Enqueue(rq, e, clock.NowNanos())
	rq.Unlock()

	snap := Snapshot(rq, clock.NowNanos(), 0)
	if snap.CPU != 0 || snap.NrRunning != 1 {
		t.Errorf("Snapshot() = %+v, want CPU=0 NrRunning=1", snap)
	}
	if snap.Capturedat == nil {
		t.Error("Snapshot().Capturedat is nil, want a populated timestamp")
	}
}

func TestHistoryRecentReturnsAddedSnapshots(t *testing.T) {
	h := NewHistory(4)
	for i := 0; i < 3; i++ {
		h.Add(uint64(i), CPUSnapshot{CPU: 0, NrRunning: i})
	}
	got := h.Recent(0, 10)
	if len(got) != 3 {
		t.Fatalf("Recent() returned %d snapshots, want 3", len(got))
	}
}

func TestHistoryRecentBoundedBySize(t *testing.T) {
	h := NewHistory(2)
	for i := 0; i < 5; i++ {
		h.Add(uint64(i), CPUSnapshot{CPU: 0, NrRunning: i})
	}
	got := h.Recent(0, 10)
	if len(got) != 2 {
		t.Errorf("Recent() with history size 2 after 5 adds = %d entries, want 2", len(got))
	}
}

func TestHistoryRecentEmptyForUnknownCPU(t *testing.T) {
	h := NewHistory(4)
	if got := h.Recent(9, 10); got != nil {
		t.Errorf("Recent() on never-recorded cpu = %+v, want nil", got)
	}
}
