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
package fq

import "testing"

func TestRQOnlineRepublishesCachedOverload(t *testing.T) {
	rd := NewRootDomain(2)
	rq := NewRunQueue(0, NewManualClock(0), nil, rd)
	rq.overloaded = true // simulate a cached state surviving a detach

	RQOnline(rq)
	if !rd.IsSet(0) {
		t.Fatal("RQOnline did not republish a cached overloaded state")
	}
}

func TestRQOnlineNoOpWhenNotOverloaded(t *testing.T) {
	rd := NewRootDomain(2)
	rq := NewRunQueue(0, NewManualClock(0), nil, rd)

	RQOnline(rq)
	if rd.IsSet(0) {
		t.Fatal("RQOnline set the bit for a runqueue never marked overloaded")
	}
}

func TestRQOfflineClearsCachedOverloadedState(t *testing.T) {
	rd := NewRootDomain(2)
	rq := NewRunQueue(0, NewManualClock(0), nil, rd)
	rd.Set(0)
	rq.overloaded = true

	RQOffline(rq)
	if rd.IsSet(0) {
		t.Fatal("RQOffline left the bit set")
	}
}

func TestRQOfflineNoOpWhenNotOverloadedLeavesCountNonNegative(t *testing.T) {
	rd := NewRootDomain(2)
	rq := NewRunQueue(0, NewManualClock(0), nil, rd)
	// rq.overloaded is false: rq never set its bit, matching
	// rq_offline_fq's guard (spec §4.9).

	RQOffline(rq)
	if got := rd.Count(); got != 0 {
		t.Errorf("RootDomain.Count() after offlining a never-overloaded cpu = %d, want 0", got)
	}
}

func TestSwitchedToRequestsPreemptionOnlyWhenArrivingOutranks(t *testing.T) {
	rq := NewRunQueue(0, NewManualClock(0), nil, nil)
	current := NewEntity(1, 100, 1, 20)
	SetCurrTask(rq, current, 0)

	higher := NewEntity(2, 100, 1, 10) // lower numeric value: higher priority
	if !SwitchedTo(rq, higher) {
		t.Fatal("SwitchedTo() = false for a strictly higher-priority arrival, want true")
	}

	lower := NewEntity(3, 100, 1, 30)
	if SwitchedTo(rq, lower) {
		t.Fatal("SwitchedTo() = true for a lower-priority arrival, want false")
	}
}

func TestPrioChangedRequestsPreemptionOnlyWhenChangedOutranks(t *testing.T) {
	rq := NewRunQueue(0, NewManualClock(0), nil, nil)
	current := NewEntity(1, 100, 1, 20)
	other := NewEntity(2, 100, 1, 50)
	SetCurrTask(rq, current, 0)

	other.SetPriority(5)
	if !PrioChanged(rq, other) {
		t.Fatal("PrioChanged() = false after a change to strictly higher priority, want true")
	}
}

func TestSwitchedFromTriggersPullWhenQueueEmptied(t *testing.T) {
	rd := NewRootDomain(2)
	thisRQ := NewRunQueue(0, NewManualClock(0), nil, rd)
	srcRQ := NewRunQueue(1, NewManualClock(0), nil, rd)
	wirePair(thisRQ, srcRQ)

	leftmost := &Entity{Task: 1, Period: 100, CPUMask: 0b11, Wakeup: 0}
	victim := &Entity{Task: 2, Period: 100, CPUMask: 0b11, Wakeup: 10}
	srcRQ.Lock()
	Enqueue(srcRQ, leftmost, 0)
	SetCurrTask(srcRQ, leftmost, 0)
	Enqueue(srcRQ, victim, 0)
	srcRQ.Unlock()

	thisRQ.Lock()
	SwitchedFrom(thisRQ, 0)
	thisRQ.Unlock()

	if thisRQ.NrRunning() == 0 {
		t.Fatal("SwitchedFrom did not pull a replacement task into an emptied runqueue")
	}
}
