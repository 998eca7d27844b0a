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

// This file is C9, the online/offline and priority-transition hooks (spec
// §4.9).

// RQOnline re-publishes rq's cached overload state to the root domain when
// rq is re-attached (e.g. after a CPU comes back online). A no-op on a
// single-CPU build (rq.rd == nil).
func RQOnline(rq *RunQueue) {
	if rq.rd != nil && rq.overloaded {
		rq.rd.Set(rq.cpu)
	}
}

// RQOffline clears rq's contribution to the root domain's overload bitmap
// when rq is detached (e.g. the CPU is going offline), mirroring
// rq_offline_fq's if (rq->fq.overloaded) guard: clearing an already-clear
// bit would still decrement the root domain's set-bit count.
func RQOffline(rq *RunQueue) {
	if rq.rd != nil && rq.overloaded {
		rq.rd.Clear(rq.cpu)
	}
}

// TaskDead is invoked when a task in this class exits. It is equivalent
// to Dequeue: the entity is unlinked from C2 and (if applicable) C3 and
// its counters released. There is no further lifecycle after this call;
// the Entity is discarded by the surrounding kernel.
func TaskDead(rq *RunQueue, e *Entity, now int64) {
	Dequeue(rq, e, now)
}

// SwitchedFrom is invoked when a task leaves this class (e.g. a policy
// change) while still assigned to rq. If that departure left rq's queue
// empty, a pull is attempted immediately rather than waiting for the next
// PullPeriod tick, since an idling CPU is the worst case this protocol
// guards against.
func SwitchedFrom(rq *RunQueue, now int64) {
	if rq.nrRunning == 0 {
		rq.pullTime = now
		Pull(rq, now)
	}
}

// SwitchedTo is invoked when a task newly enters this class on rq (e.g. a
// policy change) and reports whether the current task should be
// preemption-checked, per CheckPreempt.
func SwitchedTo(rq *RunQueue, arriving *Entity) bool {
	if rq.current == nil || rq.current == arriving {
		return false
	}
	return CheckPreempt(arriving.Priority(), rq.current.Priority())
}

// PrioChanged is invoked when a task already in this class on rq has its
// numeric priority changed, and reports whether the current task should
// be preemption-checked.
func PrioChanged(rq *RunQueue, changed *Entity) bool {
	if rq.current == nil || rq.current == changed {
		return false
	}
	return CheckPreempt(changed.Priority(), rq.current.Priority())
}
