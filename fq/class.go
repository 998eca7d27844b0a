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

import "time"

// This file is C5, the dispatch operations the surrounding kernel invokes
// through the fixed vtable-shaped contract of spec §6. Every exported
// function here assumes the caller already holds rq's lock (Lock/Unlock),
// matching the "local rq lock held" precondition in spec §6's hook table.

// updateEntity is update_entity(now) (spec §4.4), the defining re-alignment
// rule of the class: missed activations are skipped in whole-period
// increments so the task always activates at an instant congruent to its
// original phase modulo Period.
func updateEntity(e *Entity, now int64) {
	if e.IsNew {
		e.Wakeup = now + int64(e.Period)
		e.Runtime = 0
		e.PrevRuntime = 0
		e.IsNew = false
		return
	}
	if wrapBefore(e.Wakeup, now) {
		if e.Period <= 0 {
			// Degenerate: nothing to align to. Treat as due now rather
			// than reproducing the source's implicit divide-by-period
			// (unlike Yield's period==0 fallback, which adds
			// yieldFallback).
			e.Wakeup = now
		} else {
			k := int64(1) + (now-e.Wakeup)/int64(e.Period)
			e.Wakeup += k * int64(e.Period)
		}
		e.Runtime = 0
	}
	// Else: e is being re-enqueued earlier than its next activation; it
	// sleeps inside C2 until Wakeup is reached (spec §4.4, third case).
}

// updateCurr is update_curr (spec §4.6): charges elapsed execution time to
// the current entity and to the surrounding kernel's accounting sinks,
// clamping (dropping) any negative delta from clock regression.
func (rq *RunQueue) updateCurr(now int64) {
	e := rq.current
	if e == nil {
		return
	}
	delta := now - e.execStart
	if delta <= 0 {
		return
	}
	d := time.Duration(delta)
	if rq.acct != nil {
		rq.acct.ChargeGroupRuntime(e.Task, d)
		rq.acct.ChargeCPUAcct(rq.cpu, d)
	}
	e.execStart = now
	e.Runtime += d
	if rq.acct != nil && rq.acct.RTBandwidthEnabled() {
		rq.acct.ChargeRTBandwidth(rq.cpu, d)
	}
}

// Enqueue is enqueue_task_fq (spec §4.5): updates the entity, links it
// into C2, and -- if it isn't the currently running task and is
// migratory -- links it into C3 too.
func Enqueue(rq *RunQueue, e *Entity, now int64) {
	updateEntity(e, now)
	e.CPU = rq.cpu
	rq.wakeup.insert(e)
	rq.incTasks()
	if rq.current != e && e.Migratory() {
		rq.incMigration(e)
		rq.pushable.insert(e)
	}
}

// Dequeue is dequeue_task_fq (spec §4.5): flushes current-task accounting,
// then unlinks e from C2 and (if applicable) C3. A no-op on the C2/C3
// bookkeeping if e was never linked (spec §9's guard).
func Dequeue(rq *RunQueue, e *Entity, now int64) {
	rq.updateCurr(now)
	if !e.onWakeupQueue() {
		return
	}
	rq.wakeup.erase(e)
	rq.decTasks()
	if e.Migratory() && rq.current != e {
		rq.decMigration(e)
		rq.pushable.erase(e)
	}
	if rq.current == e {
		rq.current = nil
	}
}

// Yield is yield_task_fq (spec §4.5): commits the demand estimate
// (PrevRuntime), advances Wakeup past the current instant by whole
// periods (or yieldFallback if Period==0), and re-links the entity.
// It raises no resched request: there is no return value or flag for one,
// rq.current is left as it was, and what runs next is decided only by the
// surrounding kernel's next PickNext.
func Yield(rq *RunQueue, e *Entity, now int64) {
	rq.updateCurr(now)

	if e.Runtime > 0 {
		e.PrevRuntime = e.Runtime
		e.Yielded = true
		e.Runtime = 0
	}

	if e.Period > 0 {
		e.Wakeup += ((now-e.Wakeup)/int64(e.Period) + 1) * int64(e.Period)
	} else {
		e.Wakeup = now + int64(yieldFallback)
	}

	// Dequeue nulls rq.current when e == rq.current (it has no other way
	// to signal "no longer linked"). Yield keeps p == rq->curr throughout
	// in the source, so restore it before Enqueue -- otherwise Enqueue
	// sees rq.current != e and double-counts a migratory task's
	// migration accounting (incMigration/pushable.insert a second time).
	wasCurrent := rq.current == e

	// Guard against the source's implicit "already linked" assumption
	// (spec §9, last bullet): only dequeue if e was actually linked.
	if e.onWakeupQueue() {
		Dequeue(rq, e, now)
	}
	if wasCurrent {
		rq.current = e
	}
	Enqueue(rq, e, now)
}

// PickResult is pick_next_task_fq's return value (spec §4.5, §7): either a
// candidate Entity, a "no candidate" (Entity == nil, Retry == false), or
// the "retry" sentinel (Retry == true) used when the pull protocol made
// the surrounding kernel's stop-task runnable.
type PickResult struct {
	Entity *Entity
	// PostSchedule mirrors set_post_schedule/has_pushable_fq_tasks: true
	// if pushable tasks remain after this pick, a hint the surrounding
	// kernel may use to re-run push work post-schedule.
	PostSchedule bool
	Retry        bool
}

// PickNext is pick_next_task_fq (spec §4.5). prevInClass indicates
// whether rq.Current() (the task being scheduled out) belonged to this
// class. stopRunnable, if non-nil, reports whether the surrounding
// kernel's stop-task became runnable as a side effect of a pull -- when it
// does, PickNext returns the Retry sentinel so the dispatcher restarts
// class traversal (spec §7).
func PickNext(rq *RunQueue, prevInClass bool, now int64, stopRunnable func() bool) PickResult {
	if now-rq.pullTime > int64(PullPeriod) {
		rq.pullTime = now
		pulled := Pull(rq, now)
		if pulled && stopRunnable != nil && stopRunnable() {
			return PickResult{Retry: true}
		}
	}

	if prevInClass {
		rq.updateCurr(now)
	}

	if rq.nrRunning == 0 {
		return PickResult{}
	}

	leftmost := rq.wakeup.leftmost()
	if leftmost == nil {
		invariantViolation("nrRunning=%d but wakeup queue is empty on cpu %d", rq.nrRunning, rq.cpu)
	}

	// The crucial gating rule (spec §4.5 step 4): a frequency task is
	// eligible only once its scheduled instant has arrived.
	if wrapBefore(now, leftmost.Wakeup) {
		return PickResult{}
	}

	rq.pushable.erase(leftmost)
	leftmost.execStart = now
	rq.current = leftmost

	if leftmost.lastActivation != 0 {
		rq.jitter.Record(leftmost.Period, time.Duration(now-leftmost.lastActivation))
	}
	leftmost.lastActivation = now

	return PickResult{Entity: leftmost, PostSchedule: !rq.pushable.empty()}
}

// PutPrev is put_prev_task_fq (spec §4.5): flushes accounting, and -- if
// the task is still linked into C2 and is migratory -- re-links it into
// C3, since it is no longer the currently running task.
func PutPrev(rq *RunQueue, e *Entity, now int64) {
	rq.updateCurr(now)
	if e.onWakeupQueue() && e.Migratory() {
		rq.pushable.insert(e)
	}
}

// SetCurrTask is set_curr_task_fq: marks e as the CPU's current task,
// records exec_start, and evicts it from the pushable set (it cannot be
// migrated while running).
func SetCurrTask(rq *RunQueue, e *Entity, now int64) {
	e.execStart = now
	rq.current = e
	rq.pushable.erase(e)
}

// Tick is task_tick_fq (spec §4.5): flushes accounting only. No
// preemption decision is made here; periodicity is enforced at the next
// PickNext.
func Tick(rq *RunQueue, now int64) {
	rq.updateCurr(now)
}

// CheckPreempt is check_preempt_curr_fq (spec §4.5): preempt the current
// task iff the incoming task's numeric priority is lower (= higher
// priority) than the current task's. Intra-class preemption is never
// triggered by wakeup comparisons -- only through PickNext's gating rule.
func CheckPreempt(incoming, current Priority) bool {
	return incoming < current
}
