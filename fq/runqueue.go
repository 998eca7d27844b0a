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

import (
	"sync"
	"time"
)

// AccountingSink is the surrounding kernel's accounting collaborator (spec
// §2, §4.6): the class charges executed time to it but owns none of the
// storage itself.
type AccountingSink interface {
	// AddRunning adjusts the surrounding kernel's global runnable-task
	// counter for cpu by delta (add_nr_running/sub_nr_running).
	AddRunning(cpu CPUID, delta int)
	// ChargeGroupRuntime attributes delta of executed time to task's
	// control-group accounting sink (account_group_exec_runtime).
	ChargeGroupRuntime(task TaskID, delta time.Duration)
	// ChargeCPUAcct attributes delta to the per-CPU accounting sink
	// (cpuacct_charge).
	ChargeCPUAcct(cpu CPUID, delta time.Duration)
	// RTBandwidthEnabled reports whether the surrounding kernel has RT
	// bandwidth accounting enabled (rt_bandwidth_enabled()).
	RTBandwidthEnabled() bool
	// ChargeRTBandwidth charges delta to cpu's RT bandwidth pool under
	// that pool's own lock (spec §4.6: "a foreign class's lock ... nested
	// inside the local runqueue lock").
	ChargeRTBandwidth(cpu CPUID, delta time.Duration)
}

// RunQueue is C4: the per-CPU dispatch shell holding the wakeup-ordered
// queue (C2), the pushable set (C3), and the counters and cached state
// spec §3 enumerates.
type RunQueue struct {
	mu sync.Mutex

	cpu   CPUID
	clock Clock
	acct  AccountingSink
	// rd is nil on a single-CPU (non-SMP) build (spec §9, Open Question
	// 2): the overload tracker and pull protocol are then entirely
	// inert.
	rd *RootDomain

	wakeup   *wakeupQueue
	pushable *pushableSet

	nrRunning   int
	nrMigratory int
	overloaded  bool

	// earliestNextWakeup caches the wakeup of the second-leftmost entity
	// (spec invariant 4); zero when fewer than two entities are present.
	earliestNextWakeup int64
	// reservedCurrFin is spec's earliest.curr_fin: declared, never
	// meaningfully read or written (spec §9, Open Question 1).
	reservedCurrFin int64

	pullTime int64

	// jitter is the running aggregate activation-jitter metric for this
	// CPU (spec §1).
	jitter JitterTracker

	// current is the entity presently executing on this CPU under this
	// class, or nil.
	current *Entity

	// localScratch is the per-CPU local-mask scratch buffer (spec §5;
	// original_source's local_cpu_mask_fq). Nothing reads or writes it:
	// SelectCPU takes its candidate span from the caller.
	localScratch []CPUID

	// peers resolves a CPUID to its RunQueue, used by the pull protocol
	// (spec §4.7) and CPU-selection hook (spec §4.8). Set once by the
	// surrounding kernel after every per-CPU RunQueue has been
	// constructed, via SetPeerLookup.
	peers func(CPUID) *RunQueue
}

// SetPeerLookup installs the CPUID-to-RunQueue resolver the pull protocol
// and CPU-selection hook use to reach other CPUs' runqueues. The
// surrounding kernel calls this once per RunQueue after constructing the
// full per-CPU set (spec §2: the RunQueue collaborates with, but does not
// own, its peers).
func (rq *RunQueue) SetPeerLookup(f func(CPUID) *RunQueue) {
	rq.peers = f
}

// NewRunQueue returns an empty RunQueue for cpu. rd may be nil for a
// single-CPU build, per spec §9's open question on non-SMP bandwidth: the
// overload tracker and pull protocol become no-ops.
func NewRunQueue(cpu CPUID, clock Clock, acct AccountingSink, rd *RootDomain) *RunQueue {
	return &RunQueue{
		cpu:      cpu,
		clock:    clock,
		acct:     acct,
		rd:       rd,
		wakeup:   newWakeupQueue(),
		pushable: newPushableSet(),
	}
}

// CPU returns the CPU this runqueue belongs to.
func (rq *RunQueue) CPU() CPUID { return rq.cpu }

// Lock acquires the runqueue's lock. Dispatch hooks are documented (spec
// §6) to require this already held; exported so the surrounding kernel's
// hook dispatcher can take it. The pull protocol's double lock orders
// runqueues by CPU id (see lockSrc in pull.go).
func (rq *RunQueue) Lock() { rq.mu.Lock() }

// Unlock releases the runqueue's lock.
func (rq *RunQueue) Unlock() { rq.mu.Unlock() }

// NrRunning returns the number of frequency entities present.
func (rq *RunQueue) NrRunning() int { return rq.nrRunning }

// NrMigratory returns the number of present entities with affinity
// cardinality > 1 (spec invariant 3: NrMigratory <= NrRunning).
func (rq *RunQueue) NrMigratory() int { return rq.nrMigratory }

// Overloaded reports this CPU's cached overload mirror (spec invariant 5).
func (rq *RunQueue) Overloaded() bool { return rq.overloaded }

// Current returns the entity currently executing under this class on this
// CPU, or nil.
func (rq *RunQueue) Current() *Entity { return rq.current }

// Jitter returns this CPU's running aggregate activation-jitter metric
// (spec §1).
func (rq *RunQueue) Jitter() *JitterTracker { return &rq.jitter }

// updateNextWakeup refreshes earliestNextWakeup from the wakeup queue's
// second-leftmost entity (spec §4.1, §4.3, invariant 4).
func (rq *RunQueue) updateNextWakeup() {
	if rq.nrRunning < 2 {
		rq.earliestNextWakeup = 0
		return
	}
	if e := rq.wakeup.secondLeftmost(); e != nil {
		rq.earliestNextWakeup = e.Wakeup
	} else {
		rq.earliestNextWakeup = 0
	}
}

// incTasks implements inc_fq_tasks (spec §4.3): bumps nrRunning, bumps the
// surrounding kernel's global runnable-tasks counter, refreshes
// earliestNextWakeup.
func (rq *RunQueue) incTasks() {
	rq.nrRunning++
	if rq.acct != nil {
		rq.acct.AddRunning(rq.cpu, 1)
	}
	rq.updateNextWakeup()
}

// decTasks implements dec_fq_tasks: symmetric to incTasks.
func (rq *RunQueue) decTasks() {
	rq.nrRunning--
	if rq.acct != nil {
		rq.acct.AddRunning(rq.cpu, -1)
	}
	rq.updateNextWakeup()
}

// updateMigration implements update_fq_migration (spec §4.3): if
// migratory and more than one task is running and we are not already
// marked overloaded, set the bit and increment the tracker; if overloaded
// and the predicate no longer holds, clear it.
func (rq *RunQueue) updateMigration() {
	overloadNow := rq.nrMigratory >= 1 && rq.nrRunning > 1
	if overloadNow {
		if !rq.overloaded {
			if rq.rd != nil {
				rq.rd.Set(rq.cpu)
			}
			rq.overloaded = true
		}
	} else if rq.overloaded {
		if rq.rd != nil {
			rq.rd.Clear(rq.cpu)
		}
		rq.overloaded = false
	}
}

// incMigration implements inc_fq_migration: if e is migratory, bump
// nrMigratory, then refresh the overload mirror.
func (rq *RunQueue) incMigration(e *Entity) {
	if e.Migratory() {
		rq.nrMigratory++
	}
	rq.updateMigration()
}

// decMigration implements dec_fq_migration: symmetric to incMigration.
func (rq *RunQueue) decMigration(e *Entity) {
	if e.Migratory() {
		rq.nrMigratory--
	}
	rq.updateMigration()
}
