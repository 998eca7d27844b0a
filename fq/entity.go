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
// Package fq implements SCHED_FREQUENCY, a periodic-activation scheduling
// class: tasks declare a desired activation period, the class dispatches
// each at its next activation instant, re-aligns missed activations to the
// next integral multiple of the period, and rebalances tasks across CPUs to
// minimize aggregate activation jitter.
package fq

import (
	"math/bits"
	"time"
)

// TaskID identifies a task admitted to this class.  Valid TaskIDs are
// nonnegative.
type TaskID int64

// UnknownTaskID represents an indeterminate task.
const UnknownTaskID TaskID = -1

// Valid returns true iff the receiver is a valid TaskID.
func (t TaskID) Valid() bool {
	return t >= 0
}

// CPUID specifies a CPU number.  Valid CPUIDs are nonnegative.
type CPUID int64

// UnknownCPU represents an indeterminate CPU.
const UnknownCPU CPUID = -1

// Valid returns true iff the receiver is a valid CPUID.
func (c CPUID) Valid() bool {
	return c >= 0
}

// Priority is a task's numeric scheduling priority.  Lower values are
// higher priority, matching the surrounding kernel's convention.
type Priority int32

// MaxRTPrio is the surrounding kernel's real-time priority ceiling.  A task
// whose Priority equals MaxRTPrio-1 is reported as "elevated" by FqPrio
// (spec §6, "Priority helper").
const MaxRTPrio Priority = 100

// Entity is the per-task scheduling metadata for SCHED_FREQUENCY (spec §3,
// C1).  It is created on admission to the class with IsNew set, Wakeup and
// Runtime zero, and destroyed when the task leaves the class or exits.
//
// An Entity has exactly two queue links: one into the owning RunQueue's
// wakeup-ordered set (C2) and one into its pushable set (C3).  Neither link
// is derived from the other; pushableLink.linked iff invariant 2 (spec §3)
// holds for the entity at that instant.
type Entity struct {
	// Task identifies the task this entity belongs to; immutable.
	Task TaskID
	// Period is the desired nanosecond distance between activations.
	// Immutable for the task's presence in this class. Zero is legal but
	// degenerate: Yield falls back to Now()+yieldFallback (spec §4.5).
	Period time.Duration
	// Wakeup is the next activation instant, in the runqueue clock's
	// nanosecond domain. Compared with wrapping-signed semantics (spec §4.1)
	// so it tolerates 64-bit timestamp wrap.
	Wakeup int64
	// Runtime is the nanoseconds executed so far in the current period.
	// Reset to zero on re-alignment (update_entity) and on a successful
	// Yield's demand snapshot.
	Runtime time.Duration
	// PrevRuntime is the Runtime observed in the previous period -- the
	// pull heuristic's estimated demand (spec §4.7).
	PrevRuntime time.Duration
	// IsNew is set on admission and cleared by the first update_entity
	// pass (spec §3, Lifecycle).
	IsNew bool
	// Yielded is set when the task voluntarily yields with Runtime > 0
	// (spec §4.5).
	Yielded bool
	// CPUMask is the task's CPU affinity mask, one bit per CPU. Only its
	// cardinality matters to most of this class (spec §3: > 1 makes the
	// task migratory), but the pull protocol (spec §4.7) additionally
	// tests whether a specific destination CPU is included in it.
	CPUMask uint64
	// CPU is the CPU e is currently queued or running on; maintained by
	// Enqueue, so it tracks migration performed by the pull protocol
	// without the surrounding kernel needing to watch for it separately.
	CPU CPUID

	// execStart is the runqueue-clock instant this entity was last
	// switched in; used by update_curr to compute delta (spec §4.6).
	execStart int64
	// lastActivation is the runqueue-clock instant of this entity's
	// previous dispatch, or zero before its first. PickNext uses the gap
	// between successive values to feed JitterTracker (spec §1's
	// aggregate activation jitter).
	lastActivation int64
	// priority mirrors the task's current numeric priority, used only by
	// CheckPreempt and FqPrio (spec §4.5, §6).
	priority Priority

	wakeupLink   rbNode
	pushableLink rbNode
}

// NewEntity returns a freshly admitted Entity for task, with the lifecycle
// state spec §3 mandates: IsNew=true, Wakeup=0, Runtime=0.
func NewEntity(task TaskID, period time.Duration, cpuMask uint64, priority Priority) *Entity {
	return &Entity{
		Task:     task,
		Period:   period,
		CPUMask:  cpuMask,
		priority: priority,
		IsNew:    true,
	}
}

// AllowedCPUs returns the cardinality of e's CPU affinity mask.
func (e *Entity) AllowedCPUs() int {
	return bits.OnesCount64(e.CPUMask)
}

// Migratory reports whether e is a candidate for cross-CPU migration: its
// affinity cardinality exceeds one (spec §3, invariant 2).
func (e *Entity) Migratory() bool {
	return e.AllowedCPUs() > 1
}

// AllowsCPU reports whether cpu is in e's affinity mask.
func (e *Entity) AllowsCPU(cpu CPUID) bool {
	if cpu < 0 || cpu >= 64 {
		return false
	}
	return e.CPUMask&(1<<uint(cpu)) != 0
}

// FqPrio reports whether e is "elevated" priority-wise: its numeric
// priority equals maxRTPrio-1, the only priority distinction this class
// itself draws (spec §6; original_source/include/linux/sched/freq.h's
// fq_prio).
func (e *Entity) FqPrio(maxRTPrio Priority) bool {
	return e.priority == maxRTPrio-1
}

// Priority returns e's numeric scheduling priority.
func (e *Entity) Priority() Priority {
	return e.priority
}

// SetPriority updates e's numeric scheduling priority; used by the
// PrioChanged hook (spec §4.9).
func (e *Entity) SetPriority(p Priority) {
	e.priority = p
}

// onWakeupQueue reports whether e is currently linked into a wakeup-ordered
// queue (spec invariant 1).
func (e *Entity) onWakeupQueue() bool {
	return e.wakeupLink.linked
}

// onPushableSet reports whether e is currently linked into a pushable set.
func (e *Entity) onPushableSet() bool {
	return e.pushableLink.linked
}
