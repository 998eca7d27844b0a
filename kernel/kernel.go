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
// Package kernel is the surrounding-kernel collaborator fq's dispatch
// hooks assume: it owns the per-CPU RunQueues, the shared RootDomain, the
// clock, task admission, and runtime accounting that spec.md attributes
// to "the surrounding kernel" throughout.
package kernel

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/golang/groupcache/lru"
	"github.com/google/uuid"

	"github.com/google/freqsched/fq"
	"github.com/google/freqsched/policy"
)

// Kernel simulates enough of the surrounding kernel to drive fq's
// dispatch hooks end to end: per-CPU RunQueues, a shared RootDomain (nil
// on a single-CPU build), a clock, and the AccountingSink the class
// charges executed time to.
type Kernel struct {
	clock fq.Clock
	rd    *fq.RootDomain
	cpus  []*fq.RunQueue
	acct  *accounting

	mu       sync.Mutex
	nextTask fq.TaskID
	handles  map[uuid.UUID]fq.TaskID
	entities map[fq.TaskID]*fq.Entity
	// recent is a bounded record (256 entries) of the most recently
	// admitted handles and their task ids. Nothing in this package reads
	// it, and it does not bound handles or entities, which keep every task
	// until Retire.
	recent *lru.Cache
}

// New constructs a Kernel with numCPUs per-CPU runqueues sharing clock and
// (if numCPUs > 1) a RootDomain.
func New(numCPUs int, clock fq.Clock) *Kernel {
	if numCPUs < 1 {
		numCPUs = 1
	}
	var rd *fq.RootDomain
	if numCPUs > 1 {
		rd = fq.NewRootDomain(numCPUs)
	}

	k := &Kernel{
		clock:    clock,
		rd:       rd,
		acct:     newAccounting(),
		handles:  map[uuid.UUID]fq.TaskID{},
		entities: map[fq.TaskID]*fq.Entity{},
		recent:   lru.New(256),
	}
	k.cpus = make([]*fq.RunQueue, numCPUs)
	for i := range k.cpus {
		k.cpus[i] = fq.NewRunQueue(fq.CPUID(i), clock, k.acct, rd)
	}
	for _, rq := range k.cpus {
		rq.SetPeerLookup(k.lookupRunQueue)
		fq.RQOnline(rq)
	}
	return k
}

func (k *Kernel) lookupRunQueue(cpu fq.CPUID) *fq.RunQueue {
	if int(cpu) < 0 || int(cpu) >= len(k.cpus) {
		return nil
	}
	return k.cpus[cpu]
}

// NumCPUs returns the number of simulated CPUs.
func (k *Kernel) NumCPUs() int { return len(k.cpus) }

// RunQueue exposes cpu's RunQueue, e.g. for inspect/ to read counters.
func (k *Kernel) RunQueue(cpu fq.CPUID) *fq.RunQueue { return k.lookupRunQueue(cpu) }

// RootDomain exposes the shared overload tracker, or nil on a single-CPU
// build.
func (k *Kernel) RootDomain() *fq.RootDomain { return k.rd }

// Admit validates attr, builds the fq.Entity it describes, places it (via
// SelectCPU when migratory) starting from suggested, and enqueues it.
// Returns an opaque handle for later Retire calls.
func (k *Kernel) Admit(attr policy.Attr, suggested fq.CPUID) (uuid.UUID, error) {
	if err := attr.Validate(); err != nil {
		return uuid.Nil, err
	}

	k.mu.Lock()
	task := k.nextTask
	k.nextTask++
	k.mu.Unlock()

	e, err := attr.NewEntity(task)
	if err != nil {
		return uuid.Nil, err
	}

	cpu := k.selectCPU(e, suggested)
	now := k.clock.NowNanos()
	rq := k.cpus[cpu]
	rq.Lock()
	fq.Enqueue(rq, e, now)
	rq.Unlock()

	handle := uuid.New()
	k.mu.Lock()
	k.handles[handle] = task
	k.entities[task] = e
	k.recent.Add(handle, task)
	k.mu.Unlock()

	glog.Infof("kernel: admitted task %s (id %d) to cpu %d, period=%s", handle, task, cpu, e.Period)
	return handle, nil
}

func (k *Kernel) selectCPU(e *fq.Entity, suggested fq.CPUID) fq.CPUID {
	if int(suggested) < 0 || int(suggested) >= len(k.cpus) {
		suggested = 0
	}
	span := make([]fq.CPUID, len(k.cpus))
	for i := range span {
		span[i] = fq.CPUID(i)
	}
	cpu := fq.SelectCPU(k.cpus[suggested], e, suggested, span, k.lookupRunQueue)
	// SelectCPU returns suggested unchanged when it does not scan; correct
	// that placement to the lowest-numbered CPU e's affinity allows.
	if !e.AllowsCPU(cpu) {
		for _, c := range span {
			if e.AllowsCPU(c) {
				return c
			}
		}
	}
	return cpu
}

// entity looks up a task's Entity by handle.
func (k *Kernel) entity(handle uuid.UUID) (*fq.Entity, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	task, ok := k.handles[handle]
	if !ok {
		return nil, fmt.Errorf("kernel: unknown task handle %s", handle)
	}
	return k.entities[task], nil
}

// Dispatch runs one scheduling decision on cpu: picks the next eligible
// frequency task (calling PickNext again whenever it returns the Retry
// sentinel; the stop-task callback passed here always reports false, so
// no retry occurs in this simulation), runs put_prev on the outgoing task
// if a different one was picked, and switches the pick in. Returns the
// picked entity, or nil if none was eligible (the caller falls through to
// a lower-priority class, or idles).
func (k *Kernel) Dispatch(cpu fq.CPUID, now int64) *fq.Entity {
	rq := k.cpus[cpu]
	rq.Lock()
	defer rq.Unlock()

	prev := rq.Current()
	prevInClass := prev != nil

	for {
		result := fq.PickNext(rq, prevInClass, now, func() bool { return false })
		if result.Retry {
			prevInClass = false
			continue
		}
		if prev != nil && result.Entity != prev {
			fq.PutPrev(rq, prev, now)
		}
		if result.Entity != nil {
			fq.SetCurrTask(rq, result.Entity, now)
		}
		return result.Entity
	}
}

// Tick drives a timer-tick accounting flush for cpu's current task, if
// any.
func (k *Kernel) Tick(cpu fq.CPUID, now int64) {
	rq := k.cpus[cpu]
	rq.Lock()
	defer rq.Unlock()
	if rq.Current() != nil {
		fq.Tick(rq, now)
	}
}

// Yield requests that the task behind handle voluntarily yield the CPU.
func (k *Kernel) Yield(handle uuid.UUID, now int64) error {
	e, err := k.entity(handle)
	if err != nil {
		return err
	}
	rq := k.cpus[e.CPU]
	rq.Lock()
	defer rq.Unlock()
	fq.Yield(rq, e, now)
	return nil
}

// Retire removes a task from the class entirely (task_dead), wherever its
// last migration left it.
func (k *Kernel) Retire(handle uuid.UUID, now int64) error {
	e, err := k.entity(handle)
	if err != nil {
		return err
	}

	rq := k.cpus[e.CPU]
	rq.Lock()
	fq.TaskDead(rq, e, now)
	if rq.NrRunning() == 0 {
		fq.SwitchedFrom(rq, now)
	}
	rq.Unlock()

	k.mu.Lock()
	task := k.handles[handle]
	delete(k.handles, handle)
	delete(k.entities, task)
	k.mu.Unlock()
	return nil
}

// AggregateJitter returns the root-mean-square activation jitter summed
// across every CPU's runqueue (spec §1's optimisation target, as a
// whole-system figure).
func (k *Kernel) AggregateJitter() time.Duration {
	var sumSq float64
	var n int64
	for _, rq := range k.cpus {
		j := rq.Jitter()
		rms := j.RMS()
		samples := j.Samples()
		sumSq += float64(rms) * float64(rms) * float64(samples)
		n += samples
	}
	if n == 0 {
		return 0
	}
	return time.Duration(math.Sqrt(sumSq / float64(n)))
}
