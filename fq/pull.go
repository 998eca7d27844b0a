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

import "math"

// Pull is C7, the pull protocol (spec §4.7): invoked from PickNext at most
// once per PullPeriod per CPU, it visits each overloaded peer once and may
// steal an earlier-wakeup migratory task from each (at most one per peer)
// so this CPU doesn't idle or run a later-wakeup task while better work is
// available elsewhere.
//
// rq must already be locked by the caller. Pull returns whether any task
// was stolen.
func Pull(rq *RunQueue, now int64) bool {
	if rq.rd == nil || rq.peers == nil {
		return false
	}
	if rq.rd.Count() == 0 {
		return false
	}

	dmin := int64(math.MaxInt64)
	stolen := false

	for _, src := range rq.rd.Overloaded(rq.cpu) {
		srcRQ := rq.peers(src)
		if srcRQ == nil {
			continue
		}

		// Lock-free peek: if our local situation is already better than
		// src's, skip without paying for the double lock. This mirrors
		// the source's unlocked pre-check; the locked re-validation
		// below is what actually guards correctness.
		if rq.nrMigratory > 0 && wrapBefore(rq.earliestNextWakeup, srcRQ.earliestNextWakeup) {
			continue
		}

		lockSrc(rq, srcRQ)

		if srcRQ.nrRunning <= 1 {
			unlockSrc(srcRQ)
			continue
		}

		p := srcRQ.wakeup.secondLeftmost()
		if p == nil || srcRQ.current == p || !p.AllowsCPU(rq.cpu) || !p.Migratory() {
			unlockSrc(srcRQ)
			continue
		}

		candidateFinish := int64(p.Wakeup) + int64(p.PrevRuntime)
		accept := wrapBefore(candidateFinish, dmin) &&
			(rq.nrRunning == 0 || wrapBefore(candidateFinish, rq.earliestNextWakeup))

		if accept {
			Dequeue(srcRQ, p, now)
			Enqueue(rq, p, now)
			dmin = p.Wakeup
			stolen = true
		}

		unlockSrc(srcRQ)
	}

	return stolen
}

// lockSrc acquires srcRQ's lock given that rq's lock is already held by
// the caller (the dispatch hook precondition, spec §6). To avoid an ABBA
// deadlock against a peer CPU pulling in the opposite direction, locks
// must always be taken in one canonical order (by CPU id here, standing
// in for the source's "address order" -- RunQueue pointers are stable for
// the process lifetime so CPU id is an equally valid total order and
// reads more plainly than an unsafe.Pointer comparison). When rq sorts
// after srcRQ in that order, rq's lock must be dropped and both
// reacquired in order -- the transient release spec §5's "Suspension /
// blocking" clause describes -- which is why callers must re-validate any
// state read from rq after lockSrc returns.
func lockSrc(rq, srcRQ *RunQueue) {
	if rq.cpu < srcRQ.cpu {
		srcRQ.mu.Lock()
		return
	}
	rq.mu.Unlock()
	if srcRQ.cpu < rq.cpu {
		srcRQ.mu.Lock()
		rq.mu.Lock()
	} else {
		rq.mu.Lock()
		srcRQ.mu.Lock()
	}
}

// unlockSrc releases srcRQ's lock only; rq's lock is the caller's to hold
// across the whole dispatch hook, per lockSrc's contract.
func unlockSrc(srcRQ *RunQueue) {
	srcRQ.mu.Unlock()
}
