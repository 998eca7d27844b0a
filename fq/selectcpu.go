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

// SelectCPU is C8, the CPU-selection hook (spec §4.8): on wake-up or fork
// where the waking CPU's current task is itself in this class and the
// waking task is migratory, scan the CPUs in span that the waking task's
// affinity mask allows and pick the one with the minimum current NrRunning
// for this class, exiting early on a CPU with zero. Otherwise returns
// suggested unchanged.
//
// wakingRQ is the waking CPU's RunQueue; span is the candidate CPU set
// (its scheduling-domain span, spec §4.8) with a lookup to reach each
// candidate's RunQueue.
func SelectCPU(wakingRQ *RunQueue, waking *Entity, suggested CPUID, span []CPUID, lookup func(CPUID) *RunQueue) CPUID {
	if wakingRQ.current == nil || !waking.Migratory() {
		return suggested
	}

	best := suggested
	bestRunning := -1

	for _, cpu := range span {
		peer := lookup(cpu)
		if peer == nil || !waking.AllowsCPU(cpu) {
			continue
		}
		n := peer.NrRunning()
		if bestRunning == -1 || n < bestRunning {
			best = cpu
			bestRunning = n
			if n == 0 {
				break
			}
		}
	}

	return best
}
