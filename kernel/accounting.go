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
package kernel

import (
	"sync"
	"time"

	"github.com/google/freqsched/fq"
)

// accounting is the concrete fq.AccountingSink a Kernel hands every
// RunQueue it constructs: a minimal stand-in for the per-cgroup and
// per-cpuacct ledgers and the global nr_running counter the real
// surrounding kernel would own (spec §2, §4.6).
type accounting struct {
	mu sync.Mutex

	nrRunning        map[fq.CPUID]int
	groupRuntime     map[fq.TaskID]time.Duration
	cpuRuntime       map[fq.CPUID]time.Duration
	rtBandwidth      map[fq.CPUID]time.Duration
	rtBandwidthLimit time.Duration
}

func newAccounting() *accounting {
	return &accounting{
		nrRunning:    map[fq.CPUID]int{},
		groupRuntime: map[fq.TaskID]time.Duration{},
		cpuRuntime:   map[fq.CPUID]time.Duration{},
		rtBandwidth:  map[fq.CPUID]time.Duration{},
	}
}

// AddRunning implements fq.AccountingSink.
func (a *accounting) AddRunning(cpu fq.CPUID, delta int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nrRunning[cpu] += delta
}

// ChargeGroupRuntime implements fq.AccountingSink.
func (a *accounting) ChargeGroupRuntime(task fq.TaskID, delta time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.groupRuntime[task] += delta
}

// ChargeCPUAcct implements fq.AccountingSink.
func (a *accounting) ChargeCPUAcct(cpu fq.CPUID, delta time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cpuRuntime[cpu] += delta
}

// RTBandwidthEnabled implements fq.AccountingSink: enabled whenever a
// nonzero limit has been configured via SetRTBandwidthLimit.
func (a *accounting) RTBandwidthEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rtBandwidthLimit > 0
}

// ChargeRTBandwidth implements fq.AccountingSink.
func (a *accounting) ChargeRTBandwidth(cpu fq.CPUID, delta time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rtBandwidth[cpu] += delta
}

// SetRTBandwidthLimit enables (limit > 0) or disables (limit == 0) RT
// bandwidth accounting for every CPU this Kernel manages.
func (k *Kernel) SetRTBandwidthLimit(limit time.Duration) {
	k.acct.mu.Lock()
	defer k.acct.mu.Unlock()
	k.acct.rtBandwidthLimit = limit
}

// GroupRuntime returns the total executed time attributed to task so far.
func (k *Kernel) GroupRuntime(task fq.TaskID) time.Duration {
	k.acct.mu.Lock()
	defer k.acct.mu.Unlock()
	return k.acct.groupRuntime[task]
}

// CPURuntime returns the total executed time attributed to cpu so far.
func (k *Kernel) CPURuntime(cpu fq.CPUID) time.Duration {
	k.acct.mu.Lock()
	defer k.acct.mu.Unlock()
	return k.acct.cpuRuntime[cpu]
}
