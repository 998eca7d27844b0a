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

import "sync/atomic"

// RootDomain is the process-wide (per-root-domain) overload tracker, C6: a
// bitmap of CPUs with overloaded=true plus a monotonically maintained
// count of bits set (spec §3, §5).
//
// Each CPU only ever toggles its own bit (spec §5, "each CPU only toggles
// its own bit, in monotone transitions"), so bits is one atomic int32 slot
// per CPU rather than a packed word -- packing would need a CAS loop to
// avoid clobbering a neighbor CPU's bit, which the one-slot-per-CPU layout
// avoids entirely. Go's atomic package already provides the
// publish-before-count / count-before-observe ordering spec §5(ii)
// requires, but Set/Clear still perform the writes in the order the spec
// describes (bit, then count; count, then bit) so the protocol reads the
// same in code as in prose.
type RootDomain struct {
	bits  []int32
	count int32
}

// NewRootDomain returns an overload tracker sized for numCPUs CPUs.
func NewRootDomain(numCPUs int) *RootDomain {
	return &RootDomain{bits: make([]int32, numCPUs)}
}

// Count returns the number of currently overloaded CPUs.
func (rd *RootDomain) Count() int32 {
	return atomic.LoadInt32(&rd.count)
}

// IsSet reports whether cpu is currently marked overloaded.
func (rd *RootDomain) IsSet(cpu CPUID) bool {
	return atomic.LoadInt32(&rd.bits[cpu]) != 0
}

// Set marks cpu overloaded (fq_set_overload).
func (rd *RootDomain) Set(cpu CPUID) {
	atomic.StoreInt32(&rd.bits[cpu], 1)
	atomic.AddInt32(&rd.count, 1)
}

// Clear unmarks cpu overloaded (fq_clear_overload).
func (rd *RootDomain) Clear(cpu CPUID) {
	atomic.AddInt32(&rd.count, -1)
	atomic.StoreInt32(&rd.bits[cpu], 0)
}

// Overloaded returns every CPU currently marked overloaded, excluding
// self. Used by the pull protocol (spec §4.7) to enumerate candidate
// source peers.
func (rd *RootDomain) Overloaded(self CPUID) []CPUID {
	if rd.Count() == 0 {
		return nil
	}
	var out []CPUID
	for i := range rd.bits {
		cpu := CPUID(i)
		if cpu != self && rd.IsSet(cpu) {
			out = append(out, cpu)
		}
	}
	return out
}
