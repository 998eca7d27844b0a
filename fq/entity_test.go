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
	"testing"
	"time"
)

func TestTaskIDAndCPUIDValid(t *testing.T) {
	if UnknownTaskID.Valid() {
		t.Error("UnknownTaskID.Valid() = true, want false")
	}
	if !TaskID(0).Valid() {
		t.Error("TaskID(0).Valid() = false, want true")
	}
	if UnknownCPU.Valid() {
		t.Error("UnknownCPU.Valid() = true, want false")
	}
	if !CPUID(3).Valid() {
		t.Error("CPUID(3).Valid() = false, want true")
	}
}

func TestNewEntityIsNew(t *testing.T) {
	e := NewEntity(1, 10*time.Millisecond, 0b1, 50)
	if !e.IsNew {
		t.Error("NewEntity did not set IsNew")
	}
	if e.Wakeup != 0 || e.Runtime != 0 {
		t.Errorf("NewEntity: Wakeup=%d Runtime=%d, want both zero", e.Wakeup, e.Runtime)
	}
}

func TestAllowedCPUsAndMigratory(t *testing.T) {
	tests := []struct {
		name      string
		mask      uint64
		wantCount int
		wantMigr  bool
	}{
		{"single cpu", 0b0001, 1, false},
		{"two cpus", 0b0011, 2, true},
		{"all of four", 0b1111, 4, true},
		{"none", 0, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEntity(1, time.Millisecond, tc.mask, 50)
			if got := e.AllowedCPUs(); got != tc.wantCount {
				t.Errorf("AllowedCPUs() = %d, want %d", got, tc.wantCount)
			}
			if got := e.Migratory(); got != tc.wantMigr {
				t.Errorf("Migratory() = %v, want %v", got, tc.wantMigr)
			}
		})
	}
}

func TestAllowsCPU(t *testing.T) {
	e := NewEntity(1, time.Millisecond, 0b1010, 50)
	if e.AllowsCPU(0) {
		t.Error("AllowsCPU(0) = true, want false")
	}
	if !e.AllowsCPU(1) {
		t.Error("AllowsCPU(1) = false, want true")
	}
	if e.AllowsCPU(2) {
		t.Error("AllowsCPU(2) = true, want false")
	}
	if !e.AllowsCPU(3) {
		t.Error("AllowsCPU(3) = false, want true")
	}
	if e.AllowsCPU(-1) || e.AllowsCPU(64) {
		t.Error("AllowsCPU out-of-range returned true")
	}
}

func TestFqPrio(t *testing.T) {
	elevated := NewEntity(1, time.Millisecond, 1, MaxRTPrio-1)
	ordinary := NewEntity(2, time.Millisecond, 1, MaxRTPrio-2)
	if !elevated.FqPrio(MaxRTPrio) {
		t.Error("FqPrio() = false for priority == MaxRTPrio-1, want true")
	}
	if ordinary.FqPrio(MaxRTPrio) {
		t.Error("FqPrio() = true for priority != MaxRTPrio-1, want false")
	}
}

func TestSetPriority(t *testing.T) {
	e := NewEntity(1, time.Millisecond, 1, 10)
	e.SetPriority(20)
	if e.Priority() != 20 {
		t.Errorf("Priority() = %d, want 20", e.Priority())
	}
}
