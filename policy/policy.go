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
// Package policy implements the SCHED_FREQUENCY syscall surface: the
// attribute struct a client populates to admit a task to the class, and
// the validation the surrounding kernel performs before ever constructing
// an fq.Entity (spec §6, §7).
package policy

import (
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/google/freqsched/fq"
)

// ID is the policy value client programs pass to the surrounding kernel's
// attribute-based policy-setting system call to select SCHED_FREQUENCY
// (spec §6).
const ID int32 = 7

// Attr is the attribute struct a client populates to request
// SCHED_FREQUENCY for a task (spec §6). Runtime and Deadline are accepted,
// matching the surrounding kernel's generic sched_attr shape, but are
// unused by this policy -- only Period is meaningful here.
type Attr struct {
	Policy   int32
	Period   time.Duration
	Runtime  time.Duration
	Deadline time.Duration
	CPUMask  uint64
	Priority fq.Priority
}

// Validate rejects malformed attributes before a task is ever admitted
// (spec §7: "attempting to enter the class via the policy system call
// with malformed attributes is rejected by the surrounding kernel, not by
// this core").
func (a Attr) Validate() error {
	if a.Policy != ID {
		return status.Errorf(codes.InvalidArgument, "policy %d is not SCHED_FREQUENCY (%d)", a.Policy, ID)
	}
	if a.Period < 0 {
		return status.Errorf(codes.InvalidArgument, "period must be nonnegative, got %s", a.Period)
	}
	if a.CPUMask == 0 {
		return status.Errorf(codes.InvalidArgument, "cpu affinity mask must not be empty")
	}
	if a.Priority < 0 || a.Priority >= fq.MaxRTPrio {
		return status.Errorf(codes.InvalidArgument, "priority %d out of range [0, %d)", a.Priority, fq.MaxRTPrio)
	}
	if fq.NewEntity(0, a.Period, a.CPUMask, a.Priority).FqPrio(fq.MaxRTPrio) && a.Period == 0 {
		return status.Errorf(codes.InvalidArgument, "elevated-priority (FqPrio) tasks must request a nonzero period")
	}
	return nil
}

// PeriodProto returns Period as a wire-ready durationpb.Duration, for
// clients that admit tasks over an RPC surface rather than in-process.
func (a Attr) PeriodProto() *durationpb.Duration {
	return durationpb.New(a.Period)
}

// NewEntity validates a and, if valid, constructs the fq.Entity it
// describes for task.
func (a Attr) NewEntity(task fq.TaskID) (*fq.Entity, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return fq.NewEntity(task, a.Period, a.CPUMask, a.Priority), nil
}
