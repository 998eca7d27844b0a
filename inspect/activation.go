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
// Package inspect builds an observability surface over the fq core: a
// queryable history of past activations per CPU, and a point-in-time
// snapshot of each RunQueue's counters and aggregate jitter. Nothing here
// participates in dispatch -- it is read-only, after-the-fact bookkeeping
// the surrounding kernel's debug tooling consults.
package inspect

import (
	"github.com/Workiva/go-datastructures/augmentedtree"

	"github.com/google/freqsched/fq"
)

// Activation records one completed dispatch of a task: the CPU it ran on
// and the interval from Start to End it occupied the CPU for. Overlap
// tests treat both bounds as inclusive, so an activation ending at t
// matches a query starting at t.
type Activation struct {
	Task  fq.TaskID
	CPU   fq.CPUID
	Start int64
	End   int64

	// id uniquely identifies this interval to augmentedtree.Tree. Query
	// intervals reuse queryID (0); every recorded interval gets a
	// nonzero, index-assigned id instead so the tree can distinguish
	// activations that happen to share identical bounds.
	id uint64
}

// queryID is the reserved id used for query intervals, following
// augmentedtree.Interval convention (id 0 is never assigned to a stored
// interval).
const queryID uint64 = 0

// LowAtDimension returns Start. Required by augmentedtree.Interval.
func (a *Activation) LowAtDimension(d uint64) int64 { return a.Start }

// HighAtDimension returns End. Required by augmentedtree.Interval.
func (a *Activation) HighAtDimension(d uint64) int64 { return a.End }

// OverlapsAtDimension reports whether j overlaps a at dimension d.
// Required by augmentedtree.Interval.
func (a *Activation) OverlapsAtDimension(j augmentedtree.Interval, d uint64) bool {
	return a.HighAtDimension(d) >= j.LowAtDimension(d) &&
		j.HighAtDimension(d) >= a.LowAtDimension(d)
}

// ID returns a's unique interval identifier. Required by
// augmentedtree.Interval.
func (a *Activation) ID() uint64 { return a.id }
