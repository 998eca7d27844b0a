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
package inspect

import (
	"sync"

	"github.com/Workiva/go-datastructures/augmentedtree"

	"github.com/google/freqsched/fq"
)

// ActivationIndex is a per-CPU interval index of completed activations,
// queryable by time range. One augmentedtree.Tree per CPU, grounded on
// analysis/sched_cpu_span_set.go's cpuSpanSet, generalized from a
// build-once batch index to one that accepts activations as the
// dispatcher reports them.
type ActivationIndex struct {
	mu     sync.Mutex
	trees  map[fq.CPUID]augmentedtree.Tree
	nextID uint64
}

// NewActivationIndex returns an empty index.
func NewActivationIndex() *ActivationIndex {
	return &ActivationIndex{trees: map[fq.CPUID]augmentedtree.Tree{}}
}

func (idx *ActivationIndex) tree(cpu fq.CPUID) augmentedtree.Tree {
	t, ok := idx.trees[cpu]
	if !ok {
		t = augmentedtree.New(1)
		idx.trees[cpu] = t
	}
	return t
}

// Record adds a completed activation to the index. start and end must
// satisfy start <= end; a zero-width activation (dispatched then
// immediately retired without an intervening tick) is legal and still
// indexed.
func (idx *ActivationIndex) Record(task fq.TaskID, cpu fq.CPUID, start, end int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.nextID++
	idx.tree(cpu).Add(&Activation{Task: task, CPU: cpu, Start: start, End: end, id: idx.nextID})
}

// Query returns every recorded activation on cpu overlapping [start, end].
func (idx *ActivationIndex) Query(cpu fq.CPUID, start, end int64) []*Activation {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	t, ok := idx.trees[cpu]
	if !ok {
		return nil
	}
	q := &Activation{Start: start, End: end, id: queryID}
	results := t.Query(q)
	out := make([]*Activation, 0, len(results))
	for _, r := range results {
		out = append(out, r.(*Activation))
	}
	return out
}

// Len returns the number of activations recorded for cpu.
func (idx *ActivationIndex) Len(cpu fq.CPUID) uint64 {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	t, ok := idx.trees[cpu]
	if !ok {
		return 0
	}
	return t.Len()
}
