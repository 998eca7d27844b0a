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

// pushableSet is C3: the per-CPU ordered set of migratable tasks -- a
// subset of the wakeup queue with affinity cardinality > 1 that is not
// currently running (spec invariant 2). Same key, same structure as C2,
// disjoint link (spec §4.2).
type pushableSet struct {
	tree *rbTree
}

func newPushableSet() *pushableSet {
	return &pushableSet{tree: newRBTree()}
}

func (p *pushableSet) len() int {
	return p.tree.size
}

func (p *pushableSet) insert(e *Entity) {
	if e.pushableLink.linked {
		p.erase(e)
	}
	e.pushableLink.owner = e
	e.pushableLink.key = e.Wakeup
	p.tree.insert(&e.pushableLink)
}

func (p *pushableSet) erase(e *Entity) {
	if !e.pushableLink.linked {
		return
	}
	p.tree.erase(&e.pushableLink)
}

func (p *pushableSet) leftmost() *Entity {
	return p.tree.min()
}

func (p *pushableSet) empty() bool {
	return p.tree.empty()
}
