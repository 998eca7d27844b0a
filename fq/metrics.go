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
	"math"
	"time"
)

// JitterTracker accumulates the class's stated optimization target (spec
// §1): aggregate activation jitter, the root-mean-square deviation of
// actual inter-activation intervals from each task's declared Period.
//
// It keeps only a running sum of squares and a count, not the individual
// samples -- inspect.ActivationIndex is where per-activation history is
// retained and queried; JitterTracker is the cheap always-on aggregate a
// RunQueue can keep next to its other counters.
type JitterTracker struct {
	sumSquaredDeviation float64
	samples             int64
}

// Record folds one observed activation interval into the running
// aggregate. actual is the measured wall distance between this activation
// and the previous one for the same entity; period is that entity's
// declared Period at the time.
func (j *JitterTracker) Record(period, actual time.Duration) {
	d := float64(actual - period)
	j.sumSquaredDeviation += d * d
	j.samples++
}

// RMS returns the root-mean-square activation jitter accumulated so far,
// zero if no samples have been recorded.
func (j *JitterTracker) RMS() time.Duration {
	if j.samples == 0 {
		return 0
	}
	return time.Duration(math.Sqrt(j.sumSquaredDeviation / float64(j.samples)))
}

// Samples returns the number of activations folded into the aggregate.
func (j *JitterTracker) Samples() int64 {
	return j.samples
}

// Reset clears the aggregate, e.g. when a monitoring window rolls over.
func (j *JitterTracker) Reset() {
	j.sumSquaredDeviation = 0
	j.samples = 0
}
