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

import "time"

// PullPeriod is the minimum interval between pull attempts on a single CPU
// (spec §6, FREQ_PULL_PERIOD).
const PullPeriod = 100 * time.Millisecond

// yieldFallback is the wakeup advance used by Yield when Period == 0
// (spec §4.5, §6).
const yieldFallback = 10 * time.Millisecond

// Clock abstracts the runqueue clock source (spec §2, "the surrounding
// kernel... clock source"). NowNanos must be monotonic within a single
// root-domain. Indirection through an interface, rather than calling
// time.Now directly, follows
// joeycumines-go-utilpkg/catrate/limiter.go's timeNow/timeNewTicker
// package-var seam, generalized to an interface so simulated clocks
// (cmd/freqsimd) can drive the class deterministically in tests.
type Clock interface {
	NowNanos() int64
}

// SystemClock is a Clock backed by time.Now.
type SystemClock struct{}

// NowNanos returns time.Now().UnixNano().
func (SystemClock) NowNanos() int64 {
	return time.Now().UnixNano()
}

// ManualClock is a Clock whose value is set explicitly -- used by tests and
// by deterministic simulation.
type ManualClock struct {
	now int64
}

// NewManualClock returns a ManualClock starting at the given nanosecond
// instant.
func NewManualClock(start int64) *ManualClock {
	return &ManualClock{now: start}
}

// NowNanos returns the clock's current value.
func (c *ManualClock) NowNanos() int64 {
	return c.now
}

// Set advances (or rewinds) the clock to now.
func (c *ManualClock) Set(now int64) {
	c.now = now
}

// Advance moves the clock forward by d and returns the new value.
func (c *ManualClock) Advance(d time.Duration) int64 {
	c.now += int64(d)
	return c.now
}
