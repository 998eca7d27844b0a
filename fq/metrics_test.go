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

func TestJitterTrackerZeroWithNoSamples(t *testing.T) {
	var j JitterTracker
	if got := j.RMS(); got != 0 {
		t.Errorf("RMS() with no samples = %v, want 0", got)
	}
}

func TestJitterTrackerZeroWhenAlwaysOnTime(t *testing.T) {
	var j JitterTracker
	period := 100 * time.Millisecond
	for i := 0; i < 10; i++ {
		j.Record(period, period)
	}
	if got := j.RMS(); got != 0 {
		t.Errorf("RMS() for perfectly periodic samples = %v, want 0", got)
	}
	if j.Samples() != 10 {
		t.Errorf("Samples() = %d, want 10", j.Samples())
	}
}

func TestJitterTrackerReflectsConstantDeviation(t *testing.T) {
	var j JitterTracker
	period := 100 * time.Millisecond
	deviation := 10 * time.Millisecond
	for i := 0; i < 5; i++ {
		j.Record(period, period+deviation)
	}
	if got := j.RMS(); got != deviation {
		t.Errorf("RMS() = %v, want %v", got, deviation)
	}
}

func TestJitterTrackerReset(t *testing.T) {
	var j JitterTracker
	j.Record(time.Millisecond, 2*time.Millisecond)
	j.Reset()
	if j.Samples() != 0 || j.RMS() != 0 {
		t.Errorf("after Reset: samples=%d rms=%v, want 0, 0", j.Samples(), j.RMS())
	}
}

func TestPickNextRecordsActivationJitter(t *testing.T) {
	rq := NewRunQueue(0, NewManualClock(0), nil, nil)
	e := NewEntity(1, 100, 1, 10)

	Enqueue(rq, e, 0) // first activation: wakeup = 0 + period = 100
	PickNext(rq, false, 100, nil)
	if rq.Jitter().Samples() != 0 {
		t.Fatalf("first activation should not record a jitter sample yet, got %d", rq.Jitter().Samples())
	}

	// Task becomes unrunnable and is re-admitted exactly on schedule.
	Dequeue(rq, e, 150)
	Enqueue(rq, e, 150) // re-aligns to wakeup = 200

	PickNext(rq, false, 200, nil)
	if rq.Jitter().Samples() != 1 {
		t.Fatalf("second activation should record one jitter sample, got %d", rq.Jitter().Samples())
	}
	if rq.Jitter().RMS() != 0 {
		t.Fatalf("on-time second activation should contribute zero jitter, got %v", rq.Jitter().RMS())
	}
}
