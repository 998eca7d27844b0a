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
// Binary freqsimd drives an in-process SCHED_FREQUENCY simulation: it
// admits a handful of periodic tasks across a simulated CPU topology,
// advances a manual clock in ticks, dispatches each CPU every tick, and
// optionally serves the resulting state over debugserver.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"flag"

	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/google/freqsched/debugserver"
	"github.com/google/freqsched/fq"
	"github.com/google/freqsched/inspect"
	"github.com/google/freqsched/kernel"
	"github.com/google/freqsched/policy"
)

var (
	numCPUs     = flag.Int("cpus", 4, "Number of simulated CPUs.")
	numTasks    = flag.Int("tasks", 8, "Number of periodic tasks to admit.")
	ticks       = flag.Int("ticks", 1000, "Number of clock ticks to simulate.")
	tickNanos   = flag.Int64("tick_nanos", int64(time.Millisecond), "Nanoseconds advanced per simulated tick.")
	seed        = flag.Int64("seed", 1, "Seed for the task generator's pseudo-random period/affinity choices.")
	serve       = flag.Bool("serve", false, "If true, start the debug HTTP server and block serving it instead of exiting.")
	httpAddr    = flag.String("http_addr", ":7403", "Address the debug HTTP server listens on, if -serve is set.")
	historySize = flag.Int("history_size", 64, "Number of snapshots retained per CPU for the debug history endpoint.")
)

func main() {
	flag.Parse()

	if *numCPUs < 1 {
		log.Exit("-cpus must be >= 1")
	}
	if *numTasks < 1 {
		log.Exit("-tasks must be >= 1")
	}

	clock := fq.NewManualClock(0)
	k := kernel.New(*numCPUs, clock)
	hist := inspect.NewHistory(*historySize)
	index := inspect.NewActivationIndex()

	rng := rand.New(rand.NewSource(*seed))
	if err := admitTasks(k, rng, *numTasks, *numCPUs); err != nil {
		log.Exitf("failed to admit tasks: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *serve {
		srv := debugserver.New(k, clock, hist, index, time.Now().UnixNano())
		var g errgroup.Group
		g.Go(func() error {
			log.Infof("freqsimd: debug server listening on %s", *httpAddr)
			return debugserver.ListenAndServe(*httpAddr, srv.Router())
		})
		g.Go(func() error {
			runSimulation(ctx, k, clock, hist, index, *ticks, time.Duration(*tickNanos))
			return nil
		})
		if err := g.Wait(); err != nil {
			log.Exitf("freqsimd: %s", err)
		}
		return
	}

	runSimulation(ctx, k, clock, hist, index, *ticks, time.Duration(*tickNanos))
	log.Infof("freqsimd: completed %d ticks across %d cpus, aggregate jitter RMS=%s", *ticks, *numCPUs, k.AggregateJitter())
}

// admitTasks generates numTasks periodic tasks with pseudo-random periods
// (1-50ms) and affinity masks (uniform over the CPU power set, excluding
// the empty set), admitting each via the policy/ syscall surface.
func admitTasks(k *kernel.Kernel, rng *rand.Rand, numTasks, numCPUs int) error {
	for i := 0; i < numTasks; i++ {
		period := time.Duration(1+rng.Intn(50)) * time.Millisecond
		mask := uint64(1 + rng.Intn((1<<uint(numCPUs))-1))
		attr := policy.Attr{
			Policy:   policy.ID,
			Period:   period,
			CPUMask:  mask,
			Priority: fq.Priority(rng.Intn(int(fq.MaxRTPrio))),
		}
		suggested := fq.CPUID(rng.Intn(numCPUs))
		if _, err := k.Admit(attr, suggested); err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
	}
	return nil
}

// runSimulation advances clock by tick for n ticks, dispatching and
// ticking every CPU each step, recording a snapshot into hist every tick
// and a completed activation into index whenever a CPU's current task
// changes.
func runSimulation(ctx context.Context, k *kernel.Kernel, clock *fq.ManualClock, hist *inspect.History, index *inspect.ActivationIndex, n int, tick time.Duration) {
	activationStart := make(map[fq.CPUID]int64, k.NumCPUs())
	var seq uint64

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		now := clock.Advance(tick)
		for cpu := 0; cpu < k.NumCPUs(); cpu++ {
			cpuID := fq.CPUID(cpu)
			before := k.RunQueue(cpuID).Current()

			e := k.Dispatch(cpuID, now)

			if before != nil && before != e {
				index.Record(before.Task, cpuID, activationStart[cpuID], now)
			}
			if e != nil && e != before {
				activationStart[cpuID] = now
			}

			k.Tick(cpuID, now)

			seq++
			hist.Add(seq, inspect.Snapshot(k.RunQueue(cpuID), now, 0))
		}
	}
}
