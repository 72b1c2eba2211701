package transport

import (
	"errors"
	"runtime"
	"sync"

	"github.com/pthm-cable/neutron/particle"
	"github.com/pthm-cable/neutron/tally"
)

// Step advances every particle in the store through one timestep.
//
// Particles are partitioned into contiguous chunks, one worker goroutine
// per chunk; each worker owns its range exclusively and accumulates local
// event counts, which are reduced by summation after the join. The only
// shared writes are the tally's atomic adds, so results are independent of
// worker count up to the non-associativity of those adds.
//
// workers <= 0 uses GOMAXPROCS.
func Step(p *Problem, store *particle.Store, tal *tally.Tally, ctx StepContext, workers int) (Counters, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	n := store.Len()
	if ctx.NTotalParticles <= 0 {
		ctx.NTotalParticles = n
	}
	if workers > n {
		workers = n
	}
	if n == 0 {
		return Counters{}, nil
	}

	chunk := (n + workers - 1) / workers
	counters := make([]Counters, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(workerID, i0, i1 int) {
			defer wg.Done()
			en := &engine{
				problem:   p,
				store:     store,
				tally:     tal,
				ctx:       ctx,
				invNTotal: 1.0 / float64(ctx.NTotalParticles),
			}
			errs[workerID] = en.trackRange(i0, i1, &counters[workerID])
		}(w, start, end)
	}
	wg.Wait()

	var total Counters
	for w := range counters {
		total.Merge(counters[w])
	}
	return total, errors.Join(errs...)
}
