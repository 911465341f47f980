//
// evaluator.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package core

import (
	"context"
	"runtime"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// Evaluator drains the active-gate queue with a pool of worker
// goroutines. Workers run until every registered gate has been
// evaluated.
type Evaluator struct {
	core       *Core
	numWorkers int
}

// NewEvaluator creates an evaluator with numWorkers workers.
func NewEvaluator(core *Core, numWorkers int) *Evaluator {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Evaluator{
		core:       core,
		numWorkers: numWorkers,
	}
}

// Run evaluates gates from the active queue until the evaluated-gate
// count reaches the total gate count. It returns the first gate
// evaluation error.
func (ev *Evaluator) Run() error {
	total := ev.core.TotalGates()

	g, ctx := errgroup.WithContext(context.Background())
	for w := 0; w < ev.numWorkers; w++ {
		g.Go(func() error {
			for {
				id := ev.core.PopActiveGate()
				if id < 0 {
					if ev.core.EvaluatedGates() >= total {
						return nil
					}
					if ctx.Err() != nil {
						// Another worker failed.
						return nil
					}
					runtime.Gosched()
					continue
				}
				gate, err := ev.core.GetGate(uint64(id))
				if err != nil {
					return err
				}
				if gate == nil {
					return errors.Newf(
						"core: active gate #%d is unregistered", id)
				}
				if err := gate.EvaluateOnline(); err != nil {
					return errors.Wrapf(err, "core: gate #%d", id)
				}
				ev.core.IncrementEvaluated()
			}
		})
	}
	return g.Wait()
}
