// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package concurrent

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/matrixorigin/dphyp/pkg/common/moerr"
)

var releaseTimeout = 5 * time.Second

// Pool runs independent tasks on a bounded set of goroutines and blocks
// the submitter until all of them finished.
//
// Submission never blocks: when every worker is busy the task runs on the
// calling goroutine instead. Tasks may therefore fan out again from inside
// the pool without deadlocking it.
type Pool struct {
	pool *ants.Pool
}

func NewPool(size int) (*Pool, error) {
	pool, err := ants.NewPool(size, ants.WithNonblocking(true))
	if err != nil {
		return nil, moerr.ConvertGoError(context.TODO(), err)
	}
	return &Pool{pool: pool}, nil
}

// Execute calls fn for every i in [0, n) and waits for all the calls to
// return. The error of the lowest failing index is returned. A panic in fn
// is converted into an internal error.
func (p *Pool) Execute(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if err := ctx.Err(); err != nil {
		return moerr.NewQueryInterrupted(ctx)
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		idx := i
		task := func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[idx] = moerr.ConvertPanicError(ctx, r)
				}
			}()
			errs[idx] = fn(ctx, idx)
		}

		wg.Add(1)
		if p == nil || p.pool == nil {
			task()
			continue
		}
		if err := p.pool.Submit(task); err != nil {
			// overloaded or released, run it here
			task()
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Running returns the number of busy workers.
func (p *Pool) Running() int {
	return p.pool.Running()
}

func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Close releases the workers and waits for them to exit.
func (p *Pool) Close() error {
	if err := p.pool.ReleaseTimeout(releaseTimeout); err != nil {
		return moerr.ConvertGoError(context.TODO(), err)
	}
	return nil
}
