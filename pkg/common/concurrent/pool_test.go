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
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lni/goutils/leaktest"
	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/dphyp/pkg/common/moerr"
)

func TestMain(m *testing.M) {
	settleBackgroundGoroutines()
	m.Run()
}

// settleBackgroundGoroutines lets the goroutines ants starts at init reach
// their loops, otherwise leaktest misses them in its first snapshot and
// reports them as leaked.
func settleBackgroundGoroutines() {
	runtime.Gosched()
	time.Sleep(20 * time.Millisecond)
}

func TestLeakCheckWithoutPool(t *testing.T) {
	defer leaktest.AfterTest(t)()
}

func TestPoolExecute(t *testing.T) {
	defer leaktest.AfterTest(t)()
	stubs := gostub.Stub(&releaseTimeout, 10*time.Second)
	defer stubs.Reset()

	p, err := NewPool(4)
	require.NoError(t, err)
	require.Equal(t, 4, p.Cap())

	var sum atomic.Int64
	err = p.Execute(context.Background(), 100, func(_ context.Context, i int) error {
		sum.Add(int64(i))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(4950), sum.Load())
	require.NoError(t, p.Close())
}

func TestPoolExecuteError(t *testing.T) {
	defer leaktest.AfterTest(t)()
	p, err := NewPool(2)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, p.Close())
	}()

	ctx := context.Background()
	err = p.Execute(ctx, 3, func(ctx context.Context, i int) error {
		if i == 1 {
			return moerr.NewInvalidInput(ctx, "task %d", i)
		}
		return nil
	})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	err = p.Execute(ctx, 2, func(ctx context.Context, i int) error {
		if i == 0 {
			panic("worker exploded")
		}
		return nil
	})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal))
	require.Contains(t, err.Error(), "worker exploded")
}

func TestPoolNestedExecute(t *testing.T) {
	defer leaktest.AfterTest(t)()
	p, err := NewPool(1)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, p.Close())
	}()

	// every level waits for its children while holding the only worker
	var leaves atomic.Int32
	var run func(ctx context.Context, depth int) error
	run = func(ctx context.Context, depth int) error {
		if depth == 0 {
			leaves.Add(1)
			return nil
		}
		return p.Execute(ctx, 2, func(ctx context.Context, _ int) error {
			return run(ctx, depth-1)
		})
	}
	require.NoError(t, run(context.Background(), 4))
	require.Equal(t, int32(16), leaves.Load())
}

func TestPoolCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var p *Pool
	err := p.Execute(ctx, 1, func(context.Context, int) error { return nil })
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrQueryInterrupted))
}

func TestNilPoolRunsInline(t *testing.T) {
	var p *Pool
	var calls int
	err := p.Execute(context.Background(), 3, func(context.Context, int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}
