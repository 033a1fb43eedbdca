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

package catalog

import (
	"context"
	"sync"

	hll "github.com/axiomhq/hyperloglog"

	"github.com/matrixorigin/dphyp/pkg/common/moerr"
)

// ColumnStats keeps an approximate distinct count of the values of one
// column.
type ColumnStats struct {
	mu     sync.Mutex
	sketch *hll.Sketch
	nulls  uint64
}

func NewColumnStats() *ColumnStats {
	return &ColumnStats{sketch: hll.New()}
}

// Insert adds one value. A nil value counts as NULL.
func (s *ColumnStats) Insert(v []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == nil {
		s.nulls++
		return
	}
	s.sketch.Insert(v)
}

func (s *ColumnStats) Merge(ctx context.Context, other *ColumnStats) error {
	if s == other {
		return nil
	}
	other.mu.Lock()
	sk := other.sketch.Clone()
	nulls := other.nulls
	other.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sketch.Merge(sk); err != nil {
		return moerr.ConvertGoError(ctx, err)
	}
	s.nulls += nulls
	return nil
}

// NDV returns the estimated number of distinct non-null values. Zero means
// no value was observed.
func (s *ColumnStats) NDV() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.sketch.Estimate())
}

func (s *ColumnStats) NullCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nulls
}
