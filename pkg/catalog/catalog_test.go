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
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/dphyp/pkg/common/moerr"
)

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	c := New()
	require.NoError(t, c.AddTable(ctx, NewTableDef("t2", 10, "a")))
	require.NoError(t, c.AddTable(ctx, NewTableDef("t1", 100, "a", "b")))
	err := c.AddTable(ctx, NewTableDef("t1", 1))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	def, err := c.GetTable(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, float64(100), def.RowCount)
	require.NotNil(t, def.Column("b"))
	require.Nil(t, def.Column("c"))

	_, err = c.GetTable(ctx, "t3")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
	require.Equal(t, []string{"t1", "t2"}, c.TableNames())
}

func TestColumnStatsNDV(t *testing.T) {
	s := NewColumnStats()
	require.Equal(t, float64(0), s.NDV())
	for i := 0; i < 1000; i++ {
		s.Insert([]byte(fmt.Sprintf("v%d", i%100)))
	}
	s.Insert(nil)
	require.InDelta(t, 100, s.NDV(), 5)
	require.Equal(t, uint64(1), s.NullCount())

	other := NewColumnStats()
	for i := 100; i < 200; i++ {
		other.Insert([]byte(fmt.Sprintf("v%d", i)))
	}
	require.NoError(t, s.Merge(context.Background(), other))
	require.InDelta(t, 200, s.NDV(), 10)
	require.NoError(t, s.Merge(context.Background(), s))
}
