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

package stats

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/dphyp/pkg/catalog"
	"github.com/matrixorigin/dphyp/pkg/common/moerr"
	"github.com/matrixorigin/dphyp/pkg/sql/plan"
)

func newTable(name string, rows float64, ndv int) *catalog.TableDef {
	def := catalog.NewTableDef(name, rows, "id", "v")
	for i := 0; i < ndv; i++ {
		def.Column("id").Stats.Insert([]byte(strconv.Itoa(i)))
	}
	return def
}

type fixture struct {
	md     *plan.Metadata
	t1, t2 *plan.Node
	id1    *plan.ColumnRef
	id2    *plan.ColumnRef
	v1     *plan.ColumnRef
}

func newFixture(t *testing.T) *fixture {
	ctx := context.Background()
	md := plan.NewMetadata()
	i1 := md.AddTable("t1", newTable("t1", 1000, 100))
	i2 := md.AddTable("t2", newTable("t2", 50, 50))
	f := &fixture{md: md, t1: plan.NewScan(i1, "t1"), t2: plan.NewScan(i2, "t2")}
	var err error
	f.id1, err = md.ColumnRef(ctx, "t1", "id")
	require.NoError(t, err)
	f.id2, err = md.ColumnRef(ctx, "t2", "id")
	require.NoError(t, err)
	f.v1, err = md.ColumnRef(ctx, "t1", "v")
	require.NoError(t, err)
	return f
}

func TestRelationCardinality(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := NewEstimator(f.md)

	card, err := e.RelationCardinality(ctx, f.t1)
	require.NoError(t, err)
	require.Equal(t, 1000.0, card)

	// v has no statistics, the default selectivity applies
	card, err = e.RelationCardinality(ctx, plan.NewFilter(f.t1, plan.NewEq(f.v1, plan.NewConstant(1))))
	require.NoError(t, err)
	require.InDelta(t, 1000*DefaultSelectivity, card, 1e-9)

	card, err = e.RelationCardinality(ctx, plan.NewFilter(f.t1, plan.NewEq(plan.NewConstant(1), f.id1)))
	require.NoError(t, err)
	require.InDelta(t, 10, card, 1)

	join := plan.NewInnerJoin(f.t1, f.t2, plan.JoinCondition{Left: f.id1, Right: f.id2})
	card, err = e.RelationCardinality(ctx, join)
	require.NoError(t, err)
	require.InDelta(t, 500, card, 10)

	left := plan.NewNode(&plan.Join{JoinType: plan.JoinLeft}, plan.NewFilter(f.t1, plan.NewConstant(false)), f.t2)
	card, err = e.RelationCardinality(ctx, left)
	require.NoError(t, err)
	require.Equal(t, 200.0*50, card)

	semi := plan.NewNode(&plan.Join{JoinType: plan.JoinSemi}, f.t2, f.t1)
	card, err = e.RelationCardinality(ctx, semi)
	require.NoError(t, err)
	require.Equal(t, 50.0, card)

	card, err = e.RelationCardinality(ctx, plan.NewNode(&plan.Aggregate{}, f.t1))
	require.NoError(t, err)
	require.Equal(t, 1.0, card)

	card, err = e.RelationCardinality(ctx, plan.NewNode(&plan.Aggregate{GroupBy: []plan.Expr{f.id1}}, f.t1))
	require.NoError(t, err)
	require.InDelta(t, 100, card, 2)

	card, err = e.RelationCardinality(ctx, plan.NewNode(&plan.Limit{Limit: 7}, plan.NewNode(&plan.Sort{}, f.t1)))
	require.NoError(t, err)
	require.Equal(t, 7.0, card)

	card, err = e.RelationCardinality(ctx, plan.NewNode(&plan.UnionAll{}, f.t1, f.t2))
	require.NoError(t, err)
	require.Equal(t, 1050.0, card)

	card, err = e.RelationCardinality(ctx, plan.NewNode(&plan.MaterializedCte{}, f.t1, plan.NewNode(&plan.CteScan{})))
	require.NoError(t, err)
	require.Equal(t, DefaultCteRows, card)

	card, err = e.RelationCardinality(ctx, plan.NewNode(&plan.DummyTableScan{}))
	require.NoError(t, err)
	require.Equal(t, 1.0, card)
}

func TestRelationCardinalityErrors(t *testing.T) {
	ctx := context.Background()
	md := plan.NewMetadata()
	idx := md.AddTable("nostats", nil)
	e := NewEstimator(md)

	_, err := e.RelationCardinality(ctx, plan.NewScan(idx, "nostats"))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrEstimateFailed))

	_, err = e.RelationCardinality(ctx, plan.NewScan(9, "missing"))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	_, err = e.RelationCardinality(ctx, plan.NewNode(&plan.Exchange{}))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrEstimateFailed))
}

func TestJoinCardinality(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := NewEstimator(f.md)

	card, err := e.JoinCardinality(ctx, 1000, 50, nil)
	require.NoError(t, err)
	require.Equal(t, 50000.0, card)

	conds := []plan.JoinCondition{{Left: f.id1, Right: f.id2}}
	card, err = e.JoinCardinality(ctx, 1000, 50, conds)
	require.NoError(t, err)
	require.InDelta(t, 500, card, 10)

	// orientation does not matter
	swapped, err := e.JoinCardinality(ctx, 50, 1000, []plan.JoinCondition{conds[0].Swap()})
	require.NoError(t, err)
	require.Equal(t, card, swapped)

	// expressions without statistics fall back to the input cardinality
	expr := plan.NewFunctionCall("add", f.v1, plan.NewConstant(1))
	card, err = e.JoinCardinality(ctx, 1000, 50, []plan.JoinCondition{{Left: expr, Right: f.id2}})
	require.NoError(t, err)
	require.Equal(t, 50.0, card)

	card, err = e.JoinCardinality(ctx, 2, 2, []plan.JoinCondition{{Left: expr, Right: expr}, {Left: expr, Right: expr}})
	require.NoError(t, err)
	require.Equal(t, 1.0, card)

	_, err = e.JoinCardinality(ctx, 1, 1, []plan.JoinCondition{{Left: plan.NewColumnRef(99, "x"), Right: f.id2}})
	require.Error(t, err)
}
