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

package plan

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/dphyp/pkg/catalog"
	"github.com/matrixorigin/dphyp/pkg/common/moerr"
)

func TestExprString(t *testing.T) {
	a := NewColumnRef(0, "a.x")
	b := NewColumnRef(1, "")
	e := NewFunctionCall("and",
		NewEq(a, b),
		NewFunctionCall("gt", NewFunctionCall("add", a, NewConstant(1)), NewConstant("it's")))
	require.Equal(t, "(a.x = #1) AND ((a.x + 1) > 'it''s')", e.String())
	require.Equal(t, "coalesce(a.x, NULL)", NewFunctionCall("coalesce", a, NewConstant(nil)).String())

	l, r, ok := SplitEquality(NewEq(a, b))
	require.True(t, ok)
	require.Same(t, a, l)
	require.Same(t, b, r)
	_, _, ok = SplitEquality(e)
	require.False(t, ok)

	require.Len(t, SplitConjunction(e), 2)
	require.Len(t, SplitConjunction(a), 1)

	cond := JoinCondition{Left: a, Right: b}
	require.Equal(t, "#1 = a.x", cond.Swap().String())
	require.Equal(t, "a.x = #1", cond.Expr().String())
}

func TestNodeWithChildren(t *testing.T) {
	s1 := NewScan(0, "t1")
	s2 := NewScan(1, "t2")
	j := NewInnerJoin(s1, s2)
	require.Same(t, j, j.WithChildren(s1, s2))

	swapped := j.WithChildren(s2, s1)
	require.NotSame(t, j, swapped)
	require.Same(t, j.Op, swapped.Op)
	require.Same(t, s1, j.Child(0))
	require.Equal(t, 2, swapped.Arity())

	f := NewFilter(j, NewConstant(true))
	require.Equal(t, []int{0, 1}, f.TableIndexes())

	cte := NewNode(&MaterializedCte{CteIndex: 0}, s1, NewNode(&CteScan{CteIndex: 0, TableIndex: 3}))
	require.Equal(t, []int{0, 3}, cte.TableIndexes())
}

func TestOpKind(t *testing.T) {
	require.True(t, KindAggregate.IsBlocking())
	require.True(t, KindEvalScalar.IsBlocking())
	require.False(t, KindFilter.IsBlocking())
	require.False(t, KindJoin.IsBlocking())
	require.Equal(t, "RuntimeFilterSource", KindRuntimeFilterSource.String())
	require.Equal(t, "OpKind(200)", OpKind(200).String())

	require.True(t, (&Join{JoinType: JoinCross}).IsEquiInvertible())
	require.False(t, (&Join{JoinType: JoinLeft}).IsEquiInvertible())
}

func TestMetadataUsedTables(t *testing.T) {
	ctx := context.Background()
	md := NewMetadata()
	t1 := md.AddTable("t1", catalog.NewTableDef("t1", 10, "a", "b"))
	t2 := md.AddTable("t2", catalog.NewTableDef("t2", 10, "a"))
	require.Equal(t, 2, md.NumTables())

	a1, err := md.ColumnRef(ctx, "t1", "a")
	require.NoError(t, err)
	require.Equal(t, "t1.a", a1.Name)
	a2, err := md.ColumnRef(ctx, "t2", "a")
	require.NoError(t, err)
	derived := NewColumnRef(md.AddDerivedColumn("sum"), "sum")

	used, err := md.UsedTables(ctx, NewEq(a1, NewFunctionCall("add", a2, derived)))
	require.NoError(t, err)
	require.Equal(t, []uint32{uint32(t1), uint32(t2)}, used.ToArray())

	used, err = md.UsedTables(ctx, NewEq(derived, NewConstant(1)))
	require.NoError(t, err)
	require.True(t, used.IsEmpty())

	_, err = md.UsedTables(ctx, NewColumnRef(100, "bad"))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	_, err = md.ColumnRef(ctx, "t3", "a")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
	_, err = md.ColumnRef(ctx, "t1", "c")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	entry, err := md.Table(ctx, t2)
	require.NoError(t, err)
	require.Equal(t, "t2", entry.Alias)
	_, err = md.Table(ctx, 5)
	require.Error(t, err)
	col, err := md.Column(ctx, derived.Index)
	require.NoError(t, err)
	require.Equal(t, DerivedTableIndex, col.TableIndex)
}

func TestExplain(t *testing.T) {
	md := NewMetadata()
	md.AddTable("t1", catalog.NewTableDef("t1", 10, "a"))
	md.AddTable("t2", catalog.NewTableDef("t2", 10, "a"))
	a1, _ := md.ColumnRef(context.Background(), "t1", "a")
	a2, _ := md.ColumnRef(context.Background(), "t2", "a")

	root := NewFilter(
		NewInnerJoin(NewScan(0, "t1"), NewScan(1, "t2"), JoinCondition{Left: a1, Right: a2}),
		NewFunctionCall("gt", a1, NewConstant(3)))
	out := Explain(root)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "Filter: t1.a > 3", lines[0])
	require.Contains(t, lines[1], "Join(Inner): t1.a = t2.a")
	require.Contains(t, lines[2], "Scan: t1 (#0)")
	require.Contains(t, lines[3], "Scan: t2 (#1)")
}
