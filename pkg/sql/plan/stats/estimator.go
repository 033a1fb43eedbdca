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
	"math"

	"github.com/matrixorigin/dphyp/pkg/common/moerr"
	"github.com/matrixorigin/dphyp/pkg/sql/plan"
)

const (
	// DefaultSelectivity is applied to predicates the estimator knows
	// nothing about.
	DefaultSelectivity = 0.2
	// DefaultCteRows is the cardinality of a cte scan without a row hint.
	DefaultCteRows = 1000.0
)

// Estimator answers cardinality questions for the join enumerator. Any
// implementation must be safe for concurrent use.
type Estimator interface {
	// RelationCardinality returns the estimated number of rows produced by
	// the subtree rooted at node.
	RelationCardinality(ctx context.Context, node *plan.Node) (float64, error)
	// JoinCardinality returns the estimated number of rows of an inner
	// join of two inputs connected by conds. The Left side of every
	// condition belongs to the input with leftCard rows.
	JoinCardinality(ctx context.Context, leftCard, rightCard float64, conds []plan.JoinCondition) (float64, error)
}

var _ Estimator = new(DefaultEstimator)

// DefaultEstimator derives cardinalities from table row counts and the
// distinct value sketches kept in the catalog.
type DefaultEstimator struct {
	md *plan.Metadata
}

func NewEstimator(md *plan.Metadata) *DefaultEstimator {
	return &DefaultEstimator{md: md}
}

func (e *DefaultEstimator) RelationCardinality(ctx context.Context, node *plan.Node) (float64, error) {
	switch op := node.Op.(type) {
	case *plan.Scan:
		entry, err := e.md.Table(ctx, op.TableIndex)
		if err != nil {
			return 0, err
		}
		if entry.Def == nil {
			return 0, moerr.NewEstimateFailed(ctx, "no statistics for table %s", entry.Alias)
		}
		return math.Max(entry.Def.RowCount, 1), nil

	case *plan.DummyTableScan:
		return 1, nil

	case *plan.CteScan:
		if op.Rows > 0 {
			return op.Rows, nil
		}
		return DefaultCteRows, nil

	case *plan.Filter:
		card, err := e.RelationCardinality(ctx, node.Child(0))
		if err != nil {
			return 0, err
		}
		sel, err := e.selectivity(ctx, op.Predicates)
		if err != nil {
			return 0, err
		}
		return math.Max(card*sel, 1), nil

	case *plan.Join:
		return e.joinNodeCardinality(ctx, node, op)

	case *plan.Aggregate:
		card, err := e.RelationCardinality(ctx, node.Child(0))
		if err != nil {
			return 0, err
		}
		if len(op.GroupBy) == 0 {
			return 1, nil
		}
		groups := 1.0
		for _, expr := range op.GroupBy {
			ndv, err := e.exprNDV(ctx, expr, card)
			if err != nil {
				return 0, err
			}
			groups *= ndv
		}
		return math.Min(card, groups), nil

	case *plan.Limit:
		card, err := e.RelationCardinality(ctx, node.Child(0))
		if err != nil {
			return 0, err
		}
		return math.Min(card, float64(op.Limit)), nil

	case *plan.UnionAll:
		var sum float64
		for _, child := range node.Children {
			card, err := e.RelationCardinality(ctx, child)
			if err != nil {
				return 0, err
			}
			sum += card
		}
		return sum, nil

	case *plan.MaterializedCte:
		return e.RelationCardinality(ctx, node.Child(node.Arity()-1))

	default:
		if node.Arity() == 0 {
			return 0, moerr.NewEstimateFailed(ctx, "unexpected leaf %s", node.Kind())
		}
		return e.RelationCardinality(ctx, node.Child(0))
	}
}

func (e *DefaultEstimator) joinNodeCardinality(ctx context.Context, node *plan.Node, op *plan.Join) (float64, error) {
	lc, err := e.RelationCardinality(ctx, node.Child(0))
	if err != nil {
		return 0, err
	}
	rc, err := e.RelationCardinality(ctx, node.Child(1))
	if err != nil {
		return 0, err
	}
	inner, err := e.JoinCardinality(ctx, lc, rc, op.EquiConditions)
	if err != nil {
		return 0, err
	}
	sel, err := e.selectivity(ctx, op.NonEquiConditions)
	if err != nil {
		return 0, err
	}
	inner = math.Max(inner*sel, 1)

	switch op.JoinType {
	case plan.JoinLeft:
		return math.Max(inner, lc), nil
	case plan.JoinRight:
		return math.Max(inner, rc), nil
	case plan.JoinFull:
		return math.Max(inner, math.Max(lc, rc)), nil
	case plan.JoinSemi, plan.JoinAnti, plan.JoinMark:
		return lc, nil
	default:
		return inner, nil
	}
}

// JoinCardinality assumes containment of the join keys: every condition
// has selectivity 1/max(ndv(left), ndv(right)).
func (e *DefaultEstimator) JoinCardinality(ctx context.Context, leftCard, rightCard float64, conds []plan.JoinCondition) (float64, error) {
	card := leftCard * rightCard
	for _, cond := range conds {
		ln, err := e.exprNDV(ctx, cond.Left, leftCard)
		if err != nil {
			return 0, err
		}
		rn, err := e.exprNDV(ctx, cond.Right, rightCard)
		if err != nil {
			return 0, err
		}
		card /= math.Max(math.Max(ln, rn), 1)
	}
	return math.Max(card, 1), nil
}

func (e *DefaultEstimator) selectivity(ctx context.Context, preds []plan.Expr) (float64, error) {
	sel := 1.0
	for _, pred := range preds {
		s := DefaultSelectivity
		if l, r, ok := plan.SplitEquality(pred); ok {
			col, isCol := l.(*plan.ColumnRef)
			if !isCol {
				col, isCol = r.(*plan.ColumnRef)
			}
			_, lc := l.(*plan.Constant)
			_, rc := r.(*plan.Constant)
			if isCol && (lc || rc) {
				ndv, err := e.exprNDV(ctx, col, 0)
				if err != nil {
					return 0, err
				}
				if ndv >= 1 {
					s = 1 / ndv
				}
			}
		}
		sel *= s
	}
	return sel, nil
}

// exprNDV returns the number of distinct values of expr, or fallback when
// expr is not a column with statistics.
func (e *DefaultEstimator) exprNDV(ctx context.Context, expr plan.Expr, fallback float64) (float64, error) {
	col, ok := expr.(*plan.ColumnRef)
	if !ok {
		return fallback, nil
	}
	entry, err := e.md.Column(ctx, col.Index)
	if err != nil {
		return 0, err
	}
	if entry.Def == nil || entry.Def.Stats == nil {
		return fallback, nil
	}
	if ndv := entry.Def.Stats.NDV(); ndv > 0 {
		return ndv, nil
	}
	return fallback, nil
}
