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

package rule

import (
	"context"

	"github.com/RoaringBitmap/roaring"

	"github.com/matrixorigin/dphyp/pkg/sql/plan"
)

var _ Rule = new(PushDownFilterJoin)

// PushDownFilterJoin moves the predicates of a filter sitting on an inner
// or cross join towards the join inputs:
//
//	a predicate on one input only becomes a filter of that input,
//	an equality between both inputs becomes an equi condition,
//	any other predicate on both inputs becomes a residual join condition.
//
// Predicates without columns or with columns from outside the join stay
// in the filter.
type PushDownFilterJoin struct {
	md *plan.Metadata
}

func NewPushDownFilterJoin(md *plan.Metadata) *PushDownFilterJoin {
	return &PushDownFilterJoin{md: md}
}

func (r *PushDownFilterJoin) Name() string {
	return "PushDownFilterJoin"
}

func (r *PushDownFilterJoin) Apply(ctx context.Context, node *plan.Node) (*plan.Node, bool, error) {
	filter, ok := node.Op.(*plan.Filter)
	if !ok || node.Child(0).Kind() != plan.KindJoin {
		return node, false, nil
	}
	joinNode := node.Child(0)
	join := joinNode.Op.(*plan.Join)
	if !join.IsEquiInvertible() {
		return node, false, nil
	}

	leftTables := tableSet(joinNode.Child(0))
	rightTables := tableSet(joinNode.Child(1))
	bothTables := roaring.Or(leftTables, rightTables)

	var leftPreds, rightPreds, remaining, nonEqui []plan.Expr
	var equi []plan.JoinCondition
	for _, pred := range flatten(filter.Predicates) {
		used, err := r.md.UsedTables(ctx, pred)
		if err != nil {
			return nil, false, err
		}
		switch {
		case used.IsEmpty():
			remaining = append(remaining, pred)
		case isSubset(used, leftTables):
			leftPreds = append(leftPreds, pred)
		case isSubset(used, rightTables):
			rightPreds = append(rightPreds, pred)
		case isSubset(used, bothTables):
			cond, isEqui, err := r.splitJoinCondition(ctx, pred, leftTables, rightTables)
			if err != nil {
				return nil, false, err
			}
			if isEqui {
				equi = append(equi, cond)
			} else {
				nonEqui = append(nonEqui, pred)
			}
		default:
			remaining = append(remaining, pred)
		}
	}
	if len(leftPreds)+len(rightPreds)+len(equi)+len(nonEqui) == 0 {
		return node, false, nil
	}

	newJoin := &plan.Join{
		JoinType:          join.JoinType,
		EquiConditions:    append(append([]plan.JoinCondition(nil), join.EquiConditions...), equi...),
		NonEquiConditions: append(append([]plan.Expr(nil), join.NonEquiConditions...), nonEqui...),
	}
	if newJoin.JoinType == plan.JoinCross && (len(newJoin.EquiConditions) > 0 || len(newJoin.NonEquiConditions) > 0) {
		newJoin.JoinType = plan.JoinInner
	}
	result := plan.NewNode(newJoin,
		pushFilter(joinNode.Child(0), leftPreds),
		pushFilter(joinNode.Child(1), rightPreds))
	if len(remaining) > 0 {
		result = plan.NewFilter(result, remaining...)
	}
	return result, true, nil
}

// splitJoinCondition recognizes an equality whose operands come from
// different join inputs and orients it left to right.
func (r *PushDownFilterJoin) splitJoinCondition(
	ctx context.Context, pred plan.Expr, leftTables, rightTables *roaring.Bitmap,
) (plan.JoinCondition, bool, error) {
	l, rt, ok := plan.SplitEquality(pred)
	if !ok {
		return plan.JoinCondition{}, false, nil
	}
	lu, err := r.md.UsedTables(ctx, l)
	if err != nil {
		return plan.JoinCondition{}, false, err
	}
	ru, err := r.md.UsedTables(ctx, rt)
	if err != nil {
		return plan.JoinCondition{}, false, err
	}
	if lu.IsEmpty() || ru.IsEmpty() {
		return plan.JoinCondition{}, false, nil
	}
	switch {
	case isSubset(lu, leftTables) && isSubset(ru, rightTables):
		return plan.JoinCondition{Left: l, Right: rt}, true, nil
	case isSubset(lu, rightTables) && isSubset(ru, leftTables):
		return plan.JoinCondition{Left: rt, Right: l}, true, nil
	}
	return plan.JoinCondition{}, false, nil
}

// pushFilter adds preds on top of node, merging them into an existing
// filter. Predicates already present are not added twice.
func pushFilter(node *plan.Node, preds []plan.Expr) *plan.Node {
	if len(preds) == 0 {
		return node
	}
	if f, ok := node.Op.(*plan.Filter); ok {
		merged := dedup(append(append([]plan.Expr(nil), f.Predicates...), preds...))
		return plan.NewFilter(node.Child(0), merged...)
	}
	return plan.NewFilter(node, dedup(preds)...)
}

func tableSet(node *plan.Node) *roaring.Bitmap {
	ret := roaring.New()
	for _, idx := range node.TableIndexes() {
		ret.Add(uint32(idx))
	}
	return ret
}

func isSubset(sub, super *roaring.Bitmap) bool {
	return roaring.AndNot(sub, super).IsEmpty()
}

func flatten(preds []plan.Expr) []plan.Expr {
	var ret []plan.Expr
	for _, pred := range preds {
		ret = append(ret, plan.SplitConjunction(pred)...)
	}
	return ret
}

func dedup(preds []plan.Expr) []plan.Expr {
	seen := make(map[string]struct{}, len(preds))
	ret := preds[:0:0]
	for _, pred := range preds {
		key := pred.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ret = append(ret, pred)
	}
	return ret
}
