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

package dphyp

import (
	"context"

	"github.com/matrixorigin/dphyp/pkg/common/moerr"
	"github.com/matrixorigin/dphyp/pkg/sql/plan"
	"github.com/matrixorigin/dphyp/pkg/sql/plan/rule"
)

// reconstruct replaces the join region of root by the plan of best.
func (d *DPhyp) reconstruct(ctx context.Context, best *JoinNode, root *plan.Node) (*plan.Node, error) {
	return d.replaceJoin(ctx, best.toPlan(d.relations), root)
}

// replaceJoin descends the unary operators above the topmost join of node
// and swaps that join for joinTree. The residual predicates go on top of
// the new tree and are pushed down as far as they can go.
func (d *DPhyp) replaceJoin(ctx context.Context, joinTree, node *plan.Node) (*plan.Node, error) {
	if node.Kind() == plan.KindJoin {
		newTree, err := rule.Apply(ctx,
			plan.NewFilter(joinTree, d.filters.predicates()...),
			d.params.MaxPushdownRounds, d.rules...)
		if err != nil {
			return nil, err
		}
		if f, ok := newTree.Op.(*plan.Filter); ok && len(f.Predicates) == 0 {
			newTree = newTree.Child(0)
		}
		return newTree, nil
	}
	if node.Arity() != 1 {
		return nil, moerr.NewInvalidState(ctx, "no join to replace below %s", node.Kind())
	}
	child, err := d.replaceJoin(ctx, joinTree, node.Child(0))
	if err != nil {
		return nil, err
	}
	return node.WithChildren(child), nil
}
