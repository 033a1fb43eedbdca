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
	"strconv"

	"github.com/matrixorigin/dphyp/pkg/sql/plan"
	"github.com/matrixorigin/dphyp/pkg/sql/plan/stats"
)

// JoinNode is a DP table entry: the best known plan joining Leaves. A leaf
// entry has no children and zero cost. The first child of an inner or cross
// join is the larger input.
type JoinNode struct {
	JoinType   plan.JoinType
	Leaves     *RelationSet
	Children   []*JoinNode
	Conditions []plan.JoinCondition
	Cost       float64

	card    float64
	hasCard bool
}

func (n *JoinNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Cardinality returns the memoized output cardinality, deriving it from the
// children on first use.
func (n *JoinNode) Cardinality(ctx context.Context, relations []*JoinRelation, estimator stats.Estimator) (float64, error) {
	if n.hasCard {
		return n.card, nil
	}
	var card float64
	if n.IsLeaf() {
		c, err := relations[n.Leaves.Min()].Cardinality(ctx, estimator)
		if err != nil {
			return 0, err
		}
		card = c
	} else {
		lc, err := n.Children[0].Cardinality(ctx, relations, estimator)
		if err != nil {
			return 0, err
		}
		rc, err := n.Children[1].Cardinality(ctx, relations, estimator)
		if err != nil {
			return 0, err
		}
		if n.JoinType == plan.JoinCross {
			card = lc * rc
		} else {
			card, err = estimator.JoinCardinality(ctx, lc, rc, n.Conditions)
			if err != nil {
				return 0, err
			}
		}
	}
	n.card, n.hasCard = card, true
	return card, nil
}

// toPlan materializes the tree, leaves being the relation sub-plans.
func (n *JoinNode) toPlan(relations []*JoinRelation) *plan.Node {
	if n.IsLeaf() {
		return relations[n.Leaves.Min()].node
	}
	join := &plan.Join{JoinType: n.JoinType}
	if n.JoinType == plan.JoinInner {
		join.EquiConditions = n.Conditions
	}
	return plan.NewNode(join, n.Children[0].toPlan(relations), n.Children[1].toPlan(relations))
}

func (n *JoinNode) String() string {
	if n.IsLeaf() {
		return strconv.Itoa(n.Leaves.Min())
	}
	op := " JOIN "
	if n.JoinType == plan.JoinCross {
		op = " CROSS "
	}
	return "(" + n.Children[0].String() + op + n.Children[1].String() + ")"
}
