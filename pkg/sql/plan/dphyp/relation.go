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

	"github.com/matrixorigin/dphyp/pkg/sql/plan"
	"github.com/matrixorigin/dphyp/pkg/sql/plan/stats"
)

// JoinRelation is one input of the join region: a base table scan, possibly
// with the filters sitting on it, or an opaque sub-plan.
type JoinRelation struct {
	node *plan.Node

	card    float64
	hasCard bool
}

func newJoinRelation(node *plan.Node) *JoinRelation {
	return &JoinRelation{node: node}
}

func (r *JoinRelation) Node() *plan.Node {
	return r.node
}

func (r *JoinRelation) Cardinality(ctx context.Context, estimator stats.Estimator) (float64, error) {
	if !r.hasCard {
		card, err := estimator.RelationCardinality(ctx, r.node)
		if err != nil {
			return 0, err
		}
		r.card, r.hasCard = card, true
	}
	return r.card, nil
}
