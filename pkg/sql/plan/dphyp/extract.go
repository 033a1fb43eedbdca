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
	v2 "github.com/matrixorigin/dphyp/pkg/util/metric/v2"
)

// extract walks the join region below node, registering relations and
// collecting join conditions and residual predicates. joinChild is set when
// node is an input of a reorderable join. owner is the chain of filters
// between that join and node, outermost first. A node flagged as subquery
// is optimized on its own and becomes a single relation.
//
// The returned plan has every independently optimized sub-plan replaced.
// The boolean is false when the region cannot be reordered.
func (d *DPhyp) extract(
	ctx context.Context, node *plan.Node, joinChild bool, owner []*plan.Node, isSubquery bool,
) (*plan.Node, bool, error) {
	if isSubquery {
		sub := d.fork()
		newNode, ok, err := sub.optimize(ctx, node)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return node, false, nil
		}
		d.addRelation(owner, newNode)
		return newNode, true, nil
	}

	switch op := node.Op.(type) {
	case *plan.Scan, *plan.DummyTableScan, *plan.CteScan, *plan.MaterializedCte:
		d.addRelation(owner, node)
		return node, true, nil

	case *plan.Join:
		return d.extractJoin(ctx, node, op, owner)

	case *plan.Filter:
		if !joinChild {
			return d.extractTransparent(ctx, node)
		}
		d.filters.add(op.Predicates...)
		child, ok, err := d.extract(ctx, node.Child(0), true, append(owner[:len(owner):len(owner)], node), false)
		if err != nil {
			return nil, false, err
		}
		return node.WithChildren(child), ok, nil

	case *plan.UnionAll:
		newNode, err := d.newChildren(ctx, node)
		if err != nil {
			return nil, false, err
		}
		d.addRelation(owner, newNode)
		return newNode, true, nil

	case *plan.Exchange, *plan.Pattern, *plan.RuntimeFilterSource:
		return nil, false, moerr.NewInvalidState(ctx, "unexpected %s in join reorder", node.Kind())

	default:
		if !node.Kind().IsBlocking() {
			return nil, false, moerr.NewInvalidState(ctx, "unknown operator %s in join reorder", node.Kind())
		}
		if joinChild {
			// a blocking input reached through filters
			return d.extract(ctx, node, true, owner, true)
		}
		return d.extractTransparent(ctx, node)
	}
}

// extractTransparent looks through a unary operator outside of any join.
func (d *DPhyp) extractTransparent(ctx context.Context, node *plan.Node) (*plan.Node, bool, error) {
	child, ok, err := d.extract(ctx, node.Child(0), false, nil, false)
	if err != nil {
		return nil, false, err
	}
	return node.WithChildren(child), ok, nil
}

func (d *DPhyp) extractJoin(ctx context.Context, node *plan.Node, op *plan.Join, owner []*plan.Node) (*plan.Node, bool, error) {
	leftBlocking := node.Child(0).Kind().IsBlocking()
	rightBlocking := node.Child(1).Kind().IsBlocking()

	if !op.IsEquiInvertible() || (leftBlocking && rightBlocking) {
		newNode, err := d.newChildren(ctx, node)
		if err != nil {
			return nil, false, err
		}
		d.addRelation(owner, newNode)
		return newNode, true, nil
	}

	d.conditions = append(d.conditions, op.EquiConditions...)
	d.filters.add(op.NonEquiConditions...)

	left, ok, err := d.extract(ctx, node.Child(0), true, nil, leftBlocking)
	if err != nil || !ok {
		return node, false, err
	}
	right, ok, err := d.extract(ctx, node.Child(1), true, nil, rightBlocking)
	if err != nil || !ok {
		return node, false, err
	}
	return node.WithChildren(left, right), true, nil
}

// newChildren optimizes every child of node as an independent plan, on the
// worker pool when parallelism is enabled.
func (d *DPhyp) newChildren(ctx context.Context, node *plan.Node) (*plan.Node, error) {
	children := make([]*plan.Node, node.Arity())
	pool := d.pool
	if !d.params.EnableParallel {
		pool = nil
	}
	v2.JoinReorderParallelTaskCounter.Add(float64(len(children)))
	err := pool.Execute(ctx, len(children), func(ctx context.Context, i int) error {
		sub := d.fork()
		child, _, err := sub.optimize(ctx, node.Child(i))
		if err != nil {
			return err
		}
		children[i] = child
		return nil
	})
	if err != nil {
		return nil, moerr.NewJoinReorderWorker(ctx, err)
	}
	return node.WithChildren(children...), nil
}

// addRelation registers node, wrapped in the filters of owner, as the next
// relation. Every table read below node maps to it.
func (d *DPhyp) addRelation(owner []*plan.Node, node *plan.Node) {
	d.checkFilter(owner)
	idx := len(d.relations)
	d.relations = append(d.relations, newJoinRelation(rewrap(owner, node)))
	for _, table := range node.TableIndexes() {
		d.tableIndexMap[table] = idx
	}
}

// checkFilter takes the predicates of the filters that travel with a
// relation out of the residual set.
func (d *DPhyp) checkFilter(owner []*plan.Node) {
	for _, n := range owner {
		if f, ok := n.Op.(*plan.Filter); ok {
			d.filters.remove(f.Predicates...)
		}
	}
}

// rewrap rebuilds the owner chain on top of node.
func rewrap(owner []*plan.Node, node *plan.Node) *plan.Node {
	for i := len(owner) - 1; i >= 0; i-- {
		node = owner[i].WithChildren(node)
	}
	return node
}
