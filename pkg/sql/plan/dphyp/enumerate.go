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

	"github.com/RoaringBitmap/roaring"

	"github.com/matrixorigin/dphyp/pkg/common/moerr"
	"github.com/matrixorigin/dphyp/pkg/sql/plan"
)

// solve fills the DP table. Every relation starts a csg once, in descending
// index order, and may only grow towards higher indexes, so that each
// connected subgraph is enumerated from its lowest member.
func (d *DPhyp) solve(ctx context.Context) error {
	for idx, relation := range d.relations {
		card, err := relation.Cardinality(ctx, d.estimator)
		if err != nil {
			return err
		}
		set := d.sets.getRelationSetByIndex(idx)
		d.dpTable[set] = &JoinNode{
			JoinType: plan.JoinInner,
			Leaves:   set,
			card:     card,
			hasCard:  true,
		}
	}

	for idx := len(d.relations) - 1; idx >= 0; idx-- {
		if ctx.Err() != nil {
			return moerr.NewQueryInterrupted(ctx)
		}
		nodes := d.sets.getRelationSetByIndex(idx)
		if err := d.emitCsg(ctx, nodes); err != nil {
			return err
		}
		forbidden := roaring.New()
		forbidden.AddRange(0, uint64(idx))
		if err := d.enumerateCsgRec(ctx, nodes, forbidden); err != nil {
			return err
		}
	}
	return nil
}

// emitCsg looks for the connected complements of the csg nodes. A complement
// grown from neighbor v never takes a neighbor of nodes at or below v, those
// complements belong to the smaller neighbor.
func (d *DPhyp) emitCsg(ctx context.Context, nodes *RelationSet) error {
	if nodes.Len() == len(d.relations) {
		return nil
	}
	forbidden := roaring.New()
	forbidden.AddRange(0, uint64(nodes.Min()))
	forbidden.Or(nodes.bitmap)

	neighbors := d.graph.Neighbors(nodes, forbidden)
	for i := len(neighbors) - 1; i >= 0; i-- {
		neighbor := d.sets.getRelationSetByIndex(neighbors[i])
		if conds := d.graph.IsConnected(nodes, neighbor); len(conds) > 0 {
			if err := d.emitCsgCmp(ctx, nodes, neighbor, conds); err != nil {
				return err
			}
		}
		excluded := forbidden.Clone()
		for _, n := range neighbors[:i+1] {
			excluded.Add(uint32(n))
		}
		if err := d.enumerateCmpRec(ctx, nodes, neighbor, excluded); err != nil {
			return err
		}
	}
	return nil
}

// enumerateCsgRec grows the csg nodes by one neighbor at a time. Each branch
// forbids the neighbors taken by its earlier siblings so a csg is reached
// from exactly one path. From RelationThreshold relations on, only the first
// |nodes| neighbors are followed, which bounds the search at the price of
// optimality.
func (d *DPhyp) enumerateCsgRec(ctx context.Context, nodes *RelationSet, forbidden *roaring.Bitmap) error {
	neighbors := d.graph.Neighbors(nodes, forbidden)
	if len(neighbors) == 0 {
		return nil
	}
	if len(d.relations) >= d.params.RelationThreshold && len(neighbors) > nodes.Len() {
		neighbors = neighbors[:nodes.Len()]
	}

	merged := make([]*RelationSet, len(neighbors))
	for i, neighbor := range neighbors {
		merged[i] = d.sets.union(nodes, d.sets.getRelationSetByIndex(neighbor))
		if _, ok := d.dpTable[merged[i]]; ok && merged[i].Len() > nodes.Len() {
			if err := d.emitCsg(ctx, merged[i]); err != nil {
				return err
			}
		}
	}

	newForbidden := forbidden.Clone()
	for i, neighbor := range neighbors {
		newForbidden.Add(uint32(neighbor))
		if err := d.enumerateCsgRec(ctx, merged[i], newForbidden); err != nil {
			return err
		}
	}
	return nil
}

// emitCsgCmp builds the join of the best plans of left and right and keeps
// it when it is strictly cheaper than the known plan of their union. conds
// are oriented from left to right.
func (d *DPhyp) emitCsgCmp(ctx context.Context, left, right *RelationSet, conds []plan.JoinCondition) error {
	d.csgCmpPairs++
	parent := d.sets.union(left, right)
	leftJoin := d.dpTable[left]
	rightJoin := d.dpTable[right]
	lc, err := leftJoin.Cardinality(ctx, d.relations, d.estimator)
	if err != nil {
		return err
	}
	rc, err := rightJoin.Cardinality(ctx, d.relations, d.estimator)
	if err != nil {
		return err
	}

	// the smaller input goes second
	children := []*JoinNode{leftJoin, rightJoin}
	if lc < rc {
		children[0], children[1] = rightJoin, leftJoin
		swapped := make([]plan.JoinCondition, len(conds))
		for i, cond := range conds {
			swapped[i] = cond.Swap()
		}
		conds = swapped
	}

	node := &JoinNode{Leaves: parent, Children: children}
	if len(conds) > 0 {
		node.JoinType = plan.JoinInner
		node.Conditions = conds
		card, err := node.Cardinality(ctx, d.relations, d.estimator)
		if err != nil {
			return err
		}
		node.Cost = card + children[0].Cost + children[1].Cost
	} else {
		node.JoinType = plan.JoinCross
		node.Cost = lc * rc
	}

	if old, ok := d.dpTable[parent]; !ok || node.Cost < old.Cost {
		d.dpTable[parent] = node
	}
	return nil
}

// enumerateCmpRec grows the complement right of left through the neighbors
// of right and emits every enlarged complement already known to be
// connected.
func (d *DPhyp) enumerateCmpRec(ctx context.Context, left, right *RelationSet, forbidden *roaring.Bitmap) error {
	neighbors := d.graph.Neighbors(right, forbidden)
	if len(neighbors) == 0 {
		return nil
	}
	merged := make([]*RelationSet, len(neighbors))
	for i, neighbor := range neighbors {
		merged[i] = d.sets.union(right, d.sets.getRelationSetByIndex(neighbor))
		if merged[i].Len() <= right.Len() {
			continue
		}
		if _, ok := d.dpTable[merged[i]]; !ok {
			continue
		}
		if conds := d.graph.IsConnected(left, merged[i]); len(conds) > 0 {
			if err := d.emitCsgCmp(ctx, left, merged[i], conds); err != nil {
				return err
			}
		}
	}

	newForbidden := forbidden.Clone()
	for i, neighbor := range neighbors {
		newForbidden.Add(uint32(neighbor))
		if err := d.enumerateCmpRec(ctx, left, merged[i], newForbidden); err != nil {
			return err
		}
	}
	return nil
}
