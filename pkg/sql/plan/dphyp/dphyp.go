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

// Package dphyp reorders the inner joins of a plan region with the DPhyp
// algorithm from "Dynamic Programming Strikes Back" (Moerkotte, Neumann).
//
// The optimizer collects the inputs of the join region (relations) and the
// equi conditions connecting them, builds the join hypergraph and
// enumerates all pairs of connected subgraph and connected complement to
// fill a table of the cheapest plan per relation set. The cheapest plan of
// the full set replaces the join region, the residual predicates are put
// back on top of it and pushed down.
package dphyp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matrixorigin/dphyp/pkg/common/concurrent"
	"github.com/matrixorigin/dphyp/pkg/config"
	"github.com/matrixorigin/dphyp/pkg/logutil"
	"github.com/matrixorigin/dphyp/pkg/logutil/logutil2"
	"github.com/matrixorigin/dphyp/pkg/sql/plan"
	"github.com/matrixorigin/dphyp/pkg/sql/plan/rule"
	"github.com/matrixorigin/dphyp/pkg/sql/plan/stats"
	v2 "github.com/matrixorigin/dphyp/pkg/util/metric/v2"
)

// Stats describes the last run of a DPhyp.
type Stats struct {
	Relations   int
	Conditions  int
	CsgCmpPairs int
	DPTableSize int
	// Cost of the chosen join tree, zero when nothing was reordered.
	Cost float64
}

// DPhyp is the join reorder optimizer. It keeps the state of one run and
// must not be used by several goroutines at once; independent sub-plans are
// handed to fresh instances sharing the read-only handles.
type DPhyp struct {
	md        *plan.Metadata
	estimator stats.Estimator
	params    *config.OptimizerParameters
	pool      *concurrent.Pool
	rules     []rule.Rule

	relations []*JoinRelation
	// table index -> relation index
	tableIndexMap map[int]int
	conditions    []plan.JoinCondition
	filters       *filterSet
	sets          *relationSetTree
	graph         *QueryGraph
	dpTable       map[*RelationSet]*JoinNode
	csgCmpPairs   int
	cost          float64
}

// New returns an optimizer. A nil params uses the defaults and a nil pool
// optimizes independent sub-plans on the calling goroutine.
func New(md *plan.Metadata, estimator stats.Estimator, params *config.OptimizerParameters, pool *concurrent.Pool) *DPhyp {
	if params == nil {
		params = config.NewOptimizerParameters()
	}
	d := &DPhyp{
		md:        md,
		estimator: estimator,
		params:    params,
		pool:      pool,
		rules: []rule.Rule{
			rule.NewPushDownFilterJoin(md),
			rule.NewMergeFilter(),
		},
	}
	d.reset()
	return d
}

func (d *DPhyp) fork() *DPhyp {
	sub := &DPhyp{
		md:        d.md,
		estimator: d.estimator,
		params:    d.params,
		pool:      d.pool,
		rules:     d.rules,
	}
	sub.reset()
	return sub
}

func (d *DPhyp) reset() {
	d.relations = nil
	d.tableIndexMap = make(map[int]int)
	d.conditions = nil
	d.filters = newFilterSet()
	d.sets = newRelationSetTree()
	d.graph = NewQueryGraph()
	d.dpTable = make(map[*RelationSet]*JoinNode)
	d.csgCmpPairs = 0
	d.cost = 0
}

func (d *DPhyp) Stats() Stats {
	return Stats{
		Relations:   len(d.relations),
		Conditions:  len(d.conditions),
		CsgCmpPairs: d.csgCmpPairs,
		DPTableSize: len(d.dpTable),
		Cost:        d.cost,
	}
}

// Optimize reorders the first join region of root. It returns false and
// root itself when the region cannot be reordered, in which case the caller
// keeps its original join order.
func (d *DPhyp) Optimize(ctx context.Context, root *plan.Node) (*plan.Node, bool, error) {
	ctx = logutil.WithOptimizeID(ctx, uuid.New().String())
	start := time.Now()
	defer func() {
		v2.JoinReorderDurationHistogram.Observe(time.Since(start).Seconds())
	}()

	ret, optimized, err := d.optimize(ctx, root)
	switch {
	case err != nil:
		v2.JoinReorderErrorCounter.Inc()
		logutil2.Error(ctx, "join reorder failed", zap.Error(err))
		return nil, false, err
	case !optimized:
		v2.JoinReorderFallbackCounter.Inc()
		logutil2.Info(ctx, "join reorder skipped",
			zap.Int("relations", len(d.relations)),
			zap.Int("conditions", len(d.conditions)))
	default:
		v2.JoinReorderOptimizedCounter.Inc()
		logutil2.Debug(ctx, "join reorder done",
			zap.Int("relations", len(d.relations)),
			zap.Int("csg-cmp-pairs", d.csgCmpPairs),
			zap.Int("dp-table-size", len(d.dpTable)),
			zap.Float64("cost", d.cost))
	}
	return ret, optimized, nil
}

func (d *DPhyp) optimize(ctx context.Context, root *plan.Node) (*plan.Node, bool, error) {
	d.reset()
	extracted, ok, err := d.extract(ctx, root, false, nil, false)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return root, false, nil
	}
	if len(d.relations) <= 1 {
		return extracted, true, nil
	}
	if len(d.conditions) == 0 {
		// a pure cross product is left to the caller
		return root, false, nil
	}

	ok, err = d.buildGraph(ctx)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return root, false, nil
	}

	v2.JoinReorderRelationsHistogram.Observe(float64(len(d.relations)))
	if err = d.solve(ctx); err != nil {
		return nil, false, err
	}
	v2.JoinReorderCsgCmpPairsHistogram.Observe(float64(d.csgCmpPairs))

	best, ok := d.dpTable[d.allRelations()]
	if !ok {
		// the graph is disconnected
		return root, false, nil
	}
	d.cost = best.Cost
	logutil2.Debug(ctx, "best join tree", zap.Stringer("tree", best))

	ret, err := d.reconstruct(ctx, best, extracted)
	if err != nil {
		return nil, false, err
	}
	return ret, true, nil
}

func (d *DPhyp) allRelations() *RelationSet {
	all := make([]int, len(d.relations))
	for i := range all {
		all[i] = i
	}
	return d.sets.getRelationSet(all)
}

// buildGraph adds an edge for every collected condition. A condition whose
// sides share a relation becomes a residual filter instead. It returns false
// when a side of a condition cannot be attributed to the relations of the
// region.
func (d *DPhyp) buildGraph(ctx context.Context) (bool, error) {
	for _, cond := range d.conditions {
		left, err := d.relationSetOf(ctx, cond.Left)
		if err != nil {
			return false, err
		}
		right, err := d.relationSetOf(ctx, cond.Right)
		if err != nil {
			return false, err
		}
		if left == nil || right == nil {
			logutil2.Debug(ctx, "join condition is not attributable",
				zap.Stringer("condition", cond))
			return false, nil
		}
		if left.Intersects(right) {
			// no edge can carry it, it filters the relations it reads
			d.filters.add(cond.Expr())
			continue
		}
		d.graph.CreateEdges(left, right, cond)
	}
	return true, nil
}

// relationSetOf returns the relations expr reads from, or nil when it reads
// no table or a table outside the region.
func (d *DPhyp) relationSetOf(ctx context.Context, expr plan.Expr) (*RelationSet, error) {
	used, err := d.md.UsedTables(ctx, expr)
	if err != nil {
		return nil, err
	}
	if used.IsEmpty() {
		return nil, nil
	}
	relations := make([]int, 0, used.GetCardinality())
	it := used.Iterator()
	for it.HasNext() {
		idx, ok := d.tableIndexMap[int(it.Next())]
		if !ok {
			return nil, nil
		}
		relations = append(relations, idx)
	}
	return d.sets.getRelationSet(relations), nil
}
