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
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/matrixorigin/dphyp/pkg/sql/plan"
)

type neighborInfo struct {
	neighbor   *RelationSet
	conditions []plan.JoinCondition
}

// queryEdge is a trie node; the path from the root spells the source set
// of the edges stored in neighbors.
type queryEdge struct {
	neighbors []*neighborInfo
	children  map[int]*queryEdge
}

func newQueryEdge() *queryEdge {
	return &queryEdge{children: make(map[int]*queryEdge)}
}

// QueryGraph is the join hypergraph. An edge connects two disjoint relation
// sets and carries the conditions joining them, oriented from the source set
// to the target set.
type QueryGraph struct {
	root *queryEdge
}

func NewQueryGraph() *QueryGraph {
	return &QueryGraph{root: newQueryEdge()}
}

func (g *QueryGraph) getQueryEdge(set *RelationSet) *queryEdge {
	edge := g.root
	for _, r := range set.relations {
		next, ok := edge.children[r]
		if !ok {
			next = newQueryEdge()
			edge.children[r] = next
		}
		edge = next
	}
	return edge
}

// CreateEdges records cond on the edge left -> right and the swapped
// condition on the mirror edge right -> left.
func (g *QueryGraph) CreateEdges(left, right *RelationSet, cond plan.JoinCondition) {
	g.createEdge(left, right, cond)
	g.createEdge(right, left, cond.Swap())
}

func (g *QueryGraph) createEdge(left, right *RelationSet, cond plan.JoinCondition) {
	edge := g.getQueryEdge(left)
	for _, info := range edge.neighbors {
		if info.neighbor == right {
			info.conditions = append(info.conditions, cond)
			return
		}
	}
	edge.neighbors = append(edge.neighbors, &neighborInfo{
		neighbor:   right,
		conditions: []plan.JoinCondition{cond},
	})
}

// enumerateNeighbors calls fn for every edge whose source is a subset of
// nodes.
func (g *QueryGraph) enumerateNeighbors(nodes *RelationSet, fn func(*neighborInfo)) {
	var walk func(edge *queryEdge, start int)
	walk = func(edge *queryEdge, start int) {
		for i := start; i < len(nodes.relations); i++ {
			next, ok := edge.children[nodes.relations[i]]
			if !ok {
				continue
			}
			for _, info := range next.neighbors {
				fn(info)
			}
			walk(next, i+1)
		}
	}
	walk(g.root, 0)
}

// Neighbors returns, in ascending order, the representative (minimum) index
// of every set adjacent to nodes which shares no index with nodes or
// forbidden.
func (g *QueryGraph) Neighbors(nodes *RelationSet, forbidden *roaring.Bitmap) []int {
	seen := roaring.New()
	g.enumerateNeighbors(nodes, func(info *neighborInfo) {
		if info.neighbor.IntersectsBitmap(forbidden) || info.neighbor.Intersects(nodes) {
			return
		}
		seen.Add(uint32(info.neighbor.Min()))
	})
	ret := make([]int, 0, seen.GetCardinality())
	it := seen.Iterator()
	for it.HasNext() {
		ret = append(ret, int(it.Next()))
	}
	return ret
}

// IsConnected returns the conditions of all edges from a subset of left to a
// subset of right, oriented left to right. An empty result means the two
// sets can only be joined by a cross product.
func (g *QueryGraph) IsConnected(left, right *RelationSet) []plan.JoinCondition {
	var conds []plan.JoinCondition
	g.enumerateNeighbors(left, func(info *neighborInfo) {
		if info.neighbor.IsSubsetOf(right) {
			conds = append(conds, info.conditions...)
		}
	})
	return conds
}

func (g *QueryGraph) String() string {
	var lines []string
	var walk func(edge *queryEdge, prefix []string)
	walk = func(edge *queryEdge, prefix []string) {
		for _, info := range edge.neighbors {
			lines = append(lines, fmt.Sprintf("{%s} -> %s", strings.Join(prefix, ", "), info.neighbor))
		}
		keys := make([]int, 0, len(edge.children))
		for k := range edge.children {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		for _, k := range keys {
			walk(edge.children[k], append(prefix[:len(prefix):len(prefix)], fmt.Sprint(k)))
		}
	}
	walk(g.root, nil)
	return strings.Join(lines, "\n")
}
