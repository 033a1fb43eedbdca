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
	"sort"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// RelationSet is a canonical, non-empty set of relation indexes. Sets are
// interned by relationSetTree: two sets holding the same indexes are the
// same pointer, so *RelationSet can be used as a map key.
type RelationSet struct {
	relations []int
	bitmap    *roaring.Bitmap
}

func newRelationSet(sorted []int) *RelationSet {
	bm := roaring.New()
	for _, r := range sorted {
		bm.Add(uint32(r))
	}
	bm.RunOptimize()
	return &RelationSet{relations: sorted, bitmap: bm}
}

// Relations returns the indexes in ascending order. The slice must not be
// modified.
func (s *RelationSet) Relations() []int {
	return s.relations
}

func (s *RelationSet) Len() int {
	return len(s.relations)
}

func (s *RelationSet) Min() int {
	return s.relations[0]
}

func (s *RelationSet) Contains(idx int) bool {
	return s.bitmap.Contains(uint32(idx))
}

func (s *RelationSet) IsSubsetOf(o *RelationSet) bool {
	if s == o {
		return true
	}
	if s.Len() > o.Len() {
		return false
	}
	return roaring.AndNot(s.bitmap, o.bitmap).IsEmpty()
}

func (s *RelationSet) Intersects(o *RelationSet) bool {
	return s.bitmap.Intersects(o.bitmap)
}

func (s *RelationSet) IntersectsBitmap(bm *roaring.Bitmap) bool {
	return s.bitmap.Intersects(bm)
}

func (s *RelationSet) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, r := range s.relations {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(r))
	}
	sb.WriteByte('}')
	return sb.String()
}

type relationSetNode struct {
	set      *RelationSet
	children map[int]*relationSetNode
}

func newRelationSetNode() *relationSetNode {
	return &relationSetNode{children: make(map[int]*relationSetNode)}
}

// relationSetTree interns relation sets in a trie keyed by their sorted
// indexes.
type relationSetTree struct {
	root *relationSetNode
}

func newRelationSetTree() *relationSetTree {
	return &relationSetTree{root: newRelationSetNode()}
}

// getRelationSet returns the canonical set of indices, which may be
// unsorted and contain duplicates. It returns nil for an empty input.
func (t *relationSetTree) getRelationSet(indices []int) *RelationSet {
	if len(indices) == 0 {
		return nil
	}
	keys := append([]int(nil), indices...)
	sort.Ints(keys)
	n := 1
	for i := 1; i < len(keys); i++ {
		if keys[i] != keys[n-1] {
			keys[n] = keys[i]
			n++
		}
	}
	keys = keys[:n]

	cur := t.root
	for _, k := range keys {
		next, ok := cur.children[k]
		if !ok {
			next = newRelationSetNode()
			cur.children[k] = next
		}
		cur = next
	}
	if cur.set == nil {
		cur.set = newRelationSet(keys)
	}
	return cur.set
}

func (t *relationSetTree) getRelationSetByIndex(idx int) *RelationSet {
	return t.getRelationSet([]int{idx})
}

func (t *relationSetTree) getRelationSetByBitmap(bm *roaring.Bitmap) *RelationSet {
	keys := make([]int, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		keys = append(keys, int(it.Next()))
	}
	return t.getRelationSet(keys)
}

func (t *relationSetTree) union(a, b *RelationSet) *RelationSet {
	if a == b {
		return a
	}
	return t.getRelationSetByBitmap(roaring.Or(a.bitmap, b.bitmap))
}
