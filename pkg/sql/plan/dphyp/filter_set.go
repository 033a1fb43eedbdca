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
	"github.com/google/btree"

	"github.com/matrixorigin/dphyp/pkg/sql/plan"
)

type filterItem struct {
	key  string
	pred plan.Expr
}

func filterItemLess(a, b filterItem) bool {
	return a.key < b.key
}

// filterSet holds the residual predicates of a join region, deduplicated
// by their text and ordered by it.
type filterSet struct {
	tree *btree.BTreeG[filterItem]
}

func newFilterSet() *filterSet {
	return &filterSet{tree: btree.NewG(8, filterItemLess)}
}

func (s *filterSet) add(preds ...plan.Expr) {
	for _, pred := range preds {
		for _, conj := range plan.SplitConjunction(pred) {
			s.tree.ReplaceOrInsert(filterItem{key: conj.String(), pred: conj})
		}
	}
}

func (s *filterSet) remove(preds ...plan.Expr) {
	for _, pred := range preds {
		for _, conj := range plan.SplitConjunction(pred) {
			s.tree.Delete(filterItem{key: conj.String()})
		}
	}
}

func (s *filterSet) contains(pred plan.Expr) bool {
	return s.tree.Has(filterItem{key: pred.String()})
}

func (s *filterSet) len() int {
	return s.tree.Len()
}

func (s *filterSet) predicates() []plan.Expr {
	ret := make([]plan.Expr, 0, s.tree.Len())
	s.tree.Ascend(func(item filterItem) bool {
		ret = append(ret, item.pred)
		return true
	})
	return ret
}
