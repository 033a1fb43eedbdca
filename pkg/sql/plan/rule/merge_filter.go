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

	"github.com/matrixorigin/dphyp/pkg/sql/plan"
)

var _ Rule = new(MergeFilter)

// MergeFilter folds a filter into the filter right below it. An empty
// filter is dropped.
type MergeFilter struct{}

func NewMergeFilter() *MergeFilter {
	return &MergeFilter{}
}

func (r *MergeFilter) Name() string {
	return "MergeFilter"
}

func (r *MergeFilter) Apply(_ context.Context, node *plan.Node) (*plan.Node, bool, error) {
	filter, ok := node.Op.(*plan.Filter)
	if !ok {
		return node, false, nil
	}
	if len(filter.Predicates) == 0 {
		return node.Child(0), true, nil
	}
	if node.Child(0).Kind() != plan.KindFilter {
		return node, false, nil
	}
	return pushFilter(node.Child(0), filter.Predicates), true, nil
}
