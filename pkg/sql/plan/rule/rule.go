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

	"go.uber.org/zap"

	"github.com/matrixorigin/dphyp/pkg/logutil/logutil2"
	"github.com/matrixorigin/dphyp/pkg/sql/plan"
)

// Rule is a local rewrite of a plan subtree. Apply reports false when the
// rule does not match node; a rule must stop matching its own output.
type Rule interface {
	Name() string
	Apply(ctx context.Context, node *plan.Node) (*plan.Node, bool, error)
}

// Apply rewrites the tree bottom-up with rules. Every rewritten subtree is
// processed again from its leaves, so the result is a fixpoint unless more
// than maxRounds rewrites were needed.
func Apply(ctx context.Context, root *plan.Node, maxRounds int, rules ...Rule) (*plan.Node, error) {
	d := &driver{rules: rules, budget: maxRounds}
	ret, err := d.optimize(ctx, root)
	if err != nil {
		return nil, err
	}
	if d.exhausted {
		logutil2.Warn(ctx, "rewrite rounds exhausted", zap.Int("rounds", maxRounds))
	}
	return ret, nil
}

type driver struct {
	rules     []Rule
	budget    int
	exhausted bool
}

func (d *driver) optimize(ctx context.Context, node *plan.Node) (*plan.Node, error) {
	var children []*plan.Node
	for i, child := range node.Children {
		newChild, err := d.optimize(ctx, child)
		if err != nil {
			return nil, err
		}
		if newChild != child && children == nil {
			children = make([]*plan.Node, len(node.Children))
			copy(children, node.Children[:i])
		}
		if children != nil {
			children[i] = newChild
		}
	}
	if children != nil {
		node = node.WithChildren(children...)
	}
	return d.apply(ctx, node)
}

func (d *driver) apply(ctx context.Context, node *plan.Node) (*plan.Node, error) {
	for _, r := range d.rules {
		if d.budget <= 0 {
			d.exhausted = true
			return node, nil
		}
		result, ok, err := r.Apply(ctx, node)
		if err != nil {
			return nil, err
		}
		if ok {
			d.budget--
			return d.optimize(ctx, result)
		}
	}
	return node, nil
}
