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

package plan

import (
	"github.com/xlab/treeprint"
)

// Explain renders the plan as an indented tree, one operator per line.
func Explain(root *Node) string {
	tree := treeprint.NewWithRoot(root.Op.Describe())
	for _, child := range root.Children {
		explainNode(tree, child)
	}
	return tree.String()
}

func explainNode(tree treeprint.Tree, node *Node) {
	if len(node.Children) == 0 {
		tree.AddNode(node.Op.Describe())
		return
	}
	branch := tree.AddBranch(node.Op.Describe())
	for _, child := range node.Children {
		explainNode(branch, child)
	}
}
