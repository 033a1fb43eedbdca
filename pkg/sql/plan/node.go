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

// Node is an immutable plan node. Transformations never modify a node in
// place; they build new nodes which may share unchanged subtrees with the
// input.
type Node struct {
	Op       Operator
	Children []*Node
}

func NewNode(op Operator, children ...*Node) *Node {
	return &Node{Op: op, Children: children}
}

func NewScan(tableIndex int, tableName string) *Node {
	return NewNode(&Scan{TableIndex: tableIndex, TableName: tableName})
}

func NewInnerJoin(left, right *Node, conds ...JoinCondition) *Node {
	return NewNode(&Join{JoinType: JoinInner, EquiConditions: conds}, left, right)
}

func NewCrossJoin(left, right *Node) *Node {
	return NewNode(&Join{JoinType: JoinCross}, left, right)
}

func NewFilter(child *Node, predicates ...Expr) *Node {
	return NewNode(&Filter{Predicates: predicates}, child)
}

func (n *Node) Kind() OpKind {
	return n.Op.Kind()
}

func (n *Node) Child(i int) *Node {
	return n.Children[i]
}

func (n *Node) Arity() int {
	return len(n.Children)
}

// WithChildren returns a copy of n that shares the operator of n but has
// the given children. n itself is returned when nothing changed.
func (n *Node) WithChildren(children ...*Node) *Node {
	if len(children) == len(n.Children) {
		same := true
		for i := range children {
			if children[i] != n.Children[i] {
				same = false
				break
			}
		}
		if same {
			return n
		}
	}
	return &Node{Op: n.Op, Children: children}
}

// WithOp returns a copy of n carrying op and the children of n.
func (n *Node) WithOp(op Operator) *Node {
	return &Node{Op: op, Children: n.Children}
}

// Walk visits the tree in pre-order. Returning false from fn skips the
// children of the current node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// TableIndexes returns the metadata table indexes read by the subtree.
func (n *Node) TableIndexes() []int {
	var ret []int
	n.Walk(func(node *Node) bool {
		switch op := node.Op.(type) {
		case *Scan:
			ret = append(ret, op.TableIndex)
		case *CteScan:
			ret = append(ret, op.TableIndex)
		}
		return true
	})
	return ret
}
