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
	"fmt"
	"strings"
)

// Expr is a scalar expression. Expressions are immutable once built and
// may be shared between plan nodes.
type Expr interface {
	fmt.Stringer
	exprNode()
}

// ColumnRef references a column registered in Metadata by its index.
type ColumnRef struct {
	Index int
	Name  string
}

type Constant struct {
	Value any
}

type FunctionCall struct {
	Name string
	Args []Expr
}

func (*ColumnRef) exprNode()    {}
func (*Constant) exprNode()     {}
func (*FunctionCall) exprNode() {}

func (c *ColumnRef) String() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("#%d", c.Index)
}

func (c *Constant) String() string {
	switch v := c.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	default:
		return fmt.Sprintf("%v", v)
	}
}

var binaryOperators = map[string]string{
	"eq":  "=",
	"ne":  "<>",
	"lt":  "<",
	"le":  "<=",
	"gt":  ">",
	"ge":  ">=",
	"and": "AND",
	"or":  "OR",
	"add": "+",
	"sub": "-",
	"mul": "*",
	"div": "/",
}

func (f *FunctionCall) String() string {
	if op, ok := binaryOperators[f.Name]; ok && len(f.Args) == 2 {
		return operand(f.Args[0]) + " " + op + " " + operand(f.Args[1])
	}
	args := make([]string, len(f.Args))
	for i, arg := range f.Args {
		args[i] = arg.String()
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

func operand(e Expr) string {
	if f, ok := e.(*FunctionCall); ok {
		if _, binary := binaryOperators[f.Name]; binary && len(f.Args) == 2 {
			return "(" + f.String() + ")"
		}
	}
	return e.String()
}

func NewColumnRef(index int, name string) *ColumnRef {
	return &ColumnRef{Index: index, Name: name}
}

func NewConstant(v any) *Constant {
	return &Constant{Value: v}
}

func NewFunctionCall(name string, args ...Expr) *FunctionCall {
	return &FunctionCall{Name: name, Args: args}
}

func NewEq(left, right Expr) *FunctionCall {
	return NewFunctionCall("eq", left, right)
}

// SplitEquality returns the operands of an equality predicate.
func SplitEquality(e Expr) (Expr, Expr, bool) {
	f, ok := e.(*FunctionCall)
	if !ok || f.Name != "eq" || len(f.Args) != 2 {
		return nil, nil, false
	}
	return f.Args[0], f.Args[1], true
}

// SplitConjunction flattens nested AND predicates.
func SplitConjunction(e Expr) []Expr {
	f, ok := e.(*FunctionCall)
	if !ok || f.Name != "and" {
		return []Expr{e}
	}
	var ret []Expr
	for _, arg := range f.Args {
		ret = append(ret, SplitConjunction(arg)...)
	}
	return ret
}

// WalkColumns calls fn for every column reference in e, depth first.
func WalkColumns(e Expr, fn func(*ColumnRef)) {
	switch x := e.(type) {
	case *ColumnRef:
		fn(x)
	case *FunctionCall:
		for _, arg := range x.Args {
			WalkColumns(arg, fn)
		}
	}
}

// JoinCondition is an equated pair of expressions, Left referencing the
// first child of a join and Right the second one.
type JoinCondition struct {
	Left  Expr
	Right Expr
}

func (c JoinCondition) Swap() JoinCondition {
	return JoinCondition{Left: c.Right, Right: c.Left}
}

func (c JoinCondition) String() string {
	return c.Left.String() + " = " + c.Right.String()
}

// Expr returns the condition as an equality predicate.
func (c JoinCondition) Expr() Expr {
	return NewEq(c.Left, c.Right)
}
