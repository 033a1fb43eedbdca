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

type OpKind uint8

const (
	KindScan OpKind = iota
	KindJoin
	KindFilter
	KindAggregate
	KindSort
	KindLimit
	KindEvalScalar
	KindWindow
	KindProjectSet
	KindUnionAll
	KindExchange
	KindPattern
	KindRuntimeFilterSource
	KindDummyTableScan
	KindCteScan
	KindMaterializedCte
)

var opKindNames = [...]string{
	KindScan:                "Scan",
	KindJoin:                "Join",
	KindFilter:              "Filter",
	KindAggregate:           "Aggregate",
	KindSort:                "Sort",
	KindLimit:               "Limit",
	KindEvalScalar:          "EvalScalar",
	KindWindow:              "Window",
	KindProjectSet:          "ProjectSet",
	KindUnionAll:            "UnionAll",
	KindExchange:            "Exchange",
	KindPattern:             "Pattern",
	KindRuntimeFilterSource: "RuntimeFilterSource",
	KindDummyTableScan:      "DummyTableScan",
	KindCteScan:             "CteScan",
	KindMaterializedCte:     "MaterializedCte",
}

func (k OpKind) String() string {
	if int(k) < len(opKindNames) {
		return opKindNames[k]
	}
	return fmt.Sprintf("OpKind(%d)", k)
}

// IsBlocking reports whether an operator of this kind must see its whole
// input before producing rows, which makes the subtree below it an
// independent join reorder problem.
func (k OpKind) IsBlocking() bool {
	switch k {
	case KindAggregate, KindSort, KindLimit, KindEvalScalar, KindWindow, KindProjectSet:
		return true
	}
	return false
}

// Operator is the payload of a plan node.
type Operator interface {
	Kind() OpKind
	// Describe returns the text shown for the operator in explain output.
	Describe() string
}

type Scan struct {
	TableIndex int
	TableName  string
}

func (*Scan) Kind() OpKind { return KindScan }

func (s *Scan) Describe() string {
	return fmt.Sprintf("Scan: %s (#%d)", s.TableName, s.TableIndex)
}

type JoinType uint8

const (
	JoinInner JoinType = iota
	JoinCross
	JoinLeft
	JoinRight
	JoinFull
	JoinSemi
	JoinAnti
	JoinMark
)

var joinTypeNames = [...]string{
	JoinInner: "Inner",
	JoinCross: "Cross",
	JoinLeft:  "Left",
	JoinRight: "Right",
	JoinFull:  "Full",
	JoinSemi:  "Semi",
	JoinAnti:  "Anti",
	JoinMark:  "Mark",
}

func (t JoinType) String() string {
	if int(t) < len(joinTypeNames) {
		return joinTypeNames[t]
	}
	return fmt.Sprintf("JoinType(%d)", t)
}

type Join struct {
	JoinType          JoinType
	EquiConditions    []JoinCondition
	NonEquiConditions []Expr
}

func (*Join) Kind() OpKind { return KindJoin }

// IsEquiInvertible reports whether the join can be freely reordered with
// its neighbours, i.e. it is an inner or a cross join.
func (j *Join) IsEquiInvertible() bool {
	return j.JoinType == JoinInner || j.JoinType == JoinCross
}

func (j *Join) Describe() string {
	var sb strings.Builder
	sb.WriteString("Join(")
	sb.WriteString(j.JoinType.String())
	sb.WriteString(")")
	for i, cond := range j.EquiConditions {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(cond.String())
	}
	if len(j.NonEquiConditions) > 0 {
		sb.WriteString(" Residual: ")
		sb.WriteString(joinExprs(j.NonEquiConditions, " AND "))
	}
	return sb.String()
}

type Filter struct {
	Predicates []Expr
}

func (*Filter) Kind() OpKind { return KindFilter }

func (f *Filter) Describe() string {
	return "Filter: " + joinExprs(f.Predicates, " AND ")
}

type Aggregate struct {
	GroupBy []Expr
	Aggs    []Expr
}

func (*Aggregate) Kind() OpKind { return KindAggregate }

func (a *Aggregate) Describe() string {
	return fmt.Sprintf("Aggregate: group by [%s] aggs [%s]",
		joinExprs(a.GroupBy, ", "), joinExprs(a.Aggs, ", "))
}

type Sort struct {
	OrderBy []Expr
}

func (*Sort) Kind() OpKind { return KindSort }

func (s *Sort) Describe() string {
	return "Sort: " + joinExprs(s.OrderBy, ", ")
}

type Limit struct {
	Limit  uint64
	Offset uint64
}

func (*Limit) Kind() OpKind { return KindLimit }

func (l *Limit) Describe() string {
	return fmt.Sprintf("Limit: %d offset %d", l.Limit, l.Offset)
}

type EvalScalar struct {
	Items []Expr
}

func (*EvalScalar) Kind() OpKind { return KindEvalScalar }

func (e *EvalScalar) Describe() string {
	return "EvalScalar: " + joinExprs(e.Items, ", ")
}

type Window struct {
	PartitionBy []Expr
	OrderBy     []Expr
}

func (*Window) Kind() OpKind { return KindWindow }

func (w *Window) Describe() string {
	return fmt.Sprintf("Window: partition by [%s] order by [%s]",
		joinExprs(w.PartitionBy, ", "), joinExprs(w.OrderBy, ", "))
}

type ProjectSet struct {
	Srfs []Expr
}

func (*ProjectSet) Kind() OpKind { return KindProjectSet }

func (p *ProjectSet) Describe() string {
	return "ProjectSet: " + joinExprs(p.Srfs, ", ")
}

type UnionAll struct{}

func (*UnionAll) Kind() OpKind     { return KindUnionAll }
func (*UnionAll) Describe() string { return "UnionAll" }

type Exchange struct{}

func (*Exchange) Kind() OpKind     { return KindExchange }
func (*Exchange) Describe() string { return "Exchange" }

type Pattern struct{}

func (*Pattern) Kind() OpKind     { return KindPattern }
func (*Pattern) Describe() string { return "Pattern" }

type RuntimeFilterSource struct{}

func (*RuntimeFilterSource) Kind() OpKind     { return KindRuntimeFilterSource }
func (*RuntimeFilterSource) Describe() string { return "RuntimeFilterSource" }

type DummyTableScan struct{}

func (*DummyTableScan) Kind() OpKind     { return KindDummyTableScan }
func (*DummyTableScan) Describe() string { return "DummyTableScan" }

// CteScan reads the result of a materialized common table expression.
// TableIndex is the metadata table the scan's columns belong to.
type CteScan struct {
	CteIndex   int
	TableIndex int
	Rows       float64
}

func (*CteScan) Kind() OpKind { return KindCteScan }

func (c *CteScan) Describe() string {
	return fmt.Sprintf("CteScan: cte %d (#%d)", c.CteIndex, c.TableIndex)
}

// MaterializedCte computes its first child once and evaluates the second
// one, which may read the result through CteScan.
type MaterializedCte struct {
	CteIndex int
}

func (*MaterializedCte) Kind() OpKind { return KindMaterializedCte }

func (m *MaterializedCte) Describe() string {
	return fmt.Sprintf("MaterializedCte: cte %d", m.CteIndex)
}

func joinExprs(exprs []Expr, sep string) string {
	ss := make([]string, len(exprs))
	for i, e := range exprs {
		ss[i] = e.String()
	}
	return strings.Join(ss, sep)
}
