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

package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/dphyp/pkg/catalog"
	"github.com/matrixorigin/dphyp/pkg/common/moerr"
	"github.com/matrixorigin/dphyp/pkg/sql/plan"
)

// Workload describes tables with their statistics and the queries to
// optimize over them.
type Workload struct {
	Tables  []TableConfig `toml:"table"`
	Queries []QueryConfig `toml:"query"`
}

type TableConfig struct {
	Name    string         `toml:"name"`
	Rows    float64        `toml:"rows"`
	Columns []ColumnConfig `toml:"column"`
}

type ColumnConfig struct {
	Name string `toml:"name"`
	// number of distinct values fed to the column statistics
	NDV int `toml:"ndv"`
}

// QueryConfig is a select-project-join query. Tables are joined in the
// listed order. A join is an equality between columns of two tables, a
// filter is a comparison of a column with a column or a constant.
type QueryConfig struct {
	Name    string   `toml:"name"`
	Tables  []string `toml:"tables"`
	Joins   []string `toml:"joins"`
	Filters []string `toml:"filters"`
}

func loadWorkload(ctx context.Context, path string) (*Workload, error) {
	w := &Workload{}
	if _, err := toml.DecodeFile(path, w); err != nil {
		return nil, moerr.NewBadConfig(ctx, "decode %s: %v", path, err)
	}
	return w, nil
}

// buildCatalog creates the table definitions. Column statistics get ndv
// distinct synthetic values each.
func (w *Workload) buildCatalog(ctx context.Context) (*catalog.Catalog, error) {
	c := catalog.New()
	for _, t := range w.Tables {
		def := catalog.NewTableDef(t.Name, t.Rows)
		for _, col := range t.Columns {
			stats := catalog.NewColumnStats()
			for v := 0; v < col.NDV; v++ {
				stats.Insert(strconv.AppendInt(nil, int64(v), 10))
			}
			def.AddColumn(&catalog.ColDef{Name: col.Name, Stats: stats})
		}
		if err := c.AddTable(ctx, def); err != nil {
			return nil, err
		}
	}
	return c, nil
}

var comparisons = map[string]string{
	"=":  "eq",
	"<>": "ne",
	"<":  "lt",
	"<=": "le",
	">":  "gt",
	">=": "ge",
}

// buildPlan registers the tables of q in a fresh metadata and returns the
// left-deep plan of q. Every join condition and every multi-table filter is
// attached to the lowest join covering its tables, single-table filters sit
// on their scan.
func buildPlan(ctx context.Context, c *catalog.Catalog, q QueryConfig) (*plan.Metadata, *plan.Node, error) {
	if len(q.Tables) == 0 {
		return nil, nil, moerr.NewInvalidInput(ctx, "query %s has no table", q.Name)
	}
	md := plan.NewMetadata()
	position := make(map[int]int, len(q.Tables))
	scans := make([]*plan.Node, len(q.Tables))
	for i, name := range q.Tables {
		def, err := c.GetTable(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		idx := md.AddTable(name, def)
		position[idx] = i
		scans[i] = plan.NewScan(idx, name)
	}

	// the position of the last table an expression reads
	lastTable := func(e plan.Expr) (int, error) {
		used, err := md.UsedTables(ctx, e)
		if err != nil {
			return 0, err
		}
		if used.IsEmpty() {
			return -1, nil
		}
		last := -1
		it := used.Iterator()
		for it.HasNext() {
			if p := position[int(it.Next())]; p > last {
				last = p
			}
		}
		return last, nil
	}

	equi := make([][]plan.JoinCondition, len(q.Tables))
	nonEqui := make([][]plan.Expr, len(q.Tables))
	for _, text := range q.Joins {
		pred, err := parsePredicate(ctx, md, text)
		if err != nil {
			return nil, nil, err
		}
		l, r, ok := plan.SplitEquality(pred)
		if !ok {
			return nil, nil, moerr.NewInvalidInput(ctx, "join %q is not an equality", text)
		}
		ll, err := lastTable(l)
		if err != nil {
			return nil, nil, err
		}
		rl, err := lastTable(r)
		if err != nil {
			return nil, nil, err
		}
		if ll < 0 || rl < 0 || ll == rl {
			return nil, nil, moerr.NewInvalidInput(ctx, "join %q does not connect two tables", text)
		}
		cond := plan.JoinCondition{Left: l, Right: r}
		if ll > rl {
			cond = cond.Swap()
			rl = ll
		}
		equi[rl] = append(equi[rl], cond)
	}

	for _, text := range q.Filters {
		pred, err := parsePredicate(ctx, md, text)
		if err != nil {
			return nil, nil, err
		}
		used, err := md.UsedTables(ctx, pred)
		if err != nil {
			return nil, nil, err
		}
		last, err := lastTable(pred)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case last < 0:
			return nil, nil, moerr.NewInvalidInput(ctx, "filter %q reads no table", text)
		case used.GetCardinality() == 1:
			scans[last] = plan.NewFilter(scans[last], pred)
		default:
			nonEqui[last] = append(nonEqui[last], pred)
		}
	}

	root := scans[0]
	for i := 1; i < len(scans); i++ {
		joinType := plan.JoinInner
		if len(equi[i]) == 0 && len(nonEqui[i]) == 0 {
			joinType = plan.JoinCross
		}
		root = plan.NewNode(&plan.Join{
			JoinType:          joinType,
			EquiConditions:    equi[i],
			NonEquiConditions: nonEqui[i],
		}, root, scans[i])
	}
	return md, root, nil
}

// parsePredicate reads "<operand> <comparison> <operand>" where an operand
// is table.column, an integer or a single-quoted string.
func parsePredicate(ctx context.Context, md *plan.Metadata, text string) (plan.Expr, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return nil, moerr.NewInvalidInput(ctx, "cannot parse predicate %q", text)
	}
	fn, ok := comparisons[fields[1]]
	if !ok {
		return nil, moerr.NewInvalidInput(ctx, "unknown comparison %s in %q", fields[1], text)
	}
	l, err := parseOperand(ctx, md, fields[0])
	if err != nil {
		return nil, err
	}
	r, err := parseOperand(ctx, md, fields[2])
	if err != nil {
		return nil, err
	}
	return plan.NewFunctionCall(fn, l, r), nil
}

func parseOperand(ctx context.Context, md *plan.Metadata, text string) (plan.Expr, error) {
	if len(text) >= 2 && text[0] == '\'' && text[len(text)-1] == '\'' {
		return plan.NewConstant(text[1 : len(text)-1]), nil
	}
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return plan.NewConstant(v), nil
	}
	table, column, ok := strings.Cut(text, ".")
	if !ok {
		return nil, moerr.NewInvalidInput(ctx, "cannot parse operand %q", text)
	}
	return md.ColumnRef(ctx, table, column)
}
