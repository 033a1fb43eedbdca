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
	"context"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/matrixorigin/dphyp/pkg/catalog"
	"github.com/matrixorigin/dphyp/pkg/common/moerr"
)

// DerivedTableIndex is the table index of columns computed by an operator
// rather than read from a table.
const DerivedTableIndex = -1

type TableEntry struct {
	Index int
	// Alias is the name the query uses for the table.
	Alias string
	Def   *catalog.TableDef
}

type ColumnEntry struct {
	Index      int
	Name       string
	TableIndex int
	// Def is nil for derived columns.
	Def *catalog.ColDef
}

// Metadata records the tables and columns a query references. It is
// filled while a plan is being built and only read by the optimizer.
type Metadata struct {
	sync.RWMutex
	tables  []*TableEntry
	columns []*ColumnEntry
	// alias -> column name -> column index
	lookup map[string]map[string]int
}

func NewMetadata() *Metadata {
	return &Metadata{lookup: make(map[string]map[string]int)}
}

// AddTable registers a table and all the columns of its definition. The
// returned index is the table index used by Scan.
func (md *Metadata) AddTable(alias string, def *catalog.TableDef) int {
	md.Lock()
	defer md.Unlock()
	idx := len(md.tables)
	md.tables = append(md.tables, &TableEntry{Index: idx, Alias: alias, Def: def})
	cols := make(map[string]int)
	md.lookup[alias] = cols
	if def != nil {
		for _, col := range def.Cols {
			cols[col.Name] = md.addColumnLocked(alias+"."+col.Name, idx, col)
		}
	}
	return idx
}

func (md *Metadata) AddDerivedColumn(name string) int {
	md.Lock()
	defer md.Unlock()
	return md.addColumnLocked(name, DerivedTableIndex, nil)
}

func (md *Metadata) addColumnLocked(name string, tableIndex int, def *catalog.ColDef) int {
	idx := len(md.columns)
	md.columns = append(md.columns, &ColumnEntry{
		Index:      idx,
		Name:       name,
		TableIndex: tableIndex,
		Def:        def,
	})
	return idx
}

func (md *Metadata) Table(ctx context.Context, idx int) (*TableEntry, error) {
	md.RLock()
	defer md.RUnlock()
	if idx < 0 || idx >= len(md.tables) {
		return nil, moerr.NewInvalidInput(ctx, "table index %d out of range", idx)
	}
	return md.tables[idx], nil
}

func (md *Metadata) Column(ctx context.Context, idx int) (*ColumnEntry, error) {
	md.RLock()
	defer md.RUnlock()
	if idx < 0 || idx >= len(md.columns) {
		return nil, moerr.NewInvalidInput(ctx, "column index %d out of range", idx)
	}
	return md.columns[idx], nil
}

// ColumnRef returns a reference to column name of the table registered as
// alias.
func (md *Metadata) ColumnRef(ctx context.Context, alias, name string) (*ColumnRef, error) {
	md.RLock()
	defer md.RUnlock()
	cols, ok := md.lookup[alias]
	if !ok {
		return nil, moerr.NewInvalidInput(ctx, "unknown table %s", alias)
	}
	idx, ok := cols[name]
	if !ok {
		return nil, moerr.NewInvalidInput(ctx, "unknown column %s.%s", alias, name)
	}
	return NewColumnRef(idx, md.columns[idx].Name), nil
}

func (md *Metadata) NumTables() int {
	md.RLock()
	defer md.RUnlock()
	return len(md.tables)
}

// UsedTables returns the indexes of the tables whose columns e reads.
// Derived columns contribute nothing.
func (md *Metadata) UsedTables(ctx context.Context, e Expr) (*roaring.Bitmap, error) {
	md.RLock()
	defer md.RUnlock()
	ret := roaring.New()
	var err error
	WalkColumns(e, func(col *ColumnRef) {
		if err != nil {
			return
		}
		if col.Index < 0 || col.Index >= len(md.columns) {
			err = moerr.NewInvalidInput(ctx, "column index %d out of range", col.Index)
			return
		}
		if t := md.columns[col.Index].TableIndex; t != DerivedTableIndex {
			ret.Add(uint32(t))
		}
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
