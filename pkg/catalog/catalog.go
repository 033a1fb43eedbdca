// Copyright 2021 - 2024 Matrix Origin
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

package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/matrixorigin/dphyp/pkg/common/moerr"
)

type ColDef struct {
	Name  string
	Stats *ColumnStats
}

type TableDef struct {
	Name     string
	Cols     []*ColDef
	RowCount float64

	name2ColIndex map[string]int
}

func NewTableDef(name string, rowCount float64, colNames ...string) *TableDef {
	def := &TableDef{
		Name:          name,
		RowCount:      rowCount,
		name2ColIndex: make(map[string]int, len(colNames)),
	}
	for _, col := range colNames {
		def.AddColumn(&ColDef{Name: col, Stats: NewColumnStats()})
	}
	return def
}

func (def *TableDef) AddColumn(col *ColDef) {
	if def.name2ColIndex == nil {
		def.name2ColIndex = make(map[string]int)
	}
	def.name2ColIndex[col.Name] = len(def.Cols)
	def.Cols = append(def.Cols, col)
}

// Column returns the column named name, or nil.
func (def *TableDef) Column(name string) *ColDef {
	if idx, ok := def.name2ColIndex[name]; ok {
		return def.Cols[idx]
	}
	return nil
}

// Catalog is an in-memory set of table definitions. It is safe for
// concurrent use.
type Catalog struct {
	sync.RWMutex
	tables map[string]*TableDef
}

func New() *Catalog {
	return &Catalog{tables: make(map[string]*TableDef)}
}

func (c *Catalog) AddTable(ctx context.Context, def *TableDef) error {
	c.Lock()
	defer c.Unlock()
	if _, ok := c.tables[def.Name]; ok {
		return moerr.NewInvalidInput(ctx, "table %s already exists", def.Name)
	}
	c.tables[def.Name] = def
	return nil
}

func (c *Catalog) GetTable(ctx context.Context, name string) (*TableDef, error) {
	c.RLock()
	defer c.RUnlock()
	def, ok := c.tables[name]
	if !ok {
		return nil, moerr.NewInvalidInput(ctx, "no such table %s", name)
	}
	return def, nil
}

func (c *Catalog) TableNames() []string {
	c.RLock()
	defer c.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
