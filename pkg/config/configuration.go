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

package config

import (
	"context"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/dphyp/pkg/common/moerr"
	"github.com/matrixorigin/dphyp/pkg/logutil"
)

const (
	// DefaultRelationThreshold is the relation count from which the csg
	// enumeration only follows the first |S| neighbors of a subgraph S.
	DefaultRelationThreshold = 10

	defaultMaxPushdownRounds = 64
)

// OptimizerParameters of the join reorder optimizer
type OptimizerParameters struct {
	//default is 10. the relation count at which neighbor exploration is truncated
	RelationThreshold int `toml:"relationThreshold"`

	//default is true. optimize independent sub-plans on the worker pool
	EnableParallel bool `toml:"enableParallel"`

	//default is the number of cpus. the size of the worker pool
	MaxWorkers int `toml:"maxWorkers"`

	//default is 64. the maximum rewrite rounds of the filter push down
	MaxPushdownRounds int `toml:"maxPushdownRounds"`

	Log logutil.LogConfig `toml:"log"`
}

// NewOptimizerParameters returns parameters filled with default values.
func NewOptimizerParameters() *OptimizerParameters {
	op := &OptimizerParameters{EnableParallel: true}
	op.SetDefaultValues()
	return op
}

// SetDefaultValues fills the zero fields with default values.
func (op *OptimizerParameters) SetDefaultValues() {
	if op.RelationThreshold == 0 {
		op.RelationThreshold = DefaultRelationThreshold
	}

	if op.MaxWorkers == 0 {
		op.MaxWorkers = runtime.NumCPU()
	}

	if op.MaxPushdownRounds == 0 {
		op.MaxPushdownRounds = defaultMaxPushdownRounds
	}

	op.Log.Adjust()
}

func (op *OptimizerParameters) Validate(ctx context.Context) error {
	if op.RelationThreshold < 2 {
		return moerr.NewBadConfig(ctx, "relationThreshold %d should be at least 2", op.RelationThreshold)
	}
	if op.MaxWorkers < 1 {
		return moerr.NewBadConfig(ctx, "maxWorkers %d should be positive", op.MaxWorkers)
	}
	if op.MaxPushdownRounds < 1 {
		return moerr.NewBadConfig(ctx, "maxPushdownRounds %d should be positive", op.MaxPushdownRounds)
	}
	return nil
}

// LoadParameters reads the parameters from a toml file. Keys missing from
// the file keep their default values.
func LoadParameters(ctx context.Context, path string) (*OptimizerParameters, error) {
	op := &OptimizerParameters{EnableParallel: true}
	if _, err := toml.DecodeFile(path, op); err != nil {
		return nil, moerr.NewBadConfig(ctx, "decode %s: %v", path, err)
	}
	op.SetDefaultValues()
	if err := op.Validate(ctx); err != nil {
		return nil, err
	}
	return op, nil
}
