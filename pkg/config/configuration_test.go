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
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/dphyp/pkg/common/moerr"
)

func TestDefaultValues(t *testing.T) {
	op := NewOptimizerParameters()
	require.Equal(t, DefaultRelationThreshold, op.RelationThreshold)
	require.Equal(t, runtime.NumCPU(), op.MaxWorkers)
	require.Equal(t, 64, op.MaxPushdownRounds)
	require.True(t, op.EnableParallel)
	require.Equal(t, "info", op.Log.Level)
	require.NoError(t, op.Validate(context.Background()))
}

func TestLoadParameters(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	path := filepath.Join(dir, "optimizer.toml")
	content := `
relationThreshold = 6
enableParallel = false
maxWorkers = 3

[log]
level = "debug"
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	op, err := LoadParameters(ctx, path)
	require.NoError(t, err)
	require.Equal(t, 6, op.RelationThreshold)
	require.False(t, op.EnableParallel)
	require.Equal(t, 3, op.MaxWorkers)
	require.Equal(t, 64, op.MaxPushdownRounds)
	require.Equal(t, "debug", op.Log.Level)
	require.Equal(t, "json", op.Log.Format)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("relationThreshold = 1\n"), 0644))
	_, err = LoadParameters(ctx, bad)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))

	_, err = LoadParameters(ctx, filepath.Join(dir, "missing.toml"))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))
}
