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

package moerr

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMoErrCode(t *testing.T) {
	ctx := context.Background()
	require.True(t, IsMoErrCode(nil, Ok))
	require.False(t, IsMoErrCode(nil, ErrInternal))
	require.True(t, IsMoErrCode(NewInvalidState(ctx, "bad node %d", 1), ErrInvalidState))
	require.False(t, IsMoErrCode(errors.New("plain"), ErrInternal))
	require.Equal(t, "invalid state bad node 1", NewInvalidState(ctx, "bad node %d", 1).Error())
}

func TestConvertPanicError(t *testing.T) {
	ctx := context.Background()
	orig := NewNotSupported(ctx, "x")
	require.Same(t, orig, ConvertPanicError(ctx, orig))

	err := ConvertPanicError(ctx, "boom")
	require.True(t, IsMoErrCode(err, ErrInternal))
	require.Contains(t, err.Error(), "boom")
	require.NotEmpty(t, err.Detail())
	require.Contains(t, err.Display(), "boom")
}

func TestConvertGoError(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, ConvertGoError(ctx, nil))

	orig := NewBadConfig(ctx, "x")
	require.Equal(t, error(orig), ConvertGoError(ctx, orig))

	err := ConvertGoError(ctx, io.EOF)
	require.True(t, IsMoErrCode(err, ErrInternal))
	require.ErrorIs(t, err, io.EOF)
}

func TestJoinReorderWorker(t *testing.T) {
	ctx := context.Background()
	cause := NewEstimateFailed(ctx, "no stats for %s", "t1")
	err := NewJoinReorderWorker(ctx, cause)
	require.True(t, IsMoErrCode(err, ErrJoinReorderWorker))
	require.Equal(t, "join reorder worker failed: cardinality estimation failed: no stats for t1", err.Error())

	var inner *Error
	require.True(t, errors.As(errors.Unwrap(err), &inner))
	require.Equal(t, ErrEstimateFailed, inner.ErrorCode())
	require.Equal(t, ErrEstimateFailed, DowncastError(errors.Unwrap(err)).ErrorCode())
}
