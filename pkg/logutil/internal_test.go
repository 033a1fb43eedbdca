// Copyright 2022 - 2024 Matrix Origin
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

package logutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matrixorigin/dphyp/pkg/common/moerr"
)

func TestLogConfig_getter(t *testing.T) {
	type fields struct {
		Level    string
		Format   string
		Filename string

		Entry zapcore.Entry
	}
	tests := []struct {
		name        string
		fields      fields
		wantLevel   zap.AtomicLevel
		wantOpts    []zap.Option
		wantSyncer  zapcore.WriteSyncer
		wantEncoder zapcore.Encoder
	}{
		{
			name: "normal",
			fields: fields{
				Level:    "debug",
				Format:   "console",
				Filename: "",

				Entry: zapcore.Entry{Level: zapcore.DebugLevel, Message: "console msg"},
			},
			wantLevel:   zap.NewAtomicLevelAt(zap.DebugLevel),
			wantOpts:    []zap.Option{zap.AddStacktrace(zapcore.FatalLevel), zap.AddCaller()},
			wantSyncer:  getConsoleSyncer(),
			wantEncoder: getLoggerEncoder("console"),
		},
		{
			name: "json",
			fields: fields{
				Level:    "warn",
				Format:   "json",
				Filename: "",

				Entry: zapcore.Entry{Level: zapcore.WarnLevel, Message: "json msg"},
			},
			wantLevel:   zap.NewAtomicLevelAt(zap.WarnLevel),
			wantOpts:    []zap.Option{zap.AddStacktrace(zapcore.FatalLevel), zap.AddCaller()},
			wantSyncer:  getConsoleSyncer(),
			wantEncoder: getLoggerEncoder("json"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &LogConfig{
				Level:    tt.fields.Level,
				Format:   tt.fields.Format,
				Filename: tt.fields.Filename,

				DisableStore: true,
			}
			require.Equal(t, tt.wantLevel.Level(), cfg.getLevel().Level())
			require.Equal(t, len(tt.wantOpts), len(cfg.getOptions()))
			require.Equal(t, tt.wantSyncer, cfg.getSyncer())
			wantMsg, _ := tt.wantEncoder.EncodeEntry(tt.fields.Entry, nil)
			gotMsg, _ := cfg.getEncoder().EncodeEntry(tt.fields.Entry, nil)
			require.Equal(t, wantMsg.String(), gotMsg.String())
			require.Equal(t, 1, len(cfg.getSinks()))
		})
	}
}

func TestSetupMOLogger(t *testing.T) {
	defer SetupMOLogger(&LogConfig{Level: "info", Format: "console"})
	tests := []struct {
		name string
		conf *LogConfig
	}{
		{
			name: "console",
			conf: &LogConfig{
				Level:           zapcore.DebugLevel.String(),
				Format:          "console",
				DisableStore:    true,
				StacktraceLevel: "panic",
			},
		},
		{
			name: "json",
			conf: &LogConfig{
				Level:           zapcore.DebugLevel.String(),
				Format:          "json",
				DisableStore:    true,
				StacktraceLevel: "error",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetupMOLogger(tt.conf)
			require.True(t, GetGlobalLogger().Core().Enabled(zapcore.DebugLevel))
		})
	}
}

func TestSetupMOLogger_panic(t *testing.T) {
	conf := &LogConfig{
		Level:  zapcore.DebugLevel.String(),
		Format: "panic",
	}
	defer func() {
		if err := recover(); err != nil {
			require.Equal(t, moerr.NewInternalError(context.TODO(), "unsupported log format: %s", conf.Format), err)
		} else {
			t.Errorf("not receive panic")
		}
	}()
	SetupMOLogger(conf)
}

func TestLogConfig_Adjust(t *testing.T) {
	cfg := &LogConfig{}
	cfg.Adjust()
	require.Equal(t, "info", cfg.Level)
	require.Equal(t, "console", cfg.Format)
	require.Equal(t, 512, cfg.MaxSize)
}

func TestContextFields(t *testing.T) {
	ctx := WithOptimizeID(context.Background(), "abc")
	require.NotNil(t, ContextFields()(ctx))
	require.NotNil(t, ContextFields()(context.Background()))
}
