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

// dphyp-explain reorders the joins of the queries of a workload file and
// prints the resulting plans.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/matrixorigin/dphyp/pkg/common/concurrent"
	"github.com/matrixorigin/dphyp/pkg/config"
	"github.com/matrixorigin/dphyp/pkg/logutil"
	"github.com/matrixorigin/dphyp/pkg/sql/plan"
	"github.com/matrixorigin/dphyp/pkg/sql/plan/dphyp"
	"github.com/matrixorigin/dphyp/pkg/sql/plan/stats"
	v2 "github.com/matrixorigin/dphyp/pkg/util/metric/v2"
)

var (
	configFile   = flag.String("cfg", "", "toml configuration of the optimizer, defaults are used when empty")
	workloadFile = flag.String("workload", "./workload.toml", "toml file with the tables and queries to optimize")
	showMetrics  = flag.Bool("metrics", false, "print the join reorder metrics after the plans")
)

func main() {
	flag.Parse()

	ctx := context.Background()
	params, err := loadParameters(ctx, *configFile)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config from %s, error: %s", *configFile, err.Error()))
	}
	setupLogger(params)

	if err := run(ctx, params, *workloadFile, os.Stdout); err != nil {
		logutil.Error("dphyp-explain failed", zap.Error(err))
		os.Exit(1)
	}
	if *showMetrics {
		if err := printMetrics(os.Stdout); err != nil {
			logutil.Error("gather metrics failed", zap.Error(err))
			os.Exit(1)
		}
	}
}

func loadParameters(ctx context.Context, path string) (*config.OptimizerParameters, error) {
	if path == "" {
		return config.NewOptimizerParameters(), nil
	}
	return config.LoadParameters(ctx, path)
}

func setupLogger(params *config.OptimizerParameters) {
	logutil.SetupMOLogger(&params.Log)
}

type result struct {
	plan      *plan.Node
	optimized bool
	stats     dphyp.Stats
}

// run optimizes every query of the workload, several queries at a time, and
// writes the plans in workload order.
func run(ctx context.Context, params *config.OptimizerParameters, path string, w io.Writer) error {
	workload, err := loadWorkload(ctx, path)
	if err != nil {
		return err
	}
	cat, err := workload.buildCatalog(ctx)
	if err != nil {
		return err
	}

	var pool *concurrent.Pool
	if params.EnableParallel {
		pool, err = concurrent.NewPool(params.MaxWorkers)
		if err != nil {
			return err
		}
		defer func() {
			if err := pool.Close(); err != nil {
				logutil.Warn("close worker pool failed", zap.Error(err))
			}
		}()
	}

	results := make([]result, len(workload.Queries))
	executor := concurrent.NewThreadPoolExecutor(params.MaxWorkers)
	err = executor.Execute(ctx, len(workload.Queries), func(ctx context.Context, _ int, start, end int) error {
		for i := start; i < end; i++ {
			q := workload.Queries[i]
			md, root, err := buildPlan(ctx, cat, q)
			if err != nil {
				return err
			}
			d := dphyp.New(md, stats.NewEstimator(md), params, pool)
			out, ok, err := d.Optimize(ctx, root)
			if err != nil {
				return err
			}
			results[i] = result{plan: out, optimized: ok, stats: d.Stats()}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i, q := range workload.Queries {
		if err := writeResult(w, q.Name, results[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeResult(w io.Writer, name string, r result) error {
	var header string
	if r.optimized {
		header = fmt.Sprintf("%s: cost=%.2f relations=%d csg-cmp-pairs=%d\n",
			name, r.stats.Cost, r.stats.Relations, r.stats.CsgCmpPairs)
	} else {
		header = fmt.Sprintf("%s: not reordered\n", name)
	}
	_, err := io.WriteString(w, header+plan.Explain(r.plan)+"\n")
	return err
}

func printMetrics(w io.Writer) error {
	families, err := v2.GetPrometheusGatherer().Gather()
	if err != nil {
		return err
	}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			var value string
			switch {
			case m.GetCounter() != nil:
				value = fmt.Sprintf("%g", m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				value = fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum())
			default:
				continue
			}
			if _, err := fmt.Fprintf(w, "%s{%s} %s\n", f.GetName(), strings.Join(labels, ","), value); err != nil {
				return err
			}
		}
	}
	return nil
}
