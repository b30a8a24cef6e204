// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package aggpipe is an embeddable, MongoDB-compatible aggregation pipeline
// execution engine (spec.md §1): given a source document sequence and a
// pipeline of stage objects, it runs the expression evaluator, accumulators,
// window functions and stage executors defined under internal/aggregations
// and returns the resulting sequence through a [Cursor].
//
// Storage and filter matching are external collaborators (spec.md §6); a
// reference SQLite-backed [provider.CollectionProvider] lives in
// internal/store/sqlitestore for cmd/aggrun and tests, but embedders are
// expected to supply their own.
package aggpipe

import (
	"context"

	"go.uber.org/zap"

	"github.com/docengine/aggpipe/internal/aggregations"
	_ "github.com/docengine/aggpipe/internal/aggregations/stages" // registers every stage executor
	"github.com/docengine/aggpipe/internal/provider"
	"github.com/docengine/aggpipe/internal/types"
)

// SourceFunc produces a pipeline's input document sequence, e.g. a
// collection scan. It is not called at all when the pipeline begins with
// $documents (SPEC_FULL.md §4.7).
type SourceFunc func(ctx context.Context) ([]*types.Document, error)

// Options configures one [Aggregate] call.
type Options struct {
	// Provider is the collection provider consumed by $lookup, $graphLookup,
	// $unionWith, $out/$merge. Nil if the pipeline never reaches one of them.
	Provider provider.CollectionProvider

	// Matcher is the filter-matching predicate consumed by $match and
	// $graphLookup.restrictSearchWithMatch.
	Matcher provider.FilterMatcher

	// Logger receives structured per-stage execution logs; nil becomes
	// [zap.NewNop].
	Logger *zap.Logger

	// Metrics records Prometheus counters/histograms for this run, shared
	// across calls so they accumulate; nil disables metrics entirely.
	Metrics *aggregations.Metrics

	// Comment optionally carries a W3C trace-context JSON payload
	// ({"traceparent": "...", "tracestate": "..."}) so this run's span can
	// be linked to an upstream caller's trace.
	Comment string
}

// Cursor is the materialized result of one [Aggregate] call (spec.md §6's
// driver surface). This engine has no streaming cursor protocol of its own
// (explicitly a Non-goal); ToArray always returns the full result at once.
type Cursor struct {
	docs []*types.Document
}

// ToArray returns every document produced by the pipeline.
func (c *Cursor) ToArray() []*types.Document {
	return c.docs
}

// Aggregate runs pipeline (an array of one-key stage objects, per spec.md
// §3) against source and returns a [Cursor] over the result.
//
// NOW (every $$NOW reference within the run) is captured once, at the start
// of this call, per spec.md §3's Execution Context/Lifecycle.
func Aggregate(ctx context.Context, source SourceFunc, pipeline *types.Array, opts Options) (*Cursor, error) {
	p, err := aggregations.ParsePipeline(pipeline)
	if err != nil {
		return nil, err
	}

	docs, err := aggregations.Run(ctx, aggregations.SourceFunc(source), p, aggregations.RunOptions{
		Provider: opts.Provider,
		Matcher:  opts.Matcher,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
		Comment:  opts.Comment,
	})
	if err != nil {
		return nil, err
	}

	return &Cursor{docs: docs}, nil
}
