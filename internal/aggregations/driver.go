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

package aggregations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/docengine/aggpipe/internal/aggregations/metrics"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/provider"
	"github.com/docengine/aggpipe/internal/types"
)

var tracer = otel.Tracer("github.com/docengine/aggpipe/internal/aggregations")

// Pipeline is a validated, ordered sequence of stage specs ready to run
// (spec.md §3's "Pipeline"): each element is a one-key stage object.
type Pipeline struct {
	names []string
	specs []any
}

// SourceFunc produces the pipeline's input document sequence (spec.md §3's
// data flow): either a collection scan or, when the pipeline begins with
// $documents, an unused callback (ParsePipeline detects that case itself).
type SourceFunc func(ctx context.Context) ([]*types.Document, error)

// ParsePipeline validates raw (an array of one-key stage objects) against
// spec.md §3's invariants and wraps it for [Run]: stage objects must have
// exactly one key, $out and $merge may only be final, $documents may only be
// first.
func ParsePipeline(raw *types.Array) (*Pipeline, error) {
	n := raw.Len()

	p := &Pipeline{names: make([]string, n), specs: make([]any, n)}

	for i, v := range raw.Slice() {
		doc, ok := v.(*types.Document)
		if !ok || doc.Len() != 1 {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageInvalidShape,
				"a pipeline stage specification object must contain exactly one field",
				"aggregate",
			)
		}

		name := doc.Command()
		if !KnownStage(name) {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageUnknown,
				"Unrecognized pipeline stage name: '"+name+"'",
				name,
			)
		}

		if (name == "$out" || name == "$merge") && i != n-1 {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageOutNotLast,
				name+" can only be the final stage in the pipeline",
				name,
			)
		}

		if name == "$documents" && i != 0 {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageDocumentsNotFirst,
				"$documents can only be the first stage in the pipeline",
				name,
			)
		}

		spec, _ := doc.Get(name)
		p.names[i] = name
		p.specs[i] = spec
	}

	if err := validateFacets(p); err != nil {
		return nil, err
	}

	return p, nil
}

// validateFacets enforces spec.md §3's "$facet sub-pipelines may not contain
// $out, $merge, or $facet", recursing into every $facet branch.
func validateFacets(p *Pipeline) error {
	for i, name := range p.names {
		if name != "$facet" {
			continue
		}

		spec, ok := p.specs[i].(*types.Document)
		if !ok {
			return handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageInvalidShape, "$facet stage specification must be an object", "$facet",
			)
		}

		for _, key := range spec.Keys() {
			v, _ := spec.Get(key)

			arr, ok := v.(*types.Array)
			if !ok {
				return handlererrors.NewCommandErrorMsgWithArgument(
					handlererrors.ErrStageInvalidShape,
					"$facet's '"+key+"' must be an array of pipeline stages", "$facet",
				)
			}

			sub, err := ParsePipeline(arr)
			if err != nil {
				return err
			}

			for _, subName := range sub.names {
				switch subName {
				case "$out", "$merge", "$facet":
					return handlererrors.NewCommandErrorMsgWithArgument(
						handlererrors.ErrFacetForbiddenStage,
						subName+" is not allowed within a $facet sub-pipeline",
						"$facet",
					)
				}
			}
		}
	}

	return nil
}

// RunOptions configures one [Run] call.
type RunOptions struct {
	Provider provider.CollectionProvider
	Matcher  provider.FilterMatcher
	Logger   *zap.Logger
	Metrics  *Metrics
	Comment  string // optional trace-propagation comment, spec.md §6

	// Now pins $$NOW for this run; zero means "capture time.Now().UTC() at
	// the top of this call". Run always threads its own resolved Now into
	// the RunOptions it passes to a recursive $facet/$unionWith sub-pipeline
	// call, so every document within one top-level aggregate() sees the same
	// $$NOW (spec.md §3/§8), rather than each sub-pipeline capturing its own.
	Now time.Time
}

// Metrics is a re-export of the metrics collector type, so callers of this
// package need not import the metrics subpackage directly.
type Metrics = metrics.Metrics

// Run executes a parsed pipeline against source per spec.md §3/§5: NOW is
// captured once, stages are applied strictly left-to-right, and each stage
// fully materializes before the next begins.
func Run(ctx context.Context, source SourceFunc, p *Pipeline, opts RunOptions) ([]*types.Document, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	runID := uuid.New()
	logger = logger.With(zap.Stringer("run_id", runID))

	parentCtx := ctx
	if sc := traceContextFromComment(opts.Comment); sc.IsValid() {
		parentCtx = trace.ContextWithSpanContext(ctx, sc)
	}

	ctx, span := tracer.Start(parentCtx, "aggregate", trace.WithAttributes(
		attribute.String("run_id", runID.String()),
		attribute.Int("stages", len(p.names)),
	))
	defer span.End()

	if opts.Metrics != nil {
		opts.Metrics.ObserveRun()
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	opts.Now = now

	var docs []*types.Document
	var err error

	start := 0

	if len(p.names) > 0 && p.names[0] == "$documents" {
		stage, serr := NewStage("$documents", p.specs[0], &Options{Now: now, Logger: logger})
		if serr != nil {
			return nil, serr
		}

		docs, err = stage.Process(ctx, nil)
		if err != nil {
			return nil, err
		}

		start = 1
	} else {
		docs, err = source(ctx)
		if err != nil {
			return nil, err
		}
	}

	stageOpts := &Options{
		Now:      now,
		Provider: opts.Provider,
		Matcher:  opts.Matcher,
		Logger:   logger,
		Metrics:  opts.Metrics,
	}

	stageOpts.Driver = func(ctx context.Context, docs []*types.Document, pipeline *types.Array) ([]*types.Document, error) {
		sub, err := ParsePipeline(pipeline)
		if err != nil {
			return nil, err
		}

		return Run(ctx, func(context.Context) ([]*types.Document, error) { return docs, nil }, sub, opts)
	}

	for i := start; i < len(p.names); i++ {
		name := p.names[i]

		stage, serr := NewStage(name, p.specs[i], stageOpts)
		if serr != nil {
			return nil, serr
		}

		_, stageSpan := tracer.Start(ctx, name)

		t0 := time.Now()
		docs, err = stage.Process(ctx, docs)
		d := time.Since(t0)

		stageSpan.End()

		if opts.Metrics != nil {
			opts.Metrics.ObserveStage(name, d, err)
		}

		logger.Debug("stage executed", zap.String("stage", name), zap.Duration("duration", d), zap.Int("docs", len(docs)), zap.Error(err))

		if err != nil {
			return nil, err
		}
	}

	return docs, nil
}
