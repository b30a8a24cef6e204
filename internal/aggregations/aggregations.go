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

// Package aggregations implements the aggregation pipeline execution engine:
// the expression evaluator, the stage registry, and the pipeline driver.
// Concrete stages live in the stages subpackage and register themselves here
// through [RegisterStage], mirroring the teacher's own stage-registry split
// between this package and its stages subpackage.
package aggregations

import (
	"context"
	"fmt"
	"time"

	"github.com/docengine/aggpipe/internal/aggregations/metrics"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/provider"
	"github.com/docengine/aggpipe/internal/types"
	"go.uber.org/zap"
)

// Stage is a single pipeline step: it consumes the full, already-materialized
// document sequence produced by the previous stage and produces the next one.
type Stage interface {
	Process(ctx context.Context, docs []*types.Document) ([]*types.Document, error)
}

// StageConstructor builds a Stage from its raw spec value (the value side of
// the stage's single `$name` key) and the shared pipeline options.
type StageConstructor func(spec any, opts *Options) (Stage, error)

// Options is the per-pipeline execution context threaded through every stage
// constructor: spec.md §3's "Execution Context".
type Options struct {
	// Now is the wall-clock timestamp captured once per aggregate() call; every
	// $$NOW reference within the same pipeline resolves to this value.
	Now time.Time

	// Provider is the external collection provider (§6); nil if the pipeline
	// never reaches a cross-collection stage.
	Provider provider.CollectionProvider

	// Matcher is the external filter-matching black box consumed by $match
	// and $graphLookup.restrictSearchWithMatch.
	Matcher provider.FilterMatcher

	// Logger is never nil; construction sites replace a nil logger with zap.NewNop().
	Logger *zap.Logger

	// Metrics records stage/run counters and latencies; nil disables metrics.
	Metrics *metrics.Metrics

	// Driver recurses into sub-pipelines for $facet and $unionWith. It is
	// always set by [Run]; stage constructors never construct one themselves.
	Driver func(ctx context.Context, docs []*types.Document, pipeline *types.Array) ([]*types.Document, error)
}

var registry = map[string]StageConstructor{}

// RegisterStage adds name (including its leading "$") to the stage registry.
// Stage implementations call this from an init() func.
func RegisterStage(name string, ctor StageConstructor) {
	if _, ok := registry[name]; ok {
		panic("aggregations: stage " + name + " registered twice")
	}

	registry[name] = ctor
}

// NewStage looks up name in the registry and constructs a Stage from spec.
func NewStage(name string, spec any, opts *Options) (Stage, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageUnknown,
			fmt.Sprintf("Unrecognized pipeline stage name: '%s'", name),
			name,
		)
	}

	return ctor(spec, opts)
}

// KnownStage reports whether name is a registered stage, used by validation
// that must distinguish "unknown stage" from "forbidden stage here".
func KnownStage(name string) bool {
	_, ok := registry[name]
	return ok
}
