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

package stages

import (
	"context"

	"github.com/docengine/aggpipe/internal/aggregations"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	aggregations.RegisterStage("$facet", newFacet)
}

// facetBranch is one named sub-pipeline of a $facet stage.
type facetBranch struct {
	name     string
	pipeline *types.Array
}

// facet implements $facet per spec.md §4.4: every branch runs independently
// over the same snapshot of the upstream sequence; results land under the
// branch's name as an array field in a single output document. Forbidden
// sub-stages ($out/$merge/$facet) are rejected at parse time by
// [aggregations.ParsePipeline], not here.
type facet struct {
	branches []facetBranch
	run      func(ctx context.Context, docs []*types.Document, pipeline *types.Array) ([]*types.Document, error)
}

func newFacet(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	doc, err := stageArgDocument("$facet", spec)
	if err != nil {
		return nil, err
	}

	if opts.Driver == nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrEnvironmentMissing, "$facet requires an active pipeline driver", "$facet",
		)
	}

	f := &facet{run: opts.Driver}

	for _, key := range doc.Keys() {
		v, _ := doc.Get(key)

		arr, ok := v.(*types.Array)
		if !ok {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageInvalidShape, "$facet's '"+key+"' must be an array of pipeline stages", "$facet",
			)
		}

		f.branches = append(f.branches, facetBranch{name: key, pipeline: arr})
	}

	return f, nil
}

// Process implements aggregations.Stage.
func (f *facet) Process(ctx context.Context, docs []*types.Document) ([]*types.Document, error) {
	nd := types.MakeDocument(len(f.branches))

	for _, b := range f.branches {
		snapshot := make([]*types.Document, len(docs))
		for i, d := range docs {
			snapshot[i] = d.DeepCopy()
		}

		result, err := f.run(ctx, snapshot, b.pipeline)
		if err != nil {
			return nil, err
		}

		out := types.MakeArray(len(result))
		for _, d := range result {
			if err := out.Append(d); err != nil {
				return nil, err
			}
		}

		if err := nd.Set(b.name, out); err != nil {
			return nil, err
		}
	}

	return []*types.Document{nd}, nil
}

var _ aggregations.Stage = (*facet)(nil)
