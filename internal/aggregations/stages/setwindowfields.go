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
	"time"

	"github.com/docengine/aggpipe/internal/aggregations"
	"github.com/docengine/aggpipe/internal/aggregations/partition"
	"github.com/docengine/aggpipe/internal/aggregations/window"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	aggregations.RegisterStage("$setWindowFields", newSetWindowFields)
}

// setWindowFieldsOutput is one output field's parsed window spec plus its
// destination path.
type setWindowFieldsOutput struct {
	path   types.Path
	output window.Output
}

// setWindowFields implements $setWindowFields per spec.md §4.4/§4.6.
type setWindowFields struct {
	partitionBy *aggregations.Expression
	sortSpecs   []partition.SortSpec
	outputs     []setWindowFieldsOutput
	now         time.Time
}

func newSetWindowFields(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	doc, err := stageArgDocument("$setWindowFields", spec)
	if err != nil {
		return nil, err
	}

	s := &setWindowFields{now: opts.Now}

	if v, err := doc.Get("partitionBy"); err == nil {
		s.partitionBy = aggregations.NewExpression(v)
	}

	if v, err := doc.Get("sortBy"); err == nil {
		sd, ok := v.(*types.Document)
		if !ok {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageInvalidShape, "$setWindowFields's 'sortBy' must be an object", "$setWindowFields",
			)
		}

		specs, serr := partition.ParseSortSpec(sd)
		if serr != nil {
			return nil, serr
		}

		s.sortSpecs = specs
	}

	outDoc, err := doc.Get("output")
	if err != nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, "$setWindowFields requires an 'output' field", "$setWindowFields",
		)
	}

	od, ok := outDoc.(*types.Document)
	if !ok {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, "$setWindowFields's 'output' must be an object", "$setWindowFields",
		)
	}

	for _, key := range od.Keys() {
		raw, _ := od.Get(key)

		spec, ok := raw.(*types.Document)
		if !ok {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageInvalidShape, "$setWindowFields output field must be an object", "$setWindowFields",
			)
		}

		parsed, perr := window.ParseOutput(spec)
		if perr != nil {
			return nil, perr
		}

		path, perr2 := types.NewPathFromString(key)
		if perr2 != nil {
			return nil, perr2
		}

		s.outputs = append(s.outputs, setWindowFieldsOutput{path: path, output: parsed})
	}

	return s, nil
}

// Process implements aggregations.Stage.
func (s *setWindowFields) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	vars := aggregations.NewSystemVariables(s.now, nil)

	var groups []partition.Group
	var err error

	switch {
	case s.partitionBy != nil:
		groups, err = partition.ByExpression(docs, s.partitionBy, vars)
	default:
		groups = []partition.Group{{Docs: docs}}
	}

	if err != nil {
		return nil, err
	}

	out := make([]*types.Document, 0, len(docs))

	for _, g := range groups {
		part := g.Docs
		if len(s.sortSpecs) > 0 {
			part = partition.Sort(part, s.sortSpecs)
		}

		result := make([]*types.Document, len(part))
		for i, doc := range part {
			result[i] = doc.DeepCopy()
		}

		for _, o := range s.outputs {
			for i := range result {
				val, err := window.Dispatch(result, i, o.output, s.sortSpecs, vars)
				if err != nil {
					return nil, err
				}

				if err := result[i].SetByPath(o.path, val); err != nil {
					return nil, err
				}
			}
		}

		out = append(out, result...)
	}

	return out, nil
}

var _ aggregations.Stage = (*setWindowFields)(nil)
