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
	"github.com/docengine/aggpipe/internal/aggregations/operators/accumulators"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
	"github.com/docengine/aggpipe/internal/util/iterator"
)

func init() {
	aggregations.RegisterStage("$bucket", newBucket)
}

// bucket implements $bucket per spec.md §4.4: documents are sorted into
// ascending, half-open boundary intervals by groupBy, with an optional
// fallback bucket for values outside every interval.
type bucket struct {
	groupBy    *aggregations.Expression
	boundaries []any
	hasDefault bool
	def        any
	fields     []groupField
	now        time.Time
}

func newBucket(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	doc, err := stageArgDocument("$bucket", spec)
	if err != nil {
		return nil, err
	}

	groupByVal, err := doc.Get("groupBy")
	if err != nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, "$bucket requires a 'groupBy' field", "$bucket",
		)
	}

	boundariesVal, err := doc.Get("boundaries")
	if err != nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, "$bucket requires a 'boundaries' field", "$bucket",
		)
	}

	arr, ok := boundariesVal.(*types.Array)
	if !ok || arr.Len() < 2 {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, "$bucket's 'boundaries' must have at least 2 elements", "$bucket",
		)
	}

	boundaries := arr.Slice()

	for i := 1; i < len(boundaries); i++ {
		if types.Compare(boundaries[i-1], boundaries[i]) != types.Less {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageInvalidShape, "$bucket's 'boundaries' must be sorted in ascending order", "$bucket",
			)
		}
	}

	b := &bucket{
		groupBy:    aggregations.NewExpression(groupByVal),
		boundaries: boundaries,
		now:        opts.Now,
	}

	if def, err := doc.Get("default"); err == nil {
		b.hasDefault = true
		b.def = def
	}

	outputVal, err := doc.Get("output")
	if err != nil {
		b.fields = []groupField{{name: "count", op: "$sum", arg: int32(1)}}
	} else {
		od, ok := outputVal.(*types.Document)
		if !ok {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageInvalidShape, "$bucket's 'output' must be an object", "$bucket",
			)
		}

		for _, key := range od.Keys() {
			v, _ := od.Get(key)

			spec, ok := v.(*types.Document)
			if !ok || spec.Len() != 1 {
				return nil, handlererrors.NewCommandErrorMsgWithArgument(
					handlererrors.ErrStageGroupUnaryOperator,
					"the bucket aggregate field '"+key+"' must be defined as an expression inside an object",
					"$bucket",
				)
			}

			op := spec.Command()
			arg, _ := spec.Get(op)

			b.fields = append(b.fields, groupField{name: key, op: op, arg: arg})
		}
	}

	return b, nil
}

// Process implements aggregations.Stage.
func (b *bucket) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	vars := aggregations.NewSystemVariables(b.now, nil)

	buckets := make(map[int][]*types.Document)
	var defaultBucket []*types.Document

	order := make([]int, 0, len(b.boundaries))

	for _, doc := range docs {
		val, err := b.groupBy.Evaluate(doc, vars.WithRoot(doc))
		if err != nil && err != types.ErrPathNotFound {
			return nil, err
		}

		idx := -1

		for i := 0; i < len(b.boundaries)-1; i++ {
			if types.Compare(val, b.boundaries[i]) != types.Less && types.Compare(val, b.boundaries[i+1]) == types.Less {
				idx = i
				break
			}
		}

		if idx == -1 {
			if !b.hasDefault {
				return nil, handlererrors.NewCommandErrorMsgWithArgument(
					handlererrors.ErrStageInvalidShape,
					"$bucket could not find a matching branch for an input, and no default was specified",
					"$bucket",
				)
			}

			defaultBucket = append(defaultBucket, doc)
			continue
		}

		if _, ok := buckets[idx]; !ok {
			order = append(order, idx)
		}

		buckets[idx] = append(buckets[idx], doc)
	}

	out := make([]*types.Document, 0, len(order)+1)

	for _, idx := range order {
		nd, err := b.buildOutput(b.boundaries[idx], buckets[idx], vars)
		if err != nil {
			return nil, err
		}

		out = append(out, nd)
	}

	if defaultBucket != nil {
		nd, err := b.buildOutput(b.def, defaultBucket, vars)
		if err != nil {
			return nil, err
		}

		out = append(out, nd)
	}

	return out, nil
}

func (b *bucket) buildOutput(id any, docs []*types.Document, vars *aggregations.Variables) (*types.Document, error) {
	nd := types.MakeDocument(len(b.fields) + 1)
	if err := nd.Set("_id", id); err != nil {
		return nil, err
	}

	for _, f := range b.fields {
		acc, err := accumulators.New(f.op, f.arg)
		if err != nil {
			return nil, err
		}

		val, err := acc.Accumulate(iterator.Values(iterator.ForSlice(docs)), vars)
		if err != nil {
			return nil, err
		}

		if err := nd.Set(f.name, val); err != nil {
			return nil, err
		}
	}

	return nd, nil
}

var _ aggregations.Stage = (*bucket)(nil)
