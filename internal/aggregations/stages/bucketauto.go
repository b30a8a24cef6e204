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
	"sort"
	"time"

	"github.com/docengine/aggpipe/internal/aggregations"
	"github.com/docengine/aggpipe/internal/aggregations/operators/accumulators"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
	"github.com/docengine/aggpipe/internal/util/iterator"
)

func init() {
	aggregations.RegisterStage("$bucketAuto", newBucketAuto)
}

// bucketAuto implements $bucketAuto per spec.md §4.4: sort by groupBy, then
// split into min(buckets, n) contiguous groups of roughly equal size.
type bucketAuto struct {
	groupBy *aggregations.Expression
	buckets int64
	fields  []groupField
	now     time.Time
}

func newBucketAuto(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	doc, err := stageArgDocument("$bucketAuto", spec)
	if err != nil {
		return nil, err
	}

	groupByVal, err := doc.Get("groupBy")
	if err != nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, "$bucketAuto requires a 'groupBy' field", "$bucketAuto",
		)
	}

	bucketsVal, err := doc.Get("buckets")
	if err != nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, "$bucketAuto requires a 'buckets' field", "$bucketAuto",
		)
	}

	n, ok := asNumeric(bucketsVal)
	if !ok || n < 1 {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, "$bucketAuto's 'buckets' must be a positive number", "$bucketAuto",
		)
	}

	b := &bucketAuto{
		groupBy: aggregations.NewExpression(groupByVal),
		buckets: int64(n),
		now:     opts.Now,
	}

	outputVal, err := doc.Get("output")
	if err != nil {
		b.fields = []groupField{{name: "count", op: "$sum", arg: int32(1)}}
	} else {
		od, ok := outputVal.(*types.Document)
		if !ok {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageInvalidShape, "$bucketAuto's 'output' must be an object", "$bucketAuto",
			)
		}

		for _, key := range od.Keys() {
			v, _ := od.Get(key)

			spec, ok := v.(*types.Document)
			if !ok || spec.Len() != 1 {
				return nil, handlererrors.NewCommandErrorMsgWithArgument(
					handlererrors.ErrStageGroupUnaryOperator,
					"the bucketAuto aggregate field '"+key+"' must be defined as an expression inside an object",
					"$bucketAuto",
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
func (b *bucketAuto) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	vars := aggregations.NewSystemVariables(b.now, nil)

	n := len(docs)
	if n == 0 {
		return nil, nil
	}

	type keyed struct {
		doc *types.Document
		key any
	}

	values := make([]keyed, n)

	for i, doc := range docs {
		val, err := b.groupBy.Evaluate(doc, vars.WithRoot(doc))
		if err != nil && err != types.ErrPathNotFound {
			return nil, err
		}

		values[i] = keyed{doc: doc, key: val}
	}

	sort.SliceStable(values, func(i, j int) bool {
		return types.Compare(values[i].key, values[j].key) == types.Less
	})

	numBuckets := int(b.buckets)
	if numBuckets > n {
		numBuckets = n
	}

	groupSize := (n + numBuckets - 1) / numBuckets

	out := make([]*types.Document, 0, numBuckets)

	for start := 0; start < n; start += groupSize {
		end := start + groupSize
		if end > n {
			end = n
		}

		groupDocs := make([]*types.Document, end-start)
		for i := start; i < end; i++ {
			groupDocs[i-start] = values[i].doc
		}

		min := values[start].key

		var max any
		if end < n {
			max = values[end].key
		} else {
			max = values[n-1].key
		}

		id := types.MakeDocument(2)
		if err := id.Set("min", min); err != nil {
			return nil, err
		}

		if err := id.Set("max", max); err != nil {
			return nil, err
		}

		nd := types.MakeDocument(len(b.fields) + 1)
		if err := nd.Set("_id", id); err != nil {
			return nil, err
		}

		for _, f := range b.fields {
			acc, err := accumulators.New(f.op, f.arg)
			if err != nil {
				return nil, err
			}

			val, err := acc.Accumulate(iterator.Values(iterator.ForSlice(groupDocs)), vars)
			if err != nil {
				return nil, err
			}

			if err := nd.Set(f.name, val); err != nil {
				return nil, err
			}
		}

		out = append(out, nd)
	}

	return out, nil
}

var _ aggregations.Stage = (*bucketAuto)(nil)
