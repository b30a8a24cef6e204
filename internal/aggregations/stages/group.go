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
	"github.com/docengine/aggpipe/internal/aggregations/partition"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
	"github.com/docengine/aggpipe/internal/util/iterator"
)

func init() {
	aggregations.RegisterStage("$group", newGroup)
}

// groupField is one non-"_id" output field of a $group spec: an accumulator
// name plus its unevaluated argument.
type groupField struct {
	name string
	op   string
	arg  any
}

// group implements $group per spec.md §4.4.
type group struct {
	idExpr *aggregations.Expression
	fields []groupField
	now    time.Time
}

func newGroup(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	doc, err := stageArgDocument("$group", spec)
	if err != nil {
		return nil, err
	}

	idExpr, err := doc.Get("_id")
	if err != nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageGroupMissingID,
			"a group specification must include an _id",
			"$group",
		)
	}

	g := &group{idExpr: aggregations.NewExpression(idExpr), now: opts.Now}

	for _, key := range doc.Keys() {
		if key == "_id" {
			continue
		}

		v, _ := doc.Get(key)

		spec, ok := v.(*types.Document)
		if !ok || spec.Len() != 1 {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageGroupUnaryOperator,
				"the group aggregate field '"+key+"' must be defined as an expression inside an object",
				"$group",
			)
		}

		op := spec.Command()
		arg, _ := spec.Get(op)

		g.fields = append(g.fields, groupField{name: key, op: op, arg: arg})
	}

	return g, nil
}

// Process implements aggregations.Stage.
func (g *group) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	vars := aggregations.NewSystemVariables(g.now, nil)

	groups, err := partition.ByExpression(docs, g.idExpr, vars)
	if err != nil {
		return nil, err
	}

	out := make([]*types.Document, 0, len(groups))

	for _, grp := range groups {
		nd := types.MakeDocument(len(g.fields) + 1)
		if err := nd.Set("_id", grp.Key); err != nil {
			return nil, err
		}

		for _, f := range g.fields {
			acc, err := accumulators.New(f.op, f.arg)
			if err != nil {
				return nil, err
			}

			val, err := acc.Accumulate(iterator.Values(iterator.ForSlice(grp.Docs)), vars)
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

var _ aggregations.Stage = (*group)(nil)
