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
	"github.com/docengine/aggpipe/internal/provider"
	"github.com/docengine/aggpipe/internal/types"
	"github.com/docengine/aggpipe/internal/util/iterator"
)

func init() {
	aggregations.RegisterStage("$unionWith", newUnionWith)
}

// unionWith implements $unionWith per spec.md §4.4: fetch the named
// collection, optionally run a sub-pipeline over it, then append the result
// to the upstream sequence.
type unionWith struct {
	coll     string
	pipeline *types.Array
	provider provider.CollectionProvider
	run      func(ctx context.Context, docs []*types.Document, pipeline *types.Array) ([]*types.Document, error)
}

func newUnionWith(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	if opts.Provider == nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrEnvironmentMissing, "$unionWith requires a collection provider", "$unionWith",
		)
	}

	u := &unionWith{provider: opts.Provider, run: opts.Driver}

	switch s := spec.(type) {
	case string:
		u.coll = s

	case *types.Document:
		coll, err := requiredString(s, "coll", "$unionWith")
		if err != nil {
			return nil, err
		}

		u.coll = coll

		if v, err := s.Get("pipeline"); err == nil {
			arr, ok := v.(*types.Array)
			if !ok {
				return nil, handlererrors.NewCommandErrorMsgWithArgument(
					handlererrors.ErrStageInvalidShape, "$unionWith's 'pipeline' must be an array", "$unionWith",
				)
			}

			u.pipeline = arr
		}

	default:
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape,
			"$unionWith's specification must be a string or an object", "$unionWith",
		)
	}

	return u, nil
}

// Process implements aggregations.Stage.
func (u *unionWith) Process(ctx context.Context, docs []*types.Document) ([]*types.Document, error) {
	coll, err := u.provider.GetCollection(ctx, u.coll)
	if err != nil {
		return nil, err
	}

	foreignIter, err := coll.Find(ctx, nil)
	if err != nil {
		return nil, err
	}

	foreign, err := iterator.ConsumeValues(foreignIter)
	if err != nil {
		return nil, err
	}

	if u.pipeline != nil {
		if u.run == nil {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrEnvironmentMissing, "$unionWith requires an active pipeline driver", "$unionWith",
			)
		}

		foreign, err = u.run(ctx, foreign, u.pipeline)
		if err != nil {
			return nil, err
		}
	}

	out := make([]*types.Document, 0, len(docs)+len(foreign))
	out = append(out, docs...)
	out = append(out, foreign...)

	return out, nil
}

var _ aggregations.Stage = (*unionWith)(nil)
