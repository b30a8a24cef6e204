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
)

func init() {
	aggregations.RegisterStage("$out", newOut)
	// $merge is recognized for the pipeline-shape taxonomy (spec.md §7: it
	// shares $out's terminal-only and $facet-forbidden treatment) and, per
	// the scope reduction recorded in the design ledger, executes the same
	// delete-then-insert replace as $out for its default whenMatched/
	// whenNotMatched behavior; partial-document merge modes are not built.
	aggregations.RegisterStage("$merge", newOut)
}

// out implements $out (and $merge's default mode) per spec.md §4.4: it
// deletes every document in the target collection, inserts the pipeline's
// output in its place, and itself emits an empty sequence.
type out struct {
	coll     string
	provider provider.CollectionProvider
}

func newOut(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	if opts.Provider == nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrEnvironmentMissing, "$out requires a collection provider", "$out",
		)
	}

	switch s := spec.(type) {
	case string:
		return &out{coll: s, provider: opts.Provider}, nil

	case *types.Document:
		coll, err := requiredString(s, "to", "$out")
		if err != nil {
			return nil, err
		}

		return &out{coll: coll, provider: opts.Provider}, nil

	default:
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape,
			"$out's specification must be a string or an object naming the target collection", "$out",
		)
	}
}

// Process implements aggregations.Stage.
func (o *out) Process(ctx context.Context, docs []*types.Document) ([]*types.Document, error) {
	coll, err := o.provider.GetCollection(ctx, o.coll)
	if err != nil {
		return nil, err
	}

	if err := coll.DeleteMany(ctx, nil); err != nil {
		return nil, err
	}

	if len(docs) > 0 {
		if err := coll.InsertMany(ctx, docs); err != nil {
			return nil, err
		}
	}

	return nil, nil
}

var _ aggregations.Stage = (*out)(nil)
