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
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	aggregations.RegisterStage("$documents", newDocuments)
}

// documents implements {$documents: <expr>} per SPEC_FULL.md §4.7: it
// evaluates expr with no input document (system variables only), requires
// an array of documents as the result, and becomes the pipeline's source
// sequence in place of the external source callback.
type documents struct {
	expr *aggregations.Expression
	now  time.Time
}

func newDocuments(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	return &documents{expr: aggregations.NewExpression(spec), now: opts.Now}, nil
}

// Process implements aggregations.Stage. The incoming docs argument is
// always empty: $documents is only valid as the pipeline's first stage.
func (d *documents) Process(_ context.Context, _ []*types.Document) ([]*types.Document, error) {
	vars := aggregations.NewSystemVariables(d.now, nil)

	val, err := d.expr.Evaluate(nil, vars)
	if err != nil {
		return nil, err
	}

	arr, ok := val.(*types.Array)
	if !ok {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape,
			"$documents's expression must evaluate to an array of documents", "$documents",
		)
	}

	out := make([]*types.Document, arr.Len())

	for i, v := range arr.Slice() {
		doc, ok := v.(*types.Document)
		if !ok {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageInvalidShape,
				"$documents's expression must evaluate to an array of documents", "$documents",
			)
		}

		out[i] = doc
	}

	return out, nil
}

var _ aggregations.Stage = (*documents)(nil)
