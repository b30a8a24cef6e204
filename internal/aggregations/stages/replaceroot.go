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
	"fmt"
	"time"

	"github.com/docengine/aggpipe/internal/aggregations"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	aggregations.RegisterStage("$replaceRoot", newReplaceRoot)
	aggregations.RegisterStage("$replaceWith", newReplaceWith)
}

// replaceRoot implements $replaceRoot/$replaceWith: evaluate newRoot,
// require the result to be a non-null, non-array document.
type replaceRoot struct {
	expr any
	now  time.Time
}

func newReplaceRoot(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	doc, err := stageArgDocument("$replaceRoot", spec)
	if err != nil {
		return nil, err
	}

	newRoot, err := doc.Get("newRoot")
	if err != nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, "$replaceRoot requires a 'newRoot' field", "$replaceRoot",
		)
	}

	return &replaceRoot{expr: newRoot, now: opts.Now}, nil
}

func newReplaceWith(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	return &replaceRoot{expr: spec, now: opts.Now}, nil
}

// Process implements aggregations.Stage.
func (r *replaceRoot) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	out := make([]*types.Document, len(docs))

	for i, doc := range docs {
		vars := aggregations.NewSystemVariables(r.now, doc)

		v, err := aggregations.Evaluate(r.expr, doc, vars)
		if err != nil && err != types.ErrPathNotFound {
			return nil, err
		}

		nd, ok := v.(*types.Document)
		if !ok {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrBadValue,
				fmt.Sprintf("'newRoot' expression must evaluate to an object, but resulting value was: %s",
					types.AliasFromType(v)),
				"$replaceRoot",
			)
		}

		out[i] = nd
	}

	return out, nil
}

var _ aggregations.Stage = (*replaceRoot)(nil)
