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
	aggregations.RegisterStage("$redact", newRedact)
}

// redact implements $redact: recursive document traversal, evaluating the
// spec at every level with $$ROOT rebound to the subdocument in scope.
type redact struct {
	expr any
	now  time.Time
}

func newRedact(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	return &redact{expr: spec, now: opts.Now}, nil
}

// Process implements aggregations.Stage.
func (r *redact) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	out := make([]*types.Document, 0, len(docs))

	for _, doc := range docs {
		vars := aggregations.NewSystemVariables(r.now, doc)

		nd, err := r.apply(doc, vars)
		if err != nil {
			return nil, err
		}

		if nd != nil {
			out = append(out, nd)
		}
	}

	return out, nil
}

// apply evaluates the redact spec at subdoc, returning nil when the verdict
// is "prune" (caller omits this (sub)document entirely).
func (r *redact) apply(subdoc *types.Document, vars *aggregations.Variables) (*types.Document, error) {
	scoped := vars.WithRoot(subdoc)

	verdict, err := aggregations.Evaluate(r.expr, subdoc, scoped)
	if err != nil && err != types.ErrPathNotFound {
		return nil, err
	}

	switch verdict {
	case "prune":
		return nil, nil

	case "keep":
		return subdoc, nil

	case "descend":
		nd := types.MakeDocument(subdoc.Len())

		for _, k := range subdoc.Keys() {
			v, _ := subdoc.Get(k)

			nv, err := r.descendValue(v, vars)
			if err != nil {
				return nil, err
			}

			if nv == nil {
				continue
			}

			if err := nd.Set(k, nv); err != nil {
				return nil, err
			}
		}

		return nd, nil

	default:
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrRedactBadResult,
			"$redact's expression should not return anything other than the $$DESCEND, $$PRUNE, and $$KEEP system variables",
			"$redact",
		)
	}
}

// descendValue applies redaction recursively to documents, including those
// nested inside arrays; scalars and dates are preserved verbatim.
func (r *redact) descendValue(v any, vars *aggregations.Variables) (any, error) {
	switch t := v.(type) {
	case *types.Document:
		return r.apply(t, vars)

	case *types.Array:
		out := types.MakeArray(t.Len())

		for _, e := range t.Slice() {
			nv, err := r.descendValue(e, vars)
			if err != nil {
				return nil, err
			}

			if nv == nil {
				continue
			}

			if err := out.Append(nv); err != nil {
				return nil, err
			}
		}

		return out, nil

	default:
		return v, nil
	}
}

var _ aggregations.Stage = (*redact)(nil)
