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

package accumulators

import (
	"github.com/docengine/aggpipe/internal/aggregations"
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	Register("$push", newPush)
	Register("$addToSet", newAddToSet)
}

// push implements $push: an array of the evaluated argument per input
// document, including null results; missing results are omitted.
type push struct {
	expr *aggregations.Expression
}

func newPush(arg any) (Accumulator, error) {
	return &push{expr: aggregations.NewExpression(arg)}, nil
}

func (p *push) Accumulate(iter types.DocumentsIterator, vars *aggregations.Variables) (any, error) {
	docs, err := drain(iter)
	if err != nil {
		return nil, err
	}

	out := types.MakeArray(len(docs))

	for _, doc := range docs {
		v, err := evalExpr(p.expr, doc, vars)
		if err != nil {
			continue
		}

		if err := out.Append(v); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// addToSet implements $addToSet: like $push, deduplicated by structural
// equality (types.Compare), preserving first-seen order.
type addToSet struct {
	expr *aggregations.Expression
}

func newAddToSet(arg any) (Accumulator, error) {
	return &addToSet{expr: aggregations.NewExpression(arg)}, nil
}

func (a *addToSet) Accumulate(iter types.DocumentsIterator, vars *aggregations.Variables) (any, error) {
	docs, err := drain(iter)
	if err != nil {
		return nil, err
	}

	out := types.MakeArray(0)

	for _, doc := range docs {
		v, err := evalExpr(a.expr, doc, vars)
		if err != nil {
			continue
		}

		seen := false

		for _, existing := range out.Slice() {
			if types.Compare(existing, v) == types.Equal {
				seen = true
				break
			}
		}

		if !seen {
			if err := out.Append(v); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}
