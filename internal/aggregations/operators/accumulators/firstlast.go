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
	Register("$first", newFirstLast(true))
	Register("$last", newFirstLast(false))
}

// firstLast implements $first/$last: the evaluated result of the first (or
// last) document by input order, per spec.md §4.3.
type firstLast struct {
	expr  *aggregations.Expression
	first bool
}

func newFirstLast(first bool) func(arg any) (Accumulator, error) {
	return func(arg any) (Accumulator, error) {
		return &firstLast{expr: aggregations.NewExpression(arg), first: first}, nil
	}
}

func (f *firstLast) Accumulate(iter types.DocumentsIterator, vars *aggregations.Variables) (any, error) {
	docs, err := drain(iter)
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return types.Null, nil
	}

	doc := docs[0]
	if !f.first {
		doc = docs[len(docs)-1]
	}

	v, err := evalExpr(f.expr, doc, vars)
	if err != nil {
		return types.Null, nil
	}

	return v, nil
}
