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
	Register("$min", newMinMax(types.Less))
	Register("$max", newMinMax(types.Greater))
}

// minmax implements $min/$max: BSON-ordered extremum over evaluated results,
// skipping documents whose argument is missing. want is the comparison
// result that means "candidate replaces current best".
type minmax struct {
	expr *aggregations.Expression
	want types.CompareResult
}

func newMinMax(want types.CompareResult) func(arg any) (Accumulator, error) {
	return func(arg any) (Accumulator, error) {
		return &minmax{expr: aggregations.NewExpression(arg), want: want}, nil
	}
}

func (m *minmax) Accumulate(iter types.DocumentsIterator, vars *aggregations.Variables) (any, error) {
	docs, err := drain(iter)
	if err != nil {
		return nil, err
	}

	var best any

	var have bool

	for _, doc := range docs {
		v, err := evalExpr(m.expr, doc, vars)
		if err != nil {
			continue
		}

		if !have || types.CompareOrderForSort(v, best, types.Ascending) == m.want {
			best = v
			have = true
		}
	}

	if !have {
		return types.Null, nil
	}

	return best, nil
}
