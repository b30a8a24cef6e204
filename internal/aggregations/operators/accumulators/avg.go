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
	Register("$avg", newAvg)
}

// avg implements $avg: sum/count over numeric results; finalizes to null on
// an empty input, per spec.md §4.3.
type avg struct {
	expr *aggregations.Expression
}

func newAvg(arg any) (Accumulator, error) {
	return &avg{expr: aggregations.NewExpression(arg)}, nil
}

func (a *avg) Accumulate(iter types.DocumentsIterator, vars *aggregations.Variables) (any, error) {
	docs, err := drain(iter)
	if err != nil {
		return nil, err
	}

	var sum float64

	var count int

	for _, doc := range docs {
		v, err := evalExpr(a.expr, doc, vars)
		if err != nil {
			continue
		}

		switch n := v.(type) {
		case int32:
			sum += float64(n)
			count++
		case int64:
			sum += float64(n)
			count++
		case float64:
			sum += n
			count++
		}
	}

	if count == 0 {
		return types.Null, nil
	}

	return sum / float64(count), nil
}
