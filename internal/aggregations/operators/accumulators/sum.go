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
	Register("$sum", newSum)
}

// sum implements $sum: non-numeric (including missing/null) per-document
// results contribute zero, matching MongoDB's $sum semantics.
type sum struct {
	expr *aggregations.Expression
}

func newSum(arg any) (Accumulator, error) {
	return &sum{expr: aggregations.NewExpression(arg)}, nil
}

func (s *sum) Accumulate(iter types.DocumentsIterator, vars *aggregations.Variables) (any, error) {
	docs, err := drain(iter)
	if err != nil {
		return nil, err
	}

	var (
		intSum   int64
		floatSum float64
		anyFloat bool
	)

	for _, doc := range docs {
		v, err := evalExpr(s.expr, doc, vars)
		if err != nil {
			continue // missing/unevaluable contributes 0
		}

		switch n := v.(type) {
		case int32:
			intSum += int64(n)
		case int64:
			intSum += n
		case float64:
			anyFloat = true
			floatSum += n
		default:
			// non-numeric contributes 0
		}
	}

	if anyFloat {
		return floatSum + float64(intSum), nil
	}

	const (
		minInt32 = -(1 << 31)
		maxInt32 = 1<<31 - 1
	)

	if intSum >= minInt32 && intSum <= maxInt32 {
		return int32(intSum), nil
	}

	return intSum, nil
}

// evalExpr evaluates expr against doc with $$ROOT rebound to doc, the
// per-document scope every $group/window accumulator argument runs in.
func evalExpr(expr *aggregations.Expression, doc *types.Document, vars *aggregations.Variables) (any, error) {
	return expr.Evaluate(doc, vars.WithRoot(doc))
}
