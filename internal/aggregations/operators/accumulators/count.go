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
	Register("$count", newCount)
}

// count implements the $count accumulator (distinct from the $count stage):
// counts documents whose argument is non-missing, or all documents when the
// argument is the literal 1 - the {$sum:1} idiom most $count usages take.
type count struct {
	expr *aggregations.Expression
}

func newCount(arg any) (Accumulator, error) {
	return &count{expr: aggregations.NewExpression(arg)}, nil
}

func (c *count) Accumulate(iter types.DocumentsIterator, vars *aggregations.Variables) (any, error) {
	docs, err := drain(iter)
	if err != nil {
		return nil, err
	}

	var n int64

	for _, doc := range docs {
		if _, err := evalExpr(c.expr, doc, vars); err == nil {
			n++
		}
	}

	const maxInt32 = 1<<31 - 1

	if n <= maxInt32 {
		return int32(n), nil
	}

	return n, nil
}
