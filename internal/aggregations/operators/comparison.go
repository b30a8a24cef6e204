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

package operators

import "github.com/docengine/aggpipe/internal/types"

func init() {
	Register("$eq", comparison("$eq", func(r types.CompareResult) bool { return r == types.Equal }))
	Register("$ne", comparison("$ne", func(r types.CompareResult) bool { return r != types.Equal }))
	Register("$gt", comparison("$gt", func(r types.CompareResult) bool { return r == types.Greater }))
	Register("$gte", comparison("$gte", func(r types.CompareResult) bool { return r == types.Greater || r == types.Equal }))
	Register("$lt", comparison("$lt", func(r types.CompareResult) bool { return r == types.Less }))
	Register("$lte", comparison("$lte", func(r types.CompareResult) bool { return r == types.Less || r == types.Equal }))
	Register("$cmp", func(arg any, doc *types.Document, recurse Recurse) (any, error) {
		args := argsArray(arg)
		if len(args) != 2 {
			return nil, arityError("$cmp", "$cmp requires exactly two arguments")
		}

		raw, err := evalArgs(args, recurse)
		if err != nil {
			return nil, err
		}

		a, b := normalizeNull(raw[0]), normalizeNull(raw[1])

		switch types.CompareOrderForSort(a, b, types.Ascending) {
		case types.Less:
			return int32(-1), nil
		case types.Greater:
			return int32(1), nil
		default:
			return int32(0), nil
		}
	})
}

// normalizeNull maps the internal "missing" marker to BSON null, the
// standard MongoDB comparison convention ($eq/$lt/etc. treat a missing
// operand as null).
func normalizeNull(v any) any {
	if isNullish(v) {
		return types.Null
	}

	return v
}

// comparison builds a binary BSON-ordering comparison operator using
// spec.md §4.2's "null < number < string < object < array < bool < date"
// total order (types.CompareOrderForSort), the same order $sort uses.
func comparison(name string, accept func(types.CompareResult) bool) Handler {
	return func(arg any, doc *types.Document, recurse Recurse) (any, error) {
		args := argsArray(arg)
		if len(args) != 2 {
			return nil, arityError(name, name+" requires exactly two arguments")
		}

		raw, err := evalArgs(args, recurse)
		if err != nil {
			return nil, err
		}

		a, b := normalizeNull(raw[0]), normalizeNull(raw[1])

		return accept(types.CompareOrderForSort(a, b, types.Ascending)), nil
	}
}
