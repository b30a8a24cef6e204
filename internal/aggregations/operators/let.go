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
	Register("$let", letOp)
}

// letOp implements $let: {vars: {name: expr, ...}, in: expr}. Each vars
// entry is evaluated in the enclosing scope (not visible to its siblings),
// then "in" is evaluated with all of them bound as "$$name".
func letOp(arg any, doc *types.Document, recurse Recurse) (any, error) {
	spec, ok := arg.(*types.Document)
	if !ok {
		return nil, typeError("$let", "$let only supports an object as its argument")
	}

	varsExpr, err := spec.Get("vars")
	if err != nil {
		return nil, arityError("$let", "Missing 'vars' parameter to $let")
	}

	varsDoc, ok := varsExpr.(*types.Document)
	if !ok {
		return nil, typeError("$let", "invalid parameter: expected an object ('vars')")
	}

	inExpr, err := spec.Get("in")
	if err != nil {
		return nil, arityError("$let", "Missing 'in' parameter to $let")
	}

	bound := make(map[string]any, varsDoc.Len())

	for _, k := range varsDoc.Keys() {
		raw, _ := varsDoc.Get(k)

		v, verr := recurse(raw, nil)
		if verr != nil {
			if verr != types.ErrPathNotFound {
				return nil, verr
			}

			v = nil
		}

		bound[k] = v
	}

	return recurse(inExpr, bound)
}
