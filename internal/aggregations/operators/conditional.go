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

import (
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	Register("$cond", condOp)
	Register("$ifNull", ifNullOp)
	Register("$switch", switchOp)
}

// condOp implements $cond, accepting either the array form [if,then,else] or
// the object form {if,then,else}, per spec.md §4.2.
func condOp(arg any, doc *types.Document, recurse Recurse) (any, error) {
	var ifExpr, thenExpr, elseExpr any

	switch a := arg.(type) {
	case *types.Array:
		if a.Len() != 3 {
			return nil, arityError("$cond", "$cond requires exactly 3 arguments if given as an array")
		}

		ifExpr, _ = a.Get(0)
		thenExpr, _ = a.Get(1)
		elseExpr, _ = a.Get(2)

	case *types.Document:
		var missingKeys []string

		var ok bool

		if ifExpr, ok = getOrNote(a, "if", &missingKeys); !ok {
			return nil, arityError("$cond", "Missing 'if' parameter to $cond")
		}

		if thenExpr, ok = getOrNote(a, "then", &missingKeys); !ok {
			return nil, arityError("$cond", "Missing 'then' parameter to $cond")
		}

		if elseExpr, ok = getOrNote(a, "else", &missingKeys); !ok {
			return nil, arityError("$cond", "Missing 'else' parameter to $cond")
		}

	default:
		return nil, typeError("$cond", "$cond requires an array or object argument")
	}

	cond, err := recurse(ifExpr, nil)
	if err != nil && err != types.ErrPathNotFound {
		return nil, err
	}

	if truthy(cond) {
		return recurse(thenExpr, nil)
	}

	return recurse(elseExpr, nil)
}

func getOrNote(doc *types.Document, key string, missing *[]string) (any, bool) {
	v, err := doc.Get(key)
	if err != nil {
		*missing = append(*missing, key)
		return nil, false
	}

	return v, true
}

// ifNullOp implements $ifNull: the first non-null/non-missing argument among
// a variadic list, or the last (possibly null) argument if all are nullish.
func ifNullOp(arg any, doc *types.Document, recurse Recurse) (any, error) {
	args := argsArray(arg)
	if len(args) < 2 {
		return nil, arityError("$ifNull", "$ifNull needs at least 2 arguments")
	}

	var last any = types.Null

	for i, a := range args {
		v, err := recurse(a, nil)
		if err != nil {
			if err != types.ErrPathNotFound {
				return nil, err
			}

			v = missing{}
		}

		if i == len(args)-1 {
			last = v
		}

		if !isNullish(v) {
			return v, nil
		}
	}

	if isNullish(last) {
		return types.Null, nil
	}

	return last, nil
}

// switchOp implements $switch: {branches: [{case, then}, ...], default}.
func switchOp(arg any, doc *types.Document, recurse Recurse) (any, error) {
	spec, ok := arg.(*types.Document)
	if !ok {
		return nil, typeError("$switch", "$switch requires an object argument")
	}

	branchesRaw, err := spec.Get("branches")
	if err != nil {
		return nil, arityError("$switch", "$switch requires at least one branch")
	}

	branches, ok := branchesRaw.(*types.Array)
	if !ok {
		return nil, typeError("$switch", "$switch expected an array for 'branches'")
	}

	for _, b := range branches.Slice() {
		branch, ok := b.(*types.Document)
		if !ok {
			return nil, typeError("$switch", "$switch expected each branch to be an object")
		}

		caseExpr, cerr := branch.Get("case")
		if cerr != nil {
			return nil, arityError("$switch", "$switch requires each branch have a 'case' expression")
		}

		thenExpr, terr := branch.Get("then")
		if terr != nil {
			return nil, arityError("$switch", "$switch requires each branch have a 'then' expression")
		}

		cond, err := recurse(caseExpr, nil)
		if err != nil && err != types.ErrPathNotFound {
			return nil, err
		}

		if truthy(cond) {
			return recurse(thenExpr, nil)
		}
	}

	if defExpr, err := spec.Get("default"); err == nil {
		return recurse(defExpr, nil)
	}

	return nil, OperatorError{err: handlererrors.NewCommandErrorMsgWithArgument(
		handlererrors.ErrBadValue,
		"$switch could not find a matching branch for an input, and no default was specified.",
		"$switch",
	)}
}
