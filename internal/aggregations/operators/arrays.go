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
	Register("$size", sizeOp)
	Register("$map", mapOp)
	Register("$filter", filterOp)
	Register("$reduce", reduceOp)
	Register("$arrayElemAt", arrayElemAtOp)
}

// sizeOp implements $size: an error on non-array input, per spec.md §4.2.
func sizeOp(arg any, doc *types.Document, recurse Recurse) (any, error) {
	args := argsArray(arg)
	if len(args) != 1 {
		return nil, arityError("$size", "$size requires exactly one argument")
	}

	v, err := recurse(args[0], nil)
	if err != nil {
		return nil, err
	}

	a, ok := v.(*types.Array)
	if !ok {
		return nil, typeError("$size", "The argument to $size must be an array, not "+types.AliasFromType(v))
	}

	return int32(a.Len()), nil
}

// mapOp implements $map: {input, as, in}, binding each element to "as"
// (default "this") while evaluating "in".
func mapOp(arg any, doc *types.Document, recurse Recurse) (any, error) {
	spec, ok := arg.(*types.Document)
	if !ok {
		return nil, typeError("$map", "$map requires an object argument")
	}

	inputExpr, err := spec.Get("input")
	if err != nil {
		return nil, arityError("$map", "$map requires an 'input' field")
	}

	asName := "this"
	if v, aerr := spec.Get("as"); aerr == nil {
		if s, ok := v.(string); ok {
			asName = s
		}
	}

	inExpr, ierr := spec.Get("in")
	if ierr != nil {
		return nil, arityError("$map", "$map requires an 'in' field")
	}

	input, err := recurse(inputExpr, nil)
	if err != nil {
		if err == types.ErrPathNotFound {
			return types.Null, nil
		}

		return nil, err
	}

	if isNullish(input) {
		return types.Null, nil
	}

	arr, ok := input.(*types.Array)
	if !ok {
		return nil, typeError("$map", "input to $map must be an array not "+types.AliasFromType(input))
	}

	out := types.MakeArray(arr.Len())

	for _, elem := range arr.Slice() {
		v, err := recurse(inExpr, map[string]any{asName: elem})
		if err != nil {
			if err == types.ErrPathNotFound {
				v = types.Null
			} else {
				return nil, err
			}
		}

		if err := out.Append(v); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// filterOp implements $filter: {input, as, cond, limit?}.
func filterOp(arg any, doc *types.Document, recurse Recurse) (any, error) {
	spec, ok := arg.(*types.Document)
	if !ok {
		return nil, typeError("$filter", "$filter requires an object argument")
	}

	inputExpr, err := spec.Get("input")
	if err != nil {
		return nil, arityError("$filter", "$filter requires an 'input' field")
	}

	asName := "this"
	if v, aerr := spec.Get("as"); aerr == nil {
		if s, ok := v.(string); ok {
			asName = s
		}
	}

	condExpr, cerr := spec.Get("cond")
	if cerr != nil {
		return nil, arityError("$filter", "$filter requires a 'cond' field")
	}

	input, err := recurse(inputExpr, nil)
	if err != nil {
		if err == types.ErrPathNotFound {
			return types.Null, nil
		}

		return nil, err
	}

	arr, ok := input.(*types.Array)
	if !ok {
		return nil, typeError("$filter", "input to $filter must be an array not "+types.AliasFromType(input))
	}

	var limit int
	if lv, lerr := spec.Get("limit"); lerr == nil {
		l, err := recurse(lv, nil)
		if err == nil {
			limit = int(toInt64(normalizeNull(l)))
		}
	}

	out := types.MakeArray(arr.Len())

	for _, elem := range arr.Slice() {
		if limit > 0 && out.Len() >= limit {
			break
		}

		cond, err := recurse(condExpr, map[string]any{asName: elem})
		if err != nil && err != types.ErrPathNotFound {
			return nil, err
		}

		if truthy(cond) {
			if err := out.Append(elem); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// reduceOp implements $reduce: {input, initialValue, in}, binding "$$value"
// and "$$this" while evaluating "in" for each element in order.
func reduceOp(arg any, doc *types.Document, recurse Recurse) (any, error) {
	spec, ok := arg.(*types.Document)
	if !ok {
		return nil, typeError("$reduce", "$reduce requires an object argument")
	}

	inputExpr, err := spec.Get("input")
	if err != nil {
		return nil, arityError("$reduce", "$reduce requires an 'input' field")
	}

	initExpr, ierr := spec.Get("initialValue")
	if ierr != nil {
		return nil, arityError("$reduce", "$reduce requires an 'initialValue' field")
	}

	inExpr, inerr := spec.Get("in")
	if inerr != nil {
		return nil, arityError("$reduce", "$reduce requires an 'in' field")
	}

	input, err := recurse(inputExpr, nil)
	if err != nil {
		if err == types.ErrPathNotFound {
			return types.Null, nil
		}

		return nil, err
	}

	acc, err := recurse(initExpr, nil)
	if err != nil && err != types.ErrPathNotFound {
		return nil, err
	}

	if isNullish(input) {
		return acc, nil
	}

	arr, ok := input.(*types.Array)
	if !ok {
		return nil, typeError("$reduce", "input to $reduce must be an array not "+types.AliasFromType(input))
	}

	for _, elem := range arr.Slice() {
		acc, err = recurse(inExpr, map[string]any{"value": acc, "this": elem})
		if err != nil && err != types.ErrPathNotFound {
			return nil, err
		}
	}

	return acc, nil
}

// arrayElemAtOp implements $arrayElemAt: negative indices count from the end.
func arrayElemAtOp(arg any, doc *types.Document, recurse Recurse) (any, error) {
	args := argsArray(arg)
	if len(args) != 2 {
		return nil, arityError("$arrayElemAt", "$arrayElemAt requires exactly two arguments")
	}

	raw, err := evalArgs(args, recurse)
	if err != nil {
		return nil, err
	}

	if isNullish(raw[0]) {
		return types.Null, nil
	}

	arr, ok := raw[0].(*types.Array)
	if !ok {
		return nil, typeError("$arrayElemAt", "$arrayElemAt's first argument must be an array")
	}

	idx := int(toInt64(normalizeNull(raw[1])))
	if idx < 0 {
		idx += arr.Len()
	}

	v, err := arr.Get(idx)
	if err != nil {
		return types.Null, nil
	}

	return v, nil
}
