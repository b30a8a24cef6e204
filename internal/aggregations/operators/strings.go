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
	"strings"
	"unicode/utf16"

	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	Register("$concat", concatOp)
	Register("$toUpper", caseOp(strings.ToUpper))
	Register("$toLower", caseOp(strings.ToLower))
	Register("$substr", substrOp)
	Register("$substrBytes", substrOp)
	Register("$strLenCP", strLenOp)
	Register("$trim", trimOp)
}

// concatOp implements $concat: null/missing operand makes the whole result
// null, per spec.md §4.2.
func concatOp(arg any, doc *types.Document, recurse Recurse) (any, error) {
	raw, err := evalArgs(argsArray(arg), recurse)
	if err != nil {
		return nil, err
	}

	var b strings.Builder

	for _, v := range raw {
		if isNullish(v) {
			return types.Null, nil
		}

		s, ok := v.(string)
		if !ok {
			return nil, typeError("$concat", "$concat only supports strings")
		}

		b.WriteString(s)
	}

	return b.String(), nil
}

// caseOp builds $toUpper/$toLower: null/missing input becomes "", per spec.md §4.2.
func caseOp(fn func(string) string) Handler {
	return func(arg any, doc *types.Document, recurse Recurse) (any, error) {
		args := argsArray(arg)
		if len(args) != 1 {
			return nil, arityError("$toUpper/$toLower", "requires exactly one argument")
		}

		v, err := recurse(args[0], nil)
		if err != nil {
			if err != types.ErrPathNotFound {
				return nil, err
			}

			return "", nil
		}

		if isNullish(v) {
			return "", nil
		}

		s, ok := v.(string)
		if !ok {
			return nil, typeError("$toUpper/$toLower", "argument must be a string")
		}

		return fn(s), nil
	}
}

// substrOp implements $substr over UTF-16 code units (spec.md §4.2).
func substrOp(arg any, doc *types.Document, recurse Recurse) (any, error) {
	args := argsArray(arg)
	if len(args) != 3 {
		return nil, arityError("$substr", "$substr requires exactly 3 arguments")
	}

	raw, err := evalArgs(args, recurse)
	if err != nil {
		return nil, err
	}

	s, ok := raw[0].(string)
	if !ok {
		if isNullish(raw[0]) {
			return "", nil
		}

		return nil, typeError("$substr", "$substr requires a string as its first argument")
	}

	start := int(toInt64(normalizeNull(raw[1])))
	length := int(toInt64(normalizeNull(raw[2])))

	units := utf16.Encode([]rune(s))

	if start < 0 {
		start = 0
	}

	if start >= len(units) {
		return "", nil
	}

	end := len(units)

	if length >= 0 && start+length < end {
		end = start + length
	}

	return string(utf16.Decode(units[start:end])), nil
}

func strLenOp(arg any, doc *types.Document, recurse Recurse) (any, error) {
	args := argsArray(arg)
	if len(args) != 1 {
		return nil, arityError("$strLenCP", "$strLenCP requires exactly one argument")
	}

	v, err := recurse(args[0], nil)
	if err != nil {
		return nil, err
	}

	s, ok := v.(string)
	if !ok {
		return nil, typeError("$strLenCP", "$strLenCP requires a string argument")
	}

	return int32(len([]rune(s))), nil
}

func trimOp(arg any, doc *types.Document, recurse Recurse) (any, error) {
	spec, ok := arg.(*types.Document)
	if !ok {
		return nil, typeError("$trim", "$trim requires an object argument")
	}

	inputExpr, err := spec.Get("input")
	if err != nil {
		return nil, arityError("$trim", "$trim requires an 'input' field")
	}

	v, err := recurse(inputExpr, nil)
	if err != nil {
		if err != types.ErrPathNotFound {
			return nil, err
		}

		return types.Null, nil
	}

	if isNullish(v) {
		return types.Null, nil
	}

	s, ok := v.(string)
	if !ok {
		return nil, typeError("$trim", "$trim requires a string 'input'")
	}

	cutset := " \t\n\v\f\r"

	if charsExpr, cerr := spec.Get("chars"); cerr == nil {
		cv, everr := recurse(charsExpr, nil)
		if everr == nil {
			if cs, ok := cv.(string); ok {
				cutset = cs
			}
		}
	}

	return strings.Trim(s, cutset), nil
}
