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

package aggregations

import (
	"strconv"
	"strings"

	"github.com/docengine/aggpipe/internal/aggregations/operators"
	"github.com/docengine/aggpipe/internal/types"
)

// Expression wraps a raw, unevaluated expression tree (spec.md §4.1) so
// stages and accumulators can build it once (validating shape eagerly where
// practical) and evaluate it against many documents.
type Expression struct {
	raw any
}

// NewExpression wraps raw for repeated evaluation. It never fails itself:
// shape errors surface from Evaluate, since most of them (unknown operator,
// wrong arity) can only be detected once argument values are known.
func NewExpression(raw any) *Expression {
	return &Expression{raw: raw}
}

// Evaluate evaluates the wrapped expression against doc under vars.
func (e *Expression) Evaluate(doc *types.Document, vars *Variables) (any, error) {
	return Evaluate(e.raw, doc, vars)
}

// Evaluate implements the Expression Evaluator contract of spec.md §4.1:
// evaluate(expr, doc, vars) -> Value, pure, total except for operator-specific
// errors. A return of (nil, types.ErrPathNotFound) means "missing" - the
// value model's only representation of absence (SPEC_FULL.md §4.0).
func Evaluate(expr any, doc *types.Document, vars *Variables) (any, error) {
	switch e := expr.(type) {
	case string:
		switch {
		case strings.HasPrefix(e, "$$"):
			return evaluateVariableRef(e[2:], vars)
		case strings.HasPrefix(e, "$"):
			return evaluateFieldRef(e[1:], doc)
		default:
			return e, nil
		}

	case *types.Array:
		out := types.MakeArray(e.Len())

		for _, elem := range e.Slice() {
			v, err := Evaluate(elem, doc, vars)
			if err != nil {
				if err == types.ErrPathNotFound {
					// a missing sub-expression inside a literal array becomes
					// BSON null, matching $literal-free array evaluation in MongoDB.
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

	case *types.Document:
		if operators.IsOperator(e) {
			name := e.Command()

			if name == "$literal" {
				arg, _ := e.Get(name)
				return arg, nil
			}

			arg, _ := e.Get(name)

			recurse := func(sub any, extra map[string]any) (any, error) {
				v := vars
				if len(extra) > 0 {
					v = vars.With(extra)
				}

				return Evaluate(sub, doc, v)
			}

			return operators.Call(name, arg, doc, recurse)
		}

		out := types.MakeDocument(e.Len())

		for _, k := range e.Keys() {
			raw, _ := e.Get(k)

			v, err := Evaluate(raw, doc, vars)
			if err != nil {
				if err == types.ErrPathNotFound {
					continue // missing sub-field: omit the key entirely
				}

				return nil, err
			}

			if v == types.REMOVE {
				continue
			}

			if err := out.Set(k, v); err != nil {
				return nil, err
			}
		}

		return out, nil

	default:
		return expr, nil
	}
}

// evaluateFieldRef resolves a "$path" field reference by dot-path from doc.
func evaluateFieldRef(path string, doc *types.Document) (any, error) {
	if path == "" {
		return doc, nil
	}

	p, err := types.NewPathFromString(path)
	if err != nil {
		return nil, err
	}

	return doc.GetByPath(p)
}

// evaluateVariableRef resolves a "$$NAME.a.b" variable reference: look up
// NAME in vars, then descend the remaining dot-path through the result.
func evaluateVariableRef(path string, vars *Variables) (any, error) {
	segs := strings.Split(path, ".")

	v, ok := vars.Get(segs[0])
	if !ok {
		return nil, types.ErrPathNotFound
	}

	return descend(v, segs[1:])
}

// descend walks path through an arbitrary already-evaluated value (not
// necessarily rooted at a *types.Document, since variables can be any Value).
func descend(v any, path []string) (any, error) {
	cur := v

	for _, key := range path {
		switch c := cur.(type) {
		case *types.Document:
			next, err := c.Get(key)
			if err != nil {
				return nil, err
			}

			cur = next

		case *types.Array:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 {
				return nil, types.ErrNotArray
			}

			next, err := c.Get(idx)
			if err != nil {
				return nil, err
			}

			cur = next

		default:
			return nil, types.ErrNotDocument
		}
	}

	return cur, nil
}
