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
	"math"

	"golang.org/x/exp/constraints"

	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	Register("$add", newArithmetic("$add", 0, addOp))
	Register("$subtract", arity2("$subtract", subtractOp))
	Register("$multiply", newArithmetic("$multiply", 1, multiplyOp))
	Register("$divide", arity2("$divide", divideOp))
	Register("$mod", arity2("$mod", modOp))
}

// number is the numeric Value subset arithmetic operators fold over.
type number interface {
	constraints.Integer | constraints.Float
}

// newArithmetic builds a variadic arithmetic operator ($add, $multiply):
// identity is the fold's starting value (0 for $add, 1 for $multiply).
func newArithmetic(name string, identity float64, fold func(a, b any) (any, error)) Handler {
	return func(arg any, doc *types.Document, recurse Recurse) (any, error) {
		raw, err := evalArgs(argsArray(arg), recurse)
		if err != nil {
			return nil, err
		}

		for _, v := range raw {
			if isNullish(v) {
				return types.Null, nil
			}

			if !isNumericValue(v) {
				return nil, typeError(name, name+" only supports numeric types")
			}
		}

		acc := any(widenIdentity(identity, raw))

		for _, v := range raw {
			acc, err = fold(acc, v)
			if err != nil {
				return nil, err
			}
		}

		return acc, nil
	}
}

// widenIdentity picks an identity value of the same "width" as the widest
// operand so an all-int64 $add stays integral and a $multiply over floats
// produces a float.
func widenIdentity(identity float64, args []any) any {
	widest := int32(0)

	for _, v := range args {
		if w := numericWidth(v); w > widest {
			widest = w
		}
	}

	switch widest {
	case 2:
		return identity
	case 1:
		return int64(identity)
	default:
		return int32(identity)
	}
}

// numericWidth ranks int32 < int64 < float64 so a fold's result widens to
// the broadest operand type, matching spec.md §4.2's "int64 staying integral
// when all inputs are integers".
func numericWidth(v any) int32 {
	switch v.(type) {
	case float64:
		return 2
	case int64:
		return 1
	default:
		return 0
	}
}

func isNumericValue(v any) bool {
	switch v.(type) {
	case int32, int64, float64:
		return true
	default:
		return false
	}
}

func asFloat(v any) float64 {
	switch v := v.(type) {
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}

// widen combines two numeric operands into the widest common representation.
func widen(a, b any) any {
	if numericWidth(a) == 2 || numericWidth(b) == 2 {
		return nil // signal: use float64 path
	}

	if numericWidth(a) == 1 || numericWidth(b) == 1 {
		return int64(0)
	}

	return int32(0)
}

func addOp(a, b any) (any, error) {
	switch widen(a, b).(type) {
	case nil:
		return asFloat(a) + asFloat(b), nil
	case int64:
		return toInt64(a) + toInt64(b), nil
	default:
		return toInt32(a) + toInt32(b), nil
	}
}

func multiplyOp(a, b any) (any, error) {
	switch widen(a, b).(type) {
	case nil:
		return asFloat(a) * asFloat(b), nil
	case int64:
		return toInt64(a) * toInt64(b), nil
	default:
		return toInt32(a) * toInt32(b), nil
	}
}

func toInt32(v any) int32 {
	switch v := v.(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case float64:
		return int32(v)
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	switch v := v.(type) {
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// arity2 builds a strictly-binary arithmetic operator ($subtract, $divide, $mod).
func arity2(name string, fn func(a, b any) (any, error)) Handler {
	return func(arg any, doc *types.Document, recurse Recurse) (any, error) {
		args := argsArray(arg)
		if len(args) != 2 {
			return nil, arityError(name, name+" requires exactly two arguments")
		}

		raw, err := evalArgs(args, recurse)
		if err != nil {
			return nil, err
		}

		if isNullish(raw[0]) || isNullish(raw[1]) {
			return types.Null, nil
		}

		if !isNumericValue(raw[0]) || !isNumericValue(raw[1]) {
			return nil, typeError(name, name+" only supports numeric types")
		}

		return fn(raw[0], raw[1])
	}
}

func subtractOp(a, b any) (any, error) {
	switch widen(a, b).(type) {
	case nil:
		return asFloat(a) - asFloat(b), nil
	case int64:
		return toInt64(a) - toInt64(b), nil
	default:
		return toInt32(a) - toInt32(b), nil
	}
}

func divideOp(a, b any) (any, error) {
	if asFloat(b) == 0 {
		return nil, typeError("$divide", "$divide by zero")
	}

	return asFloat(a) / asFloat(b), nil
}

func modOp(a, b any) (any, error) {
	if asFloat(b) == 0 {
		return nil, typeError("$mod", "$mod by zero")
	}

	switch widen(a, b).(type) {
	case int64:
		return toInt64(a) % toInt64(b), nil
	case nil:
		return math.Mod(asFloat(a), asFloat(b)), nil
	default:
		return toInt32(a) % toInt32(b), nil
	}
}
