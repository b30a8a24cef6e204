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

package types

import (
	"bytes"
	"time"
)

// CompareResult is the outcome of comparing two values.
type CompareResult int

// Comparison results.
const (
	Equal CompareResult = iota
	Less
	Greater
	NotEqual // values are of incomparable types; only used by Compare, never by CompareOrderForSort
)

// Compare compares a and b for structural equality, collapsing int32/int64/float64
// that denote the same real number, as required by spec.md §3.
func Compare(a, b any) CompareResult {
	if isNumber(a) && isNumber(b) {
		return compareNumbers(a, b)
	}

	switch a := a.(type) {
	case string:
		b, ok := b.(string)
		if !ok {
			return NotEqual
		}

		return compareOrdered(a, b)

	case bool:
		b, ok := b.(bool)
		if !ok {
			return NotEqual
		}

		switch {
		case a == b:
			return Equal
		case !a:
			return Less
		default:
			return Greater
		}

	case NullType:
		if _, ok := b.(NullType); ok {
			return Equal
		}

		return NotEqual

	case time.Time:
		b, ok := b.(time.Time)
		if !ok {
			return NotEqual
		}

		return compareOrdered(a.UnixMilli(), b.UnixMilli())

	case ObjectID:
		b, ok := b.(ObjectID)
		if !ok {
			return NotEqual
		}

		return compareOrdered(a.Hex(), b.Hex())

	case Binary:
		b, ok := b.(Binary)
		if !ok {
			return NotEqual
		}

		if a.Subtype == b.Subtype && bytes.Equal(a.Data, b.Data) {
			return Equal
		}

		return NotEqual

	case *Document:
		b, ok := b.(*Document)
		if !ok {
			return NotEqual
		}

		return compareDocuments(a, b)

	case *Array:
		b, ok := b.(*Array)
		if !ok {
			return NotEqual
		}

		return compareArrays(a, b)

	default:
		return NotEqual
	}
}

// compareDocuments compares two documents field by field, ignoring key order.
func compareDocuments(a, b *Document) CompareResult {
	if a.Len() != b.Len() {
		return NotEqual
	}

	for _, k := range a.keys {
		bv, err := b.Get(k)
		if err != nil {
			return NotEqual
		}

		if Compare(a.m[k], bv) != Equal {
			return NotEqual
		}
	}

	return Equal
}

// compareArrays compares two arrays element by element, in order.
func compareArrays(a, b *Array) CompareResult {
	if a.Len() != b.Len() {
		return NotEqual
	}

	for i := range a.s {
		if Compare(a.s[i], b.s[i]) != Equal {
			return NotEqual
		}
	}

	return Equal
}

// isNumber reports whether v is one of the numeric Value kinds.
func isNumber(v any) bool {
	switch v.(type) {
	case int32, int64, float64:
		return true
	default:
		return false
	}
}

// asFloat64 widens a numeric value to float64 for comparison.
func asFloat64(v any) float64 {
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

// compareNumbers compares two numeric values as real numbers.
func compareNumbers(a, b any) CompareResult {
	return compareOrdered(asFloat64(a), asFloat64(b))
}

// orderedValue is any type Go's < and > operators work on directly.
type orderedValue interface {
	~string | ~int | ~int32 | ~int64 | ~float64
}

// compareOrdered compares two totally-ordered Go values.
func compareOrdered[T orderedValue](a, b T) CompareResult {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}
