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

// SortType is the direction of a sort key.
type SortType int8

// Sort directions.
const (
	Ascending  SortType = 1
	Descending SortType = -1
)

// typeRank orders BSON types for comparison/sort purposes, per spec.md §4.2:
// "null < number < string < object < array < bool < date". Binary, ObjectID
// and Regex are not named by the spec; they are slotted in next to the
// nearest BSON-native relative (string-like / after date) so the six named
// types keep exactly the required relative order.
func typeRank(v any) int {
	switch v.(type) {
	case NullType:
		return 0
	case int32, int64, float64:
		return 1
	case string:
		return 2
	case Binary:
		return 3
	case ObjectID:
		return 4
	case *Document:
		return 5
	case *Array:
		return 6
	case bool:
		return 7
	default:
		if isTimeValue(v) {
			return 8
		}

		return 9 // Regex and anything else unranked sorts last
	}
}

// CompareOrderForSort compares a and b for sort purposes, returning Less, Equal or
// Greater, never NotEqual: sort requires a total order even across mixed types.
//
// Missing fields are the sort caller's responsibility to substitute with Null
// before calling this function (missing and null sort identically).
func CompareOrderForSort(a, b any, order SortType) CompareResult {
	res := compareForSort(a, b)

	if order == Descending {
		switch res {
		case Less:
			return Greater
		case Greater:
			return Less
		}
	}

	return res
}

// compareForSort always compares as if ascending; CompareOrderForSort flips for Descending.
func compareForSort(a, b any) CompareResult {
	aArr, aIsArr := a.(*Array)
	bArr, bIsArr := b.(*Array)

	switch {
	case aIsArr && bIsArr:
		if aArr.Len() == 0 && bArr.Len() == 0 {
			return Equal
		}

		if aArr.Len() == 0 {
			return Less
		}

		if bArr.Len() == 0 {
			return Greater
		}

		return compareForSort(arrayRepresentative(aArr), arrayRepresentative(bArr))

	case aIsArr:
		if aArr.Len() == 0 {
			return Less
		}

		return compareForSort(arrayRepresentative(aArr), b)

	case bIsArr:
		if bArr.Len() == 0 {
			return Greater
		}

		return compareForSort(a, arrayRepresentative(bArr))
	}

	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return Less
		}

		return Greater
	}

	switch res := Compare(a, b); res {
	case Equal, Less, Greater:
		return res
	default: // NotEqual between same-ranked but structurally different documents: fall back to Equal
		return Equal
	}
}

// arrayRepresentative returns the minimum element of a non-empty array, used
// as its stand-in value when comparing against a non-array for sort purposes.
func arrayRepresentative(a *Array) any {
	min := a.s[0]

	for _, v := range a.s[1:] {
		if compareForSort(v, min) == Less {
			min = v
		}
	}

	return min
}
