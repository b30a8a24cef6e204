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
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCompareOrderForSort tests edge cases only.
func TestCompareOrderForSort(t *testing.T) {
	t.Parallel()

	emptyA, err := NewArray()
	require.NoError(t, err)

	emptyB, err := NewArray()
	require.NoError(t, err)

	doc, err := NewDocument("foo", Null)
	require.NoError(t, err)

	for name, tc := range map[string]struct {
		a        any
		b        any
		order    SortType
		expected CompareResult
	}{
		"EmptyArrays": {
			a:        emptyA,
			b:        emptyB,
			order:    Ascending,
			expected: Equal,
		},
		"NonArrayAndEmptyArray": {
			a:        doc,
			b:        emptyB,
			order:    Ascending,
			expected: Greater,
		},
		"NullBeforeNumber": {
			a:        Null,
			b:        int32(0),
			order:    Ascending,
			expected: Less,
		},
		"NumberBeforeString": {
			a:        int32(1),
			b:        "a",
			order:    Ascending,
			expected: Less,
		},
		"StringBeforeObject": {
			a:        "a",
			b:        MakeDocument(0),
			order:    Ascending,
			expected: Less,
		},
		"ObjectBeforeBool": {
			a:        MakeDocument(0),
			b:        false,
			order:    Ascending,
			expected: Less,
		},
		"DescendingFlips": {
			a:        int32(1),
			b:        int32(2),
			order:    Descending,
			expected: Greater,
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			res := CompareOrderForSort(tc.a, tc.b, tc.order)
			require.Equal(t, tc.expected, res)
		})
	}
}
