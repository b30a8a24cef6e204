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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareNumericEquality(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Equal, Compare(int32(1), int64(1)))
	assert.Equal(t, Equal, Compare(int32(1), float64(1)))
	assert.Equal(t, Less, Compare(int32(1), float64(1.5)))
	assert.Equal(t, Greater, Compare(float64(2), int64(1)))
}

func TestCompareStringsAndBools(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Less, Compare("a", "b"))
	assert.Equal(t, Less, Compare(false, true))
	assert.Equal(t, Equal, Compare(true, true))
	assert.Equal(t, NotEqual, Compare("a", int32(1)))
}

func TestCompareDocumentsIgnoresKeyOrder(t *testing.T) {
	t.Parallel()

	a, err := NewDocument("x", int32(1), "y", int32(2))
	require.NoError(t, err)

	b, err := NewDocument("y", int32(2), "x", int32(1))
	require.NoError(t, err)

	assert.Equal(t, Equal, Compare(a, b))
}

func TestCompareArraysOrderMatters(t *testing.T) {
	t.Parallel()

	a, err := NewArray(int32(1), int32(2))
	require.NoError(t, err)

	b, err := NewArray(int32(2), int32(1))
	require.NoError(t, err)

	assert.Equal(t, NotEqual, Compare(a, b))
}
