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

package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docengine/aggpipe/internal/types"
)

func mustDoc(t *testing.T, pairs ...any) *types.Document {
	t.Helper()

	d, err := types.NewDocument(pairs...)
	require.NoError(t, err)

	return d
}

func mustArr(t *testing.T, values ...any) *types.Array {
	t.Helper()

	a, err := types.NewArray(values...)
	require.NoError(t, err)

	return a
}

func TestMatchesNilFilterMatchesEverything(t *testing.T) {
	t.Parallel()

	m := New()
	assert.True(t, m.Matches(mustDoc(t, "a", int32(1)), nil))
}

func TestMatchesTopLevelEquality(t *testing.T) {
	t.Parallel()

	m := New()
	doc := mustDoc(t, "a", int32(1))

	assert.True(t, m.Matches(doc, mustDoc(t, "a", int32(1))))
	assert.False(t, m.Matches(doc, mustDoc(t, "a", int32(2))))
}

func TestMatchesDottedPath(t *testing.T) {
	t.Parallel()

	m := New()
	doc := mustDoc(t, "a", mustDoc(t, "b", int32(1)))

	assert.True(t, m.Matches(doc, mustDoc(t, "a.b", int32(1))))
	assert.False(t, m.Matches(doc, mustDoc(t, "a.b", int32(2))))
}

func TestMatchesComparisonOperators(t *testing.T) {
	t.Parallel()

	m := New()
	doc := mustDoc(t, "a", int32(5))

	assert.True(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "$gt", int32(4)))))
	assert.False(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "$gt", int32(5)))))
	assert.True(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "$gte", int32(5)))))
	assert.True(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "$lt", int32(6)))))
	assert.True(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "$lte", int32(5)))))
	assert.True(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "$ne", int32(6)))))
	assert.False(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "$ne", int32(5)))))
	assert.True(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "$eq", int32(5)))))
}

func TestMatchesInAndNin(t *testing.T) {
	t.Parallel()

	m := New()
	doc := mustDoc(t, "a", int32(5))

	assert.True(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "$in", mustArr(t, int32(1), int32(5))))))
	assert.False(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "$in", mustArr(t, int32(1), int32(2))))))
	assert.True(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "$nin", mustArr(t, int32(1), int32(2))))))
	assert.False(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "$nin", mustArr(t, int32(1), int32(5))))))
}

func TestMatchesExistsDistinguishesAbsentFromNull(t *testing.T) {
	t.Parallel()

	m := New()
	doc := mustDoc(t, "a", types.Null)

	assert.True(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "$exists", true))),
		"a field present with a null value still exists")
	assert.False(t, m.Matches(doc, mustDoc(t, "missing", mustDoc(t, "$exists", true))))
	assert.True(t, m.Matches(doc, mustDoc(t, "missing", mustDoc(t, "$exists", false))))
	assert.False(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "$exists", false))))
}

func TestMatchesUnknownOperatorNeverMatches(t *testing.T) {
	t.Parallel()

	m := New()
	doc := mustDoc(t, "a", int32(5))

	assert.False(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "$unknownOp", int32(5)))))
}

func TestMatchesAndOrNor(t *testing.T) {
	t.Parallel()

	m := New()
	doc := mustDoc(t, "a", int32(1), "b", int32(2))

	assert.True(t, m.Matches(doc, mustDoc(t, "$and",
		mustArr(t, mustDoc(t, "a", int32(1)), mustDoc(t, "b", int32(2))))))
	assert.False(t, m.Matches(doc, mustDoc(t, "$and",
		mustArr(t, mustDoc(t, "a", int32(1)), mustDoc(t, "b", int32(3))))))

	assert.True(t, m.Matches(doc, mustDoc(t, "$or",
		mustArr(t, mustDoc(t, "a", int32(99)), mustDoc(t, "b", int32(2))))))
	assert.False(t, m.Matches(doc, mustDoc(t, "$or",
		mustArr(t, mustDoc(t, "a", int32(99)), mustDoc(t, "b", int32(98))))))

	assert.True(t, m.Matches(doc, mustDoc(t, "$nor",
		mustArr(t, mustDoc(t, "a", int32(99)), mustDoc(t, "b", int32(98))))))
	assert.False(t, m.Matches(doc, mustDoc(t, "$nor",
		mustArr(t, mustDoc(t, "a", int32(1)), mustDoc(t, "b", int32(98))))))
}

func TestMatchesNestedDocumentEqualityWhenNotAnOperatorDocument(t *testing.T) {
	t.Parallel()

	m := New()
	doc := mustDoc(t, "a", mustDoc(t, "x", int32(1)))

	assert.True(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "x", int32(1)))))
	assert.False(t, m.Matches(doc, mustDoc(t, "a", mustDoc(t, "x", int32(2)))))
}
