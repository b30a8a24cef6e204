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

package sqlitestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/docengine/aggpipe/internal/types"
)

func TestToBSONAndFromBSONDRoundTripScalars(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, "s", "hello", "i", int32(1), "l", int64(2), "f", 3.5, "b", true, "n", types.Null)

	d := ToBSON(doc)

	back, err := FromBSOND(d)
	require.NoError(t, err)

	s, _ := back.Get("s")
	i, _ := back.Get("i")
	l, _ := back.Get("l")
	f, _ := back.Get("f")
	b, _ := back.Get("b")
	n, _ := back.Get("n")

	assert.Equal(t, "hello", s)
	assert.Equal(t, int32(1), i)
	assert.Equal(t, int64(2), l)
	assert.Equal(t, 3.5, f)
	assert.Equal(t, true, b)
	assert.Equal(t, types.Null, n)
}

func TestToBSONAndFromBSONDRoundTripNestedDocumentsAndArrays(t *testing.T) {
	t.Parallel()

	inner := mustDoc(t, "x", int32(1))
	arr, err := types.NewArray(int32(1), int32(2), inner)
	require.NoError(t, err)

	doc := mustDoc(t, "nested", inner, "items", arr)

	back, err := FromBSOND(ToBSON(doc))
	require.NoError(t, err)

	nested, err := back.Get("nested")
	require.NoError(t, err)
	nestedDoc, ok := nested.(*types.Document)
	require.True(t, ok)

	x, _ := nestedDoc.Get("x")
	assert.Equal(t, int32(1), x)

	items, err := back.Get("items")
	require.NoError(t, err)
	itemsArr, ok := items.(*types.Array)
	require.True(t, ok)
	assert.Equal(t, 3, itemsArr.Len())
}

func TestFromBSONDConvertsDateTimeToUTCTime(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	d := bson.D{{Key: "when", Value: primitive.NewDateTimeFromTime(want)}}

	back, err := FromBSOND(d)
	require.NoError(t, err)

	got, err := back.Get("when")
	require.NoError(t, err)

	gotTime, ok := got.(time.Time)
	require.True(t, ok)
	assert.True(t, want.Equal(gotTime))
}

func TestFromBSONArrayConvertsDecodedArray(t *testing.T) {
	t.Parallel()

	a := bson.A{int32(1), "two", bson.D{{Key: "k", Value: int32(3)}}}

	arr, err := FromBSONArray(a)
	require.NoError(t, err)
	require.Equal(t, 3, arr.Len())

	third, ok := arr.Slice()[2].(*types.Document)
	require.True(t, ok)

	k, _ := third.Get("k")
	assert.Equal(t, int32(3), k)
}

func TestToBSONNilDocumentReturnsNilD(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ToBSON(nil))
}
