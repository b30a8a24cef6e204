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

func TestGetByPathThroughArray(t *testing.T) {
	t.Parallel()

	arr, err := NewArray(int32(10), int32(20))
	require.NoError(t, err)

	d, err := NewDocument("a", MakeDocument(0))
	require.NoError(t, err)

	inner, err := d.Get("a")
	require.NoError(t, err)
	require.NoError(t, inner.(*Document).Set("list", arr))

	path, err := NewPathFromString("a.list.1")
	require.NoError(t, err)

	v, err := d.GetByPath(path)
	require.NoError(t, err)
	assert.Equal(t, int32(20), v)
}

func TestGetByPathMissing(t *testing.T) {
	t.Parallel()

	d, err := NewDocument("a", int32(1))
	require.NoError(t, err)

	path, err := NewPathFromString("a.b")
	require.NoError(t, err)

	_, err = d.GetByPath(path)
	assert.ErrorIs(t, err, ErrNotDocument)

	path2, err := NewPathFromString("missing")
	require.NoError(t, err)

	_, err = d.GetByPath(path2)
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestSetByPathCreatesIntermediateDocuments(t *testing.T) {
	t.Parallel()

	d := MakeDocument(0)

	path, err := NewPathFromString("a.b.c")
	require.NoError(t, err)

	require.NoError(t, d.SetByPath(path, int32(42)))

	v, err := d.GetByPath(path)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
}

func TestRemoveByPath(t *testing.T) {
	t.Parallel()

	d, err := NewDocument("a", int32(1), "b", int32(2))
	require.NoError(t, err)

	path, err := NewPathFromString("a")
	require.NoError(t, err)

	d.RemoveByPath(path)
	assert.False(t, d.Has("a"))
	assert.True(t, d.Has("b"))
}

func TestSetThenUnsetRoundTrips(t *testing.T) {
	t.Parallel()

	d, err := NewDocument("a", int32(1))
	require.NoError(t, err)

	before := d.DeepCopy()

	path, err := NewPathFromString("extra")
	require.NoError(t, err)

	require.NoError(t, d.SetByPath(path, int32(2)))
	d.RemoveByPath(path)

	assert.Equal(t, Equal, compareDocuments(before, d))
}
