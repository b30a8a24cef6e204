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

func TestDocumentMethodsOnNil(t *testing.T) {
	t.Parallel()

	var d *Document
	assert.Zero(t, d.Len())
	assert.Nil(t, d.Keys())
	assert.Nil(t, d.Map())
	assert.False(t, d.Has("x"))

	_, err := d.Get("x")
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestDocumentSetGetOrder(t *testing.T) {
	t.Parallel()

	d, err := NewDocument("b", int32(2), "a", int32(1))
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, d.Keys())
	assert.Equal(t, "b", d.Command())

	v, err := d.Get("a")
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	require.NoError(t, d.Set("a", int32(10)))
	assert.Equal(t, []string{"b", "a"}, d.Keys(), "re-setting an existing key must not move it")

	v, err = d.Get("a")
	require.NoError(t, err)
	assert.Equal(t, int32(10), v)
}

func TestDocumentRemove(t *testing.T) {
	t.Parallel()

	d, err := NewDocument("a", int32(1), "b", int32(2), "c", int32(3))
	require.NoError(t, err)

	removed := d.Remove("b")
	assert.Equal(t, int32(2), removed)
	assert.Equal(t, []string{"a", "c"}, d.Keys())
	assert.False(t, d.Has("b"))
}

func TestDocumentSetRejectsUnsupportedType(t *testing.T) {
	t.Parallel()

	d := MakeDocument(1)
	err := d.Set("bad", 42) // bare int, not int32/int64, is not a Value
	assert.Error(t, err)
}

func TestNewDocumentOddArgs(t *testing.T) {
	t.Parallel()

	_, err := NewDocument("a")
	assert.Error(t, err)
}

func TestDocumentDeepCopy(t *testing.T) {
	t.Parallel()

	inner, err := NewDocument("x", int32(1))
	require.NoError(t, err)

	d, err := NewDocument("inner", inner)
	require.NoError(t, err)

	cp := d.DeepCopy()
	require.NoError(t, cp.Set("inner", MakeDocument(0)))

	v, err := d.Get("inner")
	require.NoError(t, err)
	assert.Equal(t, inner, v, "mutating the copy must not affect the original")
}
