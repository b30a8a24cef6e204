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

func TestArrayMethodsOnNil(t *testing.T) {
	t.Parallel()

	var a *Array
	assert.Zero(t, a.Len())

	_, err := a.Get(0)
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestArrayAppendGetSet(t *testing.T) {
	t.Parallel()

	a, err := NewArray(int32(1), int32(2), int32(3))
	require.NoError(t, err)
	assert.Equal(t, 3, a.Len())

	v, err := a.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)

	require.NoError(t, a.Set(1, int32(20)))
	v, err = a.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int32(20), v)

	_, err = a.Get(10)
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestArrayDeepCopy(t *testing.T) {
	t.Parallel()

	a, err := NewArray(int32(1))
	require.NoError(t, err)

	cp := a.DeepCopy()
	require.NoError(t, cp.Set(0, int32(99)))

	v, err := a.Get(0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)
}
