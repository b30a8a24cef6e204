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

package iterator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceValues(t *testing.T) {
	t.Parallel()

	expected := []int{1, 2, 3}
	actual, err := ConsumeValues(ForSlice(expected))
	require.NoError(t, err)
	assert.Equal(t, expected, actual)

	actual, err = ConsumeValues(Values(ForSlice(expected)))
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
}

func TestConsumeValuesN(t *testing.T) {
	t.Parallel()

	s := []int{1, 2, 3}
	iter := ForSlice(s)

	actual, err := ConsumeValuesN(iter, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, actual)

	actual, err = ConsumeValuesN(iter, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, actual)

	actual, err = ConsumeValuesN(iter, 2)
	require.NoError(t, err)
	assert.Nil(t, actual)

	iter.Close()
}

func TestForFunc(t *testing.T) {
	t.Parallel()

	var i int

	iter := ForFunc(func() (struct{}, int, error) {
		i++
		if i > 3 {
			return struct{}{}, 0, ErrIteratorDone
		}

		return struct{}{}, i, nil
	})

	actual, err := ConsumeValues(iter)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, actual)
}

func TestMultiCloser(t *testing.T) {
	t.Parallel()

	var order []int

	mc := NewMultiCloser(CloserFunc(func() { order = append(order, 1) }))
	mc.Add(CloserFunc(func() { order = append(order, 2) }))
	mc.Close()

	assert.Equal(t, []int{2, 1}, order)
}
