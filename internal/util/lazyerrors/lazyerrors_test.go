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

package lazyerrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	t.Parallel()

	err := New("err")
	err1 := Errorf("err1: %w", err)
	err2 := Errorf("err2: %w", err1)

	require.True(t, strings.HasSuffix(err.Error(), "lazyerrors.TestErrors] err"))
	require.Contains(t, err1.Error(), "err1: ")
	require.Contains(t, err1.Error(), err.Error())
	require.Contains(t, err2.Error(), "err2: ")
	require.Contains(t, err2.Error(), err1.Error())

	assert.True(t, strings.HasPrefix(fmt.Sprintf("%#v", err), "lazyerror("))

	require.True(t, errors.Is(err2, err2))
	require.True(t, errors.Is(err2, err1))
	require.True(t, errors.Is(err2, err))

	// Unwrap on a lazy error yields the error it annotates (the fmt.Errorf or
	// errors.New value), so reaching the previous lazy error takes two steps.
	require.Equal(t, err1, errors.Unwrap(errors.Unwrap(err2)))
	require.Equal(t, err, errors.Unwrap(errors.Unwrap(err1)))
	require.Nil(t, errors.Unwrap(errors.Unwrap(err)))
}

func TestErrorNil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Error(nil))
}
