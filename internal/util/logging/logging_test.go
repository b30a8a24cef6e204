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

package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	l, err := NewLogger("info", "console")
	require.NoError(t, err)
	assert.NotNil(t, l)

	l, err = NewLogger("info", "json")
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = NewLogger("not-a-level", "console")
	assert.Error(t, err)

	_, err = NewLogger("info", "not-a-format")
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zap.NewNop(), FromContext(context.Background()))

	l := zap.NewExample()
	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestNonNil(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zap.NewNop(), NonNil(nil))

	l := zap.NewExample()
	assert.Same(t, l, NonNil(l))
}
