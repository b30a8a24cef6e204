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

package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docengine/aggpipe/internal/aggregations"
)

func TestDocumentsBecomesThePipelineSource(t *testing.T) {
	t.Parallel()

	spec := mustArr(t, mustDoc(t, "a", int32(1)), mustDoc(t, "a", int32(2)))

	stage, err := newDocuments(spec, &aggregations.Options{})
	require.NoError(t, err)

	out, err := stage.Process(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, out, 2)

	a0, _ := out[0].Get("a")
	a1, _ := out[1].Get("a")
	assert.Equal(t, int32(1), a0)
	assert.Equal(t, int32(2), a1)
}

func TestDocumentsRejectsNonArrayResult(t *testing.T) {
	t.Parallel()

	stage, err := newDocuments(int32(1), &aggregations.Options{})
	require.NoError(t, err)

	_, err = stage.Process(context.Background(), nil)
	assert.Error(t, err)
}

func TestDocumentsRejectsArrayOfNonDocuments(t *testing.T) {
	t.Parallel()

	spec := mustArr(t, int32(1), int32(2))

	stage, err := newDocuments(spec, &aggregations.Options{})
	require.NoError(t, err)

	_, err = stage.Process(context.Background(), nil)
	assert.Error(t, err)
}
