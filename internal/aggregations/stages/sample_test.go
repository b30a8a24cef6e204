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
	"github.com/docengine/aggpipe/internal/types"
)

func TestSampleSizeSmallerThanInput(t *testing.T) {
	t.Parallel()

	stage, err := newSample(mustDoc(t, "size", int32(2)), &aggregations.Options{})
	require.NoError(t, err)

	docs := []*types.Document{
		mustDoc(t, "x", int32(1)),
		mustDoc(t, "x", int32(2)),
		mustDoc(t, "x", int32(3)),
		mustDoc(t, "x", int32(4)),
	}

	out, err := stage.Process(context.Background(), docs)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	seen := map[*types.Document]bool{}
	for _, d := range out {
		assert.False(t, seen[d], "sampling without replacement must not repeat a document")
		seen[d] = true
	}
}

func TestSampleSizeLargerThanInputReturnsEveryDocument(t *testing.T) {
	t.Parallel()

	stage, err := newSample(mustDoc(t, "size", int32(100)), &aggregations.Options{})
	require.NoError(t, err)

	docs := []*types.Document{mustDoc(t, "x", int32(1)), mustDoc(t, "x", int32(2))}

	out, err := stage.Process(context.Background(), docs)
	require.NoError(t, err)
	assert.Len(t, out, len(docs))
}

func TestSampleRejectsNegativeSize(t *testing.T) {
	t.Parallel()

	_, err := newSample(mustDoc(t, "size", int32(-1)), &aggregations.Options{})
	assert.Error(t, err)
}
