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

package aggpipe_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aggpipe "github.com/docengine/aggpipe"
	"github.com/docengine/aggpipe/internal/matcher"
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

func TestAggregateRunsAMatchPipelineAgainstASource(t *testing.T) {
	t.Parallel()

	source := func(context.Context) ([]*types.Document, error) {
		return []*types.Document{
			mustDoc(t, "status", "active"),
			mustDoc(t, "status", "retired"),
		}, nil
	}

	pipeline := mustArr(t, mustDoc(t, "$match", mustDoc(t, "status", "active")))

	cursor, err := aggpipe.Aggregate(context.Background(), source, pipeline, aggpipe.Options{Matcher: matcher.New()})
	require.NoError(t, err)

	out := cursor.ToArray()
	require.Len(t, out, 1)

	status, _ := out[0].Get("status")
	assert.Equal(t, "active", status)
}

func TestAggregateRejectsAnInvalidPipelineBeforeTouchingTheSource(t *testing.T) {
	t.Parallel()

	source := func(context.Context) ([]*types.Document, error) {
		t.Fatal("source must not be called when the pipeline itself fails to parse")
		return nil, nil
	}

	pipeline := mustArr(t, mustDoc(t, "$doesNotExist", mustDoc(t)))

	_, err := aggpipe.Aggregate(context.Background(), source, pipeline, aggpipe.Options{})
	assert.Error(t, err)
}

func TestAggregateSourceIsSkippedForDocumentsPipeline(t *testing.T) {
	t.Parallel()

	source := func(context.Context) ([]*types.Document, error) {
		t.Fatal("source must not be called when the pipeline starts with $documents")
		return nil, nil
	}

	pipeline := mustArr(t, mustDoc(t, "$documents", mustArr(t, mustDoc(t, "a", int32(1)))))

	cursor, err := aggpipe.Aggregate(context.Background(), source, pipeline, aggpipe.Options{})
	require.NoError(t, err)
	assert.Len(t, cursor.ToArray(), 1)
}
