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

func TestBucketHalfOpenIntervalsAndDefault(t *testing.T) {
	t.Parallel()

	spec := mustDoc(t,
		"groupBy", "$age",
		"boundaries", mustArr(t, int32(0), int32(18), int32(65)),
		"default", "other",
	)

	stage, err := newBucket(spec, &aggregations.Options{})
	require.NoError(t, err)

	docs := []*types.Document{
		mustDoc(t, "age", int32(5)),
		mustDoc(t, "age", int32(18)),
		mustDoc(t, "age", int32(64)),
		mustDoc(t, "age", int32(90)),
	}

	out, err := stage.Process(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, out, 3)

	id0, err := out[0].Get("_id")
	require.NoError(t, err)
	assert.Equal(t, int32(0), id0)

	count0, err := out[0].Get("count")
	require.NoError(t, err)
	assert.Equal(t, int32(1), count0)

	id1, err := out[1].Get("_id")
	require.NoError(t, err)
	assert.Equal(t, int32(18), id1, "18 falls in [18, 65), not [0, 18)")

	idDefault, err := out[2].Get("_id")
	require.NoError(t, err)
	assert.Equal(t, "other", idDefault, "90 falls outside every interval")
}

func TestBucketNoMatchNoDefaultErrors(t *testing.T) {
	t.Parallel()

	spec := mustDoc(t,
		"groupBy", "$age",
		"boundaries", mustArr(t, int32(0), int32(18)),
	)

	stage, err := newBucket(spec, &aggregations.Options{})
	require.NoError(t, err)

	_, err = stage.Process(context.Background(), []*types.Document{mustDoc(t, "age", int32(90))})
	assert.Error(t, err)
}

func TestBucketRejectsUnsortedBoundaries(t *testing.T) {
	t.Parallel()

	spec := mustDoc(t,
		"groupBy", "$age",
		"boundaries", mustArr(t, int32(18), int32(0)),
	)

	_, err := newBucket(spec, &aggregations.Options{})
	assert.Error(t, err)
}
