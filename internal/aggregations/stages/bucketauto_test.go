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

func TestBucketAutoTwoBucketsFromFiveDocs(t *testing.T) {
	t.Parallel()

	spec := mustDoc(t, "groupBy", "$score", "buckets", int32(2))

	stage, err := newBucketAuto(spec, &aggregations.Options{})
	require.NoError(t, err)

	docs := []*types.Document{
		mustDoc(t, "score", int32(10)),
		mustDoc(t, "score", int32(20)),
		mustDoc(t, "score", int32(30)),
		mustDoc(t, "score", int32(40)),
		mustDoc(t, "score", int32(50)),
	}

	out, err := stage.Process(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, out, 2, "5 docs / 2 buckets -> groups of ceil(5/2)=3 and 2")

	id0, err := out[0].Get("_id")
	require.NoError(t, err)

	id0Doc := id0.(*types.Document)
	min0, _ := id0Doc.Get("min")
	max0, _ := id0Doc.Get("max")
	assert.Equal(t, int32(10), min0)
	assert.Equal(t, int32(40), max0, "bucket 0's max must equal bucket 1's min")

	id1, err := out[1].Get("_id")
	require.NoError(t, err)

	id1Doc := id1.(*types.Document)
	min1, _ := id1Doc.Get("min")
	max1, _ := id1Doc.Get("max")
	assert.Equal(t, int32(40), min1)
	assert.Equal(t, int32(50), max1, "last bucket's max is its own last key")

	count0, _ := out[0].Get("count")
	count1, _ := out[1].Get("count")
	assert.Equal(t, int32(3), count0)
	assert.Equal(t, int32(2), count1)
}

func TestBucketAutoMoreBucketsThanDocs(t *testing.T) {
	t.Parallel()

	spec := mustDoc(t, "groupBy", "$score", "buckets", int32(10))

	stage, err := newBucketAuto(spec, &aggregations.Options{})
	require.NoError(t, err)

	docs := []*types.Document{
		mustDoc(t, "score", int32(1)),
		mustDoc(t, "score", int32(2)),
	}

	out, err := stage.Process(context.Background(), docs)
	require.NoError(t, err)
	assert.Len(t, out, 2, "never more buckets than documents")
}

func TestBucketAutoEmptyInput(t *testing.T) {
	t.Parallel()

	spec := mustDoc(t, "groupBy", "$score", "buckets", int32(3))

	stage, err := newBucketAuto(spec, &aggregations.Options{})
	require.NoError(t, err)

	out, err := stage.Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
