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

// markingDriver stubs Options.Driver: it tags the first document of the
// snapshot it receives with the branch's own pipeline length, so the test
// can tell branches apart and confirm each got an independent snapshot.
func markingDriver(t *testing.T) func(context.Context, []*types.Document, *types.Array) ([]*types.Document, error) {
	t.Helper()

	return func(_ context.Context, docs []*types.Document, pipeline *types.Array) ([]*types.Document, error) {
		if len(docs) == 0 {
			return docs, nil
		}

		require.NoError(t, docs[0].Set("branchLen", int32(pipeline.Len())))

		return docs, nil
	}
}

func TestFacetRunsEachBranchOverAnIndependentSnapshot(t *testing.T) {
	t.Parallel()

	spec := mustDoc(t,
		"a", mustArr(t, mustDoc(t, "$match", mustDoc(t))),
		"b", mustArr(t, mustDoc(t, "$match", mustDoc(t)), mustDoc(t, "$match", mustDoc(t))),
	)

	stage, err := newFacet(spec, &aggregations.Options{Driver: markingDriver(t)})
	require.NoError(t, err)

	input := []*types.Document{mustDoc(t, "x", int32(1))}

	out, err := stage.Process(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, out, 1)

	aVal, err := out[0].Get("a")
	require.NoError(t, err)
	aArr := aVal.(*types.Array)
	require.Equal(t, 1, aArr.Len())

	aDoc := aArr.Slice()[0].(*types.Document)
	aBranchLen, _ := aDoc.Get("branchLen")
	assert.Equal(t, int32(1), aBranchLen)

	bVal, err := out[0].Get("b")
	require.NoError(t, err)
	bArr := bVal.(*types.Array)
	bDoc := bArr.Slice()[0].(*types.Document)
	bBranchLen, _ := bDoc.Get("branchLen")
	assert.Equal(t, int32(2), bBranchLen)

	_, err = input[0].Get("branchLen")
	assert.Error(t, err, "Process must deep-copy before handing documents to a branch")
}

func TestFacetRequiresDriver(t *testing.T) {
	t.Parallel()

	spec := mustDoc(t, "a", mustArr(t))

	_, err := newFacet(spec, &aggregations.Options{})
	assert.Error(t, err)
}
