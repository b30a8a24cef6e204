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

package aggregations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docengine/aggpipe/internal/aggregations"
	_ "github.com/docengine/aggpipe/internal/aggregations/stages"
	"github.com/docengine/aggpipe/internal/handlererrors"
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

func codeOf(t *testing.T, err error) handlererrors.ErrorCode {
	t.Helper()

	var ce *handlererrors.CommandError
	require.ErrorAs(t, err, &ce)

	return ce.Code()
}

func TestParsePipelineRejectsMultiKeyStage(t *testing.T) {
	t.Parallel()

	raw := mustArr(t, mustDoc(t, "$match", mustDoc(t), "$project", mustDoc(t)))

	_, err := aggregations.ParsePipeline(raw)
	require.Error(t, err)
	assert.Equal(t, handlererrors.ErrStageInvalidShape, codeOf(t, err))
}

func TestParsePipelineRejectsOutNotLast(t *testing.T) {
	t.Parallel()

	raw := mustArr(t, mustDoc(t, "$out", "target"), mustDoc(t, "$match", mustDoc(t)))

	_, err := aggregations.ParsePipeline(raw)
	require.Error(t, err)
	assert.Equal(t, handlererrors.ErrStageOutNotLast, codeOf(t, err))
}

func TestParsePipelineRejectsDocumentsNotFirst(t *testing.T) {
	t.Parallel()

	raw := mustArr(t, mustDoc(t, "$match", mustDoc(t)), mustDoc(t, "$documents", mustArr(t)))

	_, err := aggregations.ParsePipeline(raw)
	require.Error(t, err)
	assert.Equal(t, handlererrors.ErrStageDocumentsNotFirst, codeOf(t, err))
}

func TestParsePipelineRejectsForbiddenStageInsideFacet(t *testing.T) {
	t.Parallel()

	raw := mustArr(t, mustDoc(t, "$facet", mustDoc(t, "a", mustArr(t, mustDoc(t, "$out", "target")))))

	_, err := aggregations.ParsePipeline(raw)
	require.Error(t, err)
	assert.Equal(t, handlererrors.ErrFacetForbiddenStage, codeOf(t, err))
}

func TestParsePipelineRejectsForbiddenStageInsideNestedFacet(t *testing.T) {
	t.Parallel()

	inner := mustDoc(t, "a", mustArr(t, mustDoc(t, "$facet", mustDoc(t, "b", mustArr(t)))))
	raw := mustArr(t, mustDoc(t, "$facet", inner))

	_, err := aggregations.ParsePipeline(raw)
	require.Error(t, err)
	assert.Equal(t, handlererrors.ErrFacetForbiddenStage, codeOf(t, err))
}

func TestParsePipelineRejectsUnknownStage(t *testing.T) {
	t.Parallel()

	raw := mustArr(t, mustDoc(t, "$doesNotExist", mustDoc(t)))

	_, err := aggregations.ParsePipeline(raw)
	require.Error(t, err)
	assert.Equal(t, handlererrors.ErrStageUnknown, codeOf(t, err))
}

func TestRunExecutesStagesLeftToRight(t *testing.T) {
	t.Parallel()

	raw := mustArr(t,
		mustDoc(t, "$match", mustDoc(t)),
		mustDoc(t, "$match", mustDoc(t, "keep", true)),
	)

	p, err := aggregations.ParsePipeline(raw)
	require.NoError(t, err)

	source := func(context.Context) ([]*types.Document, error) {
		return []*types.Document{
			mustDoc(t, "keep", true),
			mustDoc(t, "keep", false),
		}, nil
	}

	out, err := aggregations.Run(context.Background(), source, p, aggregations.RunOptions{Matcher: matcher.New()})
	require.NoError(t, err)
	require.Len(t, out, 1)

	keep, _ := out[0].Get("keep")
	assert.Equal(t, true, keep)
}

func TestRunHonorsDocumentsAsSource(t *testing.T) {
	t.Parallel()

	raw := mustArr(t, mustDoc(t, "$documents", mustArr(t, mustDoc(t, "a", int32(1)))))

	p, err := aggregations.ParsePipeline(raw)
	require.NoError(t, err)

	source := func(context.Context) ([]*types.Document, error) {
		t.Fatal("source must not be called when the pipeline starts with $documents")
		return nil, nil
	}

	out, err := aggregations.Run(context.Background(), source, p, aggregations.RunOptions{})
	require.NoError(t, err)
	require.Len(t, out, 1)
}
