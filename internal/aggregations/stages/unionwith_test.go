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
	"github.com/docengine/aggpipe/internal/provider"
	"github.com/docengine/aggpipe/internal/types"
	"github.com/docengine/aggpipe/internal/util/iterator"
)

// fakeCollectionProvider hands back a fixed, named in-memory collection;
// enough to drive $unionWith/$lookup/$graphLookup/$out in tests without a
// real storage backend. Every GetCollection call for the same name shares
// the same backing slice, so a write through one handle is visible to a
// handle obtained later, matching a real CollectionProvider's semantics.
type fakeCollectionProvider struct {
	collections map[string][]*types.Document
}

func (p *fakeCollectionProvider) GetCollection(_ context.Context, name string) (provider.CollectionHandle, error) {
	if p.collections == nil {
		p.collections = map[string][]*types.Document{}
	}

	return &fakeCollectionHandle{provider: p, name: name}, nil
}

type fakeCollectionHandle struct {
	provider *fakeCollectionProvider
	name     string
}

func (h *fakeCollectionHandle) Find(context.Context, *types.Document) (types.DocumentsIterator, error) {
	return iterator.Values(iterator.ForSlice(h.provider.collections[h.name])), nil
}

func (h *fakeCollectionHandle) InsertMany(_ context.Context, docs []*types.Document) error {
	h.provider.collections[h.name] = append(h.provider.collections[h.name], docs...)
	return nil
}

func (h *fakeCollectionHandle) DeleteMany(context.Context, *types.Document) error {
	h.provider.collections[h.name] = nil
	return nil
}

func TestUnionWithConcatenatesForeignCollectionWithoutPipeline(t *testing.T) {
	t.Parallel()

	prov := &fakeCollectionProvider{collections: map[string][]*types.Document{
		"other": {mustDoc(t, "y", int32(10)), mustDoc(t, "y", int32(20))},
	}}

	stage, err := newUnionWith("other", &aggregations.Options{Provider: prov})
	require.NoError(t, err)

	input := []*types.Document{mustDoc(t, "x", int32(1))}

	out, err := stage.Process(context.Background(), input)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestUnionWithRunsSubPipelineOverForeignCollection(t *testing.T) {
	t.Parallel()

	prov := &fakeCollectionProvider{collections: map[string][]*types.Document{
		"other": {mustDoc(t, "y", int32(10))},
	}}

	var sawPipelineLen int

	run := func(_ context.Context, docs []*types.Document, pipeline *types.Array) ([]*types.Document, error) {
		sawPipelineLen = pipeline.Len()
		return docs, nil
	}

	spec := mustDoc(t, "coll", "other", "pipeline", mustArr(t, mustDoc(t, "$match", mustDoc(t))))

	stage, err := newUnionWith(spec, &aggregations.Options{Provider: prov, Driver: run})
	require.NoError(t, err)

	out, err := stage.Process(context.Background(), []*types.Document{mustDoc(t, "x", int32(1))})
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, 1, sawPipelineLen)
}

func TestUnionWithRejectsSpecWithoutCollectionName(t *testing.T) {
	t.Parallel()

	prov := &fakeCollectionProvider{collections: map[string][]*types.Document{}}

	_, err := newUnionWith(mustDoc(t), &aggregations.Options{Provider: prov})
	assert.Error(t, err)
}
