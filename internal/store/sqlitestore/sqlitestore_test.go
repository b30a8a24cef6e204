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

package sqlitestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docengine/aggpipe/internal/types"
	"github.com/docengine/aggpipe/internal/util/iterator"
)

func mustDoc(t *testing.T, pairs ...any) *types.Document {
	t.Helper()

	d, err := types.NewDocument(pairs...)
	require.NoError(t, err)

	return d
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open("")
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestStoreInsertAndFindRoundTrips(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	coll, err := s.GetCollection(ctx, "widgets")
	require.NoError(t, err)

	require.NoError(t, coll.InsertMany(ctx, []*types.Document{
		mustDoc(t, "name", "a", "qty", int32(1)),
		mustDoc(t, "name", "b", "qty", int32(2)),
	}))

	iter, err := coll.Find(ctx, nil)
	require.NoError(t, err)

	docs, err := iterator.ConsumeValues(iter)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	name0, _ := docs[0].Get("name")
	qty0, _ := docs[0].Get("qty")
	assert.Equal(t, "a", name0)
	assert.Equal(t, int32(1), qty0)
}

func TestStoreFindAppliesFilter(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	coll, err := s.GetCollection(ctx, "widgets")
	require.NoError(t, err)

	require.NoError(t, coll.InsertMany(ctx, []*types.Document{
		mustDoc(t, "name", "a"),
		mustDoc(t, "name", "b"),
	}))

	iter, err := coll.Find(ctx, mustDoc(t, "name", "b"))
	require.NoError(t, err)

	docs, err := iterator.ConsumeValues(iter)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	name, _ := docs[0].Get("name")
	assert.Equal(t, "b", name)
}

func TestStoreDeleteManyNilFilterTruncates(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	coll, err := s.GetCollection(ctx, "widgets")
	require.NoError(t, err)

	require.NoError(t, coll.InsertMany(ctx, []*types.Document{mustDoc(t, "name", "a"), mustDoc(t, "name", "b")}))
	require.NoError(t, coll.DeleteMany(ctx, nil))

	iter, err := coll.Find(ctx, nil)
	require.NoError(t, err)

	docs, err := iterator.ConsumeValues(iter)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStoreDeleteManyFilteredRemovesOnlyMatches(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	coll, err := s.GetCollection(ctx, "widgets")
	require.NoError(t, err)

	require.NoError(t, coll.InsertMany(ctx, []*types.Document{mustDoc(t, "name", "a"), mustDoc(t, "name", "b")}))
	require.NoError(t, coll.DeleteMany(ctx, mustDoc(t, "name", "a")))

	iter, err := coll.Find(ctx, nil)
	require.NoError(t, err)

	docs, err := iterator.ConsumeValues(iter)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	name, _ := docs[0].Get("name")
	assert.Equal(t, "b", name)
}

func TestStoreGetCollectionIsIdempotent(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetCollection(ctx, "widgets")
	require.NoError(t, err)

	_, err = s.GetCollection(ctx, "widgets")
	require.NoError(t, err, "creating the table twice must not error")
}
