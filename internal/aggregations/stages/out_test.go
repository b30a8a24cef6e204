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
	"github.com/docengine/aggpipe/internal/util/iterator"
)

func TestOutReplacesTargetCollectionContents(t *testing.T) {
	t.Parallel()

	prov := &fakeCollectionProvider{collections: map[string][]*types.Document{
		"target": {mustDoc(t, "stale", true)},
	}}

	stage, err := newOut("target", &aggregations.Options{Provider: prov})
	require.NoError(t, err)

	docs := []*types.Document{mustDoc(t, "a", int32(1)), mustDoc(t, "a", int32(2))}

	out, err := stage.Process(context.Background(), docs)
	require.NoError(t, err)
	assert.Empty(t, out, "$out emits no documents of its own")

	coll, err := prov.GetCollection(context.Background(), "target")
	require.NoError(t, err)

	iter, err := coll.Find(context.Background(), nil)
	require.NoError(t, err)

	final, err := iterator.ConsumeValues(iter)
	require.NoError(t, err)
	assert.Len(t, final, 2, "the stale document must be gone, replaced by the pipeline's output")
}

func TestMergeSharesOutsDefaultBehavior(t *testing.T) {
	t.Parallel()

	prov := &fakeCollectionProvider{collections: map[string][]*types.Document{}}

	stage, err := newOut(mustDoc(t, "to", "target"), &aggregations.Options{Provider: prov})
	require.NoError(t, err)

	_, err = stage.Process(context.Background(), []*types.Document{mustDoc(t, "a", int32(1))})
	require.NoError(t, err)

	coll, err := prov.GetCollection(context.Background(), "target")
	require.NoError(t, err)

	iter, err := coll.Find(context.Background(), nil)
	require.NoError(t, err)

	final, err := iterator.ConsumeValues(iter)
	require.NoError(t, err)
	assert.Len(t, final, 1)
}

func TestOutRequiresProvider(t *testing.T) {
	t.Parallel()

	_, err := newOut("target", &aggregations.Options{})
	assert.Error(t, err)
}
