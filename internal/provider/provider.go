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

// Package provider defines the external collaborators the aggregation engine
// consumes but never implements itself (spec.md §1/§6): storage access and
// filter matching. Both are out of scope for this module's own code; only
// the interfaces and a reference implementation (internal/store/sqlitestore)
// live here.
package provider

import (
	"context"

	"github.com/docengine/aggpipe/internal/types"
)

// CollectionHandle is a single named collection reached through a
// CollectionProvider.
type CollectionHandle interface {
	// Find returns the documents matching filter (nil filter means "all").
	// filter is opaque to the engine: the handle interprets it itself, with
	// its own matching rules rather than the engine's FilterMatcher.
	Find(ctx context.Context, filter *types.Document) (types.DocumentsIterator, error)

	// InsertMany appends docs to the collection.
	InsertMany(ctx context.Context, docs []*types.Document) error

	// DeleteMany removes every document matching filter (nil filter means "all").
	DeleteMany(ctx context.Context, filter *types.Document) error
}

// CollectionProvider is the storage collaborator consumed by $lookup,
// $graphLookup, $unionWith, $out, and $merge.
type CollectionProvider interface {
	GetCollection(ctx context.Context, name string) (CollectionHandle, error)
}

// FilterMatcher is the black-box predicate consumed by $match and
// $graphLookup.restrictSearchWithMatch: matches(doc, filter) -> bool.
type FilterMatcher interface {
	Matches(doc, filter *types.Document) bool
}
