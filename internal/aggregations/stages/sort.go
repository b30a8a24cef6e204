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

	"github.com/docengine/aggpipe/internal/aggregations"
	"github.com/docengine/aggpipe/internal/aggregations/partition"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	aggregations.RegisterStage("$sort", newSort)
	aggregations.RegisterStage("$sortByCount", newSortByCount)
}

// sort implements $sort: a stable total order over listed fields.
type sort struct {
	specs []partition.SortSpec
}

func newSort(spec any, _ *aggregations.Options) (aggregations.Stage, error) {
	doc, err := stageArgDocument("$sort", spec)
	if err != nil {
		return nil, err
	}

	if doc.Len() == 0 {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrSortBadValue, "$sort stage must have at least one sort key", "$sort",
		)
	}

	specs, err := partition.ParseSortSpec(doc)
	if err != nil {
		return nil, err
	}

	return &sort{specs: specs}, nil
}

// Process implements aggregations.Stage.
func (s *sort) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	return partition.Sort(docs, s.specs), nil
}

var _ aggregations.Stage = (*sort)(nil)

// sortByCount implements $sortByCount: {$group:{_id:<expr>, count:{$sum:1}}}
// followed by {$sort:{count:-1}}.
type sortByCount struct {
	group *group
	sort  *sort
}

func newSortByCount(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	groupSpec := types.MakeDocument(2)
	if err := groupSpec.Set("_id", spec); err != nil {
		return nil, err
	}

	countSpec := types.MakeDocument(1)
	if err := countSpec.Set("$sum", int32(1)); err != nil {
		return nil, err
	}

	if err := groupSpec.Set("count", countSpec); err != nil {
		return nil, err
	}

	g, err := newGroup(groupSpec, opts)
	if err != nil {
		return nil, err
	}

	sortSpec := types.MakeDocument(1)
	if err := sortSpec.Set("count", int32(-1)); err != nil {
		return nil, err
	}

	s, err := newSort(sortSpec, opts)
	if err != nil {
		return nil, err
	}

	return &sortByCount{group: g.(*group), sort: s.(*sort)}, nil
}

// Process implements aggregations.Stage.
func (s *sortByCount) Process(ctx context.Context, docs []*types.Document) ([]*types.Document, error) {
	grouped, err := s.group.Process(ctx, docs)
	if err != nil {
		return nil, err
	}

	return s.sort.Process(ctx, grouped)
}

var _ aggregations.Stage = (*sortByCount)(nil)
