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
	"strings"

	"github.com/docengine/aggpipe/internal/aggregations"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/params"
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	aggregations.RegisterStage("$limit", newLimit)
	aggregations.RegisterStage("$skip", newSkip)
	aggregations.RegisterStage("$count", newCount)
}

// limit implements $limit.
type limit struct {
	n int64
}

func newLimit(spec any, _ *aggregations.Options) (aggregations.Stage, error) {
	n, err := params.GetValidatedNumberParamWithMinValue("$limit", "limit", spec, 1)
	if err != nil {
		return nil, err
	}

	return &limit{n: n}, nil
}

// Process implements aggregations.Stage.
func (l *limit) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	if int64(len(docs)) <= l.n {
		return docs, nil
	}

	return docs[:l.n], nil
}

var _ aggregations.Stage = (*limit)(nil)

// skip implements $skip.
type skip struct {
	n int64
}

func newSkip(spec any, _ *aggregations.Options) (aggregations.Stage, error) {
	n, err := params.GetValidatedNumberParamWithMinValue("$skip", "skip", spec, 0)
	if err != nil {
		return nil, err
	}

	return &skip{n: n}, nil
}

// Process implements aggregations.Stage.
func (s *skip) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	if int64(len(docs)) <= s.n {
		return nil, nil
	}

	return docs[s.n:], nil
}

var _ aggregations.Stage = (*skip)(nil)

// count implements the $count stage (distinct from the $count accumulator):
// emits a single {name: n} document, or none for empty input.
type count struct {
	field string
}

func newCount(spec any, _ *aggregations.Options) (aggregations.Stage, error) {
	field, ok := spec.(string)
	if !ok {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageCountNonString,
			"the count field must be a non-empty string",
			"$count (stage)",
		)
	}

	if len(field) == 0 {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageCountNonEmptyString,
			"the count field must be a non-empty string",
			"$count (stage)",
		)
	}

	if strings.Contains(field, ".") {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageCountBadValue,
			"the count field cannot contain '.'",
			"$count (stage)",
		)
	}

	if strings.HasPrefix(field, "$") {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageCountBadPrefix,
			"the count field cannot be a $-prefixed path",
			"$count (stage)",
		)
	}

	return &count{field: field}, nil
}

// Process implements aggregations.Stage.
func (c *count) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	nd := types.MakeDocument(1)
	if err := nd.Set(c.field, int32(len(docs))); err != nil {
		return nil, err
	}

	return []*types.Document{nd}, nil
}

var _ aggregations.Stage = (*count)(nil)
