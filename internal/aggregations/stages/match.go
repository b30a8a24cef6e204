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
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	aggregations.RegisterStage("$match", newMatch)
}

// match implements $match: calls the external filter matcher per document.
type match struct {
	filter  *types.Document
	matcher interface {
		Matches(doc, filter *types.Document) bool
	}
}

func newMatch(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	filter, ok := spec.(*types.Document)
	if !ok {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, "$match specification must be an object", "$match",
		)
	}

	if opts.Matcher == nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrEnvironmentMissing, "$match requires a filter matcher", "$match",
		)
	}

	return &match{filter: filter, matcher: opts.Matcher}, nil
}

// Process implements aggregations.Stage.
func (m *match) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	out := make([]*types.Document, 0, len(docs))

	for _, doc := range docs {
		if m.matcher.Matches(doc, m.filter) {
			out = append(out, doc)
		}
	}

	return out, nil
}

var _ aggregations.Stage = (*match)(nil)
