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
	"github.com/docengine/aggpipe/internal/provider"
	"github.com/docengine/aggpipe/internal/types"
	"github.com/docengine/aggpipe/internal/util/iterator"
)

func init() {
	aggregations.RegisterStage("$lookup", newLookup)
}

// lookup implements $lookup per spec.md §4.4: fetch all foreign documents,
// then for each local document attach the array of foreign docs whose
// foreignField equals the local document's localField value.
type lookup struct {
	from         string
	localField   types.Path
	foreignField types.Path
	as           types.Path
	provider     provider.CollectionProvider
}

func newLookup(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	doc, err := stageArgDocument("$lookup", spec)
	if err != nil {
		return nil, err
	}

	if opts.Provider == nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrEnvironmentMissing, "$lookup requires a collection provider", "$lookup",
		)
	}

	from, err := requiredString(doc, "from", "$lookup")
	if err != nil {
		return nil, err
	}

	localField, err := requiredPath(doc, "localField", "$lookup")
	if err != nil {
		return nil, err
	}

	foreignField, err := requiredPath(doc, "foreignField", "$lookup")
	if err != nil {
		return nil, err
	}

	as, err := requiredPath(doc, "as", "$lookup")
	if err != nil {
		return nil, err
	}

	return &lookup{
		from:         from,
		localField:   localField,
		foreignField: foreignField,
		as:           as,
		provider:     opts.Provider,
	}, nil
}

func requiredString(doc *types.Document, key, stage string) (string, error) {
	v, err := doc.Get(key)
	if err != nil {
		return "", handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, stage+" requires a '"+key+"' field", stage,
		)
	}

	s, ok := v.(string)
	if !ok {
		return "", handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, stage+"'s '"+key+"' must be a string", stage,
		)
	}

	return s, nil
}

func requiredPath(doc *types.Document, key, stage string) (types.Path, error) {
	s, err := requiredString(doc, key, stage)
	if err != nil {
		return types.Path{}, err
	}

	return types.NewPathFromString(s)
}

// Process implements aggregations.Stage.
func (l *lookup) Process(ctx context.Context, docs []*types.Document) ([]*types.Document, error) {
	coll, err := l.provider.GetCollection(ctx, l.from)
	if err != nil {
		return nil, err
	}

	foreignIter, err := coll.Find(ctx, nil)
	if err != nil {
		return nil, err
	}

	foreign, err := iterator.ConsumeValues(foreignIter)
	if err != nil {
		return nil, err
	}

	out := make([]*types.Document, len(docs))

	for i, doc := range docs {
		localVal, lerr := doc.GetByPath(l.localField)
		if lerr != nil {
			localVal = types.Null
		}

		matches := types.MakeArray(0)

		for _, fdoc := range foreign {
			foreignVal, ferr := fdoc.GetByPath(l.foreignField)
			if ferr != nil {
				foreignVal = types.Null
			}

			if equalOrContains(foreignVal, localVal) {
				if err := matches.Append(fdoc); err != nil {
					return nil, err
				}
			}
		}

		nd := doc.DeepCopy()
		if err := nd.SetByPath(l.as, matches); err != nil {
			return nil, err
		}

		out[i] = nd
	}

	return out, nil
}

// equalOrContains reports whether foreignVal equals localVal, or (when
// foreignVal is an array) contains an element equal to localVal - the same
// rule $lookup and $graphLookup's connectToField matching use.
func equalOrContains(foreignVal, localVal any) bool {
	if arr, ok := foreignVal.(*types.Array); ok {
		for _, e := range arr.Slice() {
			if types.Compare(e, localVal) == types.Equal {
				return true
			}
		}

		return false
	}

	return types.Compare(foreignVal, localVal) == types.Equal
}

var _ aggregations.Stage = (*lookup)(nil)
