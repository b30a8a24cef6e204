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
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	aggregations.RegisterStage("$unwind", newUnwind)
}

// unwind implements $unwind per spec.md §4.4.
type unwind struct {
	path               types.Path
	preserveNullAndEmpty bool
	includeArrayIndex  string
	hasIndex           bool
}

func newUnwind(spec any, _ *aggregations.Options) (aggregations.Stage, error) {
	u := &unwind{}

	var fieldPath string

	switch v := spec.(type) {
	case string:
		fieldPath = v

	case *types.Document:
		pathVal, err := v.Get("path")
		if err != nil {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageInvalidShape, "$unwind requires a 'path' field", "$unwind",
			)
		}

		s, ok := pathVal.(string)
		if !ok {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageInvalidShape, "$unwind's 'path' must be a string", "$unwind",
			)
		}

		fieldPath = s

		if pv, err := v.Get("preserveNullAndEmptyArrays"); err == nil {
			if b, ok := pv.(bool); ok {
				u.preserveNullAndEmpty = b
			}
		}

		if iv, err := v.Get("includeArrayIndex"); err == nil {
			if s, ok := iv.(string); ok {
				u.includeArrayIndex = s
				u.hasIndex = true
			}
		}

	default:
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape,
			"$unwind specification must be a string or an object", "$unwind",
		)
	}

	fieldPath = strings.TrimPrefix(fieldPath, "$")

	path, err := types.NewPathFromString(fieldPath)
	if err != nil {
		return nil, err
	}

	u.path = path

	return u, nil
}

// Process implements aggregations.Stage.
func (u *unwind) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	out := make([]*types.Document, 0, len(docs))

	for _, doc := range docs {
		v, err := doc.GetByPath(u.path)

		missing := err == types.ErrPathNotFound
		if err != nil && !missing {
			return nil, err
		}

		if missing || v == types.Null {
			if u.preserveNullAndEmpty {
				nd := doc.DeepCopy()
				u.setIndex(nd, types.Null)
				out = append(out, nd)
			}

			continue
		}

		arr, ok := v.(*types.Array)
		if !ok {
			nd := doc.DeepCopy()
			u.setIndex(nd, int32(0))
			out = append(out, nd)

			continue
		}

		if arr.Len() == 0 {
			if u.preserveNullAndEmpty {
				nd := doc.DeepCopy()
				nd.RemoveByPath(u.path)
				u.setIndex(nd, types.Null)
				out = append(out, nd)
			}

			continue
		}

		for idx, elem := range arr.Slice() {
			nd := doc.DeepCopy()

			if err := nd.SetByPath(u.path, elem); err != nil {
				return nil, err
			}

			u.setIndex(nd, int32(idx))
			out = append(out, nd)
		}
	}

	return out, nil
}

func (u *unwind) setIndex(doc *types.Document, v any) {
	if !u.hasIndex {
		return
	}

	path, err := types.NewPathFromString(u.includeArrayIndex)
	if err != nil {
		return
	}

	_ = doc.SetByPath(path, v)
}

var _ aggregations.Stage = (*unwind)(nil)
