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
	"time"

	"github.com/docengine/aggpipe/internal/aggregations"
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	aggregations.RegisterStage("$set", newSet)
	aggregations.RegisterStage("$addFields", newSet)
}

// setField is one path/expression pair of a $set or $addFields spec.
type setField struct {
	path types.Path
	expr any
}

// set implements $set/$addFields: clone each doc, evaluate each spec value,
// write through dot-paths, creating intermediate documents as needed.
type set struct {
	fields []setField
	now    time.Time
}

func newSet(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	doc, err := stageArgDocument("$set", spec)
	if err != nil {
		return nil, err
	}

	s := &set{now: opts.Now}

	for _, key := range doc.Keys() {
		v, _ := doc.Get(key)

		path, perr := types.NewPathFromString(key)
		if perr != nil {
			return nil, perr
		}

		s.fields = append(s.fields, setField{path: path, expr: v})
	}

	return s, nil
}

// Process implements aggregations.Stage.
func (s *set) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	out := make([]*types.Document, len(docs))

	for i, doc := range docs {
		nd := doc.DeepCopy()
		vars := aggregations.NewSystemVariables(s.now, doc)

		for _, f := range s.fields {
			val, err := aggregations.Evaluate(f.expr, doc, vars)
			if err != nil {
				if err == types.ErrPathNotFound {
					continue
				}

				return nil, err
			}

			if val == types.REMOVE {
				nd.RemoveByPath(f.path)
				continue
			}

			if err := nd.SetByPath(f.path, val); err != nil {
				return nil, err
			}
		}

		out[i] = nd
	}

	return out, nil
}

var _ aggregations.Stage = (*set)(nil)
