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
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	aggregations.RegisterStage("$project", newProject)
}

// projectField is one non-"_id" key of a $project spec.
type projectField struct {
	path types.Path
	copy bool // true: 1/true, plain copy from the source path
	raw  any  // the expression to evaluate otherwise
}

// project implements $project, and (via exclude-only construction) $unset.
type project struct {
	exclude    bool
	idExcluded bool
	idExplicit bool
	fields     []projectField
	now        time.Time
}

func newProject(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	doc, err := stageArgDocument("$project", spec)
	if err != nil {
		return nil, err
	}

	p := &project{now: opts.Now}

	var modeSet, exclude bool

	for _, key := range doc.Keys() {
		v, _ := doc.Get(key)

		isZero, isNonZero := projectLiteral(v)

		if key == "_id" {
			p.idExplicit = true

			if isZero {
				p.idExcluded = true
				continue
			}
		}

		path, perr := types.NewPathFromString(key)
		if perr != nil {
			return nil, perr
		}

		if isZero {
			if modeSet && !exclude {
				return nil, mixingError("$project")
			}

			modeSet, exclude = true, true
			p.fields = append(p.fields, projectField{path: path, copy: false})

			continue
		}

		if modeSet && exclude {
			return nil, mixingError("$project")
		}

		modeSet, exclude = true, false
		p.fields = append(p.fields, projectField{path: path, copy: isNonZero, raw: v})
	}

	p.exclude = exclude
	if !modeSet && p.idExcluded {
		p.exclude = true
	}

	return p, nil
}

// mixingError builds the §4.4 "mixing inclusion/exclusion" pipeline-shape error.
func mixingError(stage string) error {
	return handlererrors.NewCommandErrorMsgWithArgument(
		handlererrors.ErrStageInvalidShape,
		"Cannot do inclusion on field in exclusion projection",
		stage,
	)
}

// projectLiteral classifies v as a 0/false-style (isZero) or 1/true-style
// (isNonZero) projection literal; both false means v is a copy-source
// expression (string or object).
func projectLiteral(v any) (isZero, isNonZero bool) {
	switch t := v.(type) {
	case bool:
		return !t, t
	case int32:
		return t == 0, t != 0
	case int64:
		return t == 0, t != 0
	case float64:
		return t == 0, t != 0
	default:
		return false, false
	}
}

// Process implements aggregations.Stage.
func (p *project) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	out := make([]*types.Document, len(docs))

	for i, doc := range docs {
		nd, err := p.apply(doc)
		if err != nil {
			return nil, err
		}

		out[i] = nd
	}

	return out, nil
}

func (p *project) apply(doc *types.Document) (*types.Document, error) {
	if p.exclude {
		nd := doc.DeepCopy()

		if p.idExcluded {
			nd.Remove("_id")
		}

		for _, f := range p.fields {
			nd.RemoveByPath(f.path)
		}

		return nd, nil
	}

	out := types.MakeDocument(len(p.fields) + 1)

	if !p.idExplicit {
		if v, err := doc.Get("_id"); err == nil {
			if err := out.Set("_id", v); err != nil {
				return nil, err
			}
		}
	}

	for _, f := range p.fields {
		val, err := p.evalField(f, doc)
		if err != nil {
			if err == types.ErrPathNotFound {
				continue
			}

			return nil, err
		}

		if val == types.REMOVE {
			continue
		}

		if err := out.SetByPath(f.path, val); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (p *project) evalField(f projectField, doc *types.Document) (any, error) {
	if f.copy {
		return doc.GetByPath(f.path)
	}

	return aggregations.Evaluate(f.raw, doc, aggregations.NewSystemVariables(p.now, doc))
}

var _ aggregations.Stage = (*project)(nil)
