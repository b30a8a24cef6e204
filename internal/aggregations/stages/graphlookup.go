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
	"github.com/docengine/aggpipe/internal/aggregations/partition"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/provider"
	"github.com/docengine/aggpipe/internal/types"
	"github.com/docengine/aggpipe/internal/util/iterator"
)

func init() {
	aggregations.RegisterStage("$graphLookup", newGraphLookup)
}

// graphLookup implements $graphLookup per spec.md §4.4: a breadth-first
// traversal of the foreign collection starting from startWith, following
// connectFromField -> connectToField edges up to maxDepth.
type graphLookup struct {
	from                    string
	startWith               *aggregations.Expression
	connectFromField        types.Path
	connectToField          types.Path
	as                      types.Path
	depthField              types.Path
	hasDepthField           bool
	maxDepth                int64
	hasMaxDepth             bool
	restrictSearchWithMatch *types.Document
	provider                provider.CollectionProvider
	matcher                 provider.FilterMatcher
	now                     time.Time
}

func newGraphLookup(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	doc, err := stageArgDocument("$graphLookup", spec)
	if err != nil {
		return nil, err
	}

	if opts.Provider == nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrEnvironmentMissing, "$graphLookup requires a collection provider", "$graphLookup",
		)
	}

	from, err := requiredString(doc, "from", "$graphLookup")
	if err != nil {
		return nil, err
	}

	startWith, err := doc.Get("startWith")
	if err != nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, "$graphLookup requires a 'startWith' field", "$graphLookup",
		)
	}

	connectFromField, err := requiredPath(doc, "connectFromField", "$graphLookup")
	if err != nil {
		return nil, err
	}

	connectToField, err := requiredPath(doc, "connectToField", "$graphLookup")
	if err != nil {
		return nil, err
	}

	as, err := requiredPath(doc, "as", "$graphLookup")
	if err != nil {
		return nil, err
	}

	g := &graphLookup{
		from:             from,
		startWith:        aggregations.NewExpression(startWith),
		connectFromField: connectFromField,
		connectToField:   connectToField,
		as:               as,
		provider:         opts.Provider,
		matcher:          opts.Matcher,
		now:              opts.Now,
	}

	if v, err := doc.Get("depthField"); err == nil {
		if s, ok := v.(string); ok {
			p, perr := types.NewPathFromString(s)
			if perr != nil {
				return nil, perr
			}

			g.depthField = p
			g.hasDepthField = true
		}
	}

	if v, err := doc.Get("maxDepth"); err == nil {
		n, nerr := params64(v)
		if nerr != nil {
			return nil, nerr
		}

		g.maxDepth = n
		g.hasMaxDepth = true
	}

	if v, err := doc.Get("restrictSearchWithMatch"); err == nil {
		if d, ok := v.(*types.Document); ok {
			g.restrictSearchWithMatch = d
		}
	}

	return g, nil
}

func params64(v any) (int64, error) {
	switch v := v.(type) {
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrTypeMismatch, "$graphLookup's 'maxDepth' must be a number", "$graphLookup",
		)
	}
}

// Process implements aggregations.Stage.
func (g *graphLookup) Process(ctx context.Context, docs []*types.Document) ([]*types.Document, error) {
	coll, err := g.provider.GetCollection(ctx, g.from)
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

	if g.restrictSearchWithMatch != nil && g.matcher != nil {
		filtered := make([]*types.Document, 0, len(foreign))

		for _, f := range foreign {
			if g.matcher.Matches(f, g.restrictSearchWithMatch) {
				filtered = append(filtered, f)
			}
		}

		foreign = filtered
	}

	out := make([]*types.Document, len(docs))

	for i, doc := range docs {
		result, err := g.traverse(doc, foreign)
		if err != nil {
			return nil, err
		}

		nd := doc.DeepCopy()
		if err := nd.SetByPath(g.as, result); err != nil {
			return nil, err
		}

		out[i] = nd
	}

	return out, nil
}

// traverse runs the BFS for one source document, per spec.md §4.4 and the
// §9 open question on cycle handling: visited foreign documents (by
// identity) are tracked explicitly, so the walk terminates on cyclic graphs
// even though duplicate-suppression across BFS levels is not spec-mandated.
func (g *graphLookup) traverse(doc *types.Document, foreign []*types.Document) (*types.Array, error) {
	vars := aggregations.NewSystemVariables(g.now, doc)

	start, err := g.startWith.Evaluate(doc, vars)
	if err != nil && err != types.ErrPathNotFound {
		return nil, err
	}

	result := types.MakeArray(0)

	if err == types.ErrPathNotFound || start == types.Null || start == nil {
		return result, nil
	}

	var frontier []any
	if arr, ok := start.(*types.Array); ok {
		frontier = arr.Slice()
	} else {
		frontier = []any{start}
	}

	visited := map[*types.Document]bool{}

	for depth := int64(0); len(frontier) > 0; depth++ {
		if g.hasMaxDepth && depth > g.maxDepth {
			break
		}

		var next []any

		for _, val := range frontier {
			for _, f := range foreign {
				if visited[f] {
					continue
				}

				connectTo, cerr := f.GetByPath(g.connectToField)
				if cerr != nil {
					continue
				}

				if !equalOrContains(connectTo, val) {
					continue
				}

				visited[f] = true

				match := f.DeepCopy()
				if g.hasDepthField {
					if err := match.SetByPath(g.depthField, depth); err != nil {
						return nil, err
					}
				}

				if err := result.Append(match); err != nil {
					return nil, err
				}

				connectFrom, ferr := f.GetByPath(g.connectFromField)
				if ferr != nil {
					continue
				}

				if arr, ok := connectFrom.(*types.Array); ok {
					next = append(next, arr.Slice()...)
				} else {
					next = append(next, connectFrom)
				}
			}
		}

		frontier = next
	}

	return result, nil
}

var _ aggregations.Stage = (*graphLookup)(nil)
