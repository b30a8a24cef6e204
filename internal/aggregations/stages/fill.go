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
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	aggregations.RegisterStage("$fill", newFill)
}

// fillOutput is one output field's spec: exactly one of expr or method is set.
type fillOutput struct {
	path   types.Path
	expr   any
	method string // "locf" or "linear"
}

// fill implements $fill per spec.md §4.4.
type fill struct {
	partitionByFields []string
	partitionBy       *aggregations.Expression
	sortSpecs         []partition.SortSpec
	outputs           []fillOutput
	now               time.Time
}

func newFill(spec any, opts *aggregations.Options) (aggregations.Stage, error) {
	doc, err := stageArgDocument("$fill", spec)
	if err != nil {
		return nil, err
	}

	f := &fill{now: opts.Now}

	if v, err := doc.Get("partitionByFields"); err == nil {
		if arr, ok := v.(*types.Array); ok {
			for _, e := range arr.Slice() {
				if s, ok := e.(string); ok {
					f.partitionByFields = append(f.partitionByFields, s)
				}
			}
		}
	}

	if v, err := doc.Get("partitionBy"); err == nil {
		f.partitionBy = aggregations.NewExpression(v)
	}

	var hasMethod bool

	if v, err := doc.Get("sortBy"); err == nil {
		if sd, ok := v.(*types.Document); ok {
			specs, serr := partition.ParseSortSpec(sd)
			if serr != nil {
				return nil, serr
			}

			f.sortSpecs = specs
		}
	}

	outDoc, err := doc.Get("output")
	if err != nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, "$fill requires an 'output' field", "$fill",
		)
	}

	od, ok := outDoc.(*types.Document)
	if !ok {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, "$fill's 'output' must be an object", "$fill",
		)
	}

	for _, key := range od.Keys() {
		spec, _ := od.Get(key)

		sd, ok := spec.(*types.Document)
		if !ok {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageInvalidShape, "$fill output field must be an object", "$fill",
			)
		}

		valueExpr, hasValue := sd.Get("value")
		methodVal, hasMethodField := sd.Get("method")

		if hasValue == nil && hasMethodField == nil {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrStageInvalidShape,
				"$fill output field must specify exactly one of 'value' or 'method'", "$fill",
			)
		}

		path, perr := types.NewPathFromString(key)
		if perr != nil {
			return nil, perr
		}

		out := fillOutput{path: path}

		if hasValue == nil {
			out.expr = valueExpr
		} else {
			method, ok := methodVal.(string)
			if !ok || (method != "locf" && method != "linear") {
				return nil, handlererrors.NewCommandErrorMsgWithArgument(
					handlererrors.ErrStageInvalidShape, "$fill's method must be 'locf' or 'linear'", "$fill",
				)
			}

			out.method = method
			hasMethod = true
		}

		f.outputs = append(f.outputs, out)
	}

	if hasMethod && len(f.sortSpecs) == 0 {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape,
			"$fill requires 'sortBy' when any output uses 'locf' or 'linear'", "$fill",
		)
	}

	return f, nil
}

// Process implements aggregations.Stage.
func (f *fill) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	vars := aggregations.NewSystemVariables(f.now, nil)

	var groups []partition.Group
	var err error

	switch {
	case f.partitionBy != nil:
		groups, err = partition.ByExpression(docs, f.partitionBy, vars)
	case len(f.partitionByFields) > 0:
		groups, err = partition.ByFields(docs, f.partitionByFields)
	default:
		groups = []partition.Group{{Docs: docs}}
	}

	if err != nil {
		return nil, err
	}

	out := make([]*types.Document, 0, len(docs))

	for _, g := range groups {
		part := g.Docs
		if len(f.sortSpecs) > 0 {
			part = partition.Sort(part, f.sortSpecs)
		}

		filled := make([]*types.Document, len(part))
		for i, doc := range part {
			filled[i] = doc.DeepCopy()
		}

		for _, o := range f.outputs {
			if err := f.fillOutput(filled, o, vars); err != nil {
				return nil, err
			}
		}

		out = append(out, filled...)
	}

	return out, nil
}

func (f *fill) fillOutput(docs []*types.Document, o fillOutput, vars *aggregations.Variables) error {
	switch {
	case o.expr != nil:
		for _, doc := range docs {
			cur, err := doc.GetByPath(o.path)
			if err == nil && cur != types.Null {
				continue
			}

			val, err := aggregations.Evaluate(o.expr, doc, vars.WithRoot(doc))
			if err != nil {
				continue
			}

			if err := doc.SetByPath(o.path, val); err != nil {
				return err
			}
		}

	case o.method == "locf":
		var last any
		haveLast := false

		for _, doc := range docs {
			cur, err := doc.GetByPath(o.path)
			if err == nil && cur != types.Null {
				last, haveLast = cur, true
				continue
			}

			if haveLast {
				if err := doc.SetByPath(o.path, last); err != nil {
					return err
				}
			}
		}

	case o.method == "linear":
		f.linearFillField(docs, o.path)
	}

	return nil
}

// linearFillField interpolates numeric gaps using array position, since no
// explicit x-axis is available beyond sequence order.
func (f *fill) linearFillField(docs []*types.Document, path types.Path) {
	type point struct {
		idx int
		val float64
	}

	var known []point

	for i, doc := range docs {
		v, err := doc.GetByPath(path)
		if err != nil || v == types.Null {
			continue
		}

		if n, ok := asNumeric(v); ok {
			known = append(known, point{idx: i, val: n})
		}
	}

	for gi := 0; gi+1 < len(known); gi++ {
		a, b := known[gi], known[gi+1]
		if b.idx-a.idx < 2 {
			continue
		}

		for i := a.idx + 1; i < b.idx; i++ {
			frac := float64(i-a.idx) / float64(b.idx-a.idx)
			val := a.val + (b.val-a.val)*frac

			_ = docs[i].SetByPath(path, val)
		}
	}
}

var _ aggregations.Stage = (*fill)(nil)
