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

	"github.com/AlekSi/pointer"

	"github.com/docengine/aggpipe/internal/aggregations"
	"github.com/docengine/aggpipe/internal/aggregations/datekernel"
	"github.com/docengine/aggpipe/internal/aggregations/partition"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	aggregations.RegisterStage("$densify", newDensify)
}

// densify implements $densify per spec.md §4.4. bounds:"full" computes a
// genuine cross-partition min/max over field (Process's globalLo/globalHi),
// resolving spec.md §9's open question in favor of MongoDB's own documented
// "full" semantics rather than aliasing it to "partition".
type densify struct {
	field             types.Path
	partitionByFields []string
	step              float64
	unit              *datekernel.Unit // nil when range.unit was not given
	boundsKind        string           // "partition", "full", or "explicit"
	lo, hi            any              // only set when boundsKind == "explicit"
}

func newDensify(spec any, _ *aggregations.Options) (aggregations.Stage, error) {
	doc, err := stageArgDocument("$densify", spec)
	if err != nil {
		return nil, err
	}

	fieldStr, err := requiredString(doc, "field", "$densify")
	if err != nil {
		return nil, err
	}

	field, err := types.NewPathFromString(fieldStr)
	if err != nil {
		return nil, err
	}

	d := &densify{field: field, boundsKind: "full"}

	if v, err := doc.Get("partitionByFields"); err == nil {
		if arr, ok := v.(*types.Array); ok {
			for _, e := range arr.Slice() {
				if s, ok := e.(string); ok {
					d.partitionByFields = append(d.partitionByFields, s)
				}
			}
		}
	}

	rangeDoc, err := doc.Get("range")
	if err != nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrDensifyBadValue, "$densify requires a 'range' field", "$densify",
		)
	}

	rd, ok := rangeDoc.(*types.Document)
	if !ok {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrDensifyBadValue, "$densify's 'range' must be an object", "$densify",
		)
	}

	step, err := rd.Get("step")
	if err != nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrDensifyBadValue, "$densify's range requires a 'step' field", "$densify",
		)
	}

	stepF, ok := asNumeric(step)
	if !ok || stepF <= 0 {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrDensifyBadValue, "$densify's step must be a positive number", "$densify",
		)
	}

	d.step = stepF

	if u, err := rd.Get("unit"); err == nil {
		s, ok := u.(string)
		if !ok {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrDensifyBadValue, "$densify's unit must be a string", "$densify",
			)
		}

		unit, ok := datekernel.ParseUnit(s)
		if !ok {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrDensifyBadValue, "$densify's unit is not recognized", "$densify",
			)
		}

		d.unit = pointer.To(unit)
	}

	if b, err := rd.Get("bounds"); err == nil {
		switch bv := b.(type) {
		case string:
			d.boundsKind = bv

		case *types.Array:
			if bv.Len() != 2 {
				return nil, handlererrors.NewCommandErrorMsgWithArgument(
					handlererrors.ErrDensifyBadValue, "$densify's explicit bounds must have 2 elements", "$densify",
				)
			}

			d.boundsKind = "explicit"
			d.lo, _ = bv.Get(0)
			d.hi, _ = bv.Get(1)
		}
	}

	return d, nil
}

func asNumeric(v any) (float64, bool) {
	switch v := v.(type) {
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func fieldAsMillis(v any) (float64, bool, bool) {
	switch t := v.(type) {
	case time.Time:
		return float64(t.UnixMilli()), true, true
	default:
		f, ok := asNumeric(v)
		return f, ok, false
	}
}

// Process implements aggregations.Stage.
func (d *densify) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	groups, err := partition.ByFields(docs, d.partitionByFields)
	if err != nil {
		return nil, err
	}

	var globalLo, globalHi float64
	var globalIsDate bool
	haveGlobal := false

	if d.boundsKind == "full" {
		for _, g := range groups {
			lo, hi, isDate, ok := d.groupBounds(g.Docs)
			if !ok {
				continue
			}

			if !haveGlobal {
				globalLo, globalHi, globalIsDate, haveGlobal = lo, hi, isDate, true
				continue
			}

			if lo < globalLo {
				globalLo = lo
			}

			if hi > globalHi {
				globalHi = hi
			}
		}
	}

	var out []*types.Document

	for _, g := range groups {
		existing := map[float64]*types.Document{}

		for _, doc := range g.Docs {
			v, err := doc.GetByPath(d.field)
			if err != nil {
				continue
			}

			f, ok, _ := fieldAsMillis(v)
			if ok {
				existing[f] = doc
			}
		}

		var lo, hi float64
		var isDate bool

		switch d.boundsKind {
		case "explicit":
			loF, loOK, loIsDate := fieldAsMillis(d.lo)
			hiF, hiOK, _ := fieldAsMillis(d.hi)

			if !loOK || !hiOK {
				out = append(out, g.Docs...)
				continue
			}

			lo, hi, isDate = loF, hiF, loIsDate

		case "full":
			if !haveGlobal {
				out = append(out, g.Docs...)
				continue
			}

			lo, hi, isDate = globalLo, globalHi, globalIsDate

		default: // "partition"
			var ok bool

			lo, hi, isDate, ok = d.groupBounds(g.Docs)
			if !ok {
				out = append(out, g.Docs...)
				continue
			}
		}

		if isDate && d.unit == nil {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrDensifyBadValue, "$densify's range requires a 'unit' when field holds dates", "$densify",
			)
		}

		inclusive := d.boundsKind != "explicit"

		stepMillis := d.step
		if isDate && d.unit != nil {
			if ms, ok := datekernel.MillisPerUnit(pointer.Get(d.unit)); ok {
				stepMillis = d.step * float64(ms)
			}
		}

		for pos := lo; ; pos += stepMillis {
			if inclusive {
				if pos > hi+1e-9 {
					break
				}
			} else if pos >= hi {
				break
			}

			if existingDoc, ok := existing[pos]; ok {
				out = append(out, existingDoc)
				continue
			}

			nd := types.MakeDocument(len(d.partitionByFields) + 1)

			var fieldVal any = pos
			if isDate {
				fieldVal = time.UnixMilli(int64(pos)).UTC()
			} else if pos == float64(int64(pos)) {
				fieldVal = int64(pos)
			}

			if err := nd.SetByPath(d.field, fieldVal); err != nil {
				return nil, err
			}

			if keyArr, ok := g.Key.(*types.Array); ok {
				for i, fname := range d.partitionByFields {
					pv, err := keyArr.Get(i)
					if err != nil {
						continue
					}

					p, perr := types.NewPathFromString(fname)
					if perr != nil {
						return nil, perr
					}

					if err := nd.SetByPath(p, pv); err != nil {
						return nil, err
					}
				}
			}

			out = append(out, nd)

			if stepMillis <= 0 {
				break
			}
		}
	}

	return out, nil
}

// groupBounds reads min/max of d.field across docs (numbers or dates).
func (d *densify) groupBounds(docs []*types.Document) (lo, hi float64, isDate, ok bool) {
	first := true

	for _, doc := range docs {
		v, err := doc.GetByPath(d.field)
		if err != nil {
			continue
		}

		f, valOK, dateOK := fieldAsMillis(v)
		if !valOK {
			continue
		}

		if first {
			lo, hi, isDate, first = f, f, dateOK, false
			ok = true

			continue
		}

		if f < lo {
			lo = f
		}

		if f > hi {
			hi = f
		}
	}

	return lo, hi, isDate, ok
}

var _ aggregations.Stage = (*densify)(nil)
