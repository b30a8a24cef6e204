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

// Package window implements spec.md §4.6: window frame resolution
// (documents/range bounds) and operator dispatch over a resolved frame,
// consumed by the $setWindowFields stage executor.
package window

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/docengine/aggpipe/internal/aggregations"
	"github.com/docengine/aggpipe/internal/aggregations/operators/accumulators"
	"github.com/docengine/aggpipe/internal/aggregations/partition"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
	"github.com/docengine/aggpipe/internal/util/iterator"
)

// Bound is one endpoint of a documents/range window, per spec.md §4.6.
type Bound struct {
	Unbounded bool
	Current   bool
	Offset    int64 // for "documents" bounds: integer offset from i
	Value     float64
	HasValue  bool // for "range" bounds: a numeric endpoint was given
}

// parseBound reads a documents/range bound element ("unbounded", "current",
// or a number).
func parseBound(v any) Bound {
	switch v := v.(type) {
	case string:
		switch v {
		case "current":
			return Bound{Current: true}
		default:
			return Bound{Unbounded: true}
		}
	case int32:
		return Bound{Offset: int64(v), Value: float64(v), HasValue: true}
	case int64:
		return Bound{Offset: v, Value: float64(v), HasValue: true}
	case float64:
		return Bound{Offset: int64(v), Value: v, HasValue: true}
	default:
		return Bound{Unbounded: true}
	}
}

// Spec is a parsed `window` field: exactly one of Documents or Range is set;
// neither set means "no window" (frame = entire partition).
type Spec struct {
	Documents  *[2]Bound
	Range      *[2]Bound
	RangeUnit  string
	HasWindow  bool
}

// ParseSpec parses the `window` sub-document of a $setWindowFields output.
func ParseSpec(doc *types.Document) (Spec, error) {
	var spec Spec

	if doc == nil {
		return spec, nil
	}

	if raw, err := doc.Get("documents"); err == nil {
		arr, ok := raw.(*types.Array)
		if !ok || arr.Len() != 2 {
			return spec, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrBadValue, "window.documents must be a 2-element array", "$setWindowFields")
		}

		lo, _ := arr.Get(0)
		hi, _ := arr.Get(1)
		bounds := [2]Bound{parseBound(lo), parseBound(hi)}
		spec.Documents = &bounds
		spec.HasWindow = true
	}

	if raw, err := doc.Get("range"); err == nil {
		arr, ok := raw.(*types.Array)
		if !ok || arr.Len() != 2 {
			return spec, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrBadValue, "window.range must be a 2-element array", "$setWindowFields")
		}

		lo, _ := arr.Get(0)
		hi, _ := arr.Get(1)
		bounds := [2]Bound{parseBound(lo), parseBound(hi)}
		spec.Range = &bounds
		spec.HasWindow = true

		if u, err := doc.Get("unit"); err == nil {
			if s, ok := u.(string); ok {
				spec.RangeUnit = s
			}
		}
	}

	return spec, nil
}

// Frame resolves the [lo, hi] inclusive index range into part that is
// visible to the operator at index i, per spec.md §4.6.
func Frame(part []*types.Document, i int, spec Spec, sortSpecs []partition.SortSpec) (int, int) {
	n := len(part)

	switch {
	case spec.Documents != nil:
		lo := resolveDocBound(spec.Documents[0], i, n, true)
		hi := resolveDocBound(spec.Documents[1], i, n, false)

		return clamp(lo, n), clamp(hi, n)

	case spec.Range != nil && len(sortSpecs) > 0:
		center, ok := sortNumeric(part[i], sortSpecs[0])
		if !ok {
			return 0, n - 1 // non-numeric/non-date sort field: fall back to entire partition
		}

		scale := float64(1)
		if ms, ok := unitScale(spec.RangeUnit); ok {
			scale = ms
		}

		loB, hiB := spec.Range[0], spec.Range[1]

		loVal := math.Inf(-1)
		if !loB.Unbounded {
			if loB.Current {
				loVal = center
			} else {
				loVal = center + loB.Value*scale
			}
		}

		hiVal := math.Inf(1)
		if !hiB.Unbounded {
			if hiB.Current {
				hiVal = center
			} else {
				hiVal = center + hiB.Value*scale
			}
		}

		lo, hi := -1, -1

		for idx := 0; idx < n; idx++ {
			v, ok := sortNumeric(part[idx], sortSpecs[0])
			if !ok {
				continue
			}

			if v >= loVal && v <= hiVal {
				if lo == -1 {
					lo = idx
				}

				hi = idx
			}
		}

		if lo == -1 {
			return i, i - 1 // empty frame
		}

		return lo, hi

	default:
		return 0, n - 1
	}
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}

	if v > n-1 {
		return n - 1
	}

	return v
}

func resolveDocBound(b Bound, i, n int, isLo bool) int {
	switch {
	case b.Unbounded:
		if isLo {
			return 0
		}

		return n - 1
	case b.Current:
		return i
	default:
		return i + int(b.Offset)
	}
}

// sortNumeric reads the primary sort field's numeric value (dates scale to
// Unix milliseconds), reporting ok=false for non-numeric/non-date fields.
func sortNumeric(doc *types.Document, s partition.SortSpec) (float64, bool) {
	v, err := doc.GetByPath(s.Path)
	if err != nil {
		return 0, false
	}

	switch v := v.(type) {
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case time.Time:
		return float64(v.UnixMilli()), true
	default:
		return 0, false
	}
}

func unitScale(unit string) (float64, bool) {
	switch unit {
	case "millisecond":
		return 1, true
	case "second":
		return 1000, true
	case "minute":
		return 60 * 1000, true
	case "hour":
		return 60 * 60 * 1000, true
	case "day":
		return 24 * 60 * 60 * 1000, true
	case "week":
		return 7 * 24 * 60 * 60 * 1000, true
	default:
		return 0, false
	}
}

// Output is one parsed `output.<field>` spec: exactly one $-operator key plus
// an optional window.
type Output struct {
	Operator string
	Arg      any
	Window   Spec
}

// ParseOutput parses one output field's spec document.
func ParseOutput(doc *types.Document) (Output, error) {
	var op Output

	for _, k := range doc.Keys() {
		if k == "window" {
			continue
		}

		if len(k) > 0 && k[0] == '$' {
			if op.Operator != "" {
				return op, handlererrors.NewCommandErrorMsgWithArgument(
					handlererrors.ErrStageInvalidShape,
					"$setWindowFields output must name exactly one operator", "$setWindowFields")
			}

			op.Operator = k
			op.Arg, _ = doc.Get(k)
		}
	}

	if op.Operator == "" {
		return op, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape,
			"$setWindowFields output must name an operator", "$setWindowFields")
	}

	if raw, err := doc.Get("window"); err == nil {
		if wd, ok := raw.(*types.Document); ok {
			spec, err := ParseSpec(wd)
			if err != nil {
				return op, err
			}

			op.Window = spec
		}
	}

	return op, nil
}

// rankOps are dispatched against the sorted partition and sort keys rather
// than a resolved frame.
var rankOps = map[string]bool{"$documentNumber": true, "$rank": true, "$denseRank": true}

// Dispatch computes the value of output at index i within part, per
// spec.md §4.6's operator dispatch table.
func Dispatch(part []*types.Document, i int, output Output, sortSpecs []partition.SortSpec, vars *aggregations.Variables) (any, error) {
	switch {
	case rankOps[output.Operator]:
		return rank(part, i, output.Operator, sortSpecs), nil

	case output.Operator == "$shift":
		return shift(part, i, output.Arg, vars)

	case output.Operator == "$locf":
		return locf(part, i, output.Arg, vars)

	case output.Operator == "$linearFill":
		return linearFill(part, i, output.Arg, sortSpecs, vars)

	case output.Operator == "$derivative":
		return derivative(part, i, output.Arg, sortSpecs, vars)

	case output.Operator == "$integral":
		return integral(part, i, output, sortSpecs, vars)

	case output.Operator == "$expMovingAvg":
		return expMovingAvg(part, i, output.Arg, vars)

	case output.Operator == "$covariancePop" || output.Operator == "$covarianceSamp":
		return covariance(part, i, output, sortSpecs, vars)

	case output.Operator == "$stdDevPop" || output.Operator == "$stdDevSamp":
		return stdDev(part, i, output, sortSpecs, vars)

	default:
		lo, hi := Frame(part, i, output.Window, sortSpecs)
		return accumulatorOverFrame(part, lo, hi, output.Operator, output.Arg, vars)
	}
}

func accumulatorOverFrame(part []*types.Document, lo, hi int, op string, arg any, vars *aggregations.Variables) (any, error) {
	acc, err := accumulators.New(op, arg)
	if err != nil {
		return nil, err
	}

	var frame []*types.Document
	if lo <= hi {
		frame = part[lo : hi+1]
	}

	return acc.Accumulate(iterator.Values(iterator.ForSlice(frame)), vars)
}

// rank implements $documentNumber/$rank/$denseRank, per spec.md §4.6.
func rank(part []*types.Document, i int, op string, sortSpecs []partition.SortSpec) any {
	if op == "$documentNumber" {
		return int32(i + 1)
	}

	sameKey := func(a, b *types.Document) bool {
		for _, s := range sortSpecs {
			av, _ := a.GetByPath(s.Path)
			bv, _ := b.GetByPath(s.Path)

			if types.Compare(av, bv) != types.Equal {
				return false
			}
		}

		return true
	}

	if op == "$rank" {
		for j := i; j >= 0; j-- {
			if j == 0 || !sameKey(part[j], part[j-1]) {
				return int32(j + 1)
			}
		}

		return int32(1)
	}

	// $denseRank: count of distinct sort-key tuples up to and including i.
	distinct := 0

	for j := 0; j <= i; j++ {
		if j == 0 || !sameKey(part[j], part[j-1]) {
			distinct++
		}
	}

	return int32(distinct)
}

func evalAt(expr any, doc *types.Document, vars *aggregations.Variables) (any, error) {
	return aggregations.Evaluate(expr, doc, vars.WithRoot(doc))
}

func shift(part []*types.Document, i int, arg any, vars *aggregations.Variables) (any, error) {
	spec, ok := arg.(*types.Document)
	if !ok {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrBadValue, "$shift requires an object argument", "$shift")
	}

	outputExpr, _ := spec.Get("output")

	by, _ := spec.Get("by")

	byN := int64(0)

	switch b := by.(type) {
	case int32:
		byN = int64(b)
	case int64:
		byN = b
	case float64:
		byN = int64(b)
	}

	defExpr, defErr := spec.Get("default")

	idx := i + int(byN)
	if idx < 0 || idx >= len(part) {
		if defErr == nil {
			return evalAt(defExpr, part[i], vars)
		}

		return types.Null, nil
	}

	v, err := evalAt(outputExpr, part[idx], vars)
	if err != nil {
		return types.Null, nil
	}

	return v, nil
}

func locf(part []*types.Document, i int, arg any, vars *aggregations.Variables) (any, error) {
	v, err := evalAt(arg, part[i], vars)
	if err == nil && !isNullOrMissing(v) {
		return v, nil
	}

	for j := i - 1; j >= 0; j-- {
		v, err := evalAt(arg, part[j], vars)
		if err == nil && !isNullOrMissing(v) {
			return v, nil
		}
	}

	return types.Null, nil
}

func linearFill(part []*types.Document, i int, arg any, sortSpecs []partition.SortSpec, vars *aggregations.Variables) (any, error) {
	v, err := evalAt(arg, part[i], vars)
	if err == nil && !isNullOrMissing(v) {
		return v, nil
	}

	var prevIdx = -1

	var prevVal float64

	for j := i - 1; j >= 0; j-- {
		pv, err := evalAt(arg, part[j], vars)
		if err == nil && !isNullOrMissing(pv) {
			if f, ok := numeric(pv); ok {
				prevIdx, prevVal = j, f
			}

			break
		}
	}

	var nextIdx = -1

	var nextVal float64

	for j := i + 1; j < len(part); j++ {
		nv, err := evalAt(arg, part[j], vars)
		if err == nil && !isNullOrMissing(nv) {
			if f, ok := numeric(nv); ok {
				nextIdx, nextVal = j, f
			}

			break
		}
	}

	if prevIdx == -1 || nextIdx == -1 || len(sortSpecs) == 0 {
		return types.Null, nil
	}

	x0, _ := sortNumeric(part[prevIdx], sortSpecs[0])
	x1, _ := sortNumeric(part[nextIdx], sortSpecs[0])
	x, _ := sortNumeric(part[i], sortSpecs[0])

	if x1 == x0 {
		return prevVal, nil
	}

	return prevVal + (nextVal-prevVal)*(x-x0)/(x1-x0), nil
}

func derivative(part []*types.Document, i int, arg any, sortSpecs []partition.SortSpec, vars *aggregations.Variables) (any, error) {
	if i == 0 || len(sortSpecs) == 0 {
		return types.Null, nil
	}

	spec, ok := arg.(*types.Document)
	if !ok {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrBadValue, "$derivative requires an object argument", "$derivative")
	}

	inputExpr, _ := spec.Get("input")

	v1, err1 := evalAt(inputExpr, part[i], vars)
	v0, err0 := evalAt(inputExpr, part[i-1], vars)

	f1, ok1 := numeric(v1)
	f0, ok0 := numeric(v0)

	if err1 != nil || err0 != nil || !ok1 || !ok0 {
		return types.Null, nil
	}

	t1, _ := sortNumeric(part[i], sortSpecs[0])
	t0, _ := sortNumeric(part[i-1], sortSpecs[0])

	scale := float64(1)
	if u, ok := spec.Get("unit"); ok == nil {
		if s, ok := u.(string); ok {
			if ms, ok := unitScale(s); ok {
				scale = ms
			}
		}
	}

	dt := (t1 - t0) / scale
	if dt == 0 {
		return types.Null, nil
	}

	return (f1 - f0) / dt, nil
}

// integral implements $integral: the trapezoidal rule over successive pairs
// within the resolved frame (spec.md §4.6); $derivative, by contrast, looks
// only at rows i-1 and i. With no explicit window the frame is the entire
// partition, so every row gets the same total.
func integral(part []*types.Document, i int, output Output, sortSpecs []partition.SortSpec, vars *aggregations.Variables) (any, error) {
	spec, ok := output.Arg.(*types.Document)
	if !ok {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrBadValue, "$integral requires an object argument", "$integral")
	}

	inputExpr, _ := spec.Get("input")

	if len(sortSpecs) == 0 {
		return types.Null, nil
	}

	scale := float64(1)
	if u, ok := spec.Get("unit"); ok == nil {
		if s, ok := u.(string); ok {
			if ms, ok := unitScale(s); ok {
				scale = ms
			}
		}
	}

	lo, hi := Frame(part, i, output.Window, sortSpecs)

	start := lo
	if start < 1 {
		start = 1
	}

	var total float64

	for j := start; j <= hi; j++ {
		v1, err1 := evalAt(inputExpr, part[j], vars)
		v0, err0 := evalAt(inputExpr, part[j-1], vars)

		f1, ok1 := numeric(v1)
		f0, ok0 := numeric(v0)

		if err1 != nil || err0 != nil || !ok1 || !ok0 {
			continue
		}

		t1, _ := sortNumeric(part[j], sortSpecs[0])
		t0, _ := sortNumeric(part[j-1], sortSpecs[0])

		total += (f1 + f0) / 2 * (t1 - t0) / scale
	}

	return total, nil
}

func expMovingAvg(part []*types.Document, i int, arg any, vars *aggregations.Variables) (any, error) {
	spec, ok := arg.(*types.Document)
	if !ok {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrBadValue, "$expMovingAvg requires an object argument", "$expMovingAvg")
	}

	inputExpr, _ := spec.Get("input")

	alpha := 0.0

	if n, err := spec.Get("N"); err == nil {
		if nf, ok := numeric(n); ok && nf+1 != 0 {
			alpha = 2 / (nf + 1)
		}
	}

	if a, err := spec.Get("alpha"); err == nil {
		if af, ok := numeric(a); ok {
			alpha = af
		}
	}

	if alpha <= 0 || alpha > 1 {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrBadValue, "$expMovingAvg alpha/N must yield 0 < alpha <= 1", "$expMovingAvg")
	}

	var cur float64

	have := false

	for j := 0; j <= i; j++ {
		v, err := evalAt(inputExpr, part[j], vars)
		if err != nil {
			continue
		}

		f, ok := numeric(v)
		if !ok {
			continue
		}

		if !have {
			cur, have = f, true
			continue
		}

		cur = alpha*f + (1-alpha)*cur
	}

	if !have {
		return types.Null, nil
	}

	return cur, nil
}

func covariance(part []*types.Document, i int, output Output, sortSpecs []partition.SortSpec, vars *aggregations.Variables) (any, error) {
	lo, hi := Frame(part, i, output.Window, sortSpecs)

	args := argsPair(output.Arg)
	if args == nil {
		return types.Null, nil
	}

	var xs, ys []float64

	for j := lo; j <= hi && lo <= hi; j++ {
		xv, xerr := evalAt(args[0], part[j], vars)
		yv, yerr := evalAt(args[1], part[j], vars)

		xf, xok := numeric(xv)
		yf, yok := numeric(yv)

		if xerr != nil || yerr != nil || !xok || !yok {
			continue
		}

		xs = append(xs, xf)
		ys = append(ys, yf)
	}

	samp := output.Operator == "$covarianceSamp"
	if samp && len(xs) < 2 {
		return types.Null, nil
	}

	if len(xs) == 0 {
		return types.Null, nil
	}

	v, err := sampleCovariance(xs, ys, samp)
	if err != nil {
		return types.Null, nil
	}

	return v, nil
}

func stdDev(part []*types.Document, i int, output Output, sortSpecs []partition.SortSpec, vars *aggregations.Variables) (any, error) {
	lo, hi := Frame(part, i, output.Window, sortSpecs)

	var xs []float64

	for j := lo; j <= hi && lo <= hi; j++ {
		v, err := evalAt(output.Arg, part[j], vars)
		if err != nil {
			continue
		}

		if f, ok := numeric(v); ok {
			xs = append(xs, f)
		}
	}

	samp := output.Operator == "$stdDevSamp"
	if samp && len(xs) < 2 {
		return types.Null, nil
	}

	if len(xs) == 0 {
		return types.Null, nil
	}

	var (
		v   float64
		err error
	)

	if samp {
		v, err = stats.StandardDeviationSample(xs)
	} else {
		v, err = stats.StandardDeviationPopulation(xs)
	}

	if err != nil {
		return types.Null, nil
	}

	return v, nil
}

// sampleCovariance computes population or sample covariance of paired xs/ys.
func sampleCovariance(xs, ys []float64, samp bool) (float64, error) {
	if len(xs) != len(ys) || len(xs) == 0 {
		return 0, stats.EmptyInputErr
	}

	meanX, err := stats.Mean(xs)
	if err != nil {
		return 0, err
	}

	meanY, err := stats.Mean(ys)
	if err != nil {
		return 0, err
	}

	var sum float64

	for i := range xs {
		sum += (xs[i] - meanX) * (ys[i] - meanY)
	}

	n := float64(len(xs))
	if samp {
		if n < 2 {
			return 0, stats.EmptyInputErr
		}

		return sum / (n - 1), nil
	}

	return sum / n, nil
}

// argsPair extracts a 2-element [x,y] array argument, e.g. $covariancePop's
// [expr1, expr2].
func argsPair(arg any) []any {
	a, ok := arg.(*types.Array)
	if !ok || a.Len() != 2 {
		return nil
	}

	return a.Slice()
}

func numeric(v any) (float64, bool) {
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

func isNullOrMissing(v any) bool {
	if v == nil {
		return true
	}

	_, ok := v.(types.NullType)
	return ok
}
