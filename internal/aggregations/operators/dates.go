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

package operators

import (
	"time"

	"github.com/docengine/aggpipe/internal/aggregations/datekernel"
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	Register("$dateAdd", dateAddOp(1))
	Register("$dateSubtract", dateAddOp(-1))
	Register("$dateDiff", dateDiffOp)
	Register("$year", dateFieldOp(func(t time.Time) int32 { return int32(t.Year()) }))
	Register("$month", dateFieldOp(func(t time.Time) int32 { return int32(t.Month()) }))
	Register("$dayOfMonth", dateFieldOp(func(t time.Time) int32 { return int32(t.Day()) }))
}

// dateAddOp builds $dateAdd (sign 1) / $dateSubtract (sign -1):
// {startDate, unit, amount}.
func dateAddOp(sign int64) Handler {
	return func(arg any, doc *types.Document, recurse Recurse) (any, error) {
		spec, ok := arg.(*types.Document)
		if !ok {
			return nil, typeError("$dateAdd", "$dateAdd requires an object argument")
		}

		startExpr, err := spec.Get("startDate")
		if err != nil {
			return nil, arityError("$dateAdd", "$dateAdd requires a 'startDate' field")
		}

		unitExpr, err := spec.Get("unit")
		if err != nil {
			return nil, arityError("$dateAdd", "$dateAdd requires a 'unit' field")
		}

		amountExpr, err := spec.Get("amount")
		if err != nil {
			return nil, arityError("$dateAdd", "$dateAdd requires an 'amount' field")
		}

		start, err := recurse(startExpr, nil)
		if err != nil {
			return nil, err
		}

		t, ok := start.(time.Time)
		if !ok {
			return nil, typeError("$dateAdd", "$dateAdd requires 'startDate' to be a date")
		}

		unitV, err := recurse(unitExpr, nil)
		if err != nil {
			return nil, err
		}

		unitS, ok := unitV.(string)
		if !ok {
			return nil, typeError("$dateAdd", "$dateAdd requires 'unit' to be a string")
		}

		amountV, err := recurse(amountExpr, nil)
		if err != nil {
			return nil, err
		}

		amount := toInt64(normalizeNull(amountV)) * sign

		result, err := datekernel.Add(t, amount, datekernel.Unit(unitS))
		if err != nil {
			return nil, typeError("$dateAdd", "$dateAdd unsupported unit '"+unitS+"'")
		}

		return types.NewDateTime(result), nil
	}
}

// dateDiffOp implements $dateDiff: {startDate, endDate, unit}.
func dateDiffOp(arg any, doc *types.Document, recurse Recurse) (any, error) {
	spec, ok := arg.(*types.Document)
	if !ok {
		return nil, typeError("$dateDiff", "$dateDiff requires an object argument")
	}

	startExpr, err := spec.Get("startDate")
	if err != nil {
		return nil, arityError("$dateDiff", "$dateDiff requires a 'startDate' field")
	}

	endExpr, err := spec.Get("endDate")
	if err != nil {
		return nil, arityError("$dateDiff", "$dateDiff requires an 'endDate' field")
	}

	unitExpr, err := spec.Get("unit")
	if err != nil {
		return nil, arityError("$dateDiff", "$dateDiff requires a 'unit' field")
	}

	startV, err := recurse(startExpr, nil)
	if err != nil {
		return nil, err
	}

	endV, err := recurse(endExpr, nil)
	if err != nil {
		return nil, err
	}

	unitV, err := recurse(unitExpr, nil)
	if err != nil {
		return nil, err
	}

	start, ok := startV.(time.Time)
	if !ok {
		return nil, typeError("$dateDiff", "$dateDiff requires 'startDate' to be a date")
	}

	end, ok := endV.(time.Time)
	if !ok {
		return nil, typeError("$dateDiff", "$dateDiff requires 'endDate' to be a date")
	}

	unitS, ok := unitV.(string)
	if !ok {
		return nil, typeError("$dateDiff", "$dateDiff requires 'unit' to be a string")
	}

	n, err := datekernel.Diff(start, end, datekernel.Unit(unitS))
	if err != nil {
		return nil, typeError("$dateDiff", "$dateDiff unsupported unit '"+unitS+"'")
	}

	return n, nil
}

// dateFieldOp builds single-field date accessors ($year, $month, $dayOfMonth).
func dateFieldOp(fn func(time.Time) int32) Handler {
	return func(arg any, doc *types.Document, recurse Recurse) (any, error) {
		args := argsArray(arg)
		if len(args) != 1 {
			return nil, arityError("$year/$month/$dayOfMonth", "requires exactly one argument")
		}

		v, err := recurse(args[0], nil)
		if err != nil {
			return nil, err
		}

		t, ok := v.(time.Time)
		if !ok {
			return nil, typeError("$year/$month/$dayOfMonth", "argument must be a date")
		}

		return fn(t.UTC()), nil
	}
}
