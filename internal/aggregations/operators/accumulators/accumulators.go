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

// Package accumulators implements the stateful reducers consumed by $group,
// $bucket, $bucketAuto and the window engine's accumulator-over-frame
// dispatch (spec.md §4.3): $sum, $avg, $min, $max, $first, $last, $push,
// $addToSet, $count.
package accumulators

import (
	"fmt"

	"github.com/docengine/aggpipe/internal/aggregations"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
	"github.com/docengine/aggpipe/internal/util/iterator"
)

// Accumulator accumulates a value across a sequence of documents - a group,
// a bucket, or a window frame - and finalizes it in the same call, matching
// the teacher's own avg/first accumulators.
type Accumulator interface {
	Accumulate(iter types.DocumentsIterator, vars *aggregations.Variables) (any, error)
}

// Constructor builds an Accumulator from the raw (unevaluated) argument found
// under its `$name` key in an output/group spec.
type Constructor func(arg any) (Accumulator, error)

var registry = map[string]Constructor{}

// Register adds name (with its leading "$") to the accumulator table.
func Register(name string, ctor Constructor) {
	if _, ok := registry[name]; ok {
		panic("accumulators: " + name + " registered twice")
	}

	registry[name] = ctor
}

// New builds the accumulator named name from arg.
func New(name string, arg any) (Accumulator, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrOperatorUnknown,
			fmt.Sprintf("unrecognized expression operator '%s'", name),
			name,
		)
	}

	return ctor(arg)
}

// Known reports whether name is a registered accumulator.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// drain collects every document off iter into a slice, matching the
// materialize-fully execution model of SPEC_FULL.md/spec.md §5.
func drain(iter types.DocumentsIterator) ([]*types.Document, error) {
	return iterator.ConsumeValues(iter)
}
