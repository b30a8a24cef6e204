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

// Package stages implements the per-stage algorithms of spec.md §4.4. Each
// stage type registers its constructor into the parent aggregations package
// through an init() func, mirroring the teacher's own registry split between
// aggregations and aggregations/stages - this package imports aggregations,
// never the reverse, so there is no import cycle.
package stages

import (
	"github.com/docengine/aggpipe/internal/aggregations"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
)

// vars builds the per-document system variable environment for a stage
// that only needs $$ROOT/$$NOW (no accumulated loop variables).
func vars(opts *aggregations.Options, doc *types.Document) *aggregations.Variables {
	return aggregations.NewSystemVariables(opts.Now, doc)
}

// stageArgDocument requires spec to be a *types.Document, erroring with the
// pipeline-shape taxonomy of spec.md §7 otherwise.
func stageArgDocument(name string, spec any) (*types.Document, error) {
	doc, ok := spec.(*types.Document)
	if !ok {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape,
			name+" stage specification must be an object", name,
		)
	}

	return doc, nil
}

// dotPaths normalizes a list of dot-path strings (e.g. $unset's argument,
// $project's field list) into parsed types.Path values.
func dotPaths(fields []string) ([]types.Path, error) {
	out := make([]types.Path, len(fields))

	for i, f := range fields {
		p, err := types.NewPathFromString(f)
		if err != nil {
			return nil, err
		}

		out[i] = p
	}

	return out, nil
}
