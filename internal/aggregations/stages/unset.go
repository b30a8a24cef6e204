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
	"github.com/docengine/aggpipe/internal/aggregations"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	aggregations.RegisterStage("$unset", newUnset)
}

// newUnset normalizes $unset's argument (a single path string, or an array
// of path strings) and delegates to $project's exclusion mode.
func newUnset(spec any, _ *aggregations.Options) (aggregations.Stage, error) {
	var paths []string

	switch v := spec.(type) {
	case string:
		paths = []string{v}

	case *types.Array:
		for _, e := range v.Slice() {
			s, ok := e.(string)
			if !ok {
				return nil, handlererrors.NewCommandErrorMsgWithArgument(
					handlererrors.ErrStageInvalidShape,
					"$unset specification must be a string or array of strings", "$unset",
				)
			}

			paths = append(paths, s)
		}

	default:
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape,
			"$unset specification must be a string or array of strings", "$unset",
		)
	}

	p := &project{exclude: true}

	for _, f := range paths {
		path, err := types.NewPathFromString(f)
		if err != nil {
			return nil, err
		}

		if f == "_id" {
			p.idExcluded = true
			continue
		}

		p.fields = append(p.fields, projectField{path: path})
	}

	return p, nil
}
