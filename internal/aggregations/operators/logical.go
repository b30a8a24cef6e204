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

import "github.com/docengine/aggpipe/internal/types"

func init() {
	Register("$and", func(arg any, doc *types.Document, recurse Recurse) (any, error) {
		for _, a := range argsArray(arg) {
			v, err := recurse(a, nil)
			if err != nil && err != types.ErrPathNotFound {
				return nil, err
			}

			if !truthy(v) {
				return false, nil
			}
		}

		return true, nil
	})

	Register("$or", func(arg any, doc *types.Document, recurse Recurse) (any, error) {
		for _, a := range argsArray(arg) {
			v, err := recurse(a, nil)
			if err != nil && err != types.ErrPathNotFound {
				return nil, err
			}

			if truthy(v) {
				return true, nil
			}
		}

		return false, nil
	})

	Register("$not", func(arg any, doc *types.Document, recurse Recurse) (any, error) {
		args := argsArray(arg)
		if len(args) != 1 {
			return nil, arityError("$not", "$not requires exactly one argument")
		}

		v, err := recurse(args[0], nil)
		if err != nil && err != types.ErrPathNotFound {
			return nil, err
		}

		return !truthy(v), nil
	})
}
