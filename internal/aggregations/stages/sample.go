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
	"math/rand"

	"github.com/docengine/aggpipe/internal/aggregations"
	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
)

func init() {
	aggregations.RegisterStage("$sample", newSample)
}

// sample implements $sample per spec.md §4.4: a uniform random subset of the
// input, without replacement, of the requested size.
type sample struct {
	size int64
}

func newSample(spec any, _ *aggregations.Options) (aggregations.Stage, error) {
	doc, err := stageArgDocument("$sample", spec)
	if err != nil {
		return nil, err
	}

	v, err := doc.Get("size")
	if err != nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, "$sample requires a 'size' field", "$sample",
		)
	}

	n, ok := asNumeric(v)
	if !ok || n < 0 {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrStageInvalidShape, "$sample's 'size' must be a non-negative number", "$sample",
		)
	}

	return &sample{size: int64(n)}, nil
}

// Process implements aggregations.Stage. When size is at least the input
// length, it returns a full Fisher-Yates permutation of every document; else
// it takes the first `size` elements of that permutation, which is
// equivalent to sampling size elements uniformly without replacement.
func (s *sample) Process(_ context.Context, docs []*types.Document) ([]*types.Document, error) {
	n := len(docs)

	perm := rand.Perm(n)

	limit := n
	if s.size < int64(n) {
		limit = int(s.size)
	}

	out := make([]*types.Document, limit)
	for i := 0; i < limit; i++ {
		out[i] = docs[perm[i]]
	}

	return out, nil
}

var _ aggregations.Stage = (*sample)(nil)
