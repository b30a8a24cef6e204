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

// Package matcher is a reference [provider.FilterMatcher] implementation: a
// small subset of the MongoDB query-filter language, enough to drive $match
// and $graphLookup.restrictSearchWithMatch in cmd/aggrun and tests. The
// engine itself never interprets filters (spec.md §1/§6); this is demo
// plumbing, not part of the core, and does not attempt the full query
// language (regex operators, $expr, geo queries, and friends are out).
package matcher

import (
	"github.com/docengine/aggpipe/internal/types"
)

// Matcher implements provider.FilterMatcher.
type Matcher struct{}

// New returns a Matcher.
func New() *Matcher {
	return &Matcher{}
}

// Matches reports whether doc satisfies filter. A nil or empty filter
// matches every document. Each top-level key of filter is either a literal
// value to compare for equality, or an operator document ({$gt: ..., $in:
// [...]}), following the teacher's filter.go field-expression precedent,
// and $and/$or/$nor combine sub-filters the same way.
func (m *Matcher) Matches(doc, filter *types.Document) bool {
	if filter == nil {
		return true
	}

	for _, key := range filter.Keys() {
		want, _ := filter.Get(key)

		switch key {
		case "$and":
			if !matchLogical(doc, want, allTrue) {
				return false
			}

			continue
		case "$or":
			if !matchLogical(doc, want, anyTrue) {
				return false
			}

			continue
		case "$nor":
			if matchLogical(doc, want, anyTrue) {
				return false
			}

			continue
		}

		if !m.matchField(doc, key, want) {
			return false
		}
	}

	return true
}

func (m *Matcher) matchField(doc *types.Document, key string, want any) bool {
	path, err := types.NewPathFromString(key)
	if err != nil {
		return false
	}

	got, err := doc.GetByPath(path)
	found := err == nil

	if !found {
		got = types.Null
	}

	if cond, ok := want.(*types.Document); ok && isOperatorDocument(cond) {
		return matchOperators(got, found, cond)
	}

	return types.Compare(got, want) == types.Equal
}

func isOperatorDocument(d *types.Document) bool {
	for _, k := range d.Keys() {
		if len(k) == 0 || k[0] != '$' {
			return false
		}
	}

	return d.Len() > 0
}

func matchOperators(got any, found bool, cond *types.Document) bool {
	for _, op := range cond.Keys() {
		arg, _ := cond.Get(op)

		if op == "$exists" {
			want, _ := arg.(bool)
			if found != want {
				return false
			}

			continue
		}

		if !matchOperator(got, op, arg) {
			return false
		}
	}

	return true
}

func matchOperator(got any, op string, arg any) bool {
	switch op {
	case "$eq":
		return types.Compare(got, arg) == types.Equal
	case "$ne":
		return types.Compare(got, arg) != types.Equal
	case "$gt":
		return types.Compare(got, arg) == types.Greater
	case "$gte":
		r := types.Compare(got, arg)
		return r == types.Greater || r == types.Equal
	case "$lt":
		return types.Compare(got, arg) == types.Less
	case "$lte":
		r := types.Compare(got, arg)
		return r == types.Less || r == types.Equal
	case "$in":
		return containsEqual(arg, got)
	case "$nin":
		return !containsEqual(arg, got)
	default:
		// unknown operators never match, rather than silently accepting.
		return false
	}
}

func containsEqual(arr any, got any) bool {
	a, ok := arr.(*types.Array)
	if !ok {
		return false
	}

	for _, v := range a.Slice() {
		if types.Compare(got, v) == types.Equal {
			return true
		}
	}

	return false
}

func matchLogical(doc *types.Document, val any, combine func([]bool) bool) bool {
	arr, ok := val.(*types.Array)
	if !ok {
		return false
	}

	m := New()

	results := make([]bool, 0, arr.Len())

	for _, v := range arr.Slice() {
		sub, ok := v.(*types.Document)
		if !ok {
			results = append(results, false)
			continue
		}

		results = append(results, m.Matches(doc, sub))
	}

	return combine(results)
}

func allTrue(bs []bool) bool {
	for _, b := range bs {
		if !b {
			return false
		}
	}

	return true
}

func anyTrue(bs []bool) bool {
	for _, b := range bs {
		if b {
			return true
		}
	}

	return false
}
