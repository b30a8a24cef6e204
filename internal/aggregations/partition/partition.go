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

// Package partition implements spec.md §4 component 6: key extraction,
// ordered sequence grouping ("Partition" in spec.md §3) and in-partition
// sorting, shared by $group, $sort, $graphLookup, $densify, $fill and
// $setWindowFields.
package partition

import (
	"sort"

	"github.com/docengine/aggpipe/internal/aggregations"
	"github.com/docengine/aggpipe/internal/types"
)

// Group is one partition: a composite key plus the documents sharing it, in
// first-seen order.
type Group struct {
	Key  any
	Docs []*types.Document
}

// ByFields partitions docs by the tuple of values at fields (dot-paths),
// missing values treated as BSON null, preserving first-seen field-tuple
// order per spec.md §3's Partition definition.
func ByFields(docs []*types.Document, fields []string) ([]Group, error) {
	paths := make([]types.Path, len(fields))

	for i, f := range fields {
		p, err := types.NewPathFromString(f)
		if err != nil {
			return nil, err
		}

		paths[i] = p
	}

	keyOf := func(doc *types.Document) any {
		vals := types.MakeArray(len(paths))

		for _, p := range paths {
			v, err := doc.GetByPath(p)
			if err != nil {
				v = types.Null
			}

			_ = vals.Append(v)
		}

		return vals
	}

	return group(docs, keyOf)
}

// ByExpression partitions docs by evaluating keyExpr (an object expression)
// against each document with $$ROOT bound to it.
func ByExpression(docs []*types.Document, keyExpr *aggregations.Expression, vars *aggregations.Variables) ([]Group, error) {
	keyOf := func(doc *types.Document) any {
		v, err := keyExpr.Evaluate(doc, vars.WithRoot(doc))
		if err != nil {
			return types.Null
		}

		return v
	}

	return group(docs, func(doc *types.Document) any { return keyOf(doc) })
}

// group is the shared grouping loop for ByFields/ByExpression.
func group(docs []*types.Document, keyOf func(*types.Document) any) ([]Group, error) {
	order := make([]string, 0)
	byKey := make(map[string]*Group)

	for _, doc := range docs {
		key := keyOf(doc)
		serial := aggregations.SerializeKey(key)

		g, ok := byKey[serial]
		if !ok {
			g = &Group{Key: key}
			byKey[serial] = g
			order = append(order, serial)
		}

		g.Docs = append(g.Docs, doc)
	}

	out := make([]Group, 0, len(order))
	for _, serial := range order {
		out = append(out, *byKey[serial])
	}

	return out, nil
}

// SortSpec is one {path: ascending|descending} sort key, in the order
// listed in the original sort document.
type SortSpec struct {
	Path  types.Path
	Order types.SortType
}

// ParseSortSpec builds a SortSpec list from a MongoDB sort document
// ({field: 1|-1, ...}), preserving key order (sort precedence).
func ParseSortSpec(spec *types.Document) ([]SortSpec, error) {
	out := make([]SortSpec, 0, spec.Len())

	for _, k := range spec.Keys() {
		raw, _ := spec.Get(k)

		order := types.Ascending

		switch v := raw.(type) {
		case int32:
			if v < 0 {
				order = types.Descending
			}
		case int64:
			if v < 0 {
				order = types.Descending
			}
		case float64:
			if v < 0 {
				order = types.Descending
			}
		}

		p, err := types.NewPathFromString(k)
		if err != nil {
			return nil, err
		}

		out = append(out, SortSpec{Path: p, Order: order})
	}

	return out, nil
}

// Sort stably sorts docs by specs, using BSON ordering with missing fields
// treated as null, the same rule $sort and every sortBy consumer use.
func Sort(docs []*types.Document, specs []SortSpec) []*types.Document {
	out := make([]*types.Document, len(docs))
	copy(out, docs)

	sort.SliceStable(out, func(i, j int) bool {
		for _, s := range specs {
			a, errA := out[i].GetByPath(s.Path)
			if errA != nil {
				a = types.Null
			}

			b, errB := out[j].GetByPath(s.Path)
			if errB != nil {
				b = types.Null
			}

			switch types.CompareOrderForSort(a, b, s.Order) {
			case types.Less:
				return true
			case types.Greater:
				return false
			}
		}

		return false
	})

	return out
}
