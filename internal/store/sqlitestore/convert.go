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

package sqlitestore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/docengine/aggpipe/internal/types"
)

// ToBSON converts a *types.Document into a bson.D suitable for marshaling,
// recursing through nested documents and arrays. The value model (types.go)
// is deliberately a subset of BSON, so every case here is a direct mapping.
func ToBSON(doc *types.Document) bson.D {
	if doc == nil {
		return nil
	}

	out := make(bson.D, 0, doc.Len())

	for _, k := range doc.Keys() {
		v, _ := doc.Get(k)
		out = append(out, bson.E{Key: k, Value: toBSONValue(v)})
	}

	return out
}

func toBSONValue(v any) any {
	switch val := v.(type) {
	case *types.Document:
		return ToBSON(val)
	case *types.Array:
		elems := val.Slice()
		out := make(bson.A, len(elems))

		for i, e := range elems {
			out[i] = toBSONValue(e)
		}

		return out
	case types.NullType:
		return nil
	default:
		return v
	}
}

// FromBSONArray converts a decoded bson.A back into a *types.Array. It is
// exported for callers such as cmd/aggrun that decode a pipeline or a batch
// of seed documents from (Extended) JSON via the same bson package.
func FromBSONArray(a bson.A) (*types.Array, error) {
	v, err := fromBSONValue(a)
	if err != nil {
		return nil, err
	}

	return v.(*types.Array), nil
}

// fromBSON decodes a raw BSON document (as stored in a row) into a
// *types.Document.
func fromBSON(raw bson.Raw) (*types.Document, error) {
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("sqlitestore: unmarshal document: %w", err)
	}

	return FromBSOND(d)
}

func FromBSOND(d bson.D) (*types.Document, error) {
	doc := types.MakeDocument(len(d))

	for _, e := range d {
		v, err := fromBSONValue(e.Value)
		if err != nil {
			return nil, err
		}

		if err := doc.Set(e.Key, v); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

func fromBSONValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return types.Null, nil
	case bson.D:
		return FromBSOND(val)
	case bson.M:
		d := make(bson.D, 0, len(val))
		for k, vv := range val {
			d = append(d, bson.E{Key: k, Value: vv})
		}

		return FromBSOND(d)
	case bson.A:
		arr := types.MakeArray(len(val))

		for _, e := range val {
			ev, err := fromBSONValue(e)
			if err != nil {
				return nil, err
			}

			if err := arr.Append(ev); err != nil {
				return nil, err
			}
		}

		return arr, nil
	case primitive.DateTime:
		return val.Time().UTC(), nil
	case primitive.ObjectID, primitive.Binary, primitive.Regex:
		return val, nil
	case int32, int64, float64, string, bool:
		return val, nil
	default:
		return val, nil
	}
}
