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

package aggregations

import (
	"fmt"
	"strconv"
	"time"

	"github.com/docengine/aggpipe/internal/types"
)

// SerializeKey renders v into a canonical, type-tagged byte form suitable as
// a Go map key, per spec.md §9's "Partition keys" design note: a
// human-readable fallback (e.g. fmt.Sprintf) would conflate 1 and "1",
// breaking $group/partition-key equality.
func SerializeKey(v any) string {
	switch v := v.(type) {
	case nil:
		return "n:"
	case types.NullType:
		return "n:"
	case bool:
		if v {
			return "b:1"
		}

		return "b:0"
	case int32:
		return "#:" + canonicalNumber(float64(v))
	case int64:
		return "#:" + canonicalNumber(float64(v))
	case float64:
		return "#:" + canonicalNumber(v)
	case string:
		return "s:" + v
	case time.Time:
		return "d:" + strconv.FormatInt(v.UnixMilli(), 10)
	case types.ObjectID:
		return "o:" + v.Hex()
	case types.Binary:
		return "bin:" + string(v.Subtype) + ":" + string(v.Data)
	case *types.Document:
		out := "{"

		for _, k := range v.Keys() {
			fv, _ := v.Get(k)
			out += fmt.Sprintf("%q:%s,", k, SerializeKey(fv))
		}

		return out + "}"
	case *types.Array:
		out := "["

		for _, e := range v.Slice() {
			out += SerializeKey(e) + ","
		}

		return out + "]"
	default:
		return fmt.Sprintf("?:%v", v)
	}
}

// canonicalNumber renders a float64 so that int64(1) and float64(1) produce
// the same key, collapsing numeric equality per spec.md §3.
func canonicalNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}

	return strconv.FormatFloat(f, 'g', -1, 64)
}
