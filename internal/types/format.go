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

package types

import "fmt"

// AliasFromType returns the MongoDB type-name alias for v (e.g. "string", "object",
// "array", "double"), used in type-mismatch error messages such as §7's
// "$replaceRoot result not an object".
func AliasFromType(v any) string {
	switch v.(type) {
	case NullType:
		return "null"
	case bool:
		return "bool"
	case int32:
		return "int"
	case int64:
		return "long"
	case float64:
		return "double"
	case string:
		return "string"
	case ObjectID:
		return "objectId"
	case Binary:
		return "binData"
	case Regex:
		return "regex"
	case *Document:
		return "object"
	case *Array:
		return "array"
	default:
		if isTimeValue(v) {
			return "date"
		}

		return fmt.Sprintf("%T", v)
	}
}

// FormatAnyValue renders v for inclusion in a user-visible error message.
func FormatAnyValue(v any) string {
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case *Document, *Array:
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
