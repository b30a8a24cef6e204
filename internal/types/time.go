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

import "time"

// isTimeValue reports whether v is the package's BSON-date representation.
func isTimeValue(v any) bool {
	_, ok := v.(time.Time)
	return ok
}

// NewDateTime truncates t to UTC millisecond precision, the BSON date resolution.
func NewDateTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
