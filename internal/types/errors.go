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

import "errors"

// ErrPathNotFound is returned by Document.Get/GetByPath and Array.Get when the
// requested key, dot-path, or index does not exist. Callers use this, not a
// zero value, to distinguish "missing" from "present and null".
var ErrPathNotFound = errors.New("types: path not found")

// ErrNotDocument is returned when a path descends through a non-document value.
var ErrNotDocument = errors.New("types: not a document")

// ErrNotArray is returned when a path indexes into an array with a non-numeric or negative segment.
var ErrNotArray = errors.New("types: not an array")

// ErrUnexpectedType is returned for values outside the set described in the package doc.
var ErrUnexpectedType = errors.New("types: unexpected value type")
