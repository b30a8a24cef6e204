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

// Package types defines the document value model the aggregation engine
// operates on: a tagged union of BSON-like scalars, documents and arrays,
// plus the three-valued (missing/null/value) semantics described by the
// specification this engine implements.
//
// A "Value" is not a dedicated Go type; it is any of:
//
//	nil is never used - absence is signaled by an error, never a value
//	NullType (the Null singleton)
//	bool
//	int32, int64, float64
//	string
//	time.Time (UTC, truncated to millisecond - the BSON "date" type)
//	primitive.ObjectID
//	primitive.Binary
//	primitive.Regex
//	*Document
//	*Array
//	RemoveType (the REMOVE singleton - only ever an expression result)
//
// Missing and null are deliberately not conflated at this layer: a field
// that is absent from a Document is reported via ErrPathNotFound, never as
// Null. Operators decide, per their own documented rules, whether to treat
// the two the same.
package types

import "go.mongodb.org/mongo-driver/bson/primitive"

// NullType represents the BSON null type.
type NullType struct{}

// Null is the only valid NullType value.
var Null = NullType{}

// RemoveType is the type of [REMOVE], an internal marker meaning
// "omit this field from projection output". It is never a field value in a
// stored/produced Document; it can only be the outcome of evaluating an
// expression in a $project/$addFields/$set context.
type RemoveType struct{}

// REMOVE is the only valid RemoveType value.
var REMOVE = RemoveType{}

// ObjectID is the 12-byte BSON object id type, reused from the official
// MongoDB driver so values round-trip with real client-generated ids.
type ObjectID = primitive.ObjectID

// Binary is the BSON binary type.
type Binary = primitive.Binary

// Regex is the BSON regular expression type.
type Regex = primitive.Regex

// NewObjectID generates a new globally-unique ObjectID.
func NewObjectID() ObjectID {
	return primitive.NewObjectID()
}
