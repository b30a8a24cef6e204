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

import (
	"fmt"

	"github.com/docengine/aggpipe/internal/util/lazyerrors"
)

// Document is an ordered mapping from string keys to values. Key order is
// insignificant for equality but preserved for iteration/output, matching
// spec.md §3's Document definition.
type Document struct {
	keys []string
	m    map[string]any
}

// NewDocument creates a Document from alternating key/value pairs.
func NewDocument(pairs ...any) (*Document, error) {
	if len(pairs)%2 != 0 {
		return nil, lazyerrors.Errorf("types.NewDocument: odd number of arguments: %d", len(pairs))
	}

	doc := MakeDocument(len(pairs) / 2)

	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, lazyerrors.Errorf("types.NewDocument: invalid key type: %T", pairs[i])
		}

		if err := doc.Set(key, pairs[i+1]); err != nil {
			return nil, lazyerrors.Error(err)
		}
	}

	return doc, nil
}

// MakeDocument creates an empty Document with capacity for sizeHint keys.
func MakeDocument(sizeHint int) *Document {
	if sizeHint <= 0 {
		return new(Document)
	}

	return &Document{
		keys: make([]string, 0, sizeHint),
		m:    make(map[string]any, sizeHint),
	}
}

// Len returns the number of keys. A nil *Document has length 0.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}

	return len(d.keys)
}

// Keys returns the document's keys in insertion order. Callers must not mutate the result.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}

	return d.keys
}

// Map returns the document's key-value map. Callers must not mutate the result.
func (d *Document) Map() map[string]any {
	if d == nil {
		return nil
	}

	return d.m
}

// Command returns the document's first key, the MongoDB convention for "the command/stage name".
func (d *Document) Command() string {
	if d.Len() == 0 {
		return ""
	}

	return d.keys[0]
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	if d == nil {
		return false
	}

	_, ok := d.m[key]

	return ok
}

// Get returns the value at key, or ErrPathNotFound if it is absent.
func (d *Document) Get(key string) (any, error) {
	if d == nil {
		return nil, ErrPathNotFound
	}

	v, ok := d.m[key]
	if !ok {
		return nil, ErrPathNotFound
	}

	return v, nil
}

// GetDefault returns the value at key, or def if it is absent.
func (d *Document) GetDefault(key string, def any) any {
	v, err := d.Get(key)
	if err != nil {
		return def
	}

	return v
}

// Set sets key to value, appending it if new, and validates value's type.
func (d *Document) Set(key string, value any) error {
	if err := validateValue(value); err != nil {
		return lazyerrors.Errorf("types.Document.Set: %w", err)
	}

	if d.m == nil {
		d.m = make(map[string]any, 1)
	}

	if _, ok := d.m[key]; !ok {
		d.keys = append(d.keys, key)
	}

	d.m[key] = value

	return nil
}

// Remove deletes key, if present, and returns the removed value (or nil if absent).
func (d *Document) Remove(key string) any {
	if d == nil {
		return nil
	}

	v, ok := d.m[key]
	if !ok {
		return nil
	}

	delete(d.m, key)

	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}

	return v
}

// DeepCopy returns a recursive copy of d.
func (d *Document) DeepCopy() *Document {
	if d == nil {
		return nil
	}

	cp := MakeDocument(d.Len())

	for _, k := range d.keys {
		cp.keys = append(cp.keys, k)
		cp.m[k] = deepCopyValue(d.m[k])
	}

	return cp
}

// validateValue reports whether v belongs to the Value set described in the package doc.
func validateValue(v any) error {
	switch v := v.(type) {
	case NullType, RemoveType, bool, int32, int64, float64, string,
		ObjectID, Binary, Regex:
		return nil
	case *Document, *Array:
		return nil
	default:
		if isTimeValue(v) {
			return nil
		}

		return fmt.Errorf("types.validateValue: unsupported type: %T (%v)", v, v)
	}
}

// deepCopyValue recursively copies v if it is a *Document or *Array.
func deepCopyValue(v any) any {
	switch v := v.(type) {
	case *Document:
		return v.DeepCopy()
	case *Array:
		return v.DeepCopy()
	default:
		return v
	}
}
