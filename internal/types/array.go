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

import "github.com/docengine/aggpipe/internal/util/lazyerrors"

// Array is an ordered list of values.
type Array struct {
	s []any
}

// NewArray creates an Array from the given values.
func NewArray(values ...any) (*Array, error) {
	a := MakeArray(len(values))

	for _, v := range values {
		if err := a.Append(v); err != nil {
			return nil, lazyerrors.Error(err)
		}
	}

	return a, nil
}

// MakeArray creates an empty Array with capacity for sizeHint elements.
func MakeArray(sizeHint int) *Array {
	if sizeHint <= 0 {
		return new(Array)
	}

	return &Array{s: make([]any, 0, sizeHint)}
}

// Len returns the number of elements. A nil *Array has length 0.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}

	return len(a.s)
}

// Append adds value to the end of the array.
func (a *Array) Append(value any) error {
	if err := validateValue(value); err != nil {
		return lazyerrors.Errorf("types.Array.Append: %w", err)
	}

	a.s = append(a.s, value)

	return nil
}

// Get returns the element at index i.
func (a *Array) Get(i int) (any, error) {
	if a == nil || i < 0 || i >= len(a.s) {
		return nil, ErrPathNotFound
	}

	return a.s[i], nil
}

// Set replaces the element at index i.
func (a *Array) Set(i int, value any) error {
	if i < 0 || i >= len(a.s) {
		return ErrPathNotFound
	}

	if err := validateValue(value); err != nil {
		return lazyerrors.Errorf("types.Array.Set: %w", err)
	}

	a.s[i] = value

	return nil
}

// Slice returns the underlying values. Callers must not mutate the result.
func (a *Array) Slice() []any {
	if a == nil {
		return nil
	}

	return a.s
}

// DeepCopy returns a recursive copy of a.
func (a *Array) DeepCopy() *Array {
	if a == nil {
		return nil
	}

	cp := MakeArray(a.Len())
	for _, v := range a.s {
		cp.s = append(cp.s, deepCopyValue(v))
	}

	return cp
}
