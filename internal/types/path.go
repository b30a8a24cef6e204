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
	"strconv"
	"strings"

	"github.com/docengine/aggpipe/internal/util/lazyerrors"
)

// Path is a parsed dot-path, e.g. "a.b.0.c" -> ["a", "b", "0", "c"].
type Path struct {
	s []string
}

// NewPathFromString parses a dot-separated path string.
func NewPathFromString(s string) (Path, error) {
	if s == "" {
		return Path{}, lazyerrors.New("types.NewPathFromString: empty path")
	}

	return Path{s: strings.Split(s, ".")}, nil
}

// NewStaticPath builds a Path from already-split elements.
func NewStaticPath(elems ...string) Path {
	return Path{s: elems}
}

// Len returns the number of path elements.
func (p Path) Len() int {
	return len(p.s)
}

// Slice returns the path elements. Callers must not mutate the result.
func (p Path) Slice() []string {
	return p.s
}

// String renders the path back to dot-notation.
func (p Path) String() string {
	return strings.Join(p.s, ".")
}

// Prefix returns the path without its last element, and the last element itself.
func (p Path) Prefix() (Path, string) {
	if len(p.s) == 0 {
		return p, ""
	}

	return Path{s: p.s[:len(p.s)-1]}, p.s[len(p.s)-1]
}

// GetByPath reads the value at the dot path, descending through documents by
// key and through arrays by numeric index. It returns ErrPathNotFound if any
// segment is absent, ErrNotDocument if a segment descends through a scalar,
// and ErrNotArray if an array is indexed by a non-numeric or negative segment.
func (d *Document) GetByPath(path Path) (any, error) {
	var cur any = d

	for _, key := range path.s {
		switch v := cur.(type) {
		case *Document:
			next, err := v.Get(key)
			if err != nil {
				return nil, err
			}

			cur = next

		case *Array:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 {
				return nil, ErrNotArray
			}

			next, err := v.Get(idx)
			if err != nil {
				return nil, err
			}

			cur = next

		default:
			return nil, ErrNotDocument
		}
	}

	return cur, nil
}

// SetByPath writes value at the dot path, creating intermediate documents as needed.
// Arrays along the path are indexed, never created.
func (d *Document) SetByPath(path Path, value any) error {
	if path.Len() == 0 {
		return lazyerrors.New("types.Document.SetByPath: empty path")
	}

	prefix, last := path.Prefix()

	container, err := resolveContainer(d, prefix, true)
	if err != nil {
		return err
	}

	switch c := container.(type) {
	case *Document:
		return c.Set(last, value)

	case *Array:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 {
			return ErrNotArray
		}

		for c.Len() <= idx {
			if err := c.Append(Null); err != nil {
				return err
			}
		}

		return c.Set(idx, value)

	default:
		return ErrNotDocument
	}
}

// RemoveByPath deletes the value at the dot path, if present, and is a no-op otherwise.
func (d *Document) RemoveByPath(path Path) {
	if path.Len() == 0 {
		return
	}

	prefix, last := path.Prefix()

	container, err := resolveContainer(d, prefix, false)
	if err != nil {
		return
	}

	switch c := container.(type) {
	case *Document:
		c.Remove(last)

	case *Array:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= c.Len() {
			return
		}
		// removing from the middle of an array shifts indices; projection/unset
		// semantics over arrays are documented as index-preserving nulls instead.
		_ = c.Set(idx, Null)
	}
}

// resolveContainer walks prefix from root, optionally creating missing
// intermediate Documents when create is true.
func resolveContainer(root *Document, prefix Path, create bool) (any, error) {
	var cur any = root

	for _, key := range prefix.s {
		switch v := cur.(type) {
		case *Document:
			next, err := v.Get(key)
			if err != nil {
				if !create {
					return nil, err
				}

				nd := MakeDocument(1)
				if serr := v.Set(key, nd); serr != nil {
					return nil, serr
				}

				cur = nd

				continue
			}

			cur = next

		case *Array:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 {
				return nil, ErrNotArray
			}

			next, err := v.Get(idx)
			if err != nil {
				return nil, err
			}

			cur = next

		default:
			return nil, ErrNotDocument
		}
	}

	return cur, nil
}
