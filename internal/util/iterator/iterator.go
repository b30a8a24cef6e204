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

// Package iterator provides a uniform, closeable key-value iterator used to
// stream documents through stage executors without materializing every
// intermediate sequence as a slice.
package iterator

import "errors"

// ErrIteratorDone is returned by [Interface.Next] when there are no more items.
var ErrIteratorDone = errors.New("iterator is done")

// Interface is a closeable iterator of key-value pairs.
//
// Next returns [ErrIteratorDone] once exhausted; callers must call Close when done,
// even after receiving ErrIteratorDone, to release any underlying resources.
type Interface[K, V any] interface {
	Next() (K, V, error)
	Close()
}

// sliceIterator iterates over a slice, using the index as the key.
type sliceIterator[V any] struct {
	s []V
	i int
}

// ForSlice returns an [Interface] that iterates over s.
func ForSlice[V any](s []V) Interface[int, V] {
	return &sliceIterator[V]{s: s}
}

// Next implements [Interface].
func (it *sliceIterator[V]) Next() (int, V, error) {
	if it.s == nil || it.i >= len(it.s) {
		var z V
		return 0, z, ErrIteratorDone
	}

	i := it.i
	it.i++

	return i, it.s[i], nil
}

// Close implements [Interface].
func (it *sliceIterator[V]) Close() {
	it.s = nil
}

// funcIterator adapts a plain function into an [Interface].
type funcIterator[K, V any] struct {
	f func() (K, V, error)
}

// ForFunc returns an [Interface] backed by f.
func ForFunc[K, V any](f func() (K, V, error)) Interface[K, V] {
	return &funcIterator[K, V]{f: f}
}

// Next implements [Interface].
func (it *funcIterator[K, V]) Next() (K, V, error) {
	if it.f == nil {
		var k K
		var v V
		return k, v, ErrIteratorDone
	}

	return it.f()
}

// Close implements [Interface].
func (it *funcIterator[K, V]) Close() {
	it.f = nil
}

// ConsumeValues reads iter until it is done, returning all values in order.
// It always closes iter.
func ConsumeValues[K, V any](iter Interface[K, V]) ([]V, error) {
	defer iter.Close()

	var res []V

	for {
		_, v, err := iter.Next()
		if errors.Is(err, ErrIteratorDone) {
			return res, nil
		}

		if err != nil {
			return nil, err
		}

		res = append(res, v)
	}
}

// ConsumeValuesN reads up to n values from iter without closing it.
// It returns nil once iter is exhausted.
func ConsumeValuesN[K, V any](iter Interface[K, V], n int) ([]V, error) {
	var res []V

	for len(res) < n {
		_, v, err := iter.Next()
		if errors.Is(err, ErrIteratorDone) {
			break
		}

		if err != nil {
			return nil, err
		}

		res = append(res, v)
	}

	return res, nil
}

// Values wraps iter so that Next returns only the value, discarding the key.
func Values[K, V any](iter Interface[K, V]) Interface[struct{}, V] {
	return ForFunc(func() (struct{}, V, error) {
		_, v, err := iter.Next()
		return struct{}{}, v, err
	})
}

// CloserFunc adapts a plain func() into a type with a Close method.
type CloserFunc func()

// Close calls f.
func (f CloserFunc) Close() {
	f()
}

// closer is the minimal interface [MultiCloser] aggregates.
type closer interface {
	Close()
}

// MultiCloser closes multiple underlying resources (iterators, cancel funcs) together,
// so a pipeline can tear down every stage's resources from one place on error or cancellation.
type MultiCloser struct {
	closers []closer
}

// NewMultiCloser returns a MultiCloser wrapping the given closers.
func NewMultiCloser(closers ...closer) *MultiCloser {
	return &MultiCloser{closers: closers}
}

// Add registers another closer.
func (mc *MultiCloser) Add(c closer) {
	mc.closers = append(mc.closers, c)
}

// Close closes all registered closers, in reverse registration order.
func (mc *MultiCloser) Close() {
	for i := len(mc.closers) - 1; i >= 0; i-- {
		mc.closers[i].Close()
	}
}
