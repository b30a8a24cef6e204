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

// Package lazyerrors provides a way to wrap internal (non-user-facing) errors
// with the call site that produced them, without paying for a full stack
// trace on every call.
package lazyerrors

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// wrappedError is an error annotated with the location and function that created it.
type wrappedError struct {
	err error
	pc  uintptr
}

// Error implements [error].
func (e *wrappedError) Error() string {
	return fmt.Sprintf("[%s] %s", frameOf(e.pc), e.err.Error())
}

// Unwrap returns the wrapped error.
func (e *wrappedError) Unwrap() error {
	return e.err
}

// GoString implements [fmt.GoStringer].
func (e *wrappedError) GoString() string {
	return "lazyerror(" + e.Error() + ")"
}

// frameOf renders pc as "file.go:line pkg.Func".
func frameOf(pc uintptr) string {
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()

	file := filepath.Base(frame.File)
	fn := frame.Function

	if i := lastSlash(fn); i >= 0 {
		fn = fn[i+1:]
	}

	return fmt.Sprintf("%s:%d %s", file, frame.Line, fn)
}

// lastSlash returns the index of the last '/' in s, or -1.
func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}

	return -1
}

// callerPC returns the program counter of the caller skip frames up from here.
func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	runtime.Callers(skip+2, pcs[:])

	return pcs[0]
}

// New is similar to [errors.New], but it also records the caller's location.
func New(text string) error {
	return &wrappedError{err: errors.New(text), pc: callerPC(1)}
}

// Error wraps err with the caller's location. It returns nil if err is nil.
func Error(err error) error {
	if err == nil {
		return nil
	}

	return &wrappedError{err: err, pc: callerPC(1)}
}

// Errorf is similar to [fmt.Errorf], but it also records the caller's location.
func Errorf(format string, args ...any) error {
	return &wrappedError{err: fmt.Errorf(format, args...), pc: callerPC(1)}
}
