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

// Package operators implements the $-prefixed expression operator table
// (spec.md §4.2): arithmetic, comparison, logical, conditional, string, array
// and date operators. Operators never evaluate sub-expressions themselves -
// they receive a Recurse closure from the evaluator and call back into it,
// so this package has no dependency on the aggregations package that drives
// it and cannot form an import cycle.
package operators

import (
	"fmt"

	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
)

// Recurse evaluates expr against the document currently being processed,
// with extra variable bindings layered on top of the enclosing scope (used
// by $map/$filter/$reduce/$let for their local variables). A nil/empty extra
// evaluates in the enclosing scope unchanged.
type Recurse func(expr any, extra map[string]any) (any, error)

// Handler implements one $-operator. arg is the raw, unevaluated value found
// under the operator's key; most handlers call recurse on it (or its
// elements) before computing their result.
type Handler func(arg any, doc *types.Document, recurse Recurse) (any, error)

// OperatorError marks an error produced by operator argument validation, so
// callers (e.g. accumulators wrapping a bare operator argument) can tell it
// apart from an internal/unexpected error.
type OperatorError struct {
	err error
}

func (e OperatorError) Error() string { return e.err.Error() }
func (e OperatorError) Unwrap() error { return e.err }

var registry = map[string]Handler{}

// Register adds name (with its leading "$") to the operator table. Operator
// implementations call this from an init() func.
func Register(name string, h Handler) {
	if _, ok := registry[name]; ok {
		panic("operators: " + name + " registered twice")
	}

	registry[name] = h
}

// Lookup returns the handler for name, if any.
func Lookup(name string) (Handler, bool) {
	h, ok := registry[name]
	return h, ok
}

// IsOperator reports whether doc is shaped like an operator invocation: a
// single key beginning with "$".
func IsOperator(doc *types.Document) bool {
	return doc.Len() == 1 && len(doc.Command()) > 0 && doc.Command()[0] == '$'
}

// unknownOperator builds the §7 "unrecognized expression operator" error.
func unknownOperator(name string) error {
	return OperatorError{err: handlererrors.NewCommandErrorMsgWithArgument(
		handlererrors.ErrOperatorUnknown,
		fmt.Sprintf("unrecognized expression operator '%s'", name),
		name,
	)}
}

// arityError builds the §7 "wrong arity" error.
func arityError(name, msg string) error {
	return OperatorError{err: handlererrors.NewCommandErrorMsgWithArgument(
		handlererrors.ErrOperatorWrongArity,
		msg,
		name,
	)}
}

// typeError builds a §7 "wrong argument type" error.
func typeError(name, msg string) error {
	return OperatorError{err: handlererrors.NewCommandErrorMsgWithArgument(
		handlererrors.ErrTypeMismatch,
		msg,
		name,
	)}
}

// Call dispatches name (with its leading "$") to its registered handler.
func Call(name string, arg any, doc *types.Document, recurse Recurse) (any, error) {
	h, ok := Lookup(name)
	if !ok {
		return nil, unknownOperator(name)
	}

	return h(arg, doc, recurse)
}

// argsArray normalizes arg into a slice: MongoDB operators accept either a
// bare single argument or an array of arguments interchangeably in several
// contexts ($add, $multiply, $and, $or, $concat, ...).
func argsArray(arg any) []any {
	if a, ok := arg.(*types.Array); ok {
		return a.Slice()
	}

	return []any{arg}
}

// evalArgs evaluates each raw argument via recurse, short-circuiting on the
// first error that is not types.ErrPathNotFound (missing is propagated to
// the caller as the private missing sentinel in the returned slice
// position, since many callers treat missing as null).
func evalArgs(args []any, recurse Recurse) ([]any, error) {
	out := make([]any, len(args))

	for i, a := range args {
		v, err := recurse(a, nil)
		if err != nil {
			if err == types.ErrPathNotFound {
				out[i] = missing{}
				continue
			}

			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

// missing is a private sentinel used only inside evalArgs/operator bodies to
// represent "the sub-expression evaluated to missing", since Go slices can't
// hold the ErrPathNotFound-as-absence convention Evaluate uses at the top level.
type missing struct{}

// isNullish reports whether v is BSON null or the internal missing marker -
// the two states most arithmetic/string operators conflate per spec.md §4.1.
func isNullish(v any) bool {
	if v == nil {
		return true
	}

	switch v.(type) {
	case types.NullType, missing:
		return true
	default:
		return false
	}
}

// truthy implements MongoDB truthiness: false, null, missing and 0 are
// falsy; everything else, including empty strings/arrays/documents, is
// truthy.
func truthy(v any) bool {
	switch v := v.(type) {
	case nil, types.NullType, missing:
		return false
	case bool:
		return v
	case int32:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return true
	}
}
