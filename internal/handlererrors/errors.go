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

// Package handlererrors defines the user-visible error taxonomy of spec.md
// §7: every error an aggregation pipeline can surface to its caller carries
// a stable ErrorCode and the operator/stage argument that produced it.
package handlererrors

import "fmt"

// ErrorCode represents a MongoDB wire protocol error code.
type ErrorCode int32

// Error codes used across the pipeline shape, operator shape, type/value, and
// environment categories of spec.md §7. Values follow the real MongoDB error
// code numbering so error output stays recognizable to MongoDB tooling.
const (
	ErrBadValue                 ErrorCode = 2
	ErrFailedToParse            ErrorCode = 9
	ErrTypeMismatch             ErrorCode = 14
	ErrInvalidNamespace         ErrorCode = 73
	ErrValueNegative            ErrorCode = 51024
	ErrStageGroupUnaryOperator  ErrorCode = 15951
	ErrStageGroupID             ErrorCode = 15948
	ErrStageGroupInvalidFields  ErrorCode = 15952
	ErrStageGroupMissingID      ErrorCode = 15955
	ErrStageCountNonString      ErrorCode = 40156
	ErrStageCountNonEmptyString ErrorCode = 40157
	ErrStageCountBadPrefix      ErrorCode = 40158
	ErrStageCountBadValue       ErrorCode = 40160
	ErrSortBadOrder             ErrorCode = 15974
	ErrSortBadValue             ErrorCode = 15975
	ErrFieldPathInvalidName     ErrorCode = 16410
	ErrStageUnknown             ErrorCode = 40324
	ErrStageInvalidShape        ErrorCode = 40323
	ErrCollStatsIsNotFirstStage ErrorCode = 40602
	ErrStageOutNotLast          ErrorCode = 40601
	ErrStageDocumentsNotFirst   ErrorCode = 40603
	ErrFacetForbiddenStage      ErrorCode = 40600
	ErrOperatorUnknown          ErrorCode = 168
	ErrOperatorWrongArity       ErrorCode = 16020
	ErrRedactBadResult          ErrorCode = 17053
	ErrDensifyBadValue          ErrorCode = 5733412
	ErrEnvironmentMissing       ErrorCode = 51091
)

// CommandError is a user-visible error carrying a stable [ErrorCode] and the
// underlying message, the type every pipeline-shape/operator-shape/type-value
// error in spec.md §7 is reported as.
type CommandError struct {
	code     ErrorCode
	err      error
	argument string
}

// Error implements [error].
func (e *CommandError) Error() string {
	return e.err.Error()
}

// Code returns the error's stable code.
func (e *CommandError) Code() ErrorCode {
	return e.code
}

// Err returns the underlying error.
func (e *CommandError) Err() error {
	return e.err
}

// Argument returns the operator/stage name the error applies to.
func (e *CommandError) Argument() string {
	return e.argument
}

// NewCommandErrorMsgWithArgument builds a CommandError for msg produced while
// processing argument (an operator or stage name).
func NewCommandErrorMsgWithArgument(code ErrorCode, msg, argument string) error {
	return &CommandError{
		code:     code,
		err:      fmt.Errorf("%s", msg),
		argument: argument,
	}
}

// check interfaces
var (
	_ error = (*CommandError)(nil)
)
