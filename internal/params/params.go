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

// Package params provides shared parameter-extraction helpers for stage and
// operator constructors, matching the teacher's commonparams package.
package params

import (
	"errors"
	"fmt"
	"math"

	"github.com/docengine/aggpipe/internal/handlererrors"
	"github.com/docengine/aggpipe/internal/types"
)

// ErrUnexpectedType is returned by GetWholeNumberParam for non-numeric values.
var ErrUnexpectedType = errors.New("params: unexpected type")

// ErrNotWholeNumber is returned by GetWholeNumberParam for fractional float64 values.
var ErrNotWholeNumber = errors.New("params: not a whole number")

// GetRequiredParam returns doc's value at key, type-asserted to T.
func GetRequiredParam[T any](doc *types.Document, key string) (T, error) {
	var zero T

	v, err := doc.Get(key)
	if err != nil {
		return zero, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrFailedToParse,
			fmt.Sprintf("BSON field '%s' is missing but a required field", key),
			key,
		)
	}

	t, ok := v.(T)
	if !ok {
		return zero, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrTypeMismatch,
			fmt.Sprintf("BSON field '%s' is the wrong type '%s', expected type '%T'", key, types.AliasFromType(v), zero),
			key,
		)
	}

	return t, nil
}

// GetOptionalParam returns doc's value at key type-asserted to T, or def if key is absent.
func GetOptionalParam[T any](doc *types.Document, key string, def T) (T, error) {
	v, err := doc.Get(key)
	if err != nil {
		return def, nil
	}

	t, ok := v.(T)
	if !ok {
		return def, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrTypeMismatch,
			fmt.Sprintf("BSON field '%s' is the wrong type '%s', expected type '%T'", key, types.AliasFromType(v), def),
			key,
		)
	}

	return t, nil
}

// GetWholeNumberParam converts v (int32, int64 or an integral float64) to int64.
func GetWholeNumberParam(v any) (int64, error) {
	switch v := v.(type) {
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, ErrNotWholeNumber
		}

		return int64(v), nil
	default:
		return 0, ErrUnexpectedType
	}
}

// GetBoolOptionalParam converts v to bool following MongoDB truthiness:
// non-zero numbers are true, zero/null/missing are false.
func GetBoolOptionalParam(key string, v any) (bool, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case int32:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case types.NullType:
		return false, nil
	case nil:
		return false, nil
	default:
		return false, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrTypeMismatch,
			fmt.Sprintf("BSON field '%s' is the wrong type '%s', expected types '[bool, long, int, decimal, double]'", key, types.AliasFromType(v)),
			key,
		)
	}
}

// GetValidatedNumberParamWithMinValue converts v to an int64, validating that
// it is a whole number no smaller than minValue, matching the teacher's
// commonparams.GetValidatedNumberParamWithMinValue.
func GetValidatedNumberParamWithMinValue(command, param string, v any, minValue int32) (int64, error) {
	whole, err := GetWholeNumberParam(v)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnexpectedType):
			return 0, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrTypeMismatch,
				fmt.Sprintf("BSON field '%s.%s' is the wrong type '%s', expected types '[long, int, decimal, double]'",
					command, param, types.AliasFromType(v)),
				command,
			)
		case errors.Is(err, ErrNotWholeNumber):
			return 0, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrBadValue,
				fmt.Sprintf("%s has non-integral value", param),
				command,
			)
		default:
			return 0, err
		}
	}

	if whole < int64(minValue) {
		return 0, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrValueNegative,
			fmt.Sprintf("BSON field '%s' value must be >= %d, actual value '%d'", param, minValue, whole),
			command,
		)
	}

	return whole, nil
}
