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

// Package logging provides the module's standard [zap.Logger] construction,
// shared by cmd/aggrun and anything embedding the engine directly.
package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ctxKey is an unexported type for the context key to avoid collisions.
type ctxKey struct{}

// NewLogger builds a [zap.Logger] for the given level ("debug", "info", "warn", "error")
// and format ("console" or "json"), matching the teacher's `--log-level`/`--log-format` flags.
func NewLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.Set(level); err != nil {
		return nil, fmt.Errorf("logging.NewLogger: %w", err)
	}

	var encoderCfg zapcore.EncoderConfig

	var encoder zapcore.Encoder

	switch format {
	case "json":
		encoderCfg = zap.NewProductionEncoderConfig()
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	case "console", "":
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		return nil, fmt.Errorf("logging.NewLogger: unknown format %q", format)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(newSyncWriter())), zapLevel)

	return zap.New(core), nil
}

// WithLogger returns a new context with l attached.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger attached to ctx, or [zap.NewNop] if none was attached.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}

	return zap.NewNop()
}

// NonNil returns l, or [zap.NewNop] if l is nil, matching the teacher's
// defensive style of never assuming a caller passed a non-nil *zap.Logger.
func NonNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}

	return l
}
