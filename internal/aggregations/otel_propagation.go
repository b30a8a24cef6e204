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

package aggregations

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// traceContextFromComment extracts OpenTelemetry tracing information from a
// pipeline's optional `comment` option, so a caller can correlate an
// aggregate() call with an upstream trace. An empty or unparsable comment
// yields an empty span context, and the driver then starts a fresh trace.
func traceContextFromComment(comment string) trace.SpanContext {
	if comment == "" {
		return trace.SpanContext{}
	}

	var data struct {
		TraceParent string `json:"traceparent"`
		TraceState  string `json:"tracestate"`
	}

	if err := json.Unmarshal([]byte(comment), &data); err != nil {
		return trace.SpanContext{}
	}

	carrier := propagation.MapCarrier{
		"traceparent": data.TraceParent,
		"tracestate":  data.TraceState,
	}

	ctx := propagation.TraceContext{}.Extract(context.Background(), carrier)

	return trace.SpanContextFromContext(ctx)
}
