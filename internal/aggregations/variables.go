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
	"time"

	"github.com/docengine/aggpipe/internal/types"
)

// Variables is the current variable environment (spec.md §3): system
// variables plus any user-defined bindings introduced by $let, $map, $filter,
// $reduce and similar operators. Scopes nest; a lookup walks outward until it
// finds the name or exhausts the chain.
type Variables struct {
	parent *Variables
	vars   map[string]any
}

// NewSystemVariables builds the root scope for one aggregate() call: $$NOW,
// $$ROOT, $$REMOVE and the $redact string constants $$DESCEND/$$PRUNE/$$KEEP,
// plus $$CLUSTER_TIME/$$USER_ROLES, which resolve to missing per
// SPEC_FULL.md §4.9 since this core has no cluster or auth system.
func NewSystemVariables(now time.Time, root *types.Document) *Variables {
	return &Variables{
		vars: map[string]any{
			"NOW":     now,
			"ROOT":    root,
			"REMOVE":  types.REMOVE,
			"DESCEND": "descend",
			"PRUNE":   "prune",
			"KEEP":    "keep",
			// CLUSTER_TIME and USER_ROLES are intentionally absent: Get
			// reports them missing rather than returning a zero value.
		},
	}
}

// WithRoot returns a child scope with $$ROOT rebound to root, used when
// recursing into a nested document (e.g. $redact, $map over sub-documents).
func (v *Variables) WithRoot(root *types.Document) *Variables {
	return &Variables{parent: v, vars: map[string]any{"ROOT": root}}
}

// With returns a child scope with extra bindings layered over v, used for
// $let and the implicit "this"/"value" bindings of $map/$filter/$reduce.
func (v *Variables) With(extra map[string]any) *Variables {
	if len(extra) == 0 {
		return v
	}

	return &Variables{parent: v, vars: extra}
}

// Get resolves name (without the leading "$$"), walking outward through
// enclosing scopes. ok is false if no scope defines name.
func (v *Variables) Get(name string) (any, bool) {
	for s := v; s != nil; s = s.parent {
		if val, ok := s.vars[name]; ok {
			return val, true
		}
	}

	return nil, false
}
