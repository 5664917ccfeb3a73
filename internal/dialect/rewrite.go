// Copyright 2023 The Cockroach Authors
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
//
// SPDX-License-Identifier: Apache-2.0

package dialect

import (
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

// token matches either of the two placeholder styles a script may be
// written in: the %(name)s pyformat style and the :name style. Both
// are accepted on input; Profile.BindStyle decides what comes out.
var token = regexp.MustCompile(`%\((\w+)\)s|:(\w+)\b`)

// Rewrite substitutes literal tokens (TRUE, FALSE, OCTET_LENGTH) with
// p's SQL text and rewrites every other token into a bound parameter
// in p's BindStyle, pulling its value from params. It never
// interpolates a parameter value into the returned SQL string -- the
// values are returned alongside it, in driver-call order, for the
// caller to bind through the driver.
func Rewrite(p Profile, stmt string, params map[string]any) (string, []any, error) {
	var args []any
	n := 0

	var rewriteErr error
	out := token.ReplaceAllStringFunc(stmt, func(m string) string {
		if rewriteErr != nil {
			return m
		}
		name := tokenName(m)
		if text, ok := p.Literal(name); ok {
			return text
		}
		val, ok := params[name]
		if !ok {
			rewriteErr = errors.Errorf("no value supplied for parameter %q in statement", name)
			return m
		}
		n++
		args = append(args, val)
		switch p.BindStyle() {
		case BindPositionalDollar:
			return "$" + strconv.Itoa(n)
		case BindPositionalQuestion:
			return "?"
		case BindNamedColon:
			return ":" + name
		default:
			rewriteErr = errors.Errorf("unknown bind style %d", p.BindStyle())
			return m
		}
	})
	if rewriteErr != nil {
		return "", nil, rewriteErr
	}
	return out, args, nil
}

// tokenName extracts the captured identifier from either alternative
// of the token regexp.
func tokenName(m string) string {
	sub := token.FindStringSubmatch(m)
	if sub[1] != "" {
		return sub[1]
	}
	return sub[2]
}
