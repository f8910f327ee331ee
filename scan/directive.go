// Copyright 2023-2025 Mezzo AV, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scan

import (
	"strings"
	"unicode"

	"github.com/mattn/go-shellwords"
)

// tool is the directive prefix: //drivermux:DOMAIN NAME.
const tool = "drivermux"

// directive is one parsed drivermux comment directive.
type directive struct {
	verb string
	args []string
}

// parseDirective extracts the drivermux directive from one comment line.
// Comments that are not drivermux directives, including other tools'
// directives and ordinary prose, return nil with no error. Like all Go
// directives, the text must start immediately after the slashes.
func parseDirective(text string) (*directive, error) {
	text = strings.TrimPrefix(text, "//")
	if text == "" || unicode.IsSpace(rune(text[0])) {
		return nil, nil
	}
	before, after, found := strings.Cut(text, ":")
	if !found || before != tool {
		return nil, nil
	}

	args, err := shellwords.Parse(after)
	if err != nil {
		return nil, err
	}

	d := new(directive)
	if len(args) > 0 {
		d.verb, d.args = args[0], args[1:]
	}
	return d, nil
}
