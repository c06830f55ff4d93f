// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package matcher

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrBadPattern is returned synchronously to the caller creating a
// matcher when a regex pattern fails to compile; the matcher is never
// installed.
var ErrBadPattern = errors.New("matcher: bad pattern")

// Predicate classifies a single line's text.
type Predicate interface {
	Match(line string) bool
	String() string
}

type regexPredicate struct {
	re *regexp.Regexp
}

// NewRegexPredicate compiles pattern once, up front; patterns that match
// the empty string (e.g. ".*") are valid and match every line exactly
// once, as regexp.MatchString naturally does.
func NewRegexPredicate(pattern string) (Predicate, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadPattern, pattern, err)
	}
	return &regexPredicate{re: re}, nil
}

func (p *regexPredicate) Match(line string) bool { return p.re.MatchString(line) }
func (p *regexPredicate) String() string         { return p.re.String() }

type literalPredicate struct {
	needle string
}

// NewLiteralPredicate returns a Predicate matching lines containing
// needle as a plain substring.
func NewLiteralPredicate(needle string) Predicate {
	return &literalPredicate{needle: needle}
}

func (p *literalPredicate) Match(line string) bool { return strings.Contains(line, p.needle) }
func (p *literalPredicate) String() string         { return p.needle }
