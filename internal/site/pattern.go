package site

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// Pattern matches identifiers.
type Pattern interface {
	Match(identifier string) bool
	String() string
}

// RegexpPrefix marks a pattern string as a regular expression.
const RegexpPrefix = "re:"

// ParsePattern parses a glob (the default) or, with the "re:" prefix, a
// regular expression. In globs "*" stops at "/" and "**" crosses directories.
func ParsePattern(s string) (Pattern, error) {
	if expr, ok := strings.CutPrefix(s, RegexpPrefix); ok {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", s, err)
		}
		return regexpPattern{re: re, src: s}, nil
	}
	if _, err := doublestar.Match(s, ""); err != nil {
		return nil, fmt.Errorf("pattern %q: %w", s, err)
	}
	return globPattern(s), nil
}

// MustPattern is like ParsePattern but panics on error.
// Use only in tests or with literal patterns.
func MustPattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePatterns parses every string in ss.
func ParsePatterns(ss []string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(ss))
	for _, s := range ss {
		p, err := ParsePattern(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// MatchAny reports whether identifier matches at least one pattern.
func MatchAny(patterns []Pattern, identifier string) bool {
	for _, p := range patterns {
		if p.Match(identifier) {
			return true
		}
	}
	return false
}

type globPattern string

func (g globPattern) Match(identifier string) bool {
	ok, err := doublestar.Match(string(g), identifier)
	return err == nil && ok
}

func (g globPattern) String() string { return string(g) }

type regexpPattern struct {
	re  *regexp.Regexp
	src string
}

func (r regexpPattern) Match(identifier string) bool { return r.re.MatchString(identifier) }

func (r regexpPattern) String() string { return r.src }
