package vcs

import (
	"fmt"
	"regexp"
	"strings"
)

// ProtectedBranches is a compiled matcher over a fixed, ordered pattern
// list using gitignore-style syntax: literal name/prefix matches, `*`
// (any run of characters within one `/`-delimited segment), `?` (a single
// non-separator character), `**` (any run of characters, crossing `/`),
// and a leading `!` to negate an earlier match. As in gitignore, patterns
// are evaluated in order and the last pattern to match a name decides the
// verdict.
//
// The grammar is small enough, and specific enough to branch-name matching
// rather than filesystem globbing, that hand-rolling it against
// regexp/stdlib is clearer than adapting a path-oriented gitignore library;
// see DESIGN.md for why this is one of the few stdlib-only components.
type ProtectedBranches struct {
	rules []protectRule
}

type protectRule struct {
	negate bool
	re     *regexp.Regexp
	// literal and isLiteral let a plain pattern (no wildcards) also match
	// as a namespace prefix, e.g. "release" protects "release/1.0".
	literal   string
	isLiteral bool
}

// NewProtectedBranches compiles the given patterns in order.
func NewProtectedBranches(patterns []string) (*ProtectedBranches, error) {
	pb := &ProtectedBranches{}
	for _, raw := range patterns {
		pattern := raw
		negate := false
		if strings.HasPrefix(pattern, "!") {
			negate = true
			pattern = pattern[1:]
		}
		if pattern == "" {
			continue
		}
		rule := protectRule{negate: negate}
		if !containsGlobMeta(pattern) {
			rule.isLiteral = true
			rule.literal = pattern
		} else {
			expr, err := translateGlobToRegex(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid protected-branch pattern %q: %w", raw, err)
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("invalid protected-branch pattern %q: %w", raw, err)
			}
			rule.re = re
		}
		pb.rules = append(pb.rules, rule)
	}
	return pb, nil
}

func containsGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?")
}

// Matches reports whether name is protected under the compiled pattern list.
func (pb *ProtectedBranches) Matches(name string) bool {
	if pb == nil {
		return false
	}
	matched := false
	for _, rule := range pb.rules {
		var hit bool
		if rule.isLiteral {
			hit = name == rule.literal || strings.HasPrefix(name, rule.literal+"/")
		} else {
			hit = rule.re.MatchString(name)
		}
		if hit {
			matched = !rule.negate
		}
	}
	return matched
}

// translateGlobToRegex converts gitignore-style glob syntax into an
// anchored regular expression. `**` matches any run of characters
// (including `/`); a lone `*` matches any run of characters excluding `/`;
// `?` matches a single character other than `/`.
func translateGlobToRegex(pattern string) (string, error) {
	var b strings.Builder
	b.WriteString("^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		}
	}
	b.WriteString("$")
	return b.String(), nil
}
