package manifest

import (
	"path"
	"regexp"
	"strings"
)

// PatternKind discriminates how a filename pattern matches a basename.
type PatternKind string

const (
	// KindLiteral matches when the basename contains the pattern text
	// (case-insensitive).
	KindLiteral PatternKind = "literal"
	// KindWildcard matches the whole basename against a shell-style
	// wildcard expression (case-insensitive).
	KindWildcard PatternKind = "wildcard"
	// KindRegex searches the basename with a regular expression
	// (case-insensitive, unanchored).
	KindRegex PatternKind = "regex"
)

// regexPrefix marks a pattern as a regular expression. The prefix itself is
// matched case-insensitively.
const regexPrefix = "regex:"

// Pattern is a filename matching rule classified once at manifest
// construction, so matching is a case analysis rather than per-candidate
// string sniffing.
type Pattern struct {
	// Raw is the pattern text as written in the manifest.
	Raw string
	// Kind records how the pattern was classified.
	Kind PatternKind
	// Err holds the compile error for an invalid regex pattern. A pattern
	// with a non-nil Err matches nothing.
	Err error

	re    *regexp.Regexp
	text  string // lowercased matching text for literal and wildcard kinds
	regex string // regex body without the prefix, for error reporting
}

// CompilePattern classifies and compiles one raw pattern string.
// Classification: a "regex:" prefix marks a regular expression; the
// presence of '*' or '?' marks a wildcard; anything else is a literal
// substring. Invalid regular expressions yield a pattern that matches
// nothing, with Err set.
func CompilePattern(raw string) Pattern {
	if body, ok := cutRegexPrefix(raw); ok {
		p := Pattern{Raw: raw, Kind: KindRegex, regex: body}
		re, err := regexp.Compile("(?i)" + body)
		if err != nil {
			p.Err = err
			return p
		}
		p.re = re
		return p
	}
	if strings.ContainsAny(raw, "*?") {
		return Pattern{Raw: raw, Kind: KindWildcard, text: strings.ToLower(raw)}
	}
	return Pattern{Raw: raw, Kind: KindLiteral, text: strings.ToLower(raw)}
}

// CompilePatterns compiles a list of raw pattern strings in order. Empty
// strings are dropped; an empty literal would otherwise match everything.
func CompilePatterns(raw []string) []Pattern {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Pattern, 0, len(raw))
	for _, r := range raw {
		if r == "" {
			continue
		}
		out = append(out, CompilePattern(r))
	}
	return out
}

// Matches reports whether the pattern matches the given basename.
func (p Pattern) Matches(basename string) bool {
	name := strings.ToLower(basename)
	switch p.Kind {
	case KindRegex:
		if p.re == nil {
			return false
		}
		return p.re.MatchString(name)
	case KindWildcard:
		ok, err := path.Match(p.text, name)
		return err == nil && ok
	default:
		return strings.Contains(name, p.text)
	}
}

func cutRegexPrefix(raw string) (string, bool) {
	if len(raw) < len(regexPrefix) {
		return "", false
	}
	if !strings.EqualFold(raw[:len(regexPrefix)], regexPrefix) {
		return "", false
	}
	return raw[len(regexPrefix):], true
}
