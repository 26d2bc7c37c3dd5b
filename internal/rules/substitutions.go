package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// phrase replaces a spoken phrase case-insensitively. Phrase edges that are
// word characters only match on word boundaries, so "cat" leaves "category"
// alone.
type phrase struct {
	re          *regexp.Regexp
	replacement string
}

func newPhrase(from, to string) (substitution, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, errors.New("phrase must not be empty")
	}

	pattern := regexp.QuoteMeta(from)
	if first, _ := utf8.DecodeRuneInString(from); isWordRune(first) {
		pattern = `\b` + pattern
	}
	if last, _ := utf8.DecodeLastRuneInString(from); isWordRune(last) {
		pattern += `\b`
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("compile phrase %q: %w", from, err)
	}
	return phrase{re: re, replacement: strings.TrimSpace(to)}, nil
}

func (p phrase) Rewrite(text string) (string, bool) {
	out := p.re.ReplaceAllLiteralString(text, p.replacement)
	return out, out != text
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// pattern is a regular-expression substitution. Without the global flag only
// the leftmost match is rewritten.
type pattern struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

type patternFlags struct {
	caseSensitive bool
	global        bool
	multiLine     bool
	dotAll        bool
}

// parsePatternFlags reads sed-style flags. Matching is case-insensitive unless
// the I flag asks otherwise.
func parsePatternFlags(raw string) (patternFlags, error) {
	var flags patternFlags
	for _, flag := range raw {
		switch flag {
		case 'i':
			flags.caseSensitive = false
		case 'I':
			flags.caseSensitive = true
		case 'g':
			flags.global = true
		case 'm':
			flags.multiLine = true
		case 's':
			flags.dotAll = true
		case ' ', '\t':
		default:
			return patternFlags{}, fmt.Errorf("unknown flag %q", flag)
		}
	}
	return flags, nil
}

func newPattern(expr, replacement string, flags patternFlags) (substitution, error) {
	if expr == "" {
		return nil, errors.New("pattern must not be empty")
	}

	var inline strings.Builder
	if !flags.caseSensitive {
		inline.WriteByte('i')
	}
	if flags.multiLine {
		inline.WriteByte('m')
	}
	if flags.dotAll {
		inline.WriteByte('s')
	}
	if inline.Len() > 0 {
		expr = "(?" + inline.String() + ")" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	return pattern{re: re, replacement: replacement, global: flags.global}, nil
}

func (p pattern) Rewrite(text string) (string, bool) {
	if p.global {
		out := p.re.ReplaceAllString(text, p.replacement)
		return out, out != text
	}

	match := p.re.FindStringSubmatchIndex(text)
	if match == nil {
		return text, false
	}
	expanded := p.re.ExpandString(nil, p.replacement, text, match)
	out := text[:match[0]] + string(expanded) + text[match[1]:]
	return out, out != text
}
