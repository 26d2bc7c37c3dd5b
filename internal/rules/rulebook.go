package rules

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseLineRulebook reads one rule per line:
//
//	# comment
//	pull request => PR
//	s/\bdeep\s*gram\b/Deepgram/g
//
// A line starting with "s" followed by punctuation is a pattern rule using
// that punctuation as delimiter. Everything else must be a "from => to" phrase.
func parseLineRulebook(contents string) ([]substitution, error) {
	var subs []substitution
	for index, raw := range strings.Split(contents, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sub, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", index+1, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func parseLine(line string) (substitution, error) {
	if isPatternLine(line) {
		return parsePatternLine(line)
	}
	from, to, ok := strings.Cut(line, "=>")
	if !ok {
		return nil, errors.New("expected \"from => to\" or s/pattern/replacement/flags")
	}
	return newPhrase(from, to)
}

func isPatternLine(line string) bool {
	if len(line) < 2 || line[0] != 's' {
		return false
	}
	delim := line[1]
	return delim != ' ' && delim != '\t' && delim != '\\' && !isASCIIAlnum(delim)
}

func parsePatternLine(line string) (substitution, error) {
	delim := line[1]
	expr, rest, err := splitDelimited(line[2:], delim)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	replacement, rest, err := splitDelimited(rest, delim)
	if err != nil {
		return nil, fmt.Errorf("replacement: %w", err)
	}
	flags, err := parsePatternFlags(strings.TrimSpace(rest))
	if err != nil {
		return nil, err
	}
	return newPattern(expr, replacement, flags)
}

// splitDelimited returns the text up to the first unescaped delim and the
// remainder after it. Escapes other than an escaped delimiter are preserved
// for the regexp compiler.
func splitDelimited(s string, delim byte) (string, string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && s[i+1] == delim:
			b.WriteByte(delim)
			i++
		case c == '\\' && i+1 < len(s):
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
		case c == delim:
			return b.String(), s[i+1:], nil
		default:
			b.WriteByte(c)
		}
	}
	return "", "", errors.New("missing closing delimiter")
}

func isASCIIAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// yamlRulebook is the structured rulebook format:
//
//	substitutions:
//	  - from: pull request
//	    to: PR
//	  - pattern: '\bdeep\s*gram\b'
//	    to: Deepgram
//	    flags: g
type yamlRulebook struct {
	Substitutions []yamlRule `yaml:"substitutions"`
}

type yamlRule struct {
	From    string `yaml:"from"`
	Pattern string `yaml:"pattern"`
	To      string `yaml:"to"`
	Flags   string `yaml:"flags"`
}

func parseYAMLRulebook(contents []byte) ([]substitution, error) {
	var book yamlRulebook
	if err := yaml.Unmarshal(contents, &book); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	subs := make([]substitution, 0, len(book.Substitutions))
	for index, rule := range book.Substitutions {
		sub, err := rule.compile()
		if err != nil {
			return nil, fmt.Errorf("substitution %d: %w", index+1, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (r yamlRule) compile() (substitution, error) {
	switch {
	case r.From != "" && r.Pattern != "":
		return nil, errors.New("set either from or pattern, not both")
	case r.Pattern != "":
		flags, err := parsePatternFlags(r.Flags)
		if err != nil {
			return nil, err
		}
		return newPattern(r.Pattern, r.To, flags)
	case r.From != "":
		if r.Flags != "" {
			return nil, errors.New("flags only apply to pattern rules")
		}
		return newPhrase(r.From, r.To)
	default:
		return nil, errors.New("missing from or pattern")
	}
}
