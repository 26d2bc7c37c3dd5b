package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultPassLimit = 30

// substitution rewrites a transcript and reports whether anything changed.
type substitution interface {
	Rewrite(text string) (string, bool)
}

// Engine rewrites final transcripts with substitutions loaded from a rulebook.
// Rules run in file order, and the whole set is re-applied until the text
// stops changing or the pass limit is hit.
type Engine struct {
	subs      []substitution
	passLimit int
}

// NewEngine loads a rulebook. Files ending in .yaml or .yml use the structured
// format; anything else is read as one rule per line. A missing or empty path
// yields an engine that returns text unchanged.
func NewEngine(path string, passLimit int) (*Engine, error) {
	if passLimit <= 0 {
		passLimit = defaultPassLimit
	}
	engine := &Engine{passLimit: passLimit}

	path = strings.TrimSpace(path)
	if path == "" {
		return engine, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return engine, nil
		}
		return nil, fmt.Errorf("read rulebook %q: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		engine.subs, err = parseYAMLRulebook(contents)
	default:
		engine.subs, err = parseLineRulebook(string(contents))
	}
	if err != nil {
		return nil, fmt.Errorf("parse rulebook %q: %w", path, err)
	}
	return engine, nil
}

// NewEngineFromLines builds an engine from line-format rules held in memory.
func NewEngineFromLines(lines []string, passLimit int) (*Engine, error) {
	if passLimit <= 0 {
		passLimit = defaultPassLimit
	}
	subs, err := parseLineRulebook(strings.Join(lines, "\n"))
	if err != nil {
		return nil, err
	}
	return &Engine{subs: subs, passLimit: passLimit}, nil
}

// Len reports how many substitutions are loaded.
func (e *Engine) Len() int {
	return len(e.subs)
}

// Apply rewrites text until it is stable.
func (e *Engine) Apply(text string) (string, error) {
	if len(e.subs) == 0 {
		return text, nil
	}

	current := text
	for pass := 0; pass < e.passLimit; pass++ {
		dirty := false
		for _, sub := range e.subs {
			if next, changed := sub.Rewrite(current); changed {
				current = next
				dirty = true
			}
		}
		if !dirty {
			break
		}
	}
	return current, nil
}
