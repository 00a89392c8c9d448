// Package ood implements the out-of-domain pre-retrieval filter
// (spec.md §4.1). Deny patterns are checked before allow patterns so an
// explicit ban always wins over a broad allow rule.
package ood

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// Config holds the compiled allow/deny pattern lists. Patterns support
// PCRE-style lookaheads (spec.md §9's regex dialect note) via regexp2,
// since curator patterns like "jobs rollout" queries combine several
// independent word checks in one pattern.
type Config struct {
	Enabled       bool
	AllowPatterns []*regexp2.Regexp
	DenyPatterns  []*regexp2.Regexp
}

// Compile builds a Config from raw pattern strings, compiling each one
// case-insensitively. A malformed pattern is a construction-time error,
// never a per-query one.
func Compile(enabled bool, allow, deny []string) (Config, error) {
	allowCompiled, err := compileAll(allow)
	if err != nil {
		return Config{}, fmt.Errorf("ood: allow_patterns: %w", err)
	}
	denyCompiled, err := compileAll(deny)
	if err != nil {
		return Config{}, fmt.Errorf("ood: deny_patterns: %w", err)
	}
	return Config{Enabled: enabled, AllowPatterns: allowCompiled, DenyPatterns: denyCompiled}, nil
}

func compileAll(patterns []string) ([]*regexp2.Regexp, error) {
	out := make([]*regexp2.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp2.Compile(p, regexp2.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func anyMatch(patterns []*regexp2.Regexp, text string) bool {
	for _, p := range patterns {
		ok, err := p.MatchString(text)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// Result is the outcome of the gate: either the query passes through
// unchanged, or it is refused with a reason.
type Result struct {
	Refused bool
	Reason  string
}

// pass is the zero value returned whenever the gate lets the query through.
var pass = Result{}

// Check runs the gate against query. When cfg.Enabled is false the gate
// is a no-op (spec.md §4.1).
func Check(query string, cfg Config) Result {
	if !cfg.Enabled {
		return pass
	}

	q := strings.TrimSpace(query)
	if q == "" {
		return Result{Refused: true, Reason: "Out of domain"}
	}

	if anyMatch(cfg.DenyPatterns, q) {
		return Result{Refused: true, Reason: "Out of domain"}
	}

	if anyMatch(cfg.AllowPatterns, q) {
		return pass
	}

	return Result{Refused: true, Reason: "Out of domain"}
}
