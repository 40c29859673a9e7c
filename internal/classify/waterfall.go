// Package classify implements the keyword-waterfall category classifier.
//
// A Waterfall is an ordered list of rules; the first rule whose predicate
// matches the lowercased input wins, otherwise the Default label is returned.
// A Classifier composes one primary waterfall, one priority waterfall and any
// number of attribute waterfalls into a single Result per domain.
package classify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrClassification reports a misconfigured classifier.
var ErrClassification = errors.New("classification error")

// FallbackCategory is returned when a classifier has no usable default.
const FallbackCategory = "general"

// Predicate reports whether a rule applies to the lowercased input.
type Predicate func(lower string) bool

// Rule maps a predicate to a label.
type Rule[T ~string] struct {
	Label T
	Match Predicate
	// Keywords are kept for display and validation only.
	Keywords []string
}

// Waterfall evaluates rules in order, first match wins.
type Waterfall[T ~string] struct {
	Rules   []Rule[T]
	Default T
}

// Evaluate returns the label of the first matching rule or the default.
func (w Waterfall[T]) Evaluate(lower string) T {
	for _, r := range w.Rules {
		if r.Match != nil && r.Match(lower) {
			return r.Label
		}
	}
	return w.Default
}

// Labels returns every label the waterfall can produce, default last.
func (w Waterfall[T]) Labels() []T {
	seen := make(map[T]bool, len(w.Rules)+1)
	out := make([]T, 0, len(w.Rules)+1)
	for _, r := range w.Rules {
		if !seen[r.Label] {
			seen[r.Label] = true
			out = append(out, r.Label)
		}
	}
	if !seen[w.Default] {
		out = append(out, w.Default)
	}
	return out
}

// Validate checks that the waterfall always yields a non-empty label.
func (w Waterfall[T]) Validate() error {
	if w.Default == "" {
		return fmt.Errorf("%w: empty default", ErrClassification)
	}
	for i, r := range w.Rules {
		if r.Label == "" {
			return fmt.Errorf("%w: rule %d has empty label", ErrClassification, i)
		}
		if r.Match == nil {
			return fmt.Errorf("%w: rule %q has no predicate", ErrClassification, r.Label)
		}
	}
	return nil
}

// AnyWord matches when any of the words or phrases appears on token
// boundaries. Matching is case-insensitive.
func AnyWord(words ...string) Predicate {
	if len(words) == 0 {
		return func(string) bool { return false }
	}
	escaped := make([]string, len(words))
	for i, w := range words {
		escaped[i] = regexp.QuoteMeta(strings.ToLower(w))
	}
	pattern := regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
	return pattern.MatchString
}

// AnyPhrase matches when any of the phrases appears as a substring.
func AnyPhrase(phrases ...string) Predicate {
	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = strings.ToLower(p)
	}
	return func(lower string) bool {
		for _, p := range lowered {
			if p != "" && strings.Contains(lower, p) {
				return true
			}
		}
		return false
	}
}

// Either matches when any of the predicates does.
func Either(preds ...Predicate) Predicate {
	return func(lower string) bool {
		for _, p := range preds {
			if p != nil && p(lower) {
				return true
			}
		}
		return false
	}
}

// Empty matches blank input.
func Empty() Predicate {
	return func(lower string) bool { return strings.TrimSpace(lower) == "" }
}

// WordRule is shorthand for a rule matched by AnyWord.
func WordRule[T ~string](label T, words ...string) Rule[T] {
	return Rule[T]{Label: label, Match: AnyWord(words...), Keywords: words}
}
