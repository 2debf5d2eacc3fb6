// Package preprocess rewrites recognized phrases before command matching.
package preprocess

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rbright/casl/internal/config"
)

// Preprocessor transforms one phrase.
type Preprocessor interface {
	Process(text string) string
}

// Chain applies preprocessors in declaration order, each output feeding the next.
type Chain []Preprocessor

// Process runs text through every preprocessor. An empty chain is the identity.
func (c Chain) Process(text string) string {
	for _, p := range c {
		text = p.Process(text)
	}
	return text
}

// Build compiles preprocessor specs into a chain.
func Build(specs []config.PreprocessorSpec) (Chain, error) {
	chain := make(Chain, 0, len(specs))
	for i, spec := range specs {
		p, err := build(spec)
		if err != nil {
			return nil, fmt.Errorf("preprocessors[%d]: %w", i, err)
		}
		chain = append(chain, p)
	}
	return chain, nil
}

func build(spec config.PreprocessorSpec) (Preprocessor, error) {
	switch s := spec.(type) {
	case config.RemapSpec:
		return NewRemapper(s.Mappings)
	case config.NormalizeSpec:
		return Normalizer{}, nil
	default:
		return nil, fmt.Errorf("unsupported preprocessor %T", spec)
	}
}

type rule struct {
	name    string
	search  *regexp.Regexp
	replace string
}

// Remapper rewrites text with the first mapping whose search pattern matches.
type Remapper struct {
	rules []rule
}

// NewRemapper compiles mappings. Patterns are case-sensitive.
func NewRemapper(mappings []config.Mapping) (*Remapper, error) {
	rules := make([]rule, 0, len(mappings))
	for i, m := range mappings {
		re, err := regexp.Compile(m.Search)
		if err != nil {
			return nil, fmt.Errorf("mappings[%d] search %q: %w", i, m.Search, err)
		}
		rules = append(rules, rule{name: m.Name, search: re, replace: m.Replace})
	}
	return &Remapper{rules: rules}, nil
}

// Process replaces every match of the first matching rule. Later rules are
// not consulted once one matches.
func (r *Remapper) Process(text string) string {
	for _, rl := range r.rules {
		if rl.search.MatchString(text) {
			return rl.search.ReplaceAllString(text, rl.replace)
		}
	}
	return text
}

// Normalizer collapses whitespace runs to one space and trims the ends.
type Normalizer struct{}

func (Normalizer) Process(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
