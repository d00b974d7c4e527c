package strategy

import (
	"fmt"
	"sort"
	"strings"

	"alignme-measure/internal/analyzer"
)

// Strategy names accepted in requests and configuration
const (
	Strict  = "strict"
	Legacy  = "legacy"
	Relaxed = "relaxed"
)

// DetectionStrategy names a marker detection preset
type DetectionStrategy interface {
	Options() analyzer.DetectionOptions
	GetStrategyName() string
}

type presetStrategy struct {
	name    string
	options func() analyzer.DetectionOptions
}

func (p presetStrategy) Options() analyzer.DetectionOptions { return p.options() }
func (p presetStrategy) GetStrategyName() string            { return p.name }

// NewStrictStrategy applies the full shape and brightness filter
func NewStrictStrategy() DetectionStrategy {
	return presetStrategy{name: Strict, options: analyzer.DefaultOptions}
}

// NewLegacyStrategy reproduces the first threshold-and-radius detector
func NewLegacyStrategy() DetectionStrategy {
	return presetStrategy{name: Legacy, options: analyzer.LegacyOptions}
}

// NewRelaxedStrategy keeps the strict preprocessing but skips area and circularity
// checks, for close-up photographs where markers exceed the strict size window
func NewRelaxedStrategy() DetectionStrategy {
	return presetStrategy{name: Relaxed, options: func() analyzer.DetectionOptions {
		opts := analyzer.DefaultOptions().WithoutShapeFilter()
		opts.MaxRadius = 0
		return opts
	}}
}

// Selector resolves strategy names, falling back to a default for empty names
type Selector struct {
	strategies map[string]DetectionStrategy
	fallback   DetectionStrategy
}

// NewSelector registers the built-in strategies with defaultName as fallback.
// An empty defaultName selects strict.
func NewSelector(defaultName string) (*Selector, error) {
	if strings.TrimSpace(defaultName) == "" {
		defaultName = Strict
	}
	s := &Selector{strategies: make(map[string]DetectionStrategy)}
	for _, st := range []DetectionStrategy{NewStrictStrategy(), NewLegacyStrategy(), NewRelaxedStrategy()} {
		s.strategies[st.GetStrategyName()] = st
	}

	fallback, ok := s.strategies[normalize(defaultName)]
	if !ok {
		return nil, fmt.Errorf("unknown detection strategy %q", defaultName)
	}
	s.fallback = fallback
	return s, nil
}

// DefaultSelector falls back to the strict strategy
func DefaultSelector() *Selector {
	s, _ := NewSelector(Strict)
	return s
}

// Resolve returns the named strategy; an empty name selects the default
func (s *Selector) Resolve(name string) (DetectionStrategy, error) {
	if strings.TrimSpace(name) == "" {
		return s.fallback, nil
	}
	st, ok := s.strategies[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("unknown detection strategy %q", name)
	}
	return st, nil
}

// Default returns the fallback strategy
func (s *Selector) Default() DetectionStrategy {
	return s.fallback
}

// Names lists the registered strategies in alphabetical order
func (s *Selector) Names() []string {
	names := make([]string, 0, len(s.strategies))
	for n := range s.strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
