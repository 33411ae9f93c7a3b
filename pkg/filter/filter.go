// Package filter implements the include/exclude allow-list adapters use to
// pick which schemas, tables, topics or files they collect.
package filter

import (
	"fmt"
	"regexp"
)

// MatchAll is the include pattern used when none is configured.
const MatchAll = ".*"

// Filter is an include/exclude regular expression allow-list. Patterns are
// searched anywhere in the value (unanchored), as with a regex search.
type Filter struct {
	Include    []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude    []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	IgnoreCase bool     `mapstructure:"ignore_case" yaml:"ignore_case" json:"ignore_case"`

	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// New builds and compiles a filter.
func New(include, exclude []string, ignoreCase bool) (*Filter, error) {
	f := &Filter{Include: include, Exclude: exclude, IgnoreCase: ignoreCase}
	if err := f.Compile(); err != nil {
		return nil, err
	}
	return f, nil
}

// MustNew is New that panics on an invalid pattern.
func MustNew(include, exclude []string, ignoreCase bool) *Filter {
	f, err := New(include, exclude, ignoreCase)
	if err != nil {
		panic(err)
	}
	return f
}

// Compile validates and caches the patterns. It is called by plugin
// validation at load time; IsAllowed compiles lazily when it was not.
func (f *Filter) Compile() error {
	include, err := f.compile(f.includes())
	if err != nil {
		return fmt.Errorf("include: %w", err)
	}
	exclude, err := f.compile(f.Exclude)
	if err != nil {
		return fmt.Errorf("exclude: %w", err)
	}
	f.include, f.exclude = include, exclude
	return nil
}

// Validate implements plugin.Validator.
func (f *Filter) Validate() error {
	return f.Compile()
}

func (f *Filter) includes() []string {
	if len(f.Include) == 0 {
		return []string{MatchAll}
	}
	return f.Include
}

func (f *Filter) compile(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if f.IgnoreCase {
			p = "(?i)" + p
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// IsAllowed reports whether value passes the filter: no exclude pattern may
// match and at least one include pattern must. A nil filter allows all.
func (f *Filter) IsAllowed(value string) bool {
	if f == nil {
		return true
	}
	include, exclude := f.include, f.exclude
	if include == nil {
		var err error
		if include, err = f.compile(f.includes()); err != nil {
			return false
		}
		if exclude, err = f.compile(f.Exclude); err != nil {
			return false
		}
	}

	for _, re := range exclude {
		if re.MatchString(value) {
			return false
		}
	}
	for _, re := range include {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}
