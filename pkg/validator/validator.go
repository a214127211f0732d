// Package validator holds small validation helpers for the YAML-backed
// files: bundle manifests, the storage registry and the samples index.
package validator

import (
	"fmt"
	"regexp"
	"slices"
)

// All returns the first non-nil error.
func All(errors ...error) error {
	for _, err := range errors {
		if err != nil {
			return err
		}
	}
	return nil
}

type Validatable interface {
	Validate() error
}

func Each[T Validatable](items []T) error {
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func Map[T any](items []T, f func(T, string) error, description string) error {
	for i, item := range items {
		if err := f(item, fmt.Sprintf("%s[%d]", description, i)); err != nil {
			return err
		}
	}
	return nil
}

func NotEmpty(field, description string) error {
	if field == "" {
		return fmt.Errorf("%s must not be empty", description)
	}
	return nil
}

// MatchesPattern accepts empty fields; combine with NotEmpty when required.
func MatchesPattern(field string, re *regexp.Regexp, description string) error {
	if field != "" && !re.MatchString(field) {
		return fmt.Errorf("%s %q must match %s", description, field, re.String())
	}
	return nil
}

func NoDuplicates[T comparable](slice []T, description string) error {
	seen := make(map[T]struct{})
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			return fmt.Errorf("%s contains duplicate value: %v", description, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

func MatchesAllowed[T comparable](field T, allowed []T, description string) error {
	if !slices.Contains(allowed, field) {
		return fmt.Errorf("%s must be one of %v, got %v", description, allowed, field)
	}
	return nil
}

// Positive requires n > 0.
func Positive(n int, description string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be greater than zero, got %d", description, n)
	}
	return nil
}
