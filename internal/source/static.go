package source

import (
	"context"
	"slices"
)

// StaticSource always returns the same patterns.
type StaticSource []string

func (s StaticSource) FetchPatterns(context.Context) ([]string, error) {
	return slices.Clone(s), nil
}
