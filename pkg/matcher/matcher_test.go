package matcher

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		cat     Category
		prefix  string
	}{
		{"/api/users", CSimple, ""},
		{"", CSimple, ""},
		{"/", CSimple, ""},
		{"//", CSimple, ""},
		{"/*/users", CComplicated, ""},
		{"/{tenant}/home", CComplicated, ""},
		{"//v*/x", CComplicated, ""},
		{"/api/users/{id}", CPrefixKeyed, "api"},
		{"api/*/detail", CPrefixKeyed, "api"},
		{"//api//**", CPrefixKeyed, "api"},
	}

	for _, tt := range tests {
		cat, prefix := CategoryOf(tt.pattern)
		assert.Equal(t, tt.cat, cat, "category of %q", tt.pattern)
		assert.Equal(t, tt.prefix, prefix, "prefix of %q", tt.pattern)
	}
}

func TestBuild_Partition(t *testing.T) {
	t.Parallel()

	patterns := []string{
		"/api/users",
		"/api/users/{id}",
		"/api/*/detail",
		"/*/x",
		"/{tenant}/home",
		"/static/**",
		"/api/users",
		"/",
	}

	table := Build(patterns)
	stats := table.Stats()

	assert.Equal(t, 2, stats.Simple)
	assert.Equal(t, 2, stats.Complicated)
	assert.Equal(t, 3, stats.PrefixKeyed)
	assert.Equal(t, 2, stats.PrefixKeys)
	assert.False(t, stats.Bloom)
	assert.Equal(t, 7, table.Count())

	// every distinct input is held exactly once
	assert.ElementsMatch(t, []string{
		"/",
		"/api/users",
		"/api/users/{id}",
		"/api/*/detail",
		"/*/x",
		"/{tenant}/home",
		"/static/**",
	}, table.Patterns())
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()

	for _, table := range []*Table{Build(nil), Build([]string{})} {
		assert.Zero(t, table.Count())
		assert.Empty(t, table.Patterns())
		assert.Equal(t, Unknown, table.Classify("/a/b"))
		assert.Equal(t, Unknown, table.Classify("/"))
	}
}

func TestClassify_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		patterns []string
		url      string
		want     string
	}{
		{
			name:     "placeholder beats wildcard in keyed bucket",
			patterns: []string{"/api/users", "/api/users/{id}", "/api/*/detail"},
			url:      "/api/users/42",
			want:     "/api/users/{id}",
		},
		{
			name:     "query string stripped",
			patterns: []string{"/a/b"},
			url:      "/a/b?x=1",
			want:     "/a/b",
		},
		{
			name:     "no match",
			patterns: []string{"/a/b"},
			url:      "/a/c",
			want:     Unknown,
		},
		{
			name:     "simple pattern wins over wildcard",
			patterns: []string{"/api/users/{id}", "/api/users/me"},
			url:      "/api/users/me",
			want:     "/api/users/me",
		},
		{
			name:     "complicated fallback",
			patterns: []string{"/{tenant}/dashboard", "/api/*/detail"},
			url:      "/acme/dashboard",
			want:     "/{tenant}/dashboard",
		},
		{
			name:     "keyed bucket shadows complicated patterns",
			patterns: []string{"/{tenant}/dashboard", "/api/*/detail"},
			url:      "/api/dashboard",
			want:     Unknown,
		},
		{
			name:     "most specific of several",
			patterns: []string{"/api/**", "/api/users/*", "/api/users/{id}", "/api/users/me*"},
			url:      "/api/users/42",
			want:     "/api/users/{id}",
		},
		{
			name:     "longer literal wins",
			patterns: []string{"/api/**", "/api/users/*", "/api/users/{id}", "/api/users/me*"},
			url:      "/api/users/me?verbose=1",
			want:     "/api/users/me*",
		},
		{
			name:     "multi segment wildcard",
			patterns: []string{"/static/**", "/static/*.css"},
			url:      "/static/js/app.js",
			want:     "/static/**",
		},
		{
			name:     "query only",
			patterns: []string{"/a"},
			url:      "?a=1",
			want:     Unknown,
		},
		{
			name:     "slashes only",
			patterns: []string{"/a/{x}"},
			url:      "///",
			want:     Unknown,
		},
		{
			name:     "root as simple pattern",
			patterns: []string{"/"},
			url:      "/?page=2",
			want:     "/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Build(tt.patterns).Classify(tt.url))
		})
	}
}

func TestClassify_SimplePatternIdentity(t *testing.T) {
	t.Parallel()

	patterns := []string{"/", "/a", "/a/b", "/a/b/", "a/b", "/health", "/v1/status.json"}
	table := Build(patterns)

	for _, p := range patterns {
		assert.Equal(t, p, table.Classify(p))
	}
}

func TestClassify_EmptyURL(t *testing.T) {
	t.Parallel()

	table := Build([]string{"/a", "/{x}", "/a/*"})
	assert.Equal(t, Unknown, table.Classify(""))

	var nilTable *Table
	assert.Equal(t, Unknown, nilTable.Classify("/a"))
	assert.Zero(t, nilTable.Count())
}

func TestClassify_QueryEquivalence(t *testing.T) {
	t.Parallel()

	table := Build([]string{"/a/b", "/a/{id}", "/{x}/y", "/files/**"})
	paths := []string{"/a/b", "/a/7", "/q/y", "/files/x/y", "/nope", "/"}

	for _, p := range paths {
		want := table.Classify(p)
		assert.Equal(t, want, table.Classify(p+"?x=1&y=2"))
		assert.Equal(t, want, table.Classify(p+"?"))
	}
}

func TestBuild_Idempotent(t *testing.T) {
	t.Parallel()

	patterns := []string{"/a/b", "/a/{id}", "/{x}/y", "/files/**", "/a/*/c"}
	first, second := Build(patterns), Build(patterns)

	assert.Equal(t, first.Patterns(), second.Patterns())
	assert.Equal(t, first.Stats(), second.Stats())
	for _, url := range []string{"/a/b", "/a/1", "/z/y", "/files/1/2", "/a/b/c", "/nothing"} {
		assert.Equal(t, first.Classify(url), second.Classify(url), url)
	}
}

func TestBuild_BloomFilter(t *testing.T) {
	t.Parallel()

	patterns := make([]string, 0, 50)
	for i := range 50 {
		patterns = append(patterns, fmt.Sprintf("/exact/%d", i))
	}
	patterns = append(patterns, "/exact/{id}/edit")

	table := Build(patterns, WithBloomThreshold(10))
	require.True(t, table.Stats().Bloom)

	for i := range 50 {
		p := fmt.Sprintf("/exact/%d", i)
		assert.Equal(t, p, table.Classify(p))
	}
	assert.Equal(t, "/exact/{id}/edit", table.Classify("/exact/99/edit"))
	assert.Equal(t, Unknown, table.Classify("/exact/99"))

	assert.False(t, Build(patterns, WithBloomThreshold(0)).Stats().Bloom)
}

type prefixMatcher struct{}

func (prefixMatcher) Match(pattern, path string) bool {
	return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
}

func (prefixMatcher) Comparator(string) func(a, b string) int {
	return func(a, b string) int {
		return len(b) - len(a)
	}
}

func TestBuild_CustomSegmentMatcher(t *testing.T) {
	t.Parallel()

	table := Build([]string{"/a*", "/a/b*"}, WithSegmentMatcher(prefixMatcher{}))
	assert.Equal(t, "/a/b*", table.Classify("/a/bcd"))
	assert.Equal(t, Unknown, table.Classify("/a/c"))
	assert.Equal(t, "/a*", table.Classify("/ab"))

	// nil keeps the default
	table = Build([]string{"/a/{x}"}, WithSegmentMatcher(nil))
	assert.Equal(t, "/a/{x}", table.Classify("/a/1"))
}

func TestAtomicTable(t *testing.T) {
	t.Parallel()

	at := NewAtomicTable()
	assert.Equal(t, Unknown, at.Classify("/a/1"))
	assert.Zero(t, at.Load().Count())

	table := at.Reload([]string{"/a/{x}"})
	assert.Same(t, table, at.Load())
	assert.Equal(t, "/a/{x}", at.Classify("/a/1"))

	at.Store(Build(nil))
	assert.Equal(t, Unknown, at.Classify("/a/1"))

	var zero AtomicTable
	assert.NotNil(t, zero.Load())
	assert.Equal(t, Unknown, zero.Classify("/a/1"))
}

func TestAtomicTable_ConcurrentReload(t *testing.T) {
	t.Parallel()

	at := NewAtomicTable()
	at.Reload([]string{"/a/{x}"})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	results := make(chan string, 1024)

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got := at.Classify("/a/1")
				if got != "/a/{x}" && got != "/a/{y}" {
					results <- got
					return
				}
			}
		}()
	}

	for i := range 200 {
		if i%2 == 0 {
			at.Reload([]string{"/a/{y}"})
		} else {
			at.Reload([]string{"/a/{x}"})
		}
	}
	close(stop)
	wg.Wait()
	close(results)

	for got := range results {
		t.Errorf("observed partial table result %q", got)
	}
}
