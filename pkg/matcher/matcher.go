package matcher

import (
	"strings"

	"github.com/armon/go-radix"
	"github.com/bits-and-blooms/bloom/v3"
	"k8s.io/apimachinery/pkg/util/sets"
)

const defaultBloomThreshold = 10000

type buildOptions struct {
	sm             SegmentMatcher
	bloomThreshold int
}

type Option func(*buildOptions)

// WithSegmentMatcher replaces the default AntMatcher.
func WithSegmentMatcher(sm SegmentMatcher) Option {
	return func(o *buildOptions) {
		if sm != nil {
			o.sm = sm
		}
	}
}

// WithBloomThreshold sets the simple pattern count above which a bloom
// filter guards the exact lookup. Zero or less disables the filter.
func WithBloomThreshold(n int) Option {
	return func(o *buildOptions) {
		o.bloomThreshold = n
	}
}

func hasWildcard(s string) bool {
	return strings.ContainsAny(s, "*{")
}

// firstSegment returns the first non-empty '/'-separated segment.
func firstSegment(s string) (string, bool) {
	for _, seg := range strings.Split(s, "/") {
		if seg != "" {
			return seg, true
		}
	}
	return "", false
}

// CategoryOf reports which category Build files pattern under, and the
// prefix key for prefix-keyed patterns.
func CategoryOf(pattern string) (Category, string) {
	if !hasWildcard(pattern) {
		return CSimple, ""
	}
	// A pattern with a wildcard always has a non-empty segment.
	prefix, _ := firstSegment(pattern)
	if hasWildcard(prefix) {
		return CComplicated, ""
	}
	return CPrefixKeyed, prefix
}

func Build(patterns []string, opts ...Option) *Table {
	o := buildOptions{
		sm:             NewAntMatcher(),
		bloomThreshold: defaultBloomThreshold,
	}
	for _, opt := range opts {
		opt(&o)
	}

	simple := sets.New[string]()
	complicated := sets.New[string]()
	keyed := make(map[string]sets.Set[string])

	for _, p := range patterns {
		cat, prefix := CategoryOf(p)
		switch cat {
		case CSimple:
			simple.Insert(p)
		case CComplicated:
			complicated.Insert(p)
		case CPrefixKeyed:
			if keyed[prefix] == nil {
				keyed[prefix] = sets.New[string]()
			}
			keyed[prefix].Insert(p)
		}
	}

	t := &Table{
		simple:      simple,
		complicated: sets.List(complicated),
		prefixed:    radix.New(),
		sm:          o.sm,
	}

	for prefix, ps := range keyed {
		t.prefixed.Insert(prefix, sets.List(ps))
		t.stats.PrefixKeyed += ps.Len()
	}
	t.stats.Simple = simple.Len()
	t.stats.Complicated = len(t.complicated)
	t.stats.PrefixKeys = len(keyed)

	if o.bloomThreshold > 0 && simple.Len() > o.bloomThreshold {
		t.bf = bloom.NewWithEstimates(uint(simple.Len())*4, 1e-4)
		for p := range simple {
			t.bf.AddString(p)
		}
		t.stats.Bloom = true
	}

	return t
}

// Classify returns the most specific pattern matching url, or Unknown.
func (t *Table) Classify(url string) string {
	if t == nil || url == "" {
		return Unknown
	}

	path := url
	if i := strings.IndexByte(url, '?'); i >= 0 {
		path = url[:i]
	}
	if path == "" {
		return Unknown
	}

	if t.bf == nil || t.bf.TestString(path) {
		if t.simple.Has(path) {
			return path
		}
	}

	prefix, ok := firstSegment(path)
	if !ok {
		return Unknown
	}

	candidates := t.complicated
	if v, ok := t.prefixed.Get(prefix); ok {
		candidates = v.([]string)
	}

	var (
		best  string
		found bool
		cmp   func(a, b string) int
	)
	for _, p := range candidates {
		if !t.sm.Match(p, path) {
			continue
		}
		if !found {
			best, found = p, true
			cmp = t.sm.Comparator(path)
			continue
		}
		if cmp(p, best) < 0 {
			best = p
		}
	}

	if !found {
		return Unknown
	}
	return best
}

// Count returns the number of distinct patterns held by the table.
func (t *Table) Count() int {
	if t == nil {
		return 0
	}
	return t.stats.Total()
}

func (t *Table) Stats() Stats {
	if t == nil {
		return Stats{}
	}
	return t.stats
}

// Patterns returns every pattern in the table, sorted.
func (t *Table) Patterns() []string {
	if t == nil {
		return nil
	}
	all := t.simple.Clone().Insert(t.complicated...)
	t.prefixed.Walk(func(_ string, v interface{}) bool {
		all.Insert(v.([]string)...)
		return false
	})
	return sets.List(all)
}

// NewAtomicTable returns a holder publishing an empty table built with opts.
// The same opts are applied on every Reload.
func NewAtomicTable(opts ...Option) *AtomicTable {
	a := &AtomicTable{opts: opts}
	a.Ptr.Store(Build(nil, opts...))
	return a
}

// Load returns the current table. It never returns nil.
func (a *AtomicTable) Load() *Table {
	if t := a.Ptr.Load(); t != nil {
		return t
	}
	return Build(nil, a.opts...)
}

func (a *AtomicTable) Store(t *Table) {
	a.Ptr.Store(t)
}

// Reload builds a table from patterns and publishes it.
func (a *AtomicTable) Reload(patterns []string) *Table {
	t := Build(patterns, a.opts...)
	a.Ptr.Store(t)
	return t
}

func (a *AtomicTable) Classify(url string) string {
	return a.Load().Classify(url)
}
