package matcher

import (
	"sync/atomic"

	"github.com/armon/go-radix"
	"github.com/bits-and-blooms/bloom/v3"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Unknown is returned by Classify when no configured pattern matches.
const Unknown = "unknown"

const (
	CSimple Category = iota
	CComplicated
	CPrefixKeyed
)

// Category is the lookup structure a pattern is filed under.
type Category uint8

func (c Category) String() string {
	switch c {
	case CSimple:
		return "simple"
	case CComplicated:
		return "complicated"
	case CPrefixKeyed:
		return "prefix_keyed"
	}
	return "invalid"
}

// SegmentMatcher decides whether a pattern matches a path and ranks the
// patterns that do.
type SegmentMatcher interface {
	Match(pattern, path string) bool
	// Comparator returns a strict ordering over patterns matching path,
	// most specific first.
	Comparator(path string) func(a, b string) int
}

// Table is an immutable set of lookup structures built from one pattern
// collection.
type Table struct {
	simple      sets.Set[string]
	complicated []string
	prefixed    *radix.Tree
	bf          *bloom.BloomFilter
	sm          SegmentMatcher
	stats       Stats
}

type Stats struct {
	Simple      int  `json:"simple"`
	Complicated int  `json:"complicated"`
	PrefixKeyed int  `json:"prefixKeyed"`
	PrefixKeys  int  `json:"prefixKeys"`
	Bloom       bool `json:"bloom"`
}

// Total is the number of patterns held across all three categories.
func (s Stats) Total() int {
	return s.Simple + s.Complicated + s.PrefixKeyed
}

type AtomicTable struct {
	Ptr  atomic.Pointer[Table]
	opts []Option
}
