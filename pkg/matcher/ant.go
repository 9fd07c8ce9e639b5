package matcher

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// AntMatcher matches Ant-style path templates:
//
//	?       one character within a segment
//	*       zero or more characters within a segment
//	{name}  one or more characters within a segment
//	{n:re}  as {name}, constrained by the regular expression re
//	**      zero or more whole segments (only as a full segment)
//
// Empty segments are ignored on both sides. A leading '/' must be present
// on both pattern and path or on neither, and so must a trailing '/'
// unless the pattern ends in "**".
type AntMatcher struct {
	constraints sync.Map // string -> *regexp.Regexp, nil when invalid
}

func NewAntMatcher() *AntMatcher {
	return &AntMatcher{}
}

func splitSegments(s string) []string {
	parts := strings.Split(s, "/")
	segs := parts[:0]
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}

func (m *AntMatcher) Match(pattern, path string) bool {
	if pattern == "" || path == "" {
		return pattern == path
	}
	if strings.HasPrefix(pattern, "/") != strings.HasPrefix(path, "/") {
		return false
	}

	pt := splitSegments(pattern)
	if !m.matchSegments(pt, splitSegments(path)) {
		return false
	}

	if len(pt) > 0 && pt[len(pt)-1] == "**" {
		return true
	}
	return strings.HasSuffix(pattern, "/") == strings.HasSuffix(path, "/")
}

func (m *AntMatcher) matchSegments(pt, st []string) bool {
	if !slices.Contains(pt, "**") {
		if len(pt) != len(st) {
			return false
		}
		for i := range pt {
			if !m.matchSegment(pt[i], st[i]) {
				return false
			}
		}
		return true
	}

	// memo[pi*(len(st)+1)+si]: 0 unknown, 1 match, -1 no match
	memo := make([]int8, (len(pt)+1)*(len(st)+1))
	var match func(pi, si int) bool
	match = func(pi, si int) bool {
		if pi == len(pt) {
			return si == len(st)
		}
		k := pi*(len(st)+1) + si
		if v := memo[k]; v != 0 {
			return v > 0
		}

		var ok bool
		if pt[pi] == "**" {
			ok = match(pi+1, si) || (si < len(st) && match(pi, si+1))
		} else {
			ok = si < len(st) && m.matchSegment(pt[pi], st[si]) && match(pi+1, si+1)
		}

		memo[k] = -1
		if ok {
			memo[k] = 1
		}
		return ok
	}
	return match(0, 0)
}

func (m *AntMatcher) matchSegment(pat, seg string) bool {
	switch {
	case !strings.ContainsAny(pat, "*?{"):
		return pat == seg
	case !strings.Contains(pat, "{"):
		return matchWildcard(pat, seg)
	}
	g := glob{m: m, p: pat, s: seg, memo: make([]int8, (len(pat)+1)*(len(seg)+1))}
	return g.match(0, 0)
}

// matchWildcard matches a segment pattern of literals, '*' and '?' in
// O(len(p)*len(s)) by backtracking only to the most recent star.
func matchWildcard(p, s string) bool {
	pi, si := 0, 0
	star, mark := -1, 0

	for si < len(s) {
		switch {
		case pi < len(p) && p[pi] == '*':
			star, mark = pi, si
			pi++
		case pi < len(p) && (p[pi] == '?' || p[pi] == s[si]):
			pi++
			si++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}

	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

// closingBrace returns the index of the '}' closing the '{' at p[0], or -1.
func closingBrace(p string) int {
	depth := 0
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// glob matches a segment pattern containing variables. Results are memoized
// per (pattern offset, segment offset) so every state is evaluated once.
type glob struct {
	m    *AntMatcher
	p, s string
	memo []int8 // 0 unknown, 1 match, -1 no match
}

func (g *glob) match(pi, si int) bool {
	k := pi*(len(g.s)+1) + si
	if v := g.memo[k]; v != 0 {
		return v > 0
	}
	ok := g.step(pi, si)
	g.memo[k] = -1
	if ok {
		g.memo[k] = 1
	}
	return ok
}

func (g *glob) step(pi, si int) bool {
	p, s := g.p, g.s
	if pi == len(p) {
		return si == len(s)
	}

	switch p[pi] {
	case '*':
		return g.match(pi+1, si) || (si < len(s) && g.match(pi, si+1))

	case '?':
		return si < len(s) && g.match(pi+1, si+1)

	case '{':
		end := closingBrace(p[pi:])
		if end < 0 {
			// unbalanced, compare literally
			break
		}
		re := g.m.constraint(p[pi+1 : pi+end])
		next := pi + end + 1
		for i := si + 1; i <= len(s); i++ {
			if re != nil && !re.MatchString(s[si:i]) {
				continue
			}
			if g.match(next, i) {
				return true
			}
		}
		return false
	}

	return si < len(s) && s[si] == p[pi] && g.match(pi+1, si+1)
}

// constraint returns the compiled regexp of a "{name:re}" variable body, or
// nil for an unconstrained variable. An invalid expression never matches.
func (m *AntMatcher) constraint(body string) *regexp.Regexp {
	_, expr, ok := strings.Cut(body, ":")
	if !ok {
		return nil
	}
	if v, ok := m.constraints.Load(expr); ok {
		return v.(*regexp.Regexp)
	}
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		re = neverMatch
	}
	m.constraints.Store(expr, re)
	return re
}

var neverMatch = regexp.MustCompile(`[^\x00-\x{10FFFF}]`)

type patternInfo struct {
	uriVars         int
	singleWildcards int
	doubleWildcards int
	length          int
	catchAll        bool
	prefix          bool
}

func (i patternInfo) total() int {
	return i.uriVars + i.singleWildcards + 2*i.doubleWildcards
}

func newPatternInfo(p string) patternInfo {
	info := patternInfo{
		catchAll: p == "/**",
	}
	info.prefix = !info.catchAll && strings.HasSuffix(p, "/**")

	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '{':
			if end := closingBrace(p[i:]); end > 0 {
				info.uriVars++
				info.length++
				i += end
				continue
			}
		case '*':
			if i+1 < len(p) && p[i+1] == '*' {
				info.doubleWildcards++
				info.length += 2
				i++
				continue
			}
			info.singleWildcards++
		}
		info.length++
	}
	return info
}

// specificity is the sort key of a pattern against one path. Keys compare
// field by field, so the ordering is a strict total order.
type specificity struct {
	catchAll  bool
	notEqual  bool
	prefix    bool
	prefixLen int // negated length, prefix patterns only
	total     int
	length    int // negated
	singles   int
	uriVars   int
	pattern   string
}

func newSpecificity(pattern, path string) specificity {
	info := newPatternInfo(pattern)
	k := specificity{
		catchAll: info.catchAll,
		notEqual: pattern != path,
		prefix:   info.prefix,
		total:    info.total(),
		length:   -info.length,
		singles:  info.singleWildcards,
		uriVars:  info.uriVars,
		pattern:  pattern,
	}
	if info.prefix {
		k.prefixLen = -info.length
	}
	return k
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}

func (k specificity) compare(o specificity) int {
	return cmp.Or(
		compareBool(k.catchAll, o.catchAll),
		compareBool(k.notEqual, o.notEqual),
		compareBool(k.prefix, o.prefix),
		cmp.Compare(k.prefixLen, o.prefixLen),
		cmp.Compare(k.total, o.total),
		cmp.Compare(k.length, o.length),
		cmp.Compare(k.singles, o.singles),
		cmp.Compare(k.uriVars, o.uriVars),
		strings.Compare(k.pattern, o.pattern),
	)
}

// Comparator orders patterns matching path from most to least specific.
// The catch-all "/**" comes last and a pattern equal to path first. Then
// patterns ending in "/**" lose to all others, the longer one winning
// among them. After that, fewer wildcards win, then the longer pattern,
// then fewer '*', then fewer variables, then lexical order.
func (m *AntMatcher) Comparator(path string) func(a, b string) int {
	return func(a, b string) int {
		if a == b {
			return 0
		}
		return newSpecificity(a, path).compare(newSpecificity(b, path))
	}
}
