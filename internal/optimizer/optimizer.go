// Package optimizer extracts cheap pre-search hints from an AST — a
// required literal prefix, match-length bounds, and whether the pattern is
// anchored — so the dispatch layer can skip obviously-unproductive search
// windows before invoking either engine (spec §4.8). Grounded in the
// teacher's literal package, trimmed to this scope: no multi-literal
// Aho-Corasick prefiltering and no DFA-driven reverse search, both out of
// scope per the Non-goals on alternate backends.
package optimizer

import "github.com/coreglyph/rex/internal/ast"

// FirstClassKind distinguishes two named classes the dispatch layer has a
// dedicated SIMD scanner for (digit, word) from the general case, which
// falls back to a table scan.
type FirstClassKind int

const (
	FirstClassNone FirstClassKind = iota
	FirstClassDigit
	FirstClassWord
	FirstClassGeneric
)

// Hints is everything the optimizer can tell the dispatch layer about a
// pattern without running either engine.
type Hints struct {
	LiteralPrefix []byte // nil/empty if the pattern can start with more than one distinct byte
	MinLength     int
	MaxLength     int // -1 if unbounded
	AnchoredStart bool

	// FirstClassTable, when non-nil, is a 256-entry membership table for the
	// set of bytes every match must begin with. Populated only when
	// LiteralPrefix is empty and the leading atom is either a single
	// character class or an alternation of four or more single-byte
	// literals, so the dispatch layer can still skip ahead with a
	// table-driven byte scan instead of feeding every start position
	// through the engine. FirstClassKind says whether that table happens
	// to be exactly \d or \w, which have faster dedicated scanners.
	FirstClassTable *[256]bool
	FirstClassKind  FirstClassKind

	// FirstBytes holds the 2 or 3 distinct bytes every match must begin
	// with when the leading atom is an alternation of exactly that many
	// single-byte literals (e.g. "cat|dog" does not qualify, but "a|b" and
	// "x|y|z" do). Populated only when LiteralPrefix and FirstClassTable
	// are both empty/nil; lets the dispatch layer use a paired/tripled
	// byte scan instead of a full table for small literal fan-outs.
	FirstBytes []byte
}

// Analyze walks root once and returns its Hints.
func Analyze(root *ast.Node) Hints {
	prefix := extractPrefix(root)
	min, max := lengthBounds(root)
	h := Hints{
		LiteralPrefix: prefix,
		MinLength:     min,
		MaxLength:     max,
		AnchoredStart: anchoredAtStart(root),
	}
	if len(prefix) != 0 {
		return h
	}
	if table := extractFirstClassTable(root); table != nil {
		h.FirstClassTable = table
		h.FirstClassKind = classifyTable(table)
		return h
	}
	if bytes := extractAlternationLiterals(root); bytes != nil {
		switch len(bytes) {
		case 2, 3:
			h.FirstBytes = bytes
		default:
			var table [256]bool
			for _, b := range bytes {
				table[b] = true
			}
			h.FirstClassTable = &table
		}
	}
	return h
}

// extractFirstClassTable returns a membership table for n's leading atom
// when it is a plain character class, unwrapping groups and quantifiers
// that guarantee at least one repetition along the way. Any other leading
// shape (alternation, anchor, literal, a quantifier that allows zero
// repetitions) means the first byte isn't pinned to a single class, so no
// table is returned.
func extractFirstClassTable(n *ast.Node) *[256]bool {
	cur := n
	for {
		switch cur.Kind {
		case ast.KindCharClass:
			var table [256]bool
			for b := 0; b < 256; b++ {
				table[b] = cur.Class.Matches(byte(b))
			}
			return &table
		case ast.KindConcat:
			cur = cur.Left
		case ast.KindGroup:
			cur = cur.Child
		case ast.KindPlus:
			cur = cur.Child
		case ast.KindRepeat:
			if cur.Min < 1 {
				return nil
			}
			cur = cur.Child
		default:
			return nil
		}
	}
}

// classifyTable reports whether table is exactly the \d or \w byte set, so
// the dispatch layer can reach for a dedicated scanner instead of the
// general table-driven one. Duplicated locally rather than imported from
// internal/charclass to avoid widening this package's dependency surface
// for a two-constant comparison; mirrors how internal/ast keeps its own
// small CharClass shape for the same reason.
func classifyTable(table *[256]bool) FirstClassKind {
	isDigit, isWord := true, true
	for b := 0; b < 256; b++ {
		want := b >= '0' && b <= '9'
		if table[b] != want {
			isDigit = false
		}
		want = (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || b == '_' || (b >= 'a' && b <= 'z')
		if table[b] != want {
			isWord = false
		}
		if !isDigit && !isWord {
			return FirstClassGeneric
		}
	}
	switch {
	case isDigit:
		return FirstClassDigit
	case isWord:
		return FirstClassWord
	default:
		return FirstClassGeneric
	}
}

// extractAlternationLiterals returns the sorted, deduplicated set of bytes
// an alternation of single-byte literals can start with, unwrapping a
// leading group first. Returns nil if n's leading atom isn't a pure
// alternation of single-byte literals (any branch with more than one atom,
// or any non-literal branch, disqualifies the whole alternation).
func extractAlternationLiterals(n *ast.Node) []byte {
	cur := n
	for cur.Kind == ast.KindGroup {
		cur = cur.Child
	}
	if cur.Kind != ast.KindAlternation {
		return nil
	}
	seen := make(map[byte]bool)
	var out []byte
	var walk func(*ast.Node) bool
	walk = func(b *ast.Node) bool {
		switch b.Kind {
		case ast.KindAlternation:
			return walk(b.Left) && walk(b.Right)
		case ast.KindLiteral:
			if !seen[b.Literal] {
				seen[b.Literal] = true
				out = append(out, b.Literal)
			}
			return true
		default:
			return false
		}
	}
	if !walk(cur) || len(out) < 2 {
		return nil
	}
	sortBytes(out)
	return out
}

func sortBytes(b []byte) {
	for i := 1; i < len(b); i++ {
		for j := i; j > 0 && b[j-1] > b[j]; j-- {
			b[j-1], b[j] = b[j], b[j-1]
		}
	}
}

// extractPrefix returns the longest run of concatenated literal bytes that
// every match must begin with, or nil if the very first atom isn't a
// single deterministic byte.
func extractPrefix(n *ast.Node) []byte {
	var out []byte
	cur := n
	for {
		switch cur.Kind {
		case ast.KindLiteral:
			out = append(out, cur.Literal)
			return out
		case ast.KindConcat:
			left := cur.Left
			if left.Kind != ast.KindLiteral {
				if lit := extractPrefix(left); lit != nil && fullyLiteral(left) {
					out = append(out, lit...)
					cur = cur.Right
					continue
				}
				return out
			}
			out = append(out, left.Literal)
			cur = cur.Right
		case ast.KindGroup:
			cur = cur.Child
		default:
			return out
		}
	}
}

// fullyLiteral reports whether n is a pure concatenation of literal bytes
// with nothing else mixed in (used to decide whether extractPrefix may
// keep walking past a nested group of literals).
func fullyLiteral(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindLiteral:
		return true
	case ast.KindConcat:
		return fullyLiteral(n.Left) && fullyLiteral(n.Right)
	case ast.KindGroup:
		return fullyLiteral(n.Child)
	default:
		return false
	}
}

// anchoredAtStart reports whether every match of n must begin at input
// position 0.
func anchoredAtStart(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindAnchor:
		return n.Anchor == ast.AnchorStartText
	case ast.KindConcat:
		return anchoredAtStart(n.Left)
	case ast.KindGroup:
		return anchoredAtStart(n.Child)
	default:
		return false
	}
}

// lengthBounds computes the minimum and maximum number of bytes any match
// of n can consume. max is -1 if unbounded (an unbounded quantifier or
// back-reference anywhere in the tree).
func lengthBounds(n *ast.Node) (min, max int) {
	switch n.Kind {
	case ast.KindEmpty, ast.KindAnchor:
		return 0, 0
	case ast.KindLiteral, ast.KindAny, ast.KindCharClass:
		return 1, 1
	case ast.KindConcat:
		lmin, lmax := lengthBounds(n.Left)
		rmin, rmax := lengthBounds(n.Right)
		max = addBounded(lmax, rmax)
		return lmin + rmin, max
	case ast.KindAlternation:
		lmin, lmax := lengthBounds(n.Left)
		rmin, rmax := lengthBounds(n.Right)
		min = lmin
		if rmin < min {
			min = rmin
		}
		max = maxBounded(lmax, rmax)
		return min, max
	case ast.KindStar:
		_, cmax := lengthBounds(n.Child)
		return 0, unboundedIf(cmax)
	case ast.KindPlus:
		cmin, cmax := lengthBounds(n.Child)
		return cmin, unboundedIf(cmax)
	case ast.KindOptional:
		_, cmax := lengthBounds(n.Child)
		return 0, cmax
	case ast.KindRepeat:
		cmin, cmax := lengthBounds(n.Child)
		if n.Max == -1 || cmax == -1 {
			return cmin * n.Min, -1
		}
		return cmin * n.Min, cmax * n.Max
	case ast.KindGroup:
		return lengthBounds(n.Child)
	case ast.KindLookahead, ast.KindLookbehind:
		return 0, 0
	case ast.KindBackref:
		return 0, -1
	default:
		return 0, -1
	}
}

func addBounded(a, b int) int {
	if a == -1 || b == -1 {
		return -1
	}
	return a + b
}

func maxBounded(a, b int) int {
	if a == -1 || b == -1 {
		return -1
	}
	if a > b {
		return a
	}
	return b
}

func unboundedIf(cmax int) int {
	if cmax == 0 {
		return 0 // child can only match empty: the star itself contributes nothing unbounded
	}
	return -1
}
