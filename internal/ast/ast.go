// Package ast defines the tagged-variant abstract syntax tree produced by
// the parser and consumed by the safety analyzer, the Thompson compiler,
// and the backtracking engine.
//
// Go has no sum types, so Node simulates one: a Kind discriminator plus a
// single struct carrying every variant's payload fields. Code that switches
// on Kind is expected to end with a default branch that panics rather than
// silently falling through, the corpus's stand-in for exhaustiveness
// checking a real sum type would get from the compiler.
package ast

// Span is a pair of byte offsets into the original pattern string,
// attached to every node for diagnostics.
type Span struct {
	Start, End int
}

// Kind discriminates the Node variants.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindLiteral
	KindAny
	KindAnchor
	KindCharClass
	KindConcat
	KindAlternation
	KindStar
	KindPlus
	KindOptional
	KindRepeat
	KindGroup
	KindLookahead
	KindLookbehind
	KindBackref
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "Empty"
	case KindLiteral:
		return "Literal"
	case KindAny:
		return "Any"
	case KindAnchor:
		return "Anchor"
	case KindCharClass:
		return "CharClass"
	case KindConcat:
		return "Concat"
	case KindAlternation:
		return "Alternation"
	case KindStar:
		return "Star"
	case KindPlus:
		return "Plus"
	case KindOptional:
		return "Optional"
	case KindRepeat:
		return "Repeat"
	case KindGroup:
		return "Group"
	case KindLookahead:
		return "Lookahead"
	case KindLookbehind:
		return "Lookbehind"
	case KindBackref:
		return "Backref"
	default:
		return "Unknown"
	}
}

// AnchorKind enumerates the zero-width assertions.
type AnchorKind uint8

const (
	AnchorStartLine AnchorKind = iota
	AnchorEndLine
	AnchorStartText
	AnchorEndText
	AnchorWordBoundary
	AnchorNonWordBoundary
)

func (a AnchorKind) String() string {
	switch a {
	case AnchorStartLine:
		return "StartLine"
	case AnchorEndLine:
		return "EndLine"
	case AnchorStartText:
		return "StartText"
	case AnchorEndText:
		return "EndText"
	case AnchorWordBoundary:
		return "WordBoundary"
	case AnchorNonWordBoundary:
		return "NonWordBoundary"
	default:
		return "Unknown"
	}
}

// Byte ranges are duplicated here rather than imported from
// internal/charclass; Node.Class below uses the local CharClass type. See
// CharClass and NewCharClass.

// Node is a single AST node. Every node owns its children exclusively: the
// tree is never a DAG. Fields not relevant to Kind are zero-valued and
// must not be read.
type Node struct {
	Kind Kind
	Span Span

	// KindLiteral
	Literal byte

	// KindAnchor
	Anchor AnchorKind

	// KindCharClass
	Class CharClass

	// KindConcat, KindAlternation
	Left, Right *Node

	// KindStar, KindPlus, KindOptional, KindRepeat, KindGroup,
	// KindLookahead, KindLookbehind
	Child *Node

	// KindStar, KindPlus, KindOptional, KindRepeat
	Greedy bool

	// KindRepeat
	Min int
	Max int // -1 means unbounded ("no max")

	// KindGroup
	CaptureIndex int // 0 means non-capturing
	Name         string

	// KindLookahead, KindLookbehind
	Positive bool

	// KindBackref
	BackrefIndex int
	BackrefName  string
}

// CharClass mirrors charclass.Class's shape without importing the package,
// so ast has no dependency on charclass; the parser imports charclass and
// converts its classes into this shape (toASTClass). Keeping the field
// type local avoids a needless import cycle risk as the tree grows (the
// analyzer, for instance, never needs to know a Range from a Class).
type CharClass struct {
	Ranges  []ClassRange
	Negated bool
}

// ClassRange is an inclusive byte range [Lo, Hi].
type ClassRange struct {
	Lo, Hi byte
}

// Matches reports whether b is matched by the class.
func (c CharClass) Matches(b byte) bool {
	found := false
	for _, r := range c.Ranges {
		if b >= r.Lo && b <= r.Hi {
			found = true
			break
		}
	}
	return found != c.Negated
}

// NewEmpty returns an Empty (epsilon) node spanning [pos, pos).
func NewEmpty(pos int) *Node {
	return &Node{Kind: KindEmpty, Span: Span{Start: pos, End: pos}}
}

// NewLiteral returns a Literal node matching exactly byte c.
func NewLiteral(c byte, span Span) *Node {
	return &Node{Kind: KindLiteral, Literal: c, Span: span}
}

// NewAny returns an Any node.
func NewAny(span Span) *Node {
	return &Node{Kind: KindAny, Span: span}
}

// NewAnchor returns an Anchor node of the given kind.
func NewAnchor(kind AnchorKind, span Span) *Node {
	return &Node{Kind: KindAnchor, Anchor: kind, Span: span}
}

// NewCharClass returns a CharClass node wrapping cc. cc is taken by value
// and not aliased by the caller's template: callers must pass an owned
// copy (see charclass.Class.Clone), matching the ownership rule in spec §3.
func NewCharClass(cc CharClass, span Span) *Node {
	return &Node{Kind: KindCharClass, Class: cc, Span: span}
}

// Concat builds a right-associative concatenation of left then right. If
// either side is nil the other is returned unchanged (identity element).
func Concat(left, right *Node) *Node {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	return &Node{
		Kind:  KindConcat,
		Span:  Span{Start: left.Span.Start, End: right.Span.End},
		Left:  left,
		Right: right,
	}
}

// Alternation builds an alternation of left and right.
func Alternation(left, right *Node, span Span) *Node {
	return &Node{Kind: KindAlternation, Span: span, Left: left, Right: right}
}

// NewStar builds a Star (*) quantifier node.
func NewStar(child *Node, greedy bool, span Span) *Node {
	return &Node{Kind: KindStar, Child: child, Greedy: greedy, Span: span}
}

// NewPlus builds a Plus (+) quantifier node.
func NewPlus(child *Node, greedy bool, span Span) *Node {
	return &Node{Kind: KindPlus, Child: child, Greedy: greedy, Span: span}
}

// NewOptional builds an Optional (?) quantifier node.
func NewOptional(child *Node, greedy bool, span Span) *Node {
	return &Node{Kind: KindOptional, Child: child, Greedy: greedy, Span: span}
}

// NewRepeat builds a bounded {min,max} quantifier node. max == -1 means
// unbounded ({min,}).
func NewRepeat(child *Node, min, max int, greedy bool, span Span) *Node {
	return &Node{Kind: KindRepeat, Child: child, Min: min, Max: max, Greedy: greedy, Span: span}
}

// NewGroup builds a Group node. captureIndex == 0 marks a non-capturing
// group (including lookaround bodies, which are represented as
// Lookahead/Lookbehind nodes, not Group).
func NewGroup(child *Node, captureIndex int, name string, span Span) *Node {
	return &Node{Kind: KindGroup, Child: child, CaptureIndex: captureIndex, Name: name, Span: span}
}

// NewLookahead builds a (?=...) or (?!...) node.
func NewLookahead(child *Node, positive bool, span Span) *Node {
	return &Node{Kind: KindLookahead, Child: child, Positive: positive, Span: span}
}

// NewLookbehind builds a (?<=...) or (?<!...) node.
func NewLookbehind(child *Node, positive bool, span Span) *Node {
	return &Node{Kind: KindLookbehind, Child: child, Positive: positive, Span: span}
}

// NewBackref builds a \1..\9 or named back-reference node.
func NewBackref(index int, name string, span Span) *Node {
	return &Node{Kind: KindBackref, BackrefIndex: index, BackrefName: name, Span: span}
}

// IsQuantifier reports whether n is one of the repetition node kinds.
func (n *Node) IsQuantifier() bool {
	switch n.Kind {
	case KindStar, KindPlus, KindOptional, KindRepeat:
		return true
	default:
		return false
	}
}

// Walk calls visit for n and, recursively, for every descendant, in a
// pre-order traversal. visit is never called with nil; Walk(nil, visit) is
// a no-op.
func Walk(n *Node, visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	switch n.Kind {
	case KindConcat, KindAlternation:
		Walk(n.Left, visit)
		Walk(n.Right, visit)
	case KindStar, KindPlus, KindOptional, KindRepeat, KindGroup, KindLookahead, KindLookbehind:
		Walk(n.Child, visit)
	}
}

// ContainsLookaround reports whether the tree rooted at n contains any
// Lookahead or Lookbehind node.
func ContainsLookaround(n *Node) bool {
	found := false
	Walk(n, func(m *Node) {
		if m.Kind == KindLookahead || m.Kind == KindLookbehind {
			found = true
		}
	})
	return found
}

// ContainsBackref reports whether the tree rooted at n contains any
// back-reference.
func ContainsBackref(n *Node) bool {
	found := false
	Walk(n, func(m *Node) {
		if m.Kind == KindBackref {
			found = true
		}
	})
	return found
}

// ContainsLazyQuantifier reports whether the tree rooted at n contains any
// non-greedy Star/Plus/Optional/Repeat node.
func ContainsLazyQuantifier(n *Node) bool {
	found := false
	Walk(n, func(m *Node) {
		if m.IsQuantifier() && !m.Greedy {
			found = true
		}
	})
	return found
}

// MaxCaptureIndex returns the highest capture index assigned anywhere in
// the tree (0 if there are no capturing groups).
func MaxCaptureIndex(n *Node) int {
	max := 0
	Walk(n, func(m *Node) {
		if m.Kind == KindGroup && m.CaptureIndex > max {
			max = m.CaptureIndex
		}
	})
	return max
}
