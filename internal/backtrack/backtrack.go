// Package backtrack implements the recursive backtracking engine used for
// patterns the Thompson compiler cannot express: look-around,
// back-references, and lazy quantifiers (spec §4.5). It walks the AST
// directly rather than compiling to any intermediate representation.
package backtrack

import (
	"github.com/coreglyph/rex/internal/ast"
)

// ErrStepBudgetExceeded is returned by Matcher.Search when the steps counted
// for that search cross Limits.MaxSteps — the runtime ReDoS guardrail
// paired with the static safety analyzer. The root package reports it to
// its callers as no match and counts it in Stats.
type ErrStepBudgetExceeded struct{}

func (ErrStepBudgetExceeded) Error() string { return "backtrack: step budget exceeded" }

// Limits bounds a single search (spec §4.5 "step budget").
type Limits struct {
	MaxSteps int64
}

// Match is the result of a successful search.
type Match struct {
	Groups []int // pairs [start0,end0, start1,end1, ...], -1 if unset
}

// Matcher runs the backtracking algorithm over a fixed AST and input.
type Matcher struct {
	root         *ast.Node
	captureCount int
	limits       Limits
	foldCase     bool

	input     []byte
	caps      []int
	steps     int64
	findMode  bool // disables lazy over-expansion past the minimal position
}

// NewMatcher prepares a Matcher for root. foldCase enables ASCII
// case-insensitive literal and back-reference comparison.
func NewMatcher(root *ast.Node, captureCount int, limits Limits, foldCase bool) *Matcher {
	if limits.MaxSteps <= 0 {
		limits.MaxSteps = 10_000_000
	}
	return &Matcher{root: root, captureCount: captureCount, limits: limits, foldCase: foldCase}
}

// Search finds the leftmost match starting at or after `from`, trying
// successive start positions until one succeeds or the input is exhausted.
// findMode, when true, enables the lazy short-circuit described in spec
// §4.5 (lazy quantifiers stop at the first satisfying position since the
// outer loop will retry at from+1 anyway).
func (m *Matcher) Search(input []byte, from int, findMode bool) (*Match, error) {
	m.input = input
	m.findMode = findMode
	m.steps = 0

	for start := from; start <= len(input); start++ {
		m.caps = make([]int, 2*(m.captureCount+1))
		for i := range m.caps {
			m.caps[i] = -1
		}

		end, ok, err := m.matchNode(m.root, start)
		if err != nil {
			return nil, err
		}
		if ok {
			m.caps[0] = start
			m.caps[1] = end
			result := append([]int(nil), m.caps...)
			return &Match{Groups: result}, nil
		}
	}
	return nil, nil
}

func (m *Matcher) step() error {
	m.steps++
	if m.steps > m.limits.MaxSteps {
		return ErrStepBudgetExceeded{}
	}
	return nil
}

// matchNode attempts to match n starting at pos, returning the end position
// of the match on success. Concatenation enumerates left-side end positions
// when the left side contains a quantifier (spec §4.5), since a later
// sibling failing must be able to force the left side to give up ground.
func (m *Matcher) matchNode(n *ast.Node, pos int) (int, bool, error) {
	if err := m.step(); err != nil {
		return 0, false, err
	}

	switch n.Kind {
	case ast.KindEmpty:
		return pos, true, nil

	case ast.KindLiteral:
		if pos >= len(m.input) {
			return 0, false, nil
		}
		b := m.input[pos]
		if m.foldCase {
			if asciiLower(b) != asciiLower(n.Literal) {
				return 0, false, nil
			}
		} else if b != n.Literal {
			return 0, false, nil
		}
		return pos + 1, true, nil

	case ast.KindAny:
		if pos >= len(m.input) || m.input[pos] == '\n' {
			return 0, false, nil
		}
		return pos + 1, true, nil

	case ast.KindCharClass:
		if pos >= len(m.input) || !n.Class.Matches(m.input[pos]) {
			return 0, false, nil
		}
		return pos + 1, true, nil

	case ast.KindAnchor:
		if satisfiesAnchor(n.Anchor, m.input, pos) {
			return pos, true, nil
		}
		return 0, false, nil

	case ast.KindConcat:
		return m.matchConcat(n, pos)

	case ast.KindAlternation:
		if end, ok, err := m.matchNode(n.Left, pos); err != nil || ok {
			return end, ok, err
		}
		return m.matchNode(n.Right, pos)

	case ast.KindStar, ast.KindPlus, ast.KindOptional, ast.KindRepeat:
		positions, err := m.collectAllMatches(n, pos)
		if err != nil {
			return 0, false, err
		}
		if len(positions) == 0 {
			return 0, false, nil
		}
		return positions[0], true, nil

	case ast.KindGroup:
		end, ok, err := m.matchNode(n.Child, pos)
		if err != nil || !ok {
			return 0, false, err
		}
		if n.CaptureIndex > 0 {
			m.caps[2*n.CaptureIndex] = pos
			m.caps[2*n.CaptureIndex+1] = end
		}
		return end, true, nil

	case ast.KindLookahead:
		_, ok, err := m.matchNode(n.Child, pos)
		if err != nil {
			return 0, false, err
		}
		if ok == n.Positive {
			return pos, true, nil
		}
		return 0, false, nil

	case ast.KindLookbehind:
		ok, err := m.matchLookbehind(n, pos)
		if err != nil {
			return 0, false, err
		}
		if ok == n.Positive {
			return pos, true, nil
		}
		return 0, false, nil

	case ast.KindBackref:
		return m.matchBackref(n, pos)

	default:
		return 0, false, nil
	}
}

// matchConcat implements the save/restore-captures enumeration rule: if the
// left side can produce more than one end position, each is tried in turn
// against the right side, restoring captures between failed attempts so
// they never leak from an abandoned trial.
func (m *Matcher) matchConcat(n *ast.Node, pos int) (int, bool, error) {
	if !containsQuantifierAtTop(n.Left) {
		leftEnd, ok, err := m.matchNode(n.Left, pos)
		if err != nil || !ok {
			return 0, false, err
		}
		return m.matchNode(n.Right, leftEnd)
	}

	positions, err := m.collectAllMatches(n.Left, pos)
	if err != nil {
		return 0, false, err
	}
	savedCaps := append([]int(nil), m.caps...)
	for _, leftEnd := range positions {
		end, ok, err := m.matchNode(n.Right, leftEnd)
		if err != nil {
			return 0, false, err
		}
		if ok {
			return end, true, nil
		}
		copy(m.caps, savedCaps)
	}
	return 0, false, nil
}

// containsQuantifierAtTop reports whether n is a quantifier, a
// concatenation whose rightmost element is one, or a group around either
// (alternations are not descended into). Such a left operand needs
// position enumeration.
func containsQuantifierAtTop(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindStar, ast.KindPlus, ast.KindOptional, ast.KindRepeat:
		return true
	case ast.KindConcat:
		return containsQuantifierAtTop(n.Right)
	case ast.KindGroup:
		return containsQuantifierAtTop(n.Child)
	default:
		return false
	}
}

// collectAllMatches returns the ordered list of positions where quantifier
// node n could finish, per spec §4.5's ordering rules (longest-first for
// greedy, shortest-first for lazy, with zero-length cycle protection).
func (m *Matcher) collectAllMatches(n *ast.Node, pos int) ([]int, error) {
	switch n.Kind {
	case ast.KindStar:
		return m.collectRepeat(n.Child, pos, 0, -1, n.Greedy)
	case ast.KindPlus:
		return m.collectRepeat(n.Child, pos, 1, -1, n.Greedy)
	case ast.KindOptional:
		return m.collectRepeat(n.Child, pos, 0, 1, n.Greedy)
	case ast.KindRepeat:
		return m.collectRepeat(n.Child, pos, n.Min, n.Max, n.Greedy)
	default:
		end, ok, err := m.matchNode(n, pos)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return []int{end}, nil
	}
}

// collectRepeat enumerates reachable end positions for child repeated
// between min and max times (max == -1 means unbounded), applying the
// mandatory iterations first and then branching at each optional one.
func (m *Matcher) collectRepeat(child *ast.Node, pos, min, max int, greedy bool) ([]int, error) {
	// Mandatory prefix.
	cur := pos
	for i := 0; i < min; i++ {
		end, ok, err := m.matchNode(child, cur)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		cur = end
	}

	positions := []int{cur}

	// Lazy short-circuit (spec: find-mode lazy quantifiers stop at the
	// minimal position): the outer search loop already retries at pos+1,
	// so expanding a lazy quantifier further here would only waste steps.
	if m.findMode && !greedy {
		return positions, nil
	}

	seen := cur
	count := min
	for max == -1 || count < max {
		if err := m.step(); err != nil {
			return nil, err
		}
		end, ok, err := m.matchNode(child, seen)
		if err != nil {
			return nil, err
		}
		if !ok || end == seen { // no progress: stop to avoid an infinite cycle
			break
		}
		positions = append(positions, end)
		seen = end
		count++
	}

	if greedy {
		reversed := make([]int, len(positions))
		for i, p := range positions {
			reversed[len(positions)-1-i] = p
		}
		return reversed, nil
	}
	return positions, nil
}

func (m *Matcher) matchLookbehind(n *ast.Node, pos int) (bool, error) {
	for s := 0; s <= pos; s++ {
		end, ok, err := m.matchNode(n.Child, s)
		if err != nil {
			return false, err
		}
		if ok && end == pos {
			return true, nil
		}
	}
	return false, nil
}

func (m *Matcher) matchBackref(n *ast.Node, pos int) (int, bool, error) {
	idx := n.BackrefIndex
	if idx <= 0 || 2*idx+1 >= len(m.caps) {
		return 0, false, nil
	}
	start, end := m.caps[2*idx], m.caps[2*idx+1]
	if start < 0 || end < 0 {
		return 0, false, nil // group did not participate
	}
	text := m.input[start:end]
	if pos+len(text) > len(m.input) {
		return 0, false, nil
	}
	for i, c := range text {
		got := m.input[pos+i]
		if m.foldCase {
			if asciiLower(got) != asciiLower(c) {
				return 0, false, nil
			}
		} else if got != c {
			return 0, false, nil
		}
	}
	return pos + len(text), true, nil
}

func asciiLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

func satisfiesAnchor(kind ast.AnchorKind, input []byte, pos int) bool {
	switch kind {
	case ast.AnchorStartText:
		return pos == 0
	case ast.AnchorEndText:
		return pos == len(input)
	case ast.AnchorStartLine:
		return pos == 0 || input[pos-1] == '\n'
	case ast.AnchorEndLine:
		return pos == len(input) || input[pos] == '\n'
	case ast.AnchorWordBoundary, ast.AnchorNonWordBoundary:
		before := pos > 0 && isWordByte(input[pos-1])
		after := pos < len(input) && isWordByte(input[pos])
		boundary := before != after
		if kind == ast.AnchorWordBoundary {
			return boundary
		}
		return !boundary
	default:
		return false
	}
}
