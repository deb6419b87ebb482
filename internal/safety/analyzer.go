// Package safety implements the pre-compilation ReDoS risk scoring
// described in spec §4.2: a single AST traversal that accumulates an
// "explosion factor" from a fixed set of heuristic penalties, then buckets
// the result into a RiskLevel the caller can compare against a threshold.
package safety

import (
	"github.com/coreglyph/rex/internal/ast"
)

// RiskLevel mirrors the root package's RiskLevel so this package has no
// dependency on it (avoiding an import cycle); the root package converts
// between the two with a one-line switch.
type RiskLevel uint8

const (
	RiskSafe RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

func levelFor(factor float64) RiskLevel {
	switch {
	case factor < 10:
		return RiskSafe
	case factor < 100:
		return RiskLow
	case factor < 10_000:
		return RiskMedium
	case factor < 1_000_000:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// Finding records one AST location that contributed a penalty, so callers
// (and tests) can see *why* a pattern was scored the way it was rather than
// just the final number — the corpus's general preference for
// introspectable Stats over opaque booleans (see meta.Config/Stats).
type Finding struct {
	Span        ast.Span
	Description string
	Multiplier  float64
}

// Report is the full output of Analyze.
type Report struct {
	Factor          float64
	Risk            RiskLevel
	Findings        []Finding
	CanUseThompson  bool // false iff the AST contains look-around or back-reference
	HasBackref      bool
}

// Analyze walks root once and computes its Report.
func Analyze(root *ast.Node) Report {
	a := &analyzer{factor: 1.0}
	a.visit(root, 0)
	return Report{
		Factor:         a.factor,
		Risk:           levelFor(a.factor),
		Findings:       a.findings,
		CanUseThompson: !ast.ContainsLookaround(root) && !ast.ContainsBackref(root),
		HasBackref:     ast.ContainsBackref(root),
	}
}

type analyzer struct {
	factor   float64
	findings []Finding
}

func (a *analyzer) penalize(n *ast.Node, mult float64, desc string) {
	a.factor *= mult
	a.findings = append(a.findings, Finding{Span: n.Span, Description: desc, Multiplier: mult})
}

// visit walks the tree, tracking quantifierDepth (the number of quantifier
// ancestors enclosing the current node) so nested-quantifier penalties can
// be assessed at the point where a quantifier wraps a sub-expression that
// itself contains a quantifier.
func (a *analyzer) visit(n *ast.Node, quantifierDepth int) {
	if n == nil {
		return
	}

	switch n.Kind {
	case ast.KindStar, ast.KindPlus, ast.KindOptional, ast.KindRepeat:
		a.scoreQuantifier(n)
		a.visit(n.Child, quantifierDepth+1)
		return
	case ast.KindAlternation:
		if sameBranch(n.Left, n.Right) {
			a.penalize(n, 10_000, "identical-branch alternation")
		}
		a.visit(n.Left, quantifierDepth)
		a.visit(n.Right, quantifierDepth)
		return
	case ast.KindConcat:
		a.visit(n.Left, quantifierDepth)
		a.visit(n.Right, quantifierDepth)
		return
	case ast.KindGroup, ast.KindLookahead, ast.KindLookbehind:
		a.visit(n.Child, quantifierDepth)
		return
	default:
		return
	}
}

// scoreQuantifier applies the penalties from spec §4.2's table to a single
// quantifier node, based on whether its child itself contains a quantifier
// (directly or transitively) and, if so, whether that inner quantifier is
// "atomic" (directly over a char class/Any, possibly inside groups; see
// isAtomicQuantifiedBody).
func (a *analyzer) scoreQuantifier(n *ast.Node) {
	if !n.Greedy {
		a.penalize(n, 1.5, "lazy quantifier")
	}

	innerDepth := nestedQuantifierDepth(n.Child)
	switch innerDepth {
	case 0:
		return
	case 1:
		if isAtomicQuantifiedBody(n.Child) {
			a.penalize(n, 100, "quantifier over atomic quantified expression")
		} else {
			a.penalize(n, 1_000_000, "quantifier on expression containing a quantifier")
		}
	default:
		a.penalize(n, 1_000_000, "quantifier on expression containing a quantifier")
		a.penalize(n, 1_000, "triple-or-more quantifier nesting")
	}
}

// nestedQuantifierDepth returns how many levels of quantifier nesting
// exist within n (0 if n contains no quantifier at all).
func nestedQuantifierDepth(n *ast.Node) int {
	max := 0
	var walk func(*ast.Node, int)
	walk = func(m *ast.Node, depth int) {
		if m == nil {
			return
		}
		d := depth
		if m.IsQuantifier() {
			d++
			if d > max {
				max = d
			}
		}
		switch m.Kind {
		case ast.KindConcat, ast.KindAlternation:
			walk(m.Left, d)
			walk(m.Right, d)
		case ast.KindStar, ast.KindPlus, ast.KindOptional, ast.KindRepeat, ast.KindGroup, ast.KindLookahead, ast.KindLookbehind:
			walk(m.Child, d)
		}
	}
	walk(n, 0)
	return max
}

// isAtomicQuantifiedBody reports whether child, after unwrapping any
// enclosing groups (e.g. (?:\d+)), is a quantifier applied directly to a
// char class or Any (e.g. \d+). A concatenation is never treated as atomic.
func isAtomicQuantifiedBody(child *ast.Node) bool {
	n := child
	for n != nil && n.Kind == ast.KindGroup {
		n = n.Child
	}
	if n == nil || !n.IsQuantifier() {
		return false
	}
	switch n.Child.Kind {
	case ast.KindCharClass, ast.KindAny:
		return true
	default:
		return false
	}
}

// sameBranch is a structural equality check used to flag alternations like
// (a|a) whose branches are identical, a classic ReDoS amplifier.
func sameBranch(a, b *ast.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ast.KindLiteral:
		return a.Literal == b.Literal
	case ast.KindAny:
		return true
	case ast.KindAnchor:
		return a.Anchor == b.Anchor
	case ast.KindCharClass:
		return sameClass(a.Class, b.Class)
	case ast.KindConcat, ast.KindAlternation:
		return sameBranch(a.Left, b.Left) && sameBranch(a.Right, b.Right)
	case ast.KindStar, ast.KindPlus, ast.KindOptional:
		return a.Greedy == b.Greedy && sameBranch(a.Child, b.Child)
	case ast.KindRepeat:
		return a.Greedy == b.Greedy && a.Min == b.Min && a.Max == b.Max && sameBranch(a.Child, b.Child)
	case ast.KindGroup:
		return sameBranch(a.Child, b.Child)
	case ast.KindEmpty:
		return true
	default:
		return false
	}
}

func sameClass(a, b ast.CharClass) bool {
	if a.Negated != b.Negated || len(a.Ranges) != len(b.Ranges) {
		return false
	}
	for i := range a.Ranges {
		if a.Ranges[i] != b.Ranges[i] {
			return false
		}
	}
	return true
}
