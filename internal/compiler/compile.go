// Package compiler implements the McNaughton-Yamada-Thompson construction
// (spec §4.3): a bottom-up translation of an ast.Node tree into an nfa.NFA,
// one or two states per node plus the concatenation/alternation/quantifier
// glue states Thompson's algorithm is named for.
package compiler

import (
	"fmt"

	"github.com/coreglyph/rex/internal/ast"
	"github.com/coreglyph/rex/internal/nfa"
)

// ErrNotImplemented is returned when the tree contains a construct the
// Thompson engine cannot express (look-around or back-references); the
// dispatch layer catches this and falls back to the backtracking engine,
// so callers should not normally see it bubble up past that layer.
type ErrNotImplemented struct {
	Construct string
}

func (e *ErrNotImplemented) Error() string {
	return fmt.Sprintf("compiler: %s is not representable as a Thompson NFA", e.Construct)
}

// fragment is a partially built sub-automaton: an entry state and a set of
// dangling exits still to be patched onto whatever follows it. This is the
// standard Thompson-construction bookkeeping object.
type fragment struct {
	start nfa.StateID
	outs  []patch
}

// patch names one dangling exit: either a plain Next slot or one side of a
// split, addressed by state id and a side selector.
type patch struct {
	id   nfa.StateID
	side side
}

type side uint8

const (
	sideNext side = iota
	sideLeft
	sideRight
)

// Compile translates root into an NFA. captureCount is the highest capture
// index assigned by the parser (spec's Result.CaptureCount); names maps
// each group name to its capture index (unnamed groups are absent).
func Compile(root *ast.Node, captureCount int, names map[string]int) (*nfa.NFA, error) {
	b := nfa.NewBuilder(captureCount)
	for name, idx := range names {
		b.SetCaptureName(idx, name)
	}

	c := &compilerState{b: b}

	// Wrap the whole tree in capture group 0 (the overall match), per the
	// regexp convention that group 0 is always "the whole match".
	startCap := b.AddCapture(0, true, nfa.InvalidState)
	frag, err := c.compile(root)
	if err != nil {
		return nil, err
	}
	b.Patch(startCap, frag.start)

	endCap := b.AddCapture(0, false, nfa.InvalidState)
	c.patchFragment(frag.outs, endCap)

	matchState := b.AddMatch()
	b.Patch(endCap, matchState)

	anchored := startsWithTextAnchor(root)
	return b.Build(startCap, anchored), nil
}

type compilerState struct {
	b *nfa.Builder
}

func (c *compilerState) compile(n *ast.Node) (fragment, error) {
	switch n.Kind {
	case ast.KindEmpty:
		return c.compileEmpty(), nil
	case ast.KindLiteral:
		return c.compileLiteral(n), nil
	case ast.KindAny:
		return c.compileAny(), nil
	case ast.KindAnchor:
		return c.compileAnchor(n), nil
	case ast.KindCharClass:
		return c.compileCharClass(n), nil
	case ast.KindConcat:
		return c.compileConcat(n)
	case ast.KindAlternation:
		return c.compileAlternation(n)
	case ast.KindStar:
		return c.compileStar(n)
	case ast.KindPlus:
		return c.compilePlus(n)
	case ast.KindOptional:
		return c.compileOptional(n)
	case ast.KindRepeat:
		return c.compileRepeat(n)
	case ast.KindGroup:
		return c.compileGroup(n)
	case ast.KindLookahead:
		return fragment{}, &ErrNotImplemented{Construct: "lookahead"}
	case ast.KindLookbehind:
		return fragment{}, &ErrNotImplemented{Construct: "lookbehind"}
	case ast.KindBackref:
		return fragment{}, &ErrNotImplemented{Construct: "back-reference"}
	default:
		panic(fmt.Sprintf("compiler: unhandled ast.Kind %v", n.Kind))
	}
}

func (c *compilerState) compileEmpty() fragment {
	id := c.b.AddEpsilon(nfa.InvalidState)
	return fragment{start: id, outs: []patch{{id: id}}}
}

func (c *compilerState) compileLiteral(n *ast.Node) fragment {
	id := c.b.AddByteRange(n.Literal, n.Literal, nfa.InvalidState)
	return fragment{start: id, outs: []patch{{id: id}}}
}

func (c *compilerState) compileAny() fragment {
	id := c.b.AddAny(false, nfa.InvalidState)
	return fragment{start: id, outs: []patch{{id: id}}}
}

func (c *compilerState) compileAnchor(n *ast.Node) fragment {
	id := c.b.AddAnchor(n.Anchor, nfa.InvalidState)
	return fragment{start: id, outs: []patch{{id: id}}}
}

func (c *compilerState) compileCharClass(n *ast.Node) fragment {
	trs := make([]nfa.Transition, 0, len(n.Class.Ranges))
	if !n.Class.Negated {
		for _, r := range n.Class.Ranges {
			trs = append(trs, nfa.Transition{Lo: r.Lo, Hi: r.Hi, Next: nfa.InvalidState})
		}
	} else {
		for _, r := range invertRanges(n.Class.Ranges) {
			trs = append(trs, nfa.Transition{Lo: r.Lo, Hi: r.Hi, Next: nfa.InvalidState})
		}
	}
	id := c.b.AddSparse(trs)
	// Sparse states carry their own per-range Next which all alias the same
	// dangling target; patch must rewrite every transition, so Patch on a
	// KindSparse state is handled specially below via patchSparse.
	return fragment{start: id, outs: []patch{{id: id, side: sideSparse}}}
}

const sideSparse side = 255

func invertRanges(ranges []ast.ClassRange) []ast.ClassRange {
	sorted := append([]ast.ClassRange(nil), ranges...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Lo > sorted[j].Lo; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	var out []ast.ClassRange
	next := byte(0)
	more := true
	for _, r := range sorted {
		if r.Lo > next && more {
			out = append(out, ast.ClassRange{Lo: next, Hi: r.Lo - 1})
		}
		if r.Hi == 255 {
			more = false
		} else if r.Hi+1 > next {
			next = r.Hi + 1
		}
	}
	if more && next <= 255 {
		out = append(out, ast.ClassRange{Lo: next, Hi: 255})
	}
	return out
}

func (c *compilerState) compileConcat(n *ast.Node) (fragment, error) {
	left, err := c.compile(n.Left)
	if err != nil {
		return fragment{}, err
	}
	right, err := c.compile(n.Right)
	if err != nil {
		return fragment{}, err
	}
	c.patchFragment(left.outs, right.start)
	return fragment{start: left.start, outs: right.outs}, nil
}

func (c *compilerState) compileAlternation(n *ast.Node) (fragment, error) {
	left, err := c.compile(n.Left)
	if err != nil {
		return fragment{}, err
	}
	right, err := c.compile(n.Right)
	if err != nil {
		return fragment{}, err
	}
	split := c.b.AddSplit(left.start, right.start)
	outs := append(append([]patch(nil), left.outs...), right.outs...)
	return fragment{start: split, outs: outs}, nil
}

// compileStar builds `child*`: a split whose left branch enters child
// (looping back to the split) and whose right branch exits.
func (c *compilerState) compileStar(n *ast.Node) (fragment, error) {
	child, err := c.compile(n.Child)
	if err != nil {
		return fragment{}, err
	}
	var split nfa.StateID
	if n.Greedy {
		split = c.b.AddSplit(child.start, nfa.InvalidState)
	} else {
		split = c.b.AddSplit(nfa.InvalidState, child.start)
	}
	c.patchFragment(child.outs, split)
	// greedy: left=child (tried first), right=exit; lazy: reversed.
	exitSide := sideRight
	if !n.Greedy {
		exitSide = sideLeft
	}
	return fragment{start: split, outs: []patch{{id: split, side: exitSide}}}, nil
}

// compilePlus builds `child+` as child followed by child*.
func (c *compilerState) compilePlus(n *ast.Node) (fragment, error) {
	child, err := c.compile(n.Child)
	if err != nil {
		return fragment{}, err
	}
	var split nfa.StateID
	if n.Greedy {
		split = c.b.AddSplit(child.start, nfa.InvalidState)
	} else {
		split = c.b.AddSplit(nfa.InvalidState, child.start)
	}
	c.patchFragment(child.outs, split)
	exitSide := sideRight
	if !n.Greedy {
		exitSide = sideLeft
	}
	return fragment{start: child.start, outs: []patch{{id: split, side: exitSide}}}, nil
}

// compileOptional builds `child?`.
func (c *compilerState) compileOptional(n *ast.Node) (fragment, error) {
	child, err := c.compile(n.Child)
	if err != nil {
		return fragment{}, err
	}
	var split nfa.StateID
	if n.Greedy {
		split = c.b.AddSplit(child.start, nfa.InvalidState)
	} else {
		split = c.b.AddSplit(nfa.InvalidState, child.start)
	}
	exitSide := sideRight
	if !n.Greedy {
		exitSide = sideLeft
	}
	outs := append([]patch{{id: split, side: exitSide}}, child.outs...)
	return fragment{start: split, outs: outs}, nil
}

// compileRepeat expands {min,max} by unrolling: min mandatory copies
// followed by (max-min) optional copies, or a trailing child* when max is
// unbounded. This mirrors how the teacher corpus's own NFA builder handles
// bounded repeats: no dedicated counter state, just AST-level unrolling
// before the Thompson rules apply.
func (c *compilerState) compileRepeat(n *ast.Node) (fragment, error) {
	if n.Min == 0 && n.Max == -1 {
		return c.compileStar(&ast.Node{Kind: ast.KindStar, Child: n.Child, Greedy: n.Greedy, Span: n.Span})
	}

	var head fragment
	haveHead := false
	for i := 0; i < n.Min; i++ {
		f, err := c.compile(n.Child)
		if err != nil {
			return fragment{}, err
		}
		if !haveHead {
			head = f
			haveHead = true
		} else {
			c.patchFragment(head.outs, f.start)
			head.outs = f.outs
		}
	}

	if n.Max == -1 {
		tail, err := c.compileStar(&ast.Node{Kind: ast.KindStar, Child: n.Child, Greedy: n.Greedy, Span: n.Span})
		if err != nil {
			return fragment{}, err
		}
		if !haveHead {
			return tail, nil
		}
		c.patchFragment(head.outs, tail.start)
		return fragment{start: head.start, outs: tail.outs}, nil
	}

	optCount := n.Max - n.Min
	var tailOuts []patch
	var tailStart nfa.StateID
	haveTail := false
	for i := 0; i < optCount; i++ {
		opt, err := c.compileOptional(&ast.Node{Kind: ast.KindOptional, Child: n.Child, Greedy: n.Greedy, Span: n.Span})
		if err != nil {
			return fragment{}, err
		}
		if !haveTail {
			tailStart = opt.start
			tailOuts = opt.outs
			haveTail = true
		} else {
			c.patchFragment(tailOuts, opt.start)
			tailOuts = append(tailOuts, opt.outs...)
		}
	}

	switch {
	case !haveHead && !haveTail:
		return c.compileEmpty(), nil
	case !haveHead:
		return fragment{start: tailStart, outs: tailOuts}, nil
	case !haveTail:
		return head, nil
	default:
		c.patchFragment(head.outs, tailStart)
		return fragment{start: head.start, outs: tailOuts}, nil
	}
}

func (c *compilerState) compileGroup(n *ast.Node) (fragment, error) {
	if n.CaptureIndex == 0 {
		return c.compile(n.Child)
	}
	startCap := c.b.AddCapture(n.CaptureIndex, true, nfa.InvalidState)
	child, err := c.compile(n.Child)
	if err != nil {
		return fragment{}, err
	}
	c.b.Patch(startCap, child.start)
	endCap := c.b.AddCapture(n.CaptureIndex, false, nfa.InvalidState)
	c.patchFragment(child.outs, endCap)
	return fragment{start: startCap, outs: []patch{{id: endCap}}}, nil
}

// patchFragment resolves a fragment's dangling exits onto target, handling
// the KindSparse special case where every transition in the state (not
// just Next) must be patched.
func (c *compilerState) patchFragment(outs []patch, target nfa.StateID) {
	for _, p := range outs {
		if p.side == sideSparse {
			c.b.PatchSparse(p.id, target)
			continue
		}
		switch p.side {
		case sideLeft:
			c.b.PatchLeft(p.id, target)
		case sideRight:
			c.b.PatchRight(p.id, target)
		default:
			c.b.Patch(p.id, target)
		}
	}
}

// startsWithTextAnchor reports whether n must match starting at position 0
// (a leading start-of-text anchor, \A, with no alternative branch that
// doesn't; ^ is a line anchor and does not count), letting the
// search loop skip trying every start offset.
func startsWithTextAnchor(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindAnchor:
		return n.Anchor == ast.AnchorStartText
	case ast.KindConcat:
		return startsWithTextAnchor(n.Left)
	case ast.KindGroup:
		return startsWithTextAnchor(n.Child)
	default:
		return false
	}
}
