package nfa

import (
	"github.com/coreglyph/rex/internal/ast"
	"github.com/coreglyph/rex/internal/sparse"
)

// PikeVM executes an NFA breadth-first, one input byte at a time, running
// every live thread in lockstep so the overall search stays linear in
// len(haystack)*len(states) regardless of the pattern (spec §4.4). Capture
// slots are shared copy-on-write between threads forked from a common
// ancestor, so a step that doesn't touch a capture costs no allocation.
type PikeVM struct {
	nfa     *NFA
	visited *sparse.SparseSet

	clist, nlist []thread
}

type thread struct {
	state StateID
	caps  *captures
}

// captures is a reference-counted, copy-on-write slot vector. Forking a
// thread bumps refs and shares the slice; the first write to a shared
// vector clones it first.
type captures struct {
	slots []int // 2*(CaptureCount+1) byte offsets, -1 if unset
	refs  int
}

func newCaptures(n int) *captures {
	slots := make([]int, 2*(n+1))
	for i := range slots {
		slots[i] = -1
	}
	return &captures{slots: slots, refs: 1}
}

func (c *captures) retain() *captures {
	c.refs++
	return c
}

// withSet returns a captures whose slot i is set to pos, cloning first if
// the vector is shared by more than one thread.
func (c *captures) withSet(i, pos int) *captures {
	if c.refs == 1 {
		c.slots[i] = pos
		return c
	}
	c.refs--
	clone := &captures{slots: append([]int(nil), c.slots...), refs: 1}
	clone.slots[i] = pos
	return clone
}

// Match is the result of a successful search: byte offsets for group 0 plus
// every capturing group, -1 where a group didn't participate.
type Match struct {
	Groups []int // pairs [start0,end0, start1,end1, ...]
}

// NewPikeVM builds a VM for nfa.
func NewPikeVM(nfa *NFA) *PikeVM {
	return &PikeVM{
		nfa:     nfa,
		visited: sparse.NewSparseSet(uint32(len(nfa.States))),
	}
}

// Search finds the leftmost-longest match starting at or after `from`:
// among the matches that begin at the earliest start position having one,
// the one ending last wins. Scans haystack[from:]. Returns nil if there is
// no match.
func (p *PikeVM) Search(haystack []byte, from int) *Match {
	anchored := p.nfa.Anchored
	nCaps := p.nfa.CaptureCount

	p.clist = p.clist[:0]
	p.nlist = p.nlist[:0]
	p.visited.Clear()
	var matched *captures

	for pos := from; ; pos++ {
		if matched == nil && (!anchored || pos == from) {
			p.addThread(&p.clist, thread{state: p.nfa.Start, caps: newCaptures(nCaps)}, haystack, pos)
		}
		if len(p.clist) == 0 && matched != nil {
			break
		}
		if len(p.clist) == 0 && pos > from && anchored {
			break
		}

		p.visited.Clear()
		p.nlist = p.nlist[:0]

		var b byte
		atEnd := pos >= len(haystack)
		if !atEnd {
			b = haystack[pos]
		}

		for _, t := range p.clist {
			s := &p.nfa.States[t.state]
			switch s.Kind {
			case KindMatch:
				// Leftmost-longest: keep this match if it starts earlier than
				// the one recorded so far, or starts at the same place and
				// ends later. The other threads keep running so they can
				// still extend it.
				if matched == nil || t.caps.slots[0] < matched.slots[0] ||
					(t.caps.slots[0] == matched.slots[0] && t.caps.slots[1] > matched.slots[1]) {
					if matched != nil {
						matched.refs--
					}
					matched = t.caps
				} else {
					t.caps.refs--
				}
			case KindByte:
				if !atEnd && b >= s.Lo && b <= s.Hi {
					p.addThread(&p.nlist, thread{state: s.Next, caps: t.caps.retain()}, haystack, pos+1)
				} else {
					t.caps.refs--
				}
			case KindAny:
				if !atEnd && (s.MatchesNewline || b != '\n') {
					p.addThread(&p.nlist, thread{state: s.Next, caps: t.caps.retain()}, haystack, pos+1)
				} else {
					t.caps.refs--
				}
			case KindSparse:
				moved := false
				if !atEnd {
					for _, tr := range s.Transitions {
						if b >= tr.Lo && b <= tr.Hi {
							p.addThread(&p.nlist, thread{state: tr.Next, caps: t.caps.retain()}, haystack, pos+1)
							moved = true
							break
						}
					}
				}
				if !moved {
					t.caps.refs--
				}
			default:
				t.caps.refs--
			}
		}
		p.clist, p.nlist = p.nlist, p.clist
		if atEnd {
			break
		}
	}

	if matched == nil {
		return nil
	}
	return &Match{Groups: matched.slots}
}

// addThread adds t to list, following epsilon/split/capture/anchor states
// transitively until a consuming or accepting state is reached. Each state
// is visited at most once per generation (sparse.SparseSet dedup), which is
// what keeps a step O(states) instead of exponential.
func (p *PikeVM) addThread(list *[]thread, t thread, haystack []byte, pos int) {
	if p.visited.Contains(uint32(t.state)) {
		t.caps.refs--
		return
	}
	p.visited.Insert(uint32(t.state))

	s := &p.nfa.States[t.state]
	switch s.Kind {
	case KindEpsilon:
		p.addThread(list, thread{state: s.Next, caps: t.caps}, haystack, pos)
	case KindSplit:
		p.addThread(list, thread{state: s.Left, caps: t.caps.retain()}, haystack, pos)
		p.addThread(list, thread{state: s.Right, caps: t.caps}, haystack, pos)
	case KindCapture:
		idx := 2*s.CaptureIndex + boolToInt(!s.CaptureStart)
		p.addThread(list, thread{state: s.Next, caps: t.caps.withSet(idx, pos)}, haystack, pos)
	case KindAnchor:
		if satisfiesAnchor(s.Anchor, haystack, pos) {
			p.addThread(list, thread{state: s.Next, caps: t.caps}, haystack, pos)
		} else {
			t.caps.refs--
		}
	default:
		*list = append(*list, t)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// satisfiesAnchor tests a zero-width assertion against the input at pos
// without consuming a byte (spec §4.4 "Anchors are tested, not consumed").
func satisfiesAnchor(kind ast.AnchorKind, haystack []byte, pos int) bool {
	switch kind {
	case ast.AnchorStartText:
		return pos == 0
	case ast.AnchorEndText:
		return pos == len(haystack)
	case ast.AnchorStartLine:
		return pos == 0 || haystack[pos-1] == '\n'
	case ast.AnchorEndLine:
		return pos == len(haystack) || haystack[pos] == '\n'
	case ast.AnchorWordBoundary, ast.AnchorNonWordBoundary:
		before := pos > 0 && isWordByte(haystack[pos-1])
		after := pos < len(haystack) && isWordByte(haystack[pos])
		boundary := before != after
		if kind == ast.AnchorWordBoundary {
			return boundary
		}
		return !boundary
	default:
		return false
	}
}
