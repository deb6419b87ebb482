package nfa

import (
	"testing"

	"github.com/coreglyph/rex/internal/ast"
)

// buildLiteral constructs a minimal NFA matching the literal string s.
func buildLiteral(s string) *NFA {
	b := NewBuilder(0)
	startCap := b.AddCapture(0, true, InvalidState)
	var prev StateID = InvalidState
	var first StateID
	for i := 0; i < len(s); i++ {
		id := b.AddByteRange(s[i], s[i], InvalidState)
		if i == 0 {
			first = id
		} else {
			b.Patch(prev, id)
		}
		prev = id
	}
	b.Patch(startCap, first)
	endCap := b.AddCapture(0, false, InvalidState)
	b.Patch(prev, endCap)
	match := b.AddMatch()
	b.Patch(endCap, match)
	return b.Build(startCap, false)
}

func TestBuilderPatchesByteChain(t *testing.T) {
	n := buildLiteral("ab")
	vm := NewPikeVM(n)
	m := vm.Search([]byte("xxaby"), 0)
	if m == nil {
		t.Fatal("expected match")
	}
	if got := "xxaby"[m.Groups[0]:m.Groups[1]]; got != "ab" {
		t.Errorf("matched %q, want %q", got, "ab")
	}
}

func TestBuilderPatchSparse(t *testing.T) {
	b := NewBuilder(0)
	startCap := b.AddCapture(0, true, InvalidState)
	cls := b.AddSparse([]Transition{{Lo: 'a', Hi: 'z', Next: InvalidState}})
	b.Patch(startCap, cls)
	endCap := b.AddCapture(0, false, InvalidState)
	b.PatchSparse(cls, endCap)
	match := b.AddMatch()
	b.Patch(endCap, match)
	n := b.Build(startCap, false)

	vm := NewPikeVM(n)
	if vm.Search([]byte("5x5"), 0) == nil {
		t.Fatal("expected match against a class containing 'x'")
	}
	if vm.Search([]byte("555"), 0) != nil {
		t.Error("expected no match: input has no byte in [a-z]")
	}
}

func TestBuilderSplitPrefersLeft(t *testing.T) {
	// split(left=literal 'a', right=match) models `a?` greedy: the VM should
	// prefer consuming 'a' over matching the empty string when both are
	// reachable at the same position.
	b := NewBuilder(0)
	startCap := b.AddCapture(0, true, InvalidState)
	lit := b.AddByteRange('a', 'a', InvalidState)
	matchEarly := b.AddMatch()
	split := b.AddSplit(lit, matchEarly)
	b.Patch(startCap, split)
	endCap := b.AddCapture(0, false, InvalidState)
	b.Patch(lit, endCap)
	matchLate := b.AddMatch()
	b.Patch(endCap, matchLate)
	n := b.Build(startCap, false)

	vm := NewPikeVM(n)
	m := vm.Search([]byte("a"), 0)
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.Groups[1]-m.Groups[0] != 1 {
		t.Errorf("expected the greedy left branch (consume 'a') to win, got length %d", m.Groups[1]-m.Groups[0])
	}
}

func TestIsMatch(t *testing.T) {
	n := buildLiteral("ab")
	lastID := StateID(len(n.States) - 1)
	if !n.IsMatch(lastID) {
		t.Errorf("expected the final state %d to be a KindMatch state", lastID)
	}
	if n.IsMatch(InvalidState) {
		t.Error("IsMatch(InvalidState) = true, want false")
	}
	if n.IsMatch(n.Start) {
		t.Error("IsMatch(n.Start) = true, want false (start is a capture state)")
	}
}

func TestAnchoredDoesNotSeedLaterPositions(t *testing.T) {
	b := NewBuilder(0)
	startCap := b.AddCapture(0, true, InvalidState)
	anchor := b.AddAnchor(ast.AnchorStartText, InvalidState)
	lit := b.AddByteRange('a', 'a', InvalidState)
	b.Patch(startCap, anchor)
	b.Patch(anchor, lit)
	endCap := b.AddCapture(0, false, InvalidState)
	b.Patch(lit, endCap)
	match := b.AddMatch()
	b.Patch(endCap, match)
	n := b.Build(startCap, true)

	vm := NewPikeVM(n)
	if vm.Search([]byte("xa"), 0) != nil {
		t.Error("anchored pattern should not match 'a' starting at offset 1")
	}
	if vm.Search([]byte("a"), 0) == nil {
		t.Error("anchored pattern should match 'a' at offset 0")
	}
}

func TestPikeVMReusableAcrossSearches(t *testing.T) {
	n := buildLiteral("ab")
	vm := NewPikeVM(n)
	for i, input := range []string{"ab", "xxab", "nomatch", "ab"} {
		m := vm.Search([]byte(input), 0)
		wantMatch := input != "nomatch"
		if (m != nil) != wantMatch {
			t.Errorf("iteration %d: Search(%q) match = %v, want %v", i, input, m != nil, wantMatch)
		}
	}
}
