package nfa

import (
	"github.com/coreglyph/rex/internal/ast"
	"github.com/coreglyph/rex/internal/conv"
)

// Builder assembles an NFA incrementally, in the style of the teacher
// corpus's nfa.Builder: states are appended as they're created and
// forward-referencing transitions are left as InvalidState to be patched
// once the target state exists (Thompson construction almost always needs
// to patch a fragment's dangling exits onto whatever follows it).
type Builder struct {
	states       []State
	captureCount int
	captureNames []string
}

// NewBuilder returns an empty Builder. captureCount is the number of
// capturing groups (not counting group 0) the caller already knows about,
// so capture-name slots can be preallocated; names are filled in via
// SetCaptureName.
func NewBuilder(captureCount int) *Builder {
	return &Builder{
		captureCount: captureCount,
		captureNames: make([]string, captureCount+1),
	}
}

func (b *Builder) SetCaptureName(index int, name string) {
	if index < len(b.captureNames) {
		b.captureNames[index] = name
	}
}

// AddMatch appends a KindMatch accepting state and returns its id.
func (b *Builder) AddMatch() StateID {
	return b.push(State{Kind: KindMatch})
}

// AddByteRange appends a state consuming one byte in [lo, hi], transitioning
// to next (patchable later via Patch).
func (b *Builder) AddByteRange(lo, hi byte, next StateID) StateID {
	return b.push(State{Kind: KindByte, Lo: lo, Hi: hi, Next: next})
}

// AddAny appends a state consuming any byte (matchesNewline controls
// whether '\n' is included, mirroring the DOTALL distinction).
func (b *Builder) AddAny(matchesNewline bool, next StateID) StateID {
	return b.push(State{Kind: KindAny, MatchesNewline: matchesNewline, Next: next})
}

// AddSparse appends a character-class state from a set of transitions, all
// sharing the same next state.
func (b *Builder) AddSparse(transitions []Transition) StateID {
	return b.push(State{Kind: KindSparse, Transitions: transitions})
}

// AddSplit appends an epsilon-branching state; left is tried before right by
// the VM's depth-first thread ordering, encoding "greedy prefers left".
func (b *Builder) AddSplit(left, right StateID) StateID {
	return b.push(State{Kind: KindSplit, Left: left, Right: right})
}

// AddEpsilon appends a state with a single unconditional epsilon transition.
func (b *Builder) AddEpsilon(next StateID) StateID {
	return b.push(State{Kind: KindEpsilon, Next: next})
}

// AddCapture appends a state marking the start or end of capture group
// index, then falls through to next via epsilon.
func (b *Builder) AddCapture(index int, start bool, next StateID) StateID {
	return b.push(State{Kind: KindCapture, CaptureIndex: index, CaptureStart: start, Next: next})
}

// AddAnchor appends a zero-width assertion state, tested against the
// surrounding input at epsilon-closure time rather than consuming a byte.
func (b *Builder) AddAnchor(kind ast.AnchorKind, next StateID) StateID {
	return b.push(State{Kind: KindAnchor, Anchor: kind, Next: next})
}

// push appends s and returns its id. Thompson construction for a pattern
// with large bounded repeats can produce very many states, so the
// conversion to StateID is bounds-checked rather than assumed safe.
func (b *Builder) push(s State) StateID {
	id := StateID(conv.IntToUint32(len(b.states)))
	b.states = append(b.states, s)
	return id
}

// Patch rewrites every dangling (InvalidState) exit of the state at id to
// point at target. For KindSplit both Left and Right are patched
// independently if still unset.
func (b *Builder) Patch(id, target StateID) {
	s := &b.states[id]
	switch s.Kind {
	case KindSplit:
		if s.Left == InvalidState {
			s.Left = target
		}
		if s.Right == InvalidState {
			s.Right = target
		}
	default:
		if s.Next == InvalidState {
			s.Next = target
		}
	}
}

// PatchLeft / PatchRight patch one side of a split explicitly, for callers
// building a split before either branch is compiled.
func (b *Builder) PatchLeft(id, target StateID)  { b.states[id].Left = target }
func (b *Builder) PatchRight(id, target StateID) { b.states[id].Right = target }

// PatchSparse rewrites every transition of a KindSparse state to target,
// since a character-class state fans out to many ranges that all share the
// same dangling exit until patched.
func (b *Builder) PatchSparse(id, target StateID) {
	trs := b.states[id].Transitions
	for i := range trs {
		if trs[i].Next == InvalidState {
			trs[i].Next = target
		}
	}
}

// NumStates reports how many states have been added so far, which is also
// the StateID the next added state will get.
func (b *Builder) NumStates() int { return len(b.states) }

// Build finalizes the NFA with the given start state.
func (b *Builder) Build(start StateID, anchored bool) *NFA {
	return &NFA{
		States:       b.states,
		Start:        start,
		CaptureCount: b.captureCount,
		CaptureNames: b.captureNames,
		Anchored:     anchored,
	}
}
