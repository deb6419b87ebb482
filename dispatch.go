package rex

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/coreglyph/rex/internal/ast"
	"github.com/coreglyph/rex/internal/backtrack"
	"github.com/coreglyph/rex/internal/compiler"
	"github.com/coreglyph/rex/internal/nfa"
	"github.com/coreglyph/rex/internal/optimizer"
	"github.com/coreglyph/rex/internal/parser"
	"github.com/coreglyph/rex/internal/rxlog"
	"github.com/coreglyph/rex/internal/safety"
	"github.com/coreglyph/rex/simd"
)

// EngineKind identifies which matching engine a compiled Pattern dispatches
// to, per the engine-selection rule in SPEC_FULL.md §4.6.
type EngineKind uint8

const (
	EngineThompson EngineKind = iota
	EngineBacktrack
)

func (k EngineKind) String() string {
	if k == EngineBacktrack {
		return "backtrack"
	}
	return "thompson"
}

// EngineStats is a snapshot of a Pattern's runtime counters, exposed via
// Stats() for introspection (SPEC_FULL.md §4.9). Fields are read with
// sync/atomic so Stats is safe to call while other goroutines are matching
// concurrently against the same Pattern.
type EngineStats struct {
	Engine             EngineKind
	Risk               RiskLevel
	RiskFactor         float64
	MatchAttempts      int64
	StepBudgetExceeded int64
}

// Pattern is a compiled regular expression: the public dispatch object
// described in SPEC_FULL.md §4.6. A *Pattern is safe for concurrent use by
// multiple goroutines; all mutable per-search state lives in pool-scoped
// scratch objects, never on Pattern itself.
type Pattern struct {
	source string
	flags  Flags
	cfg    Config
	logger rxlog.Logger

	root         *ast.Node // retained iff engine == EngineBacktrack
	captureCount int
	names        map[string]int

	engine EngineKind
	nfa    *nfa.NFA
	hints  optimizer.Hints

	pikePool  sync.Pool
	btPool    sync.Pool

	matchAttempts      atomic.Int64
	stepBudgetExceeded atomic.Int64
	risk               RiskLevel
	riskFactor         float64
}

// Compile parses and compiles pattern under DefaultConfig() with no flags.
func Compile(pattern string) (*Pattern, error) {
	return CompileWithConfig(pattern, Flags{}, DefaultConfig())
}

// MustCompile is like Compile but panics on error, for use with
// package-level pattern constants.
func MustCompile(pattern string) *Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(fmt.Sprintf("rex: MustCompile(%q): %v", pattern, err))
	}
	return p
}

// CompileWithConfig parses and compiles pattern under the given flags and
// config, selecting the Thompson or backtracking engine per the rule in
// SPEC_FULL.md §4.6.
func CompileWithConfig(pattern string, flags Flags, cfg Config) (*Pattern, error) {
	return compileWithLogger(pattern, flags, cfg, rxlog.Noop())
}

// CompileWithLogger is like CompileWithConfig but routes compile-time
// diagnostics (engine selection, safety verdicts) through logger instead of
// discarding them.
func CompileWithLogger(pattern string, flags Flags, cfg Config, logger rxlog.Logger) (*Pattern, error) {
	return compileWithLogger(pattern, flags, cfg, logger)
}

func compileWithLogger(pattern string, flags Flags, cfg Config, logger rxlog.Logger) (*Pattern, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := parser.Parse(pattern, parser.Limits{
		MaxNestingDepth:    cfg.MaxNestingDepth,
		MaxQuantifierBound: cfg.MaxQuantifierBound,
	})
	if err != nil {
		return nil, translateParseError(pattern, err)
	}

	if flags.CaseInsensitive {
		foldCaseInsensitive(res.Root)
	}
	if flags.DotAll || !flags.Multiline {
		ast.Walk(res.Root, func(n *ast.Node) {
			switch {
			case n.Kind == ast.KindAny && flags.DotAll:
				n.Kind = ast.KindCharClass
				n.Class = ast.CharClass{Ranges: []ast.ClassRange{{Lo: 0, Hi: 255}}}
			case n.Kind == ast.KindAnchor && !flags.Multiline && n.Anchor == ast.AnchorStartLine:
				n.Anchor = ast.AnchorStartText
			case n.Kind == ast.KindAnchor && !flags.Multiline && n.Anchor == ast.AnchorEndLine:
				n.Anchor = ast.AnchorEndText
			}
		})
	}

	report := safety.Analyze(res.Root)
	risk := translateRiskLevel(report.Risk)
	logger.Debugf("rex: compiled %q: risk=%s factor=%.0f thompson=%v", pattern, risk, report.Factor, report.CanUseThompson)
	if risk > cfg.MaxRiskLevel {
		return nil, &ComplexityError{Pattern: pattern, Risk: risk, Factor: report.Factor, Err: ErrPatternTooComplex}
	}

	useBacktrack := !report.CanUseThompson || ast.ContainsLazyQuantifier(res.Root)

	p := &Pattern{
		source:       pattern,
		flags:        flags,
		cfg:          cfg,
		logger:       logger,
		captureCount: res.CaptureCount,
		names:        res.Names,
		risk:         risk,
		riskFactor:   report.Factor,
		hints:        optimizer.Analyze(res.Root),
	}

	if useBacktrack {
		p.engine = EngineBacktrack
		p.root = res.Root
		logger.Debugf("rex: %q dispatched to backtracking engine (lookaround=%v backref=%v lazy=%v)",
			pattern, ast.ContainsLookaround(res.Root), ast.ContainsBackref(res.Root), ast.ContainsLazyQuantifier(res.Root))
	} else {
		compiled, err := compiler.Compile(res.Root, res.CaptureCount, res.Names)
		if err != nil {
			// Safety net: CanUseThompson said yes but the compiler disagrees.
			// Fall back rather than fail compilation outright.
			p.engine = EngineBacktrack
			p.root = res.Root
			logger.Warnf("rex: %q: compiler fallback to backtracking: %v", pattern, err)
		} else {
			p.engine = EngineThompson
			p.nfa = compiled
		}
	}

	return p, nil
}

func translateParseError(pattern string, err error) error {
	pe, ok := err.(*parser.Error)
	if !ok {
		return err
	}
	var sentinel error
	switch pe.Code {
	case parser.CodeEmptyPattern:
		sentinel = ErrEmptyPattern
	case parser.CodeUnexpectedEndOfPattern:
		sentinel = ErrUnexpectedEndOfPattern
	case parser.CodeUnexpectedCharacter:
		sentinel = ErrUnexpectedCharacter
	case parser.CodeInvalidEscapeSequence:
		sentinel = ErrInvalidEscapeSequence
	case parser.CodeInvalidCharacterClass:
		sentinel = ErrInvalidCharacterClass
	case parser.CodeInvalidQuantifier:
		sentinel = ErrInvalidQuantifier
	case parser.CodeNestingTooDeep:
		sentinel = ErrNestingTooDeep
	default:
		sentinel = ErrUnexpectedCharacter
	}
	return newSyntaxError(pattern, pe.Offset, sentinel)
}

func translateRiskLevel(r safety.RiskLevel) RiskLevel {
	switch r {
	case safety.RiskSafe:
		return RiskSafe
	case safety.RiskLow:
		return RiskLow
	case safety.RiskMedium:
		return RiskMedium
	case safety.RiskHigh:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// foldCaseInsensitive widens every literal and char-class node in place to
// match both ASCII cases, so the compiled engine itself stays
// case-sensitive: folding happens once at compile time rather than on every
// matched byte. A literal can't hold two alternatives, so an alphabetic
// literal is promoted to a 2-entry CharClass.
func foldCaseInsensitive(n *ast.Node) {
	promoteFoldedLiterals(n)
}

func promoteFoldedLiterals(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindLiteral:
		if isAsciiAlpha(n.Literal) {
			lo, hi := asciiLowerByte(n.Literal), asciiUpperByte(n.Literal)
			n.Kind = ast.KindCharClass
			n.Class = ast.CharClass{Ranges: []ast.ClassRange{{Lo: lo, Hi: lo}, {Lo: hi, Hi: hi}}}
		}
	case ast.KindCharClass:
		foldClassRanges(n)
	case ast.KindConcat, ast.KindAlternation:
		promoteFoldedLiterals(n.Left)
		promoteFoldedLiterals(n.Right)
	case ast.KindStar, ast.KindPlus, ast.KindOptional, ast.KindRepeat, ast.KindGroup, ast.KindLookahead, ast.KindLookbehind:
		promoteFoldedLiterals(n.Child)
	}
}

func foldClassRanges(n *ast.Node) {
	extra := make([]ast.ClassRange, 0, len(n.Class.Ranges))
	for _, r := range n.Class.Ranges {
		lo, hi := r.Lo, r.Hi
		for b := lo; ; b++ {
			if isAsciiAlpha(b) {
				folded := toggleAsciiCase(b)
				extra = append(extra, ast.ClassRange{Lo: folded, Hi: folded})
			}
			if b == hi {
				break
			}
		}
	}
	n.Class.Ranges = append(n.Class.Ranges, extra...)
}

func isAsciiAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func asciiLowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func asciiUpperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

func toggleAsciiCase(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// ---- pooled scratch state ----

func (p *Pattern) getPikeVM() *nfa.PikeVM {
	if v := p.pikePool.Get(); v != nil {
		return v.(*nfa.PikeVM)
	}
	return nfa.NewPikeVM(p.nfa)
}

func (p *Pattern) putPikeVM(vm *nfa.PikeVM) { p.pikePool.Put(vm) }

func (p *Pattern) getMatcher() *backtrack.Matcher {
	if v := p.btPool.Get(); v != nil {
		return v.(*backtrack.Matcher)
	}
	return backtrack.NewMatcher(p.root, p.captureCount, backtrack.Limits{MaxSteps: p.cfg.MaxSteps}, p.flags.CaseInsensitive)
}

func (p *Pattern) putMatcher(m *backtrack.Matcher) { p.btPool.Put(m) }

// findAt returns the leftmost match starting at or after from, or nil.
// findMode enables the backtracking engine's lazy short-circuit (spec
// §4.5); set false only for is_match-shaped callers that don't care which
// of several equally-valid matches is returned.
func (p *Pattern) findAt(input []byte, from int, findMode bool) []int {
	p.matchAttempts.Add(1)

	if p.hints.AnchoredStart && from > 0 {
		return nil
	}

	start := from
	switch {
	case len(p.hints.LiteralPrefix) >= 2 && !p.flags.CaseInsensitive && !p.hints.AnchoredStart:
		idx := simd.Memmem(input[from:], p.hints.LiteralPrefix)
		if idx < 0 {
			return nil
		}
		start = from + idx
	case p.hints.AnchoredStart:
		// no byte-scan fast path needed: findAt already rejected from > 0 above.
	case p.hints.FirstClassKind == optimizer.FirstClassDigit:
		idx := simd.MemchrDigitAt(input, from)
		if idx < 0 {
			return nil
		}
		start = idx
	case p.hints.FirstClassKind == optimizer.FirstClassWord:
		idx := simd.MemchrWord(input[from:])
		if idx < 0 {
			return nil
		}
		start = from + idx
	case p.hints.FirstClassTable != nil:
		idx := simd.MemchrInTable(input[from:], p.hints.FirstClassTable)
		if idx < 0 {
			return nil
		}
		start = from + idx
	case len(p.hints.FirstBytes) == 2:
		idx := simd.Memchr2(input[from:], p.hints.FirstBytes[0], p.hints.FirstBytes[1])
		if idx < 0 {
			return nil
		}
		start = from + idx
	case len(p.hints.FirstBytes) == 3:
		idx := simd.Memchr3(input[from:], p.hints.FirstBytes[0], p.hints.FirstBytes[1], p.hints.FirstBytes[2])
		if idx < 0 {
			return nil
		}
		start = from + idx
	}

	switch p.engine {
	case EngineThompson:
		vm := p.getPikeVM()
		defer p.putPikeVM(vm)
		m := vm.Search(input, start)
		if m == nil {
			return nil
		}
		return m.Groups
	default:
		matcher := p.getMatcher()
		defer p.putMatcher(matcher)
		m, err := matcher.Search(input, start, findMode)
		if err != nil {
			p.stepBudgetExceeded.Add(1)
			return nil
		}
		if m == nil {
			return nil
		}
		return m.Groups
	}
}

// Stats returns a snapshot of this Pattern's runtime counters.
func (p *Pattern) Stats() EngineStats {
	return EngineStats{
		Engine:             p.engine,
		Risk:               p.risk,
		RiskFactor:         p.riskFactor,
		MatchAttempts:      p.matchAttempts.Load(),
		StepBudgetExceeded: p.stepBudgetExceeded.Load(),
	}
}

// String returns the source pattern, so a Pattern satisfies fmt.Stringer
// the way stdlib regexp.Regexp does.
func (p *Pattern) String() string { return p.source }

// NumSubexp returns the number of capturing groups, not counting group 0.
func (p *Pattern) NumSubexp() int { return p.captureCount }

// SubexpIndex returns the index of the named capturing group, or -1 if no
// such group exists.
func (p *Pattern) SubexpIndex(name string) int {
	if idx, ok := p.names[name]; ok {
		return idx
	}
	return -1
}

// GetNamedCapture returns the text captured by the named group in m, and
// whether that name exists on p and participated in the match.
func (p *Pattern) GetNamedCapture(m *Match, name string) ([]byte, bool) {
	idx, ok := p.names[name]
	if !ok {
		return nil, false
	}
	text := m.Group(idx)
	return text, text != nil
}

// ---- Match type ----

// Match is one successful match, including every capturing group's byte
// offsets into the searched input.
type Match struct {
	input  []byte
	groups []int
}

// Start and End return the overall match's byte offsets.
func (m *Match) Start() int { return m.groups[0] }
func (m *Match) End() int   { return m.groups[1] }

// Bytes returns the overall matched text.
func (m *Match) Bytes() []byte { return m.input[m.groups[0]:m.groups[1]] }

// String returns the overall matched text as a string.
func (m *Match) String() string { return string(m.Bytes()) }

// Group returns the i'th capturing group's text (i==0 is the whole match),
// or nil if that group did not participate in the match.
func (m *Match) Group(i int) []byte {
	if 2*i+1 >= len(m.groups) {
		return nil
	}
	s, e := m.groups[2*i], m.groups[2*i+1]
	if s < 0 || e < 0 {
		return nil
	}
	return m.input[s:e]
}

// GroupIndex returns the i'th capturing group's byte offsets [start, end],
// or [-1, -1] if that group did not participate.
func (m *Match) GroupIndex(i int) (int, int) {
	if 2*i+1 >= len(m.groups) {
		return -1, -1
	}
	return m.groups[2*i], m.groups[2*i+1]
}

// ---- find-family operations ----

// Match reports whether input contains any match of p.
func (p *Pattern) Match(input []byte) bool {
	return p.findAt(input, 0, false) != nil
}

// MatchString is the string-argument form of Match.
func (p *Pattern) MatchString(s string) bool { return p.Match([]byte(s)) }

// Find returns the leftmost match in input, or nil if there is none.
func (p *Pattern) Find(input []byte) *Match {
	g := p.findAt(input, 0, true)
	if g == nil {
		return nil
	}
	return &Match{input: input, groups: g}
}

// FindString is the string-argument form of Find.
func (p *Pattern) FindString(s string) *Match { return p.Find([]byte(s)) }

// FindAll returns every non-overlapping match in input, in order.
// Zero-width matches advance the search position by one byte to guarantee
// termination (SPEC_FULL.md §4.6).
func (p *Pattern) FindAll(input []byte) []*Match {
	var out []*Match
	pos := 0
	for pos <= len(input) {
		g := p.findAt(input, pos, true)
		if g == nil {
			break
		}
		out = append(out, &Match{input: input, groups: g})
		if g[1] == g[0] {
			pos = g[1] + 1
		} else {
			pos = g[1]
		}
	}
	return out
}

// FindAllString is the string-argument form of FindAll.
func (p *Pattern) FindAllString(s string) []*Match { return p.FindAll([]byte(s)) }

// FindAllContext is FindAll with an early-abort check between matches: a
// large scan over a long input can return early (with whatever matches were
// already found) once ctx is done, rather than running to completion. The
// per-match engine work itself is synchronous and CPU-bound, so ctx is only
// polled between matches, not mid-search (SPEC_FULL.md §5).
func (p *Pattern) FindAllContext(ctx context.Context, input []byte) []*Match {
	var out []*Match
	pos := 0
	for pos <= len(input) {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		g := p.findAt(input, pos, true)
		if g == nil {
			break
		}
		out = append(out, &Match{input: input, groups: g})
		if g[1] == g[0] {
			pos = g[1] + 1
		} else {
			pos = g[1]
		}
	}
	return out
}

// All returns a range-over-func iterator over every non-overlapping match
// in input, for `for m := range p.All(input)`.
func (p *Pattern) All(input []byte) iter.Seq[*Match] {
	return func(yield func(*Match) bool) {
		pos := 0
		for pos <= len(input) {
			g := p.findAt(input, pos, true)
			if g == nil {
				return
			}
			if !yield(&Match{input: input, groups: g}) {
				return
			}
			if g[1] == g[0] {
				pos = g[1] + 1
			} else {
				pos = g[1]
			}
		}
	}
}

// MatchIterator is a pull-style cursor over successive matches, for callers
// that prefer Next() over range-over-func (e.g. pre-Go-1.23 call sites or
// code that needs to stop mid-scan without a labeled break).
type MatchIterator struct {
	p     *Pattern
	input []byte
	pos   int
	done  bool
}

// Iterator returns a MatchIterator over input.
func (p *Pattern) Iterator(input []byte) *MatchIterator {
	return &MatchIterator{p: p, input: input}
}

// Next advances to the next match, returning (match, true) or (nil, false)
// once the input is exhausted.
func (it *MatchIterator) Next() (*Match, bool) {
	if it.done || it.pos > len(it.input) {
		return nil, false
	}
	g := it.p.findAt(it.input, it.pos, true)
	if g == nil {
		it.done = true
		return nil, false
	}
	if g[1] == g[0] {
		it.pos = g[1] + 1
	} else {
		it.pos = g[1]
	}
	return &Match{input: it.input, groups: g}, true
}

// ---- replace / split ----

// ReplaceAll returns a copy of input with every match replaced by repl.
// repl supports $0 (whole match, passed through verbatim), $1..$9
// (capturing group, empty if unset), and $$ (literal '$'); any other $x
// sequence passes through verbatim (SPEC_FULL.md §4.6, an explicit open
// question resolved in favor of the simplest documented behavior).
func (p *Pattern) ReplaceAll(input, repl []byte) []byte {
	var out []byte
	pos := 0
	for pos <= len(input) {
		g := p.findAt(input, pos, true)
		if g == nil {
			break
		}
		out = append(out, input[pos:g[0]]...)
		out = append(out, expandReplacement(repl, input, g)...)
		if g[1] == g[0] {
			if g[1] < len(input) {
				out = append(out, input[g[1]])
			}
			pos = g[1] + 1
		} else {
			pos = g[1]
		}
	}
	if pos < len(input) {
		out = append(out, input[pos:]...)
	}
	return out
}

// ReplaceAllString is the string-argument form of ReplaceAll.
func (p *Pattern) ReplaceAllString(src, repl string) string {
	return string(p.ReplaceAll([]byte(src), []byte(repl)))
}

func expandReplacement(repl, input []byte, groups []int) []byte {
	var out []byte
	for i := 0; i < len(repl); i++ {
		if repl[i] != '$' || i+1 >= len(repl) {
			out = append(out, repl[i])
			continue
		}
		next := repl[i+1]
		switch {
		case next == '$':
			out = append(out, '$')
			i++
		case next >= '1' && next <= '9':
			idx := int(next - '0')
			if 2*idx+1 < len(groups) {
				s, e := groups[2*idx], groups[2*idx+1]
				if s >= 0 && e >= 0 {
					out = append(out, input[s:e]...)
				}
			}
			i++
		default:
			out = append(out, repl[i])
		}
	}
	return out
}

// Split slices s around every match of p and returns the substrings
// between matches plus a trailing tail.
func (p *Pattern) Split(s string) []string {
	input := []byte(s)
	var out []string
	pos := 0
	for pos <= len(input) {
		g := p.findAt(input, pos, true)
		if g == nil {
			break
		}
		if g[1] == g[0] && g[0] == pos {
			// Zero-width match at the current cut point: avoid an infinite
			// run of empty segments by advancing without emitting a split.
			if pos >= len(input) {
				break
			}
			pos++
			continue
		}
		out = append(out, string(input[pos:g[0]]))
		pos = g[1]
	}
	out = append(out, string(input[pos:]))
	return out
}

