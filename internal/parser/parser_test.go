package parser

import (
	"testing"

	"github.com/coreglyph/rex/internal/ast"
)

func defaultLimits() Limits {
	return Limits{MaxNestingDepth: 64, MaxQuantifierBound: 1000}
}

func parseOK(t *testing.T, pattern string) *Result {
	t.Helper()
	res, err := Parse(pattern, defaultLimits())
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", pattern, err)
	}
	return res
}

func TestParseLiteralAndConcat(t *testing.T) {
	res := parseOK(t, "ab")
	root := res.Root
	if root.Kind != ast.KindConcat {
		t.Fatalf("root.Kind = %v, want Concat", root.Kind)
	}
	if root.Left.Kind != ast.KindLiteral || root.Left.Literal != 'a' {
		t.Errorf("left = %+v, want literal 'a'", root.Left)
	}
	if root.Right.Kind != ast.KindLiteral || root.Right.Literal != 'b' {
		t.Errorf("right = %+v, want literal 'b'", root.Right)
	}
}

func TestParseAlternation(t *testing.T) {
	res := parseOK(t, "a|b|c")
	if res.Root.Kind != ast.KindAlternation {
		t.Fatalf("root.Kind = %v, want Alternation", res.Root.Kind)
	}
}

func TestParseQuantifiers(t *testing.T) {
	tests := []struct {
		pattern string
		kind    ast.Kind
		greedy  bool
	}{
		{"a*", ast.KindStar, true},
		{"a*?", ast.KindStar, false},
		{"a+", ast.KindPlus, true},
		{"a+?", ast.KindPlus, false},
		{"a?", ast.KindOptional, true},
		{"a??", ast.KindOptional, false},
	}
	for _, tt := range tests {
		res := parseOK(t, tt.pattern)
		if res.Root.Kind != tt.kind {
			t.Errorf("Parse(%q).Kind = %v, want %v", tt.pattern, res.Root.Kind, tt.kind)
		}
		if res.Root.Greedy != tt.greedy {
			t.Errorf("Parse(%q).Greedy = %v, want %v", tt.pattern, res.Root.Greedy, tt.greedy)
		}
	}
}

func TestParseBoundedRepeat(t *testing.T) {
	tests := []struct {
		pattern  string
		min, max int
	}{
		{"a{3}", 3, 3},
		{"a{2,5}", 2, 5},
		{"a{2,}", 2, -1},
	}
	for _, tt := range tests {
		res := parseOK(t, tt.pattern)
		if res.Root.Kind != ast.KindRepeat {
			t.Fatalf("Parse(%q).Kind = %v, want Repeat", tt.pattern, res.Root.Kind)
		}
		if res.Root.Min != tt.min || res.Root.Max != tt.max {
			t.Errorf("Parse(%q) = {%d,%d}, want {%d,%d}", tt.pattern, res.Root.Min, res.Root.Max, tt.min, tt.max)
		}
	}
}

func TestParseBoundedRepeatRejectsInvertedRange(t *testing.T) {
	_, err := Parse("a{5,2}", defaultLimits())
	if err == nil {
		t.Fatal("expected error for inverted quantifier bound")
	}
}

func TestParseBoundedRepeatRejectsOverBound(t *testing.T) {
	_, err := Parse("a{5000}", Limits{MaxNestingDepth: 64, MaxQuantifierBound: 1000})
	if err == nil {
		t.Fatal("expected error for quantifier bound above limit")
	}
}

func TestParseDanglingBraceIsLiteral(t *testing.T) {
	res := parseOK(t, "a{")
	if res.Root.Kind != ast.KindConcat {
		t.Fatalf("Parse(\"a{\").Kind = %v, want Concat (literal '{')", res.Root.Kind)
	}
	if res.Root.Right.Kind != ast.KindLiteral || res.Root.Right.Literal != '{' {
		t.Errorf("Parse(\"a{\").Right = %+v, want literal '{'", res.Root.Right)
	}
}

func TestParseGroupsCapturing(t *testing.T) {
	res := parseOK(t, "(a)(b)")
	if res.CaptureCount != 2 {
		t.Fatalf("CaptureCount = %d, want 2", res.CaptureCount)
	}
}

func TestParseNamedGroup(t *testing.T) {
	for _, pattern := range []string{"(?<year>\\d+)", "(?P<year>\\d+)"} {
		res := parseOK(t, pattern)
		if res.Names["year"] != 1 {
			t.Errorf("Parse(%q).Names[year] = %d, want 1", pattern, res.Names["year"])
		}
	}
}

func TestParseNonCapturingGroup(t *testing.T) {
	res := parseOK(t, "(?:ab)")
	if res.CaptureCount != 0 {
		t.Fatalf("CaptureCount = %d, want 0", res.CaptureCount)
	}
	if res.Root.Kind != ast.KindGroup || res.Root.CaptureIndex != 0 {
		t.Errorf("root = %+v, want non-capturing group", res.Root)
	}
}

func TestParseLookaround(t *testing.T) {
	tests := []struct {
		pattern  string
		kind     ast.Kind
		positive bool
	}{
		{"(?=a)", ast.KindLookahead, true},
		{"(?!a)", ast.KindLookahead, false},
		{"(?<=a)", ast.KindLookbehind, true},
		{"(?<!a)", ast.KindLookbehind, false},
	}
	for _, tt := range tests {
		res := parseOK(t, tt.pattern)
		if res.Root.Kind != tt.kind || res.Root.Positive != tt.positive {
			t.Errorf("Parse(%q) = {%v,%v}, want {%v,%v}", tt.pattern, res.Root.Kind, res.Root.Positive, tt.kind, tt.positive)
		}
	}
}

func TestParseBackref(t *testing.T) {
	res := parseOK(t, "(a)\\1")
	if res.Root.Kind != ast.KindConcat {
		t.Fatalf("root.Kind = %v, want Concat", res.Root.Kind)
	}
	if res.Root.Right.Kind != ast.KindBackref || res.Root.Right.BackrefIndex != 1 {
		t.Errorf("right = %+v, want backref 1", res.Root.Right)
	}
}

func TestParseCharClassNegation(t *testing.T) {
	res := parseOK(t, "[^a-z]")
	if res.Root.Kind != ast.KindCharClass {
		t.Fatalf("root.Kind = %v, want CharClass", res.Root.Kind)
	}
	if !res.Root.Class.Negated {
		t.Error("Class.Negated = false, want true")
	}
}

// A negated predefined class embedded in a bracket expression must keep its
// negation: [\D] should match non-digits, not digits (regression for the
// Expand()-based fix).
func TestParseNegatedPredefinedClassInBracket(t *testing.T) {
	res := parseOK(t, "[\\D]")
	cc := res.Root.Class
	if cc.Negated {
		t.Fatal("[\\D] bracket itself should not be negated")
	}
	if cc.Matches('5') {
		t.Error("[\\D] should not match a digit")
	}
	if !cc.Matches('x') {
		t.Error("[\\D] should match a non-digit")
	}
}

func TestParseDoubleNegatedPredefinedClass(t *testing.T) {
	// [^\D] double-negates: the outer bracket negates the inner expansion of
	// \D (non-digit), which reduces back to "digit".
	res := parseOK(t, "[^\\D]")
	cc := res.Root.Class
	if !cc.Matches('5') {
		t.Error("[^\\D] should match a digit")
	}
	if cc.Matches('x') {
		t.Error("[^\\D] should not match a non-digit")
	}
}

func TestParsePosixClass(t *testing.T) {
	res := parseOK(t, "[[:digit:]]")
	if res.Root.Kind != ast.KindCharClass {
		t.Fatalf("root.Kind = %v, want CharClass", res.Root.Kind)
	}
	if !res.Root.Class.Matches('7') {
		t.Error("[[:digit:]] should match '7'")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"(",
		")",
		"**",
		"[a-",
		"[",
		"a\\",
		"[[:bogus:]]",
		"(?<name",
		"a{3,2}",
	}
	for _, pattern := range tests {
		if _, err := Parse(pattern, defaultLimits()); err == nil {
			t.Errorf("Parse(%q) = nil error, want error", pattern)
		}
	}
}

func TestParseNestingTooDeep(t *testing.T) {
	pattern := ""
	for i := 0; i < 10; i++ {
		pattern += "("
	}
	pattern += "a"
	for i := 0; i < 10; i++ {
		pattern += ")"
	}
	_, err := Parse(pattern, Limits{MaxNestingDepth: 5, MaxQuantifierBound: 1000})
	if err == nil {
		t.Fatal("expected nesting-too-deep error")
	}
	perr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error is %T, want *Error", err)
	}
	if perr.Code != CodeNestingTooDeep {
		t.Errorf("Code = %v, want CodeNestingTooDeep", perr.Code)
	}
}

func TestParseEscapedMetaCharacters(t *testing.T) {
	res := parseOK(t, "\\.\\*\\?")
	// '.', '*', '?' all escaped -> three concatenated literals.
	var literals []byte
	var walk func(*ast.Node)
	walk = func(n *ast.Node) {
		if n.Kind == ast.KindConcat {
			walk(n.Left)
			walk(n.Right)
			return
		}
		literals = append(literals, n.Literal)
	}
	walk(res.Root)
	want := []byte{'.', '*', '?'}
	if len(literals) != len(want) {
		t.Fatalf("literals = %v, want %v", literals, want)
	}
	for i := range want {
		if literals[i] != want[i] {
			t.Errorf("literals[%d] = %q, want %q", i, literals[i], want[i])
		}
	}
}
