package charclass

import "testing"

func TestClassMatches(t *testing.T) {
	c := Class{Ranges: []Range{{'a', 'z'}}}
	if !c.Matches('m') {
		t.Error("expected 'm' to match [a-z]")
	}
	if c.Matches('M') {
		t.Error("expected 'M' not to match [a-z]")
	}
}

func TestClassMatchesNegated(t *testing.T) {
	c := Class{Ranges: []Range{{'a', 'z'}}, Negated: true}
	if c.Matches('m') {
		t.Error("expected 'm' not to match [^a-z]")
	}
	if !c.Matches('M') {
		t.Error("expected 'M' to match [^a-z]")
	}
}

func TestExpandNonNegatedIsCopy(t *testing.T) {
	c := Digit(false)
	expanded := c.Expand()
	if len(expanded) != len(c.Ranges) {
		t.Fatalf("Expand() len = %d, want %d", len(expanded), len(c.Ranges))
	}
	expanded[0].Lo = 'z' // mutate the copy
	if c.Ranges[0].Lo == 'z' {
		t.Error("Expand() aliased the original Ranges slice")
	}
}

func TestExpandNegatedComplements(t *testing.T) {
	d := Digit(true) // \D
	expanded := d.Expand()
	flat := Class{Ranges: expanded}
	for b := 0; b < 256; b++ {
		want := !(byte(b) >= '0' && byte(b) <= '9')
		if got := flat.Matches(byte(b)); got != want {
			t.Fatalf("Expand(\\D).Matches(%d) = %v, want %v", b, got, want)
		}
	}
}

func TestExpandDoubleNegationReducesToOriginal(t *testing.T) {
	// [^\D] : the bracket negates the expansion of \D (non-digit), which
	// should land back on exactly "digit".
	d := Digit(true)
	inner := Class{Ranges: d.Expand(), Negated: true} // bracket negation applied on top
	for b := 0; b < 256; b++ {
		want := byte(b) >= '0' && byte(b) <= '9'
		if got := inner.Matches(byte(b)); got != want {
			t.Fatalf("[^\\D].Matches(%d) = %v, want %v", b, got, want)
		}
	}
}

func TestPOSIXLookup(t *testing.T) {
	c, ok := POSIX("alpha")
	if !ok {
		t.Fatal("POSIX(\"alpha\") not found")
	}
	if !c.Matches('Q') || c.Matches('5') {
		t.Error("POSIX alpha class matched incorrectly")
	}
	if _, ok := POSIX("bogus"); ok {
		t.Error("POSIX(\"bogus\") should not be found")
	}
}

func TestFoldClassAddsOppositeCase(t *testing.T) {
	c := Class{Ranges: []Range{{'a', 'a'}}}
	folded := FoldClass(c)
	if !folded.Matches('a') || !folded.Matches('A') {
		t.Error("FoldClass should match both 'a' and 'A'")
	}
	if folded.Matches('b') {
		t.Error("FoldClass should not match unrelated bytes")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	c := Digit(false)
	clone := c.Clone()
	clone.Ranges[0].Lo = 'z'
	if c.Ranges[0].Lo == 'z' {
		t.Error("Clone() aliased the original Ranges slice")
	}
}
