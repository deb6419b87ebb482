package simd

import (
	"bytes"
	"testing"
)

// TestMemchrWord exercises the scanner dispatch.go's findAt reaches for
// FirstClassKind == FirstClassWord, e.g. a pattern like \w+\d{2}.
func TestMemchrWord(t *testing.T) {
	tests := []struct {
		name     string
		haystack string
		want     int
	}{
		{"empty", "", -1},
		{"first byte letter", "hello", 0},
		{"first byte digit", "123abc", 0},
		{"first byte underscore", "_var", 0},
		{"space then word", " hello", 1},
		{"multiple spaces", "   abc", 3},
		{"no word chars", "   !@#$%", -1},
		{"word at end", "!!!a", 3},
		{"mixed", "!@# abc123", 4},
		{"all ranges", "A Z a z 0 9 _", 0},
		{"upper case only", "HELLO", 0},
		{"lower case only", "world", 0},
		{"digits only", "12345", 0},
		{"special then upper", "...ABC", 3},
		{"special then lower", "...abc", 3},
		{"special then digit", "...123", 3},
		{"special then underscore", "..._", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MemchrWord([]byte(tt.haystack))
			if got != tt.want {
				t.Errorf("MemchrWord(%q) = %d, want %d", tt.haystack, got, tt.want)
			}
		})
	}
}

func TestMemchrWord_LargeInput(t *testing.T) {
	// Test with input larger than 32 bytes to exercise the AVX2 path.
	tests := []struct {
		name   string
		prefix string // non-word chars
		word   string // word char(s)
		want   int
	}{
		{"word at position 0", "", "hello", 0},
		{"word at position 32", string(bytes.Repeat([]byte{' '}, 32)), "hello", 32},
		{"word at position 64", string(bytes.Repeat([]byte{' '}, 64)), "x", 64},
		{"word at position 100", string(bytes.Repeat([]byte{'-'}, 100)), "A", 100},
		{"no word in 1000 bytes", string(bytes.Repeat([]byte{'!'}, 1000)), "", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			haystack := []byte(tt.prefix + tt.word)
			got := MemchrWord(haystack)
			if got != tt.want {
				t.Errorf("MemchrWord() = %d, want %d (len=%d)", got, tt.want, len(haystack))
			}
		})
	}
}

func TestMemchrWord_AllWordChars(t *testing.T) {
	wordChars := "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_"

	for _, c := range []byte(wordChars) {
		haystack := []byte{' ', ' ', ' ', c}
		got := MemchrWord(haystack)
		if got != 3 {
			t.Errorf("MemchrWord with char %q (0x%02x) = %d, want 3", c, c, got)
		}
	}
}

// TestMemchrInTable exercises the path dispatch.go takes for a leading
// character class that isn't exactly \d or \w (FirstClassTable set,
// FirstClassKind == FirstClassGeneric), e.g. [aeiou]+.
func TestMemchrInTable(t *testing.T) {
	var vowels [256]bool
	for _, c := range []byte("aeiouAEIOU") {
		vowels[c] = true
	}

	tests := []struct {
		name     string
		haystack string
		want     int
	}{
		{"empty", "", -1},
		{"first is vowel", "apple", 0},
		{"vowel in middle", "xyz_a_xyz", 4},
		{"no vowels", "rhythm", -1},
		{"upper vowel", "XYZ_A", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MemchrInTable([]byte(tt.haystack), &vowels)
			if got != tt.want {
				t.Errorf("MemchrInTable(%q) = %d, want %d", tt.haystack, got, tt.want)
			}
		})
	}
}

func BenchmarkMemchrWord(b *testing.B) {
	sizes := []int{32, 64, 256, 1024, 4096}

	for _, size := range sizes {
		haystack := bytes.Repeat([]byte{' '}, size-1)
		haystack = append(haystack, 'a')

		b.Run(formatSize(size)+"_end", func(b *testing.B) {
			b.SetBytes(int64(size))
			for i := 0; i < b.N; i++ {
				MemchrWord(haystack)
			}
		})
	}
}

func BenchmarkMemchrWord_vsGeneric(b *testing.B) {
	size := 4096
	haystack := bytes.Repeat([]byte{' '}, size-1)
	haystack = append(haystack, 'a')

	b.Run("SIMD", func(b *testing.B) {
		b.SetBytes(int64(size))
		for i := 0; i < b.N; i++ {
			MemchrWord(haystack)
		}
	})

	b.Run("Generic", func(b *testing.B) {
		b.SetBytes(int64(size))
		for i := 0; i < b.N; i++ {
			memchrWordGeneric(haystack)
		}
	})
}

func formatSize(n int) string {
	if n >= 1024 {
		return string(rune('0'+n/1024)) + "KB"
	}
	return string(rune('0'+n/100)) + "00B"
}
