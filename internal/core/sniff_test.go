package core

import (
	"strings"
	"testing"
)

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name string
		text string
		want rune
	}{
		{"comma", "id,name,inventory\n1,Widget,5\n2,Gadget,3\n", ','},
		{"semicolon", "id;name;inventory\n1;Widget;5\n", ';'},
		{"tab", "id\tname\tinventory\n1\tWidget\t5\n", '\t'},
		{"empty text defaults to comma", "", ','},
		{"no delimiter at all", "justoneword\nanother\n", ','},
		{"single column header only", "name\n", ','},
		{"crlf line endings", "id;name\r\n1;Widget\r\n", ';'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffDelimiter(tt.text); got != tt.want {
				t.Errorf("SniffDelimiter(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestSniffDelimiter_ConsistencyBeatsRawCount(t *testing.T) {
	// Commas outnumber semicolons overall, but only the semicolon count is
	// identical on every line.
	text := "a;b,c,d,e\nf;g\nh;i,j\n"
	if got := SniffDelimiter(text); got != ';' {
		t.Errorf("SniffDelimiter() = %q, want ';'", got)
	}
}

func TestSniffDelimiter_FallbackPrefersComma(t *testing.T) {
	// No candidate is consistent across lines; equal raw counts fall back
	// to comma.
	text := "a,b;c\nd,e,f;g;h\n"
	if got := SniffDelimiter(text); got != ',' {
		t.Errorf("SniffDelimiter() = %q, want ','", got)
	}
}

func TestSniffDelimiter_LargeInputTruncated(t *testing.T) {
	// A sample cut mid-row must not let the partial last line break the
	// consistency check.
	var b strings.Builder
	b.WriteString("id;name\n")
	for i := 0; i < 2000; i++ {
		b.WriteString("1;some product name\n")
	}
	if got := SniffDelimiter(b.String()); got != ';' {
		t.Errorf("SniffDelimiter() on truncated sample = %q, want ';'", got)
	}
}
