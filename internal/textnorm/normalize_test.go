package textnorm

import (
	"testing"

	"golang.org/x/text/language"
)

func TestExpandAbbreviationsPreservesCase(t *testing.T) {
	n := New(language.English, []Replacement{{From: "mr.", To: "Mister"}})

	got := n.ExpandAbbreviations("MR. Smith met mr. Jones and Mr. Lee")
	want := "MISTER Smith met mister Jones and Mister Lee"
	if got != want {
		t.Errorf("ExpandAbbreviations() = %q, want %q", got, want)
	}
}

func TestDefaultHonorifics(t *testing.T) {
	n := Default()

	tests := []struct {
		in, want string
	}{
		{"Mrs. Hudson", "Misses Hudson"},
		{"ms. Marple", "miss Marple"},
		{"DR. WATSON", "DOCTOR WATSON"},
		{"Hmm. Dr. Who", "Hmm. Doctor Who"},
		{"summer. Dr.", "summer. Doctor"},
		{"mR. odd", "Mister odd"},
	}
	for _, tt := range tests {
		if got := n.ExpandAbbreviations(tt.in); got != tt.want {
			t.Errorf("ExpandAbbreviations(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchCase(t *testing.T) {
	n := Default()
	tests := []struct {
		original, replacement, want string
	}{
		{"MR.", "Mister", "MISTER"},
		{"mr.", "Mister", "mister"},
		{"Mr.", "mister", "Mister"},
		{"mR.", "Mister", "Mister"},
		{"12", "Mister", "Mister"},
	}
	for _, tt := range tests {
		if got := n.MatchCase(tt.original, tt.replacement); got != tt.want {
			t.Errorf("MatchCase(%q, %q) = %q, want %q", tt.original, tt.replacement, got, tt.want)
		}
	}
}

func TestStripDisallowed(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello, world!", "Hello, world!"},
		{"a * b = c", "a  b  c"},
		{"Café № 5 — done", "Café  5  done"},
		{`"Quoted" (paren) [bracket]; x: y?`, `"Quoted" (paren) [bracket]; x: y?`},
		{"email@example.com #tag", "emailexample.com tag"},
	}
	for _, tt := range tests {
		if got := StripDisallowed(tt.in); got != tt.want {
			t.Errorf("StripDisallowed(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	n := Default()
	in := "Chapter One\n* * *\n\nIt’s Mr. Brown’s hat & coat.\n---\n"
	want := "Chapter One\nIt's Mister Brown's hat  coat."
	if got := n.Normalize(in); got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"Hello", true},
		{"   hello    ", true},
		{"0123456789", false},
		{"A real sentence.", false},
	}
	for _, tt := range tests {
		if got := IsEmpty(tt.in); got != tt.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
