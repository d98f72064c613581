package morsecode

import (
	"testing"
)

func TestPattern(t *testing.T) {
	tests := []struct {
		name   string
		r      rune
		want   string
		wantOK bool
	}{
		{"upper letter", 'A', ".-", true},
		{"lower letter", 'q', "--.-", true},
		{"digit", '0', "-----", true},
		{"prosign equals", '=', "-...-", true},
		{"space has no pattern", ' ', "", false},
		{"unknown", '#', "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Pattern(tt.r)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Pattern(%q) = %q, %v, want %q, %v", tt.r, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"SOS", "... --- ..."},
		{"cq dx", "-.-. --.- / -.. -..-"},
		{"a#b", ".- -..."},
	}

	for _, tt := range tests {
		got := Encode(tt.text)
		if got != tt.want {
			t.Errorf("Encode(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}

	if got := Decode("-.-. --.- / -.. -..-"); got != "CQ DX" {
		t.Errorf("Decode() = %q, want %q", got, "CQ DX")
	}
}

func TestIsValidInput(t *testing.T) {
	for _, r := range "abcXYZ059.,?/=" {
		if !IsValidInput(r) {
			t.Errorf("IsValidInput(%q) = false, want true", r)
		}
	}
	for _, r := range "#%^* \t\n" {
		if IsValidInput(r) {
			t.Errorf("IsValidInput(%q) = true, want false", r)
		}
	}
}

func TestKochAlphabet(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{0, "KM"},
		{2, "KM"},
		{5, "KMURE"},
		{1000, KochOrder},
	}

	for _, tt := range tests {
		if got := string(KochAlphabet(tt.level)); got != tt.want {
			t.Errorf("KochAlphabet(%d) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := string(Normalize("aAb#c c")); got != "ABC " {
		t.Errorf("Normalize() = %q, want %q", got, "ABC ")
	}
}

func TestKochOrderIsEncodable(t *testing.T) {
	for _, r := range KochOrder {
		if _, ok := Pattern(r); !ok {
			t.Errorf("Koch character %q has no pattern", r)
		}
	}
}
