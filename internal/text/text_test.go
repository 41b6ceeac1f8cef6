package text

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"Will Bitcoin hit $100k?", "will bitcoin hit 100k"},
		{"  FED   Rate\tDecision ", "fed rate decision"},
		{"Mélenchon élu?", "melenchon elu"},
		{"", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokenizeSynonyms(t *testing.T) {
	t.Parallel()
	got := Tokenize("Will the CPI rise by December?")
	want := []string{"inflation", "rise", "december"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestSignificantTokens(t *testing.T) {
	t.Parallel()
	got := SignificantTokens("Will Biden win the 2024 election?")
	want := []string{"biden", "2024", "election"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SignificantTokens = %v, want %v", got, want)
	}
}

func TestNGrams(t *testing.T) {
	t.Parallel()
	tokens := []string{"bitcoin", "price", "december"}

	got := NGrams(tokens, 2)
	want := []string{"bitcoin price", "price december"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NGrams(2) = %v, want %v", got, want)
	}

	if g := NGrams(tokens, 4); g != nil {
		t.Errorf("NGrams(4) on 3 tokens = %v, want nil", g)
	}
	if g := NGrams(tokens, 0); g != nil {
		t.Errorf("NGrams(0) = %v, want nil", g)
	}
}

func TestLevenshteinSimilarity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 0},
		{"abc", "abc", 1},
		{"abc", "", 0},
		{"kitten", "sitten", 1 - 1.0/6.0},
		// Multibyte input: one edit over four runes, not five bytes.
		{"café", "cafe", 0.75},
	}
	for _, tt := range tests {
		if got := LevenshteinSimilarity(tt.a, tt.b); got != tt.want {
			t.Errorf("LevenshteinSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestJaccardSimilarity(t *testing.T) {
	t.Parallel()
	a := []string{"bitcoin", "price", "december"}
	b := []string{"bitcoin", "december", "maximum"}

	got := JaccardSimilarity(a, b)
	if got != 0.5 {
		t.Errorf("JaccardSimilarity = %v, want 0.5", got)
	}

	if got := JaccardSimilarity(nil, nil); got != 0 {
		t.Errorf("JaccardSimilarity(nil, nil) = %v, want 0", got)
	}
}

func TestExtractYears(t *testing.T) {
	t.Parallel()
	got := ExtractYears("Election 2024 rematch of 2020, code 9999 room 1899")
	want := []int{2024, 2020}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractYears = %v, want %v", got, want)
	}
}
