package textindex

import (
	"reflect"
	"testing"
)

func TestTerms(t *testing.T) {
	cases := []struct {
		name string
		text string
		stem bool
		want []string
	}{
		{
			name: "stopwords_and_short_tokens_dropped",
			text: "The cat is on a mat",
			stem: false,
			want: []string{"cat", "mat"},
		},
		{
			name: "numbers_dropped",
			text: "water 100 times in 2024",
			stem: false,
			want: []string{"water", "times"},
		},
		{
			name: "lowercased",
			text: "Fertilizer NPK",
			stem: false,
			want: []string{"fertilizer", "npk"},
		},
		{
			name: "stemming_unifies_forms",
			text: "watering watered",
			stem: true,
			want: []string{"water", "water"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Terms(tc.text, tc.stem)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Terms(%q)=%v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestTokenizeSplitsOnNonWord(t *testing.T) {
	got := Tokenize("soil-moisture: 40% (approx.)")
	want := []string{"soil", "moisture", "40", "approx"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize: got %v, want %v", got, want)
	}
}

func TestIsStopword(t *testing.T) {
	if !IsStopword("the") {
		t.Fatalf("'the' should be a stopword")
	}
	if IsStopword("cactus") {
		t.Fatalf("'cactus' should not be a stopword")
	}
}
