package textindex

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball"
)

var wordRe = regexp.MustCompile(`\w+`)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "in": true,
	"on": true, "at": true, "of": true, "for": true, "to": true,
	"is": true, "are": true, "as": true, "by": true, "with": true,
	"from": true, "this": true, "that": true, "it": true, "be": true,
	"was": true, "were": true, "which": true, "how": true, "what": true,
	"where": true, "when": true, "who": true, "can": true, "will": true,
	"not": true, "but": true, "has": true, "have": true, "had": true,
	"do": true, "does": true, "did": true,
}

// Tokenize splits text into lower-cased word-character runs.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// Normalize filters tokens (length >= 3, not a stop word, not purely numeric)
// and stems the survivors. Both the index builder and the TF-IDF embedder run
// queries and documents through this same pipeline.
func Normalize(tokens []string, stem bool) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if len(t) < 3 {
			continue
		}
		if stopwords[t] {
			continue
		}
		if isDigits(t) {
			continue
		}
		if stem {
			if stemmed, err := snowball.Stem(t, "english", false); err == nil && stemmed != "" {
				t = stemmed
			}
		}
		out = append(out, t)
	}
	return out
}

// Terms is the tokenize+normalize composition used everywhere.
func Terms(text string, stem bool) []string {
	return Normalize(Tokenize(text), stem)
}

func IsStopword(t string) bool {
	return stopwords[t]
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
