// Package analysis turns note text and search queries into index terms.
//
// The same pipeline runs at index time and at query time:
//   - Unicode NFKD decomposition with combining marks removed ("café" -> "cafe")
//   - lower-casing
//   - splitting on anything that is not a letter or digit
//   - dropping English stop words and single-rune tokens
//   - Snowball English stemming ("notes", "noting" -> "note")
package analysis

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TermFreq counts occurrences of one term per weighted field.
type TermFreq struct {
	Title   int
	Content int
}

// Tokenize returns the index terms of text in order of appearance, duplicates included.
func Tokenize(text string) []string {
	folded := fold(text)
	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, stem(w))
	}
	return out
}

// QueryTerms returns the distinct terms of a search query.
func QueryTerms(query string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range Tokenize(query) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Analyze builds the per-term frequencies for a note's title and content.
func Analyze(title, content string) map[string]TermFreq {
	terms := make(map[string]TermFreq)
	for _, t := range Tokenize(title) {
		tf := terms[t]
		tf.Title++
		terms[t] = tf
	}
	for _, t := range Tokenize(content) {
		tf := terms[t]
		tf.Content++
		terms[t] = tf
	}
	return terms
}

func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func stem(word string) string {
	// Non-Latin words are kept verbatim; the English stemmer only understands ASCII.
	for _, r := range word {
		if r > unicode.MaxASCII {
			return word
		}
	}
	s, err := snowball.Stem(word, "english", false)
	if err != nil || s == "" {
		return word
	}
	return s
}

var stopWords = func() map[string]struct{} {
	words := []string{
		"an", "and", "are", "as", "at", "be", "but", "by", "for", "from", "has", "have",
		"he", "her", "his", "if", "in", "into", "is", "it", "its", "my", "no", "not", "of",
		"on", "or", "our", "she", "so", "such", "that", "the", "their", "then", "there",
		"these", "they", "this", "to", "was", "we", "were", "will", "with", "you", "your",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
