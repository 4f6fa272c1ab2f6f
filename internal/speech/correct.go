package speech

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.80
	defaultFuzzyThreshold    = 0.85
)

// clinicalVocabulary is the default term list the corrector aligns recognized
// speech against. Consumer speech recognition mangles medical terminology far
// more often than everyday words ("my grain" for "migraine"), and the
// downstream prompt relies on these terms arriving intact.
var clinicalVocabulary = []string{
	"migraine",
	"hypertension",
	"ibuprofen",
	"paracetamol",
	"antibiotics",
	"nausea",
	"diarrhea",
	"asthma",
	"allergy",
	"dizziness",
	"fatigue",
	"chief complaint",
	"blood pressure",
	"medical history",
}

// CorrectorOption is a functional option for configuring a [Corrector].
type CorrectorOption func(*Corrector)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched term to be accepted. Default: 0.80.
func WithPhoneticThreshold(threshold float64) CorrectorOption {
	return func(c *Corrector) { c.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found and the corrector falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) CorrectorOption {
	return func(c *Corrector) { c.fuzzyThreshold = threshold }
}

// WithVocabulary replaces the default clinical term list.
func WithVocabulary(terms []string) CorrectorOption {
	return func(c *Corrector) { c.terms = terms }
}

// WithExtraVocabulary appends terms to the current list. Use it to extend the
// built-in clinical vocabulary from configuration.
func WithExtraVocabulary(terms []string) CorrectorOption {
	return func(c *Corrector) { c.terms = append(c.terms, terms...) }
}

// Corrector aligns recognized utterances against a clinical vocabulary using
// Double Metaphone phonetic codes filtered through Jaro-Winkler similarity.
// A term is substituted only when it is both phonetically plausible and
// string-similar, so ordinary words pass through unchanged.
//
// Corrector is read-only after construction and safe for concurrent use.
type Corrector struct {
	terms             []string
	phoneticThreshold float64
	fuzzyThreshold    float64
	maxTermWords      int
}

// NewCorrector returns a Corrector over the default clinical vocabulary.
func NewCorrector(opts ...CorrectorOption) *Corrector {
	c := &Corrector{
		terms:             clinicalVocabulary,
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	for _, t := range c.terms {
		if n := len(strings.Fields(t)); n > c.maxTermWords {
			c.maxTermWords = n
		}
	}
	return c
}

// Correct returns text with misrecognized vocabulary terms replaced. At each
// token position n-gram windows are tried from the longest known term down to
// a single word, so multi-word terms ("blood pressure") win over partial
// single-word matches. Unmatched tokens pass through verbatim, casing and all.
func (c *Corrector) Correct(text string) string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 || len(c.terms) == 0 {
		return text
	}

	var output []string
	i := 0
	for i < len(tokens) {
		maxN := c.maxTermWords
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		for n := maxN; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			term, ok := c.match(window)
			if !ok {
				continue
			}
			output = append(output, strings.Fields(term)...)
			i += n
			matched = true
			break
		}
		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}
	return strings.Join(output, " ")
}

// match tests a single window against the vocabulary and returns the best
// term. Exact (case-insensitive) hits are returned as-is so already-correct
// terms are never rewritten.
func (c *Corrector) match(window string) (string, bool) {
	windowLower := strings.ToLower(window)
	windowTokens := strings.Fields(windowLower)
	windowCodes := codesForTokens(windowTokens)

	var bestTerm string
	var bestScore float64
	var bestPhonetic bool

	for _, term := range c.terms {
		termLower := strings.ToLower(term)
		if windowLower == termLower {
			return term, true
		}
		termTokens := strings.Fields(termLower)
		// A window may span more tokens than the term (one spoken term
		// recognized as two words) but never fewer, otherwise a shared
		// token like "blood" would pull in the whole multi-word term.
		if len(termTokens) > len(windowTokens) {
			continue
		}
		phonetic := codesOverlap(windowCodes, codesForTokens(termTokens))
		score := bestJWScore(windowTokens, termTokens, windowLower, termLower)

		if phonetic {
			if score >= c.phoneticThreshold && (!bestPhonetic || score > bestScore) {
				bestTerm, bestScore, bestPhonetic = term, score, true
			}
		} else if !bestPhonetic && score >= c.fuzzyThreshold && score > bestScore {
			bestTerm, bestScore = term, score
		}
	}
	return bestTerm, bestTerm != ""
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens, excluding empty codes.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore takes the higher Jaro-Winkler similarity of the full strings
// and the space-stripped strings. The space-stripped pass catches a single
// term recognized as two words ("my grain" for "migraine").
func bestJWScore(inputTokens, termTokens []string, inputFull, termFull string) float64 {
	score := matchr.JaroWinkler(inputFull, termFull, false)

	if len(inputTokens) > 1 || len(termTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(inputTokens, ""), strings.Join(termTokens, ""), false); s > score {
			score = s
		}
	}
	return score
}
