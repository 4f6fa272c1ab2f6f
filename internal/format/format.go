// Package format applies the deterministic display transforms to raw model
// output before it is stored and rendered.
//
// The rules run in a fixed order so later rules cannot corrupt earlier
// substitutions: self-identification stripping, bullet conversion, explicit
// emphasis conversion, then clinical-keyword emphasis. The bullet and
// keyword transforms are intentionally opinionated product behaviour —
// reproduced exactly, not configurable.
//
// Output is display markup only. It is never executed as code; the rendering
// layer escapes everything except the <strong> tags this package injects.
package format

import (
	"regexp"
	"strings"
)

// keywords is the fixed clinical vocabulary wrapped in strong emphasis
// wherever it occurs as a whole word. Multi-word entries precede their
// single-word substrings so "related symptoms" is matched before "symptoms".
var keywords = []string{
	"medical history",
	"chief complaint",
	"related symptoms",
	"possible diagnoses",
	"care plan",
	"age",
	"gender",
	"duration",
	"severity",
	"symptoms",
}

var (
	// boldRe matches a doubled emphasis marker span. Non-greedy so adjacent
	// spans on one line stay separate.
	boldRe = regexp.MustCompile(`\*\*(.*?)\*\*`)

	// keywordRe matches the clinical vocabulary as whole words, case-insensitively.
	keywordRe = regexp.MustCompile(`(?i)\b(` + strings.Join(keywords, "|") + `)\b`)

	// strongTagRe matches the tags this package injects, for StripMarkup.
	strongTagRe = regexp.MustCompile(`</?strong>`)

	// bulletRe matches the bullet markers rule 2 injects, for StripMarkup.
	bulletRe = regexp.MustCompile(`(?m)^- `)
)

// Formatter converts raw model output into display text. It is pure,
// deterministic, and safe for concurrent use.
type Formatter struct {
	selfPrefixRe *regexp.Regexp
}

// New returns a Formatter that strips a leading self-identification echo of
// the given assistant name ("Name:" or "Name,").
func New(assistantName string) *Formatter {
	return &Formatter{
		selfPrefixRe: regexp.MustCompile(`^\s*` + regexp.QuoteMeta(assistantName) + `[:,]\s*`),
	}
}

// Format applies the display transforms, in order:
//
//  1. strip a leading "<name>:" or "<name>," self-identification prefix;
//  2. convert every double newline into a newline plus bullet marker;
//  3. convert every **text** span into <strong>text</strong>;
//  4. wrap the clinical keyword vocabulary in <strong> wherever it occurs as
//     a whole word (case-insensitive, original casing preserved). Keywords
//     already inside a rule-3 span are wrapped again; the double layer is
//     accepted display redundancy, not an error.
func (f *Formatter) Format(raw string) string {
	out := f.selfPrefixRe.ReplaceAllString(raw, "")
	out = strings.ReplaceAll(out, "\n\n", "\n- ")
	out = boldRe.ReplaceAllString(out, "<strong>$1</strong>")
	out = keywordRe.ReplaceAllString(out, "<strong>$1</strong>")
	return out
}

// StripMarkup removes everything Format injects — <strong> tags, leftover
// doubled emphasis markers, and bullet markers — yielding plain text suitable
// for speech synthesis. The speech engine must never vocalize structural
// symbols.
func StripMarkup(display string) string {
	out := strongTagRe.ReplaceAllString(display, "")
	out = strings.ReplaceAll(out, "**", "")
	out = bulletRe.ReplaceAllString(out, "")
	return out
}
