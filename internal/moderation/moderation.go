// Package moderation screens community drop text before it is published.
// Matching runs on a normalized form of the text so common obfuscations
// (leetspeak, look-alike letters, stretched words) do not slip through.
package moderation

import (
	"regexp"
	"strings"
	"unicode"
)

// Category of flagged content.
type Category string

const (
	CategoryThreat   Category = "threat"
	CategorySelfHarm Category = "self_harm"
)

// Result is the outcome of Check.
type Result struct {
	Threat   bool
	SelfHarm bool
	Matched  []string
}

// Flagged reports whether anything matched.
func (r Result) Flagged() bool { return r.Threat || r.SelfHarm }

// Category returns the most urgent matching category. Self-harm wins so the
// caller can surface support resources instead of a plain rejection.
func (r Result) Category() Category {
	if r.SelfHarm {
		return CategorySelfHarm
	}
	if r.Threat {
		return CategoryThreat
	}
	return ""
}

// Words are stored already normalized: repeated letters collapsed, so
// "kill" is listed as "kil".
var threatWords = []string{
	"kil", "murder", "asault", "atack", "stab", "strangle",
	"threaten", "revenge", "slaughter", "masacre",
}

var selfHarmPhrases = []string{
	"suicide", "kil myself", "end my life", "take my life", "end it al",
	"self harm", "cut myself", "hurt myself", "harm myself", "want to die",
	"beter of dead", "not worth living", "unalive",
}

var lookalikes = strings.NewReplacer(
	"@", "a", "4", "a", "3", "e", "!", "i", "1", "i", "0", "o",
	"$", "s", "5", "s", "7", "t", "+", "t",
	"а", "a", "е", "e", "і", "i", "о", "o", "р", "p",
)

var spaces = regexp.MustCompile(`\s+`)

// Normalize lowercases text, maps look-alike characters to letters, turns
// everything else into spaces and collapses runs of the same letter.
func Normalize(text string) string {
	s := lookalikes.Replace(strings.ToLower(text))

	var b strings.Builder
	var last rune
	for _, r := range s {
		if !unicode.IsLetter(r) {
			r = ' '
		}
		if r != ' ' && r == last {
			continue
		}
		b.WriteRune(r)
		last = r
	}
	return strings.TrimSpace(spaces.ReplaceAllString(b.String(), " "))
}

// Check screens text. Single words must match a whole word ("skill" does not
// match "kill"); phrases match anywhere.
func Check(text string) Result {
	cleaned := Normalize(text)
	words := make(map[string]struct{})
	for _, w := range strings.Fields(cleaned) {
		words[w] = struct{}{}
	}
	padded := " " + cleaned + " "

	var res Result
	for _, w := range threatWords {
		if _, ok := words[w]; ok {
			res.Threat = true
			res.Matched = append(res.Matched, w)
		}
	}
	for _, p := range selfHarmPhrases {
		if strings.Contains(padded, " "+p+" ") {
			res.SelfHarm = true
			res.Matched = append(res.Matched, p)
		}
	}
	return res
}
