// Package contentfilter is a cheap heuristic classifier for user text.
//
// It is not a moderation system: it catches a fixed word list, obvious
// spam repetition and a handful of scam phrases. Anything smarter belongs
// to an external service.
package contentfilter

import (
	"regexp"
	"strings"
	"unicode"
)

type Verdict string

const (
	Clean         Verdict = "clean"
	NeedsReview   Verdict = "needs_review"
	Objectionable Verdict = "objectionable"
)

var blockedWords = map[string]struct{}{
	// profanity
	"fuck": {}, "shit": {}, "damn": {}, "ass": {}, "bitch": {}, "bastard": {}, "hell": {},
	// hate speech indicators
	"hate": {}, "kill": {}, "die": {}, "murder": {},
	// masked spellings, matched against the vowel-masked form of each word
	"f*ck": {}, "f**k": {}, "sh*t": {}, "s***": {},
}

var reviewPhrases = []string{
	"meet me",
	"send money",
	"click here",
	"free money",
	"limited time",
	"act now",
}

var linkPattern = regexp.MustCompile(`https?://\S+`)

const (
	maxPatternMatches = 3
	maxLinks          = 3
	maxCapsRatio      = 0.7
)

// Filter classifies text. The zero value is ready to use.
type Filter struct{}

func New() *Filter { return &Filter{} }

// Classify returns the strongest verdict for content. Objectionable wins
// over NeedsReview.
func (f *Filter) Classify(content string) Verdict {
	switch {
	case f.IsObjectionable(content):
		return Objectionable
	case f.NeedsReview(content):
		return NeedsReview
	default:
		return Clean
	}
}

// IsObjectionable reports whether content hits the word list or repeats
// itself like spam.
func (f *Filter) IsObjectionable(content string) bool {
	normalized := strings.ToLower(strings.TrimSpace(content))
	if normalized == "" {
		return false
	}

	for _, word := range strings.Fields(normalized) {
		clean := wordChars(word)
		if isBlocked(clean) || isBlocked(maskVowels(clean)) || isBlocked(trimPunct(word)) {
			return true
		}
	}

	for _, count := range []int{
		countRuns(normalized, 5, nil),
		countRuns(normalized, 4, isASCIILetter),
		countTripledWords(normalized),
		countRuns(normalized, 11, nil),
	} {
		if count > maxPatternMatches {
			return true
		}
	}
	return false
}

// NeedsReview flags scam phrasing, link spam and shouting.
func (f *Filter) NeedsReview(content string) bool {
	if content == "" {
		return false
	}

	lower := strings.ToLower(content)
	for _, phrase := range reviewPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	if len(linkPattern.FindAllString(content, -1)) > maxLinks {
		return true
	}

	var letters, caps int
	for _, r := range content {
		if !isASCIILetter(r) {
			continue
		}
		letters++
		if r >= 'A' && r <= 'Z' {
			caps++
		}
	}
	return letters > 0 && float64(caps)/float64(letters) > maxCapsRatio
}

// Mask replaces every blocked word with up to four asterisks.
// Only whole words are touched, so "class" or "shell" survive.
func (f *Filter) Mask(content string) string {
	var b strings.Builder
	b.Grow(len(content))

	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		word := content[start:end]
		if isBlocked(strings.ToLower(word)) {
			b.WriteString(strings.Repeat("*", min(len(word), 4)))
		} else {
			b.WriteString(word)
		}
		start = -1
	}

	for i, r := range content {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
		b.WriteRune(r)
	}
	flush(len(content))
	return b.String()
}

// Sanitize collapses whitespace and masks blocked words when the text is
// objectionable. modified reports whether the result differs from the input.
func (f *Filter) Sanitize(content string) (out string, modified bool) {
	out = strings.Join(strings.Fields(content), " ")
	if f.IsObjectionable(out) {
		return f.Mask(out), true
	}
	return out, out != content
}

func isBlocked(word string) bool {
	if word == "" {
		return false
	}
	_, ok := blockedWords[word]
	return ok
}

// wordChars keeps [A-Za-z0-9_].
func wordChars(s string) string {
	return strings.Map(func(r rune) rune {
		if isWordRune(r) {
			return r
		}
		return -1
	}, s)
}

// trimPunct strips surrounding punctuation but keeps inner asterisks.
func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool { return !isWordRune(r) && r != '*' })
}

func maskVowels(s string) string {
	return strings.Map(func(r rune) rune {
		switch unicode.ToLower(r) {
		case 'a', 'e', 'i', 'o', 'u':
			return '*'
		}
		return r
	}, s)
}

func isWordRune(r rune) bool {
	return isASCIILetter(r) || (r >= '0' && r <= '9') || r == '_'
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// countRuns counts maximal runs of at least minLen identical runes.
// When class is set only runes it accepts can form a run.
func countRuns(s string, minLen int, class func(rune) bool) int {
	var (
		count int
		prev  rune = -1
		run   int
	)
	closeRun := func() {
		if run >= minLen {
			count++
		}
	}
	for _, r := range s {
		if class != nil && !class(r) {
			closeRun()
			prev, run = -1, 0
			continue
		}
		if r == prev {
			run++
			continue
		}
		closeRun()
		prev, run = r, 1
	}
	closeRun()
	return count
}

// countTripledWords counts non-overlapping "w w w" sequences.
func countTripledWords(s string) int {
	words := strings.Fields(s)
	count := 0
	for i := 0; i+2 < len(words); {
		w := words[i]
		if wordChars(w) == w && w != "" && words[i+1] == w && words[i+2] == w {
			count++
			i += 3
			continue
		}
		i++
	}
	return count
}
