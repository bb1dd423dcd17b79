package textkit

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Korean blog text does not reliably whitespace-delimit words, and nouns
// arrive glued to case particles (조사). Nouns segments on script boundaries
// after NFC normalization, then strips a trailing particle from each Hangul
// token. It is a deliberately dictionary-light segmentation: good enough for
// keyword frequency, swappable if a full morphological analyzer is adopted.

// particles ordered longest-first so compound forms win over their tails.
var particles = []string{
	"에서는", "으로는", "께서는", "에게서", "한테서", "으로써", "으로서", "이라고",
	"라고", "에서", "에게", "한테", "께서", "으로", "부터", "까지", "보다",
	"처럼", "마다", "조차", "마저", "밖에", "이나", "라도", "이라",
	"은", "는", "이", "가", "을", "를", "과", "와", "의", "도", "만", "에", "로", "나",
}

// standalone function words that carry no keyword value
var stopwords = map[string]struct{}{
	"것": {}, "수": {}, "등": {}, "및": {}, "그": {}, "이": {}, "저": {},
	"더": {}, "때": {}, "중": {}, "좀": {}, "듯": {}, "또한": {}, "그리고": {},
	"하지만": {}, "그래서": {}, "정말": {}, "진짜": {},
	"년": {}, "월": {}, "일": {},
}

// Nouns extracts an ordered noun-token sequence from cleaned text.
func Nouns(text string) []string {
	text = norm.NFC.String(text)

	var tokens []string
	for _, run := range segment(text) {
		// stopwords match the raw run too: 하지만 must not survive as 하지
		// after the 만 suffix comes off
		if _, stop := stopwords[run]; stop {
			continue
		}
		tok := refine(run)
		if tok == "" {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

type scriptClass int

const (
	classOther scriptClass = iota
	classHangul
	classLatin
	classDigit
)

func classOf(r rune) scriptClass {
	switch {
	case unicode.Is(unicode.Hangul, r):
		return classHangul
	case unicode.IsLetter(r):
		return classLatin
	case unicode.IsDigit(r):
		return classDigit
	default:
		return classOther
	}
}

// segment splits text into maximal same-script runs, dropping everything
// that is not Hangul or letters.
func segment(text string) []string {
	var runs []string
	var cur []rune
	curClass := classOther

	flush := func() {
		if len(cur) > 0 {
			runs = append(runs, string(cur))
			cur = cur[:0]
		}
	}

	for _, r := range text {
		c := classOf(r)
		if c == classOther || c == classDigit {
			flush()
			curClass = classOther
			continue
		}
		if c != curClass {
			flush()
			curClass = c
		}
		cur = append(cur, r)
	}
	flush()

	return runs
}

// refine lowercases Latin tokens and strips one trailing particle from
// Hangul tokens. Single-rune particles only come off when at least two runes
// remain, which keeps real nouns like 평가 intact.
func refine(token string) string {
	runes := []rune(token)
	if len(runes) == 0 {
		return ""
	}

	if classOf(runes[0]) == classLatin {
		if len(runes) < 2 {
			return ""
		}
		return strings.ToLower(token)
	}

	for _, p := range particles {
		if !strings.HasSuffix(token, p) {
			continue
		}
		rest := []rune(strings.TrimSuffix(token, p))
		minRest := 1
		if len([]rune(p)) == 1 {
			minRest = 2
		}
		if len(rest) >= minRest {
			return string(rest)
		}
	}

	return token
}
