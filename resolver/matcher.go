package resolver

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Matcher decides whether an observed model name refers to a known canonical
// name. Cross-source reconciliation is heuristic; swapping in a stricter or
// learned matcher must not touch the resolver contract.
type Matcher interface {
	Canonicalize(name string) string
	Same(a, b string) bool
}

var (
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonWordRegex    = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	trimSuffixes    = []string{"하이브리드", "hybrid", "ev", "전기차"}
)

// NormalizedMatcher is the default strategy: NFC-normalize, lowercase, strip
// punctuation and trim/powertrain suffixes, collapse whitespace, then compare
// exactly.
type NormalizedMatcher struct{}

func (NormalizedMatcher) Canonicalize(name string) string {
	name = norm.NFC.String(name)
	name = strings.ToLower(strings.TrimSpace(name))
	name = nonWordRegex.ReplaceAllString(name, " ")
	name = multiSpaceRegex.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)

	for _, suffix := range trimSuffixes {
		if trimmed := strings.TrimSuffix(name, " "+suffix); trimmed != name && trimmed != "" {
			name = trimmed
			break
		}
	}

	return name
}

func (m NormalizedMatcher) Same(a, b string) bool {
	return m.Canonicalize(a) == m.Canonicalize(b)
}
