package textkit

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"carpulse/models"
)

var whitespaceRegex = regexp.MustCompile(`[\s\x{00a0}]+`)

// boilerplate selectors stripped before text extraction
var strippedSelectors = []string{
	"script", "style", "noscript", "iframe", "svg",
	"nav", "header", "footer", "aside", "form", "button",
	".ad", ".ads", ".advertisement", ".banner", ".share", ".comment",
}

// Clean strips markup and boilerplate from raw article HTML and returns plain
// text. An empty result is a valid outcome (no extractable body). Binary or
// unparseable input fails with an AnalysisError.
func Clean(articleID int64, rawHTML, articleURL string) (string, error) {
	if !utf8.ValidString(rawHTML) || strings.ContainsRune(rawHTML, 0) {
		return "", &models.AnalysisError{ArticleID: articleID, Reason: "binary or non-UTF-8 input"}
	}

	trimmed := strings.TrimSpace(rawHTML)
	if trimmed == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return "", &models.AnalysisError{ArticleID: articleID, Reason: "unparseable html: " + err.Error()}
	}

	for _, sel := range strippedSelectors {
		doc.Find(sel).Remove()
	}

	body := doc.Find("body")
	text := body.Text()
	if body.Length() == 0 {
		text = doc.Text()
	}
	text = collapseWhitespace(text)

	// Selector stripping can gut pages whose body is buried in widget markup;
	// fall back to a readability extraction. Readability runs on the stripped
	// document, not the original, so removed boilerplate cannot resurface
	// and a page with no real body stays empty.
	if utf8.RuneCountInString(text) < 20 {
		if strippedHTML, err := doc.Html(); err == nil {
			if fallback := readabilityText(strippedHTML, articleURL); fallback != "" {
				return fallback, nil
			}
		}
	}

	return text, nil
}

func readabilityText(rawHTML, articleURL string) string {
	parsedURL, err := url.Parse(articleURL)
	if err != nil {
		parsedURL = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		return ""
	}
	return collapseWhitespace(article.TextContent)
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}
