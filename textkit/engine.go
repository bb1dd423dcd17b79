// Package textkit is the blog text analytics pipeline: HTML cleaning, Korean
// noun extraction, keyword frequency, and deterministic top-K selection. It
// emits frequency tables; rendering a wordcloud image from them is a
// downstream concern.
package textkit

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// DefaultTopK is the number of keywords kept per article unless configured
// otherwise.
const DefaultTopK = 30

type Engine struct {
	topK int
}

func NewEngine(topK int) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Engine{topK: topK}
}

// Analysis is the full result for one article. Every stage is total: a
// returned Analysis is complete, and a failed stage fails the whole article.
type Analysis struct {
	CleanedText string
	Nouns       []string
	Frequencies []WordCount
	Keywords    []WordCount
}

// Analyze runs the whole pipeline over an article's raw HTML. An article
// with no extractable body yields an Analysis with empty text and no
// keywords, which is valid. Re-analyzing the same HTML yields the same
// result.
func (e *Engine) Analyze(articleID int64, rawHTML, articleURL string) (*Analysis, error) {
	cleaned, err := Clean(articleID, rawHTML, articleURL)
	if err != nil {
		return nil, err
	}

	nouns := Nouns(cleaned)
	freqs := Frequencies(nouns)

	return &Analysis{
		CleanedText: cleaned,
		Nouns:       nouns,
		Frequencies: freqs,
		Keywords:    TopK(freqs, e.topK),
	}, nil
}

// WordcloudCSV renders the keyword table as the CSV artifact the external
// wordcloud renderer consumes.
func (a *Analysis) WordcloudCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"word", "count"}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, kw := range a.Keywords {
		if err := w.Write([]string{kw.Word, strconv.Itoa(kw.Count)}); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
