package models

import (
	"encoding/json"
	"time"
)

// BlogArticle is one fetched article linked to a model. url is unique;
// re-collection of a known URL bumps collected_at instead of duplicating.
type BlogArticle struct {
	ID          int64      `json:"id" db:"id"`
	ModelID     int64      `json:"model_id" db:"model_id"`
	Source      string     `json:"source" db:"source"`
	Title       string     `json:"title" db:"title"`
	URL         string     `json:"url" db:"url"`
	PostedAt    *time.Time `json:"posted_at" db:"posted_at"`
	CollectedAt time.Time  `json:"collected_at" db:"collected_at"`
}

// BlogAnalysis is the 1:1 analysis result for an article: cleaned text, noun
// list, top-K keyword table, and the key of the exported wordcloud frequency
// artifact (rendering is downstream). Replaced wholesale on re-analysis.
type BlogAnalysis struct {
	ID            int64           `json:"id" db:"id"`
	BlogArticleID int64           `json:"blog_article_id" db:"blog_article_id"`
	CleanedText   string          `json:"cleaned_text" db:"cleaned_text"`
	Nouns         json.RawMessage `json:"nouns" db:"nouns"`
	TopKeywords   json.RawMessage `json:"top_keywords" db:"top_keywords"`
	WordcloudKey  *string         `json:"wordcloud_key" db:"wordcloud_key"`
	AnalyzedAt    time.Time       `json:"analyzed_at" db:"analyzed_at"`
}

// WordFrequency is one (article, word, count) row. The set for an article is
// always replaced as a whole, never patched.
type WordFrequency struct {
	BlogArticleID int64  `json:"blog_article_id" db:"blog_article_id"`
	Word          string `json:"word" db:"word"`
	Freq          int    `json:"freq" db:"freq"`
}
