package textkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeFullPipeline(t *testing.T) {
	raw := loadFixture(t, "blog_basic.html")

	e := NewEngine(2)
	a, err := e.Analyze(1, raw, "https://blog.example.com/avante")
	require.NoError(t, err)

	require.NotEmpty(t, a.CleanedText)
	require.NotEmpty(t, a.Nouns)
	require.Len(t, a.Keywords, 2)
	assert.Equal(t, "아반떼", a.Keywords[0].Word)
	assert.GreaterOrEqual(t, a.Keywords[0].Count, 3)
}

func TestAnalyzeDeterministic(t *testing.T) {
	raw := loadFixture(t, "blog_basic.html")
	e := NewEngine(DefaultTopK)

	first, err := e.Analyze(1, raw, "https://blog.example.com/avante")
	require.NoError(t, err)
	second, err := e.Analyze(1, raw, "https://blog.example.com/avante")
	require.NoError(t, err)

	assert.Equal(t, first.Keywords, second.Keywords)
	assert.Equal(t, first.Frequencies, second.Frequencies)
	assert.Equal(t, first.CleanedText, second.CleanedText)
}

func TestAnalyzeEmptyBody(t *testing.T) {
	raw := loadFixture(t, "blog_empty.html")

	a, err := NewEngine(0).Analyze(2, raw, "https://blog.example.com/empty")
	require.NoError(t, err, "empty body is a valid outcome")
	assert.Empty(t, a.CleanedText)
	assert.Empty(t, a.Keywords)
}

func TestWordcloudCSV(t *testing.T) {
	a := &Analysis{Keywords: []WordCount{{Word: "아반떼", Count: 3}, {Word: "가격", Count: 1}}}

	data, err := a.WordcloudCSV()
	require.NoError(t, err)
	assert.Equal(t, "word,count\n아반떼,3\n가격,1\n", string(data))
}
