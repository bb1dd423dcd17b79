package textkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNounsSegmentsKoreanText(t *testing.T) {
	tokens := Nouns("아반떼 가격 아반떼 디자인 아반떼")
	assert.Equal(t, []string{"아반떼", "가격", "아반떼", "디자인", "아반떼"}, tokens)
}

func TestNounsStripsParticles(t *testing.T) {
	cases := map[string]string{
		"아반떼가":  "아반떼",
		"아반떼를":  "아반떼",
		"연비가":   "연비",
		"디자인과":  "디자인",
		"매장에서":  "매장",
		"가격보다":  "가격",
		"쏘렌토까지": "쏘렌토",
	}
	for in, want := range cases {
		tokens := Nouns(in)
		require.Len(t, tokens, 1, "input %q", in)
		assert.Equal(t, want, tokens[0], "input %q", in)
	}
}

func TestNounsKeepsRealNounsEndingInParticleRunes(t *testing.T) {
	// 평가 ends in 가 but stripping it would leave a single rune
	tokens := Nouns("평가")
	require.Len(t, tokens, 1)
	assert.Equal(t, "평가", tokens[0])
}

func TestNounsMixedScripts(t *testing.T) {
	tokens := Nouns("제네시스 G80 출시! SUV 시장, 2024년 판매량.")
	assert.Equal(t, []string{"제네시스", "출시", "suv", "시장", "판매량"}, tokens)
}

func TestNounsDropsStopwordsAndEmpty(t *testing.T) {
	assert.Empty(t, Nouns(""))
	assert.Empty(t, Nouns("   \n\t "))
	assert.Empty(t, Nouns("그리고 하지만"))

	// 하지만 ends in the particle rune 만; it must be dropped as a stopword,
	// not stripped down to 하지 and kept
	assert.Equal(t, []string{"아반떼"}, Nouns("하지만 아반떼"))
}

func TestFrequenciesPreserveFirstOccurrenceOrder(t *testing.T) {
	freqs := Frequencies([]string{"아반떼", "가격", "아반떼", "디자인", "아반떼"})
	assert.Equal(t, []WordCount{
		{Word: "아반떼", Count: 3},
		{Word: "가격", Count: 1},
		{Word: "디자인", Count: 1},
	}, freqs)
}

func TestTopKTieBreaksByFirstOccurrence(t *testing.T) {
	freqs := Frequencies([]string{"아반떼", "가격", "아반떼", "디자인", "아반떼"})

	top2 := TopK(freqs, 2)
	require.Len(t, top2, 2)
	assert.Equal(t, "아반떼", top2[0].Word)
	assert.Equal(t, "가격", top2[1].Word, "tie broken by first occurrence")

	// k larger than the table returns the whole table
	assert.Len(t, TopK(freqs, 10), 3)
	assert.Nil(t, TopK(freqs, 0))
}
