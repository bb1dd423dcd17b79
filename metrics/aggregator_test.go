package metrics

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpulse/models"
)

var testWeights = Weights{Naver: 0.4, Google: 0.4, Popularity: 0.2}

func ip(n int) *int         { return &n }
func fp(f float64) *float64 { return &f }

func TestMarketShareScenario(t *testing.T) {
	rows := []RawMonthRow{
		{ModelID: 1, SalesVolume: ip(100)},
		{ModelID: 2, SalesVolume: ip(300)},
	}

	out, err := ComputeMonth("2024-05", rows, testWeights)
	require.NoError(t, err)
	require.Len(t, out, 2)

	require.NotNil(t, out[0].MarketShare)
	require.NotNil(t, out[1].MarketShare)
	assert.Equal(t, 25.0, *out[0].MarketShare)
	assert.Equal(t, 75.0, *out[1].MarketShare)
}

func TestMarketShareSumsToHundred(t *testing.T) {
	rows := []RawMonthRow{
		{ModelID: 1, SalesVolume: ip(3)},
		{ModelID: 2, SalesVolume: ip(3)},
		{ModelID: 3, SalesVolume: ip(3)},
	}

	out, err := ComputeMonth("2024-05", rows, testWeights)
	require.NoError(t, err)

	sum := 0.0
	for _, m := range out {
		require.NotNil(t, m.MarketShare)
		sum += *m.MarketShare
	}
	assert.InDelta(t, 100.0, sum, 0.001)
}

func TestMarketShareNullOnZeroTotal(t *testing.T) {
	rows := []RawMonthRow{
		{ModelID: 1, SalesVolume: ip(0)},
		{ModelID: 2, SalesVolume: ip(0)},
	}

	out, err := ComputeMonth("2024-05", rows, testWeights)
	require.NoError(t, err)
	for _, m := range out {
		assert.Nil(t, m.MarketShare, "share must be null, not divide-by-zero")
	}
}

func TestPopularityScoreScenario(t *testing.T) {
	rows := []RawMonthRow{
		{ModelID: 1, Rank: ip(1)},
		{ModelID: 2, Rank: ip(2)},
		{ModelID: 3, Rank: ip(3)},
	}

	out, err := ComputeMonth("2024-05", rows, testWeights)
	require.NoError(t, err)

	assert.Equal(t, 1.0, *out[0].PopularityScore)
	assert.Equal(t, 0.5, *out[1].PopularityScore)
	assert.Equal(t, 0.0, *out[2].PopularityScore)
}

func TestPopularityScoreMonotonic(t *testing.T) {
	rows := []RawMonthRow{
		{ModelID: 1, Rank: ip(1)},
		{ModelID: 2, Rank: ip(4)},
		{ModelID: 3, Rank: ip(9)},
		{ModelID: 4, Rank: ip(17)},
	}

	out, err := ComputeMonth("2024-05", rows, testWeights)
	require.NoError(t, err)

	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, *out[i].PopularityScore, *out[i-1].PopularityScore)
	}
}

func TestPopularityScoreLoneModel(t *testing.T) {
	out, err := ComputeMonth("2024-05", []RawMonthRow{{ModelID: 7, Rank: ip(1)}}, testWeights)
	require.NoError(t, err)
	assert.Equal(t, 1.0, *out[0].PopularityScore)
}

func TestPopularityScoreLoneRankedModelAnyRank(t *testing.T) {
	// only one model carries a rank this month; its rank value does not
	// matter, and the unranked model gets no score
	rows := []RawMonthRow{
		{ModelID: 1, Rank: ip(5)},
		{ModelID: 2, SalesVolume: ip(40)},
	}

	out, err := ComputeMonth("2024-05", rows, testWeights)
	require.NoError(t, err)

	require.NotNil(t, out[0].PopularityScore)
	assert.Equal(t, 1.0, *out[0].PopularityScore)
	assert.Nil(t, out[1].PopularityScore)
}

func TestInterestScoreUsesInjectedWeights(t *testing.T) {
	rows := []RawMonthRow{
		{ModelID: 1, Rank: ip(1), NaverIndex: fp(100), GoogleIndex: fp(80)},
		{ModelID: 2, Rank: ip(2), NaverIndex: fp(50), GoogleIndex: fp(40)},
		{ModelID: 3, Rank: ip(3), NaverIndex: fp(0), GoogleIndex: fp(0)},
	}

	out, err := ComputeMonth("2024-05", rows, testWeights)
	require.NoError(t, err)

	// all components min-max normalize to 1 for the top model and 0 for the
	// bottom one, so the composite hits the weight-independent extremes
	assert.Equal(t, 1.0, *out[0].InterestScore)
	assert.Equal(t, 0.0, *out[2].InterestScore)
	assert.InDelta(t, 0.5, *out[1].InterestScore, 0.000001)

	// naver-only weighting ignores the other components entirely
	naverOnly, err := ComputeMonth("2024-05", rows, Weights{Naver: 1})
	require.NoError(t, err)
	assert.Equal(t, 0.5, *naverOnly[1].InterestScore)
}

func TestInterestScoreSkipsMissingComponents(t *testing.T) {
	// google failed for the month: its index is nil everywhere
	rows := []RawMonthRow{
		{ModelID: 1, Rank: ip(1), NaverIndex: fp(100)},
		{ModelID: 2, Rank: ip(2), NaverIndex: fp(0)},
	}

	out, err := ComputeMonth("2024-05", rows, testWeights)
	require.NoError(t, err)

	require.NotNil(t, out[0].InterestScore)
	assert.Equal(t, 1.0, *out[0].InterestScore)
	assert.Nil(t, out[0].GoogleIndex)

	// nothing present at all -> null score
	none, err := ComputeMonth("2024-05", []RawMonthRow{{ModelID: 3, SalesVolume: ip(10)}}, testWeights)
	require.NoError(t, err)
	assert.Nil(t, none[0].InterestScore)
}

func TestComputeMonthIdempotent(t *testing.T) {
	rows := []RawMonthRow{
		{ModelID: 3, SalesVolume: ip(120), Rank: ip(2), NaverIndex: fp(33.3), GoogleIndex: fp(12)},
		{ModelID: 1, SalesVolume: ip(700), Rank: ip(1), NaverIndex: fp(91.2), GoogleIndex: fp(88)},
		{ModelID: 2, SalesVolume: ip(40), Rank: ip(3), GoogleIndex: fp(5)},
	}

	first, err := ComputeMonth("2024-05", rows, testWeights)
	require.NoError(t, err)

	// shuffle input order; output must be identical
	shuffled := []RawMonthRow{rows[2], rows[0], rows[1]}
	second, err := ComputeMonth("2024-05", shuffled, testWeights)
	require.NoError(t, err)

	require.True(t, reflect.DeepEqual(first, second), "recomputation must be deterministic")
	assert.Equal(t, int64(1), first[0].ModelID, "rows come back sorted by model id")
}

func TestComputeMonthRejectsDuplicateModel(t *testing.T) {
	rows := []RawMonthRow{
		{ModelID: 1, SalesVolume: ip(10)},
		{ModelID: 1, SalesVolume: ip(20)},
	}

	_, err := ComputeMonth("2024-05", rows, testWeights)
	var ce *models.ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "2024-05", ce.YearMonth)
}

func TestComputeMonthRejectsBadWeights(t *testing.T) {
	_, err := ComputeMonth("2024-05", nil, Weights{})
	require.Error(t, err)

	_, err = ComputeMonth("2024-05", nil, Weights{Naver: -1, Google: 2})
	require.Error(t, err)
}
