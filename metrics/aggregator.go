// Package metrics computes the derived monthly values (market share,
// popularity score, interest score) for a month's cohort of models. All
// computation is pure: same raw rows and weights in, byte-identical derived
// values out, regardless of how often a month is recomputed.
package metrics

import (
	"fmt"
	"math"
	"sort"

	"carpulse/models"
)

// Weights is the interest-score weighting. It is injected configuration; the
// aggregator carries no built-in weight set.
type Weights struct {
	Naver      float64
	Google     float64
	Popularity float64
}

func (w Weights) Validate() error {
	if w.Naver < 0 || w.Google < 0 || w.Popularity < 0 {
		return fmt.Errorf("interest weights must be non-negative: %+v", w)
	}
	if w.Naver+w.Google+w.Popularity == 0 {
		return fmt.Errorf("interest weights sum to zero")
	}
	return nil
}

// RawMonthRow is one model's raw values for a month, as read from a single
// consistent snapshot of that month's fact rows.
type RawMonthRow struct {
	ModelID     int64
	SalesVolume *int
	MoMDiff     *int
	YoYDiff     *int
	Rank        *int
	NaverIndex  *float64
	GoogleIndex *float64
}

// MonthlyMetric is a raw row plus its recomputed derived values.
type MonthlyMetric struct {
	ModelID         int64
	YearMonth       string
	SalesVolume     *int
	MoMDiff         *int
	YoYDiff         *int
	Rank            *int
	NaverIndex      *float64
	GoogleIndex     *float64
	MarketShare     *float64
	PopularityScore *float64
	InterestScore   *float64
}

// ComputeMonth recomputes derived values for one month's full cohort.
// market_share is a percentage with 4 decimal places; it is nil for every
// model when the month's total sales is zero. A duplicate model in the input
// means the snapshot was not consistent and aborts the month.
func ComputeMonth(yearMonth string, rows []RawMonthRow, w Weights) ([]MonthlyMetric, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	sorted := make([]RawMonthRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ModelID < sorted[j].ModelID })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].ModelID == sorted[i-1].ModelID {
			return nil, &models.ConsistencyError{
				YearMonth: yearMonth,
				Reason:    fmt.Sprintf("duplicate row for model %d", sorted[i].ModelID),
			}
		}
	}

	totalSales := 0
	maxRank := 0
	ranked := 0
	for _, r := range sorted {
		if r.SalesVolume != nil {
			totalSales += *r.SalesVolume
		}
		if r.Rank != nil {
			ranked++
			if *r.Rank > maxRank {
				maxRank = *r.Rank
			}
		}
	}

	naverNorm := minMaxNormalizer(sorted, func(r RawMonthRow) *float64 { return r.NaverIndex })
	googleNorm := minMaxNormalizer(sorted, func(r RawMonthRow) *float64 { return r.GoogleIndex })

	out := make([]MonthlyMetric, 0, len(sorted))
	for _, r := range sorted {
		m := MonthlyMetric{
			ModelID:     r.ModelID,
			YearMonth:   yearMonth,
			SalesVolume: r.SalesVolume,
			MoMDiff:     r.MoMDiff,
			YoYDiff:     r.YoYDiff,
			Rank:        r.Rank,
			NaverIndex:  r.NaverIndex,
			GoogleIndex: r.GoogleIndex,
		}

		if r.SalesVolume != nil && totalSales > 0 {
			share := round(100*float64(*r.SalesVolume)/float64(totalSales), 4)
			m.MarketShare = &share
		}

		if r.Rank != nil {
			score := popularityScore(*r.Rank, maxRank, ranked)
			m.PopularityScore = &score
		}

		m.InterestScore = interestScore(naverNorm(r.NaverIndex), googleNorm(r.GoogleIndex), m.PopularityScore, w)

		out = append(out, m)
	}

	return out, nil
}

// popularityScore converts a 1-based rank to a linearly decreasing score in
// [0,1]. A lone ranked model scores 1 whatever its rank value is.
func popularityScore(rank, maxRank, ranked int) float64 {
	if ranked <= 1 || maxRank <= 1 {
		return 1
	}
	score := 1 - float64(rank-1)/float64(maxRank-1)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return round(score, 6)
}

// interestScore combines the normalized components that are present this
// month, renormalizing the weights over them. Components a failed source left
// nil are excluded rather than treated as zero, so one provider's outage does
// not drag every model's score down. Nil when no component is present.
func interestScore(naver, google, popularity *float64, w Weights) *float64 {
	var sum, weightSum float64
	if naver != nil && w.Naver > 0 {
		sum += w.Naver * *naver
		weightSum += w.Naver
	}
	if google != nil && w.Google > 0 {
		sum += w.Google * *google
		weightSum += w.Google
	}
	if popularity != nil && w.Popularity > 0 {
		sum += w.Popularity * *popularity
		weightSum += w.Popularity
	}
	if weightSum == 0 {
		return nil
	}
	score := round(sum/weightSum, 6)
	return &score
}

// minMaxNormalizer builds a [0,1] normalizer over the values present in the
// cohort. When the cohort has a single distinct value, every present value
// maps to 1, matching the lone-rank rule.
func minMaxNormalizer(rows []RawMonthRow, pick func(RawMonthRow) *float64) func(*float64) *float64 {
	lo := math.Inf(1)
	hi := math.Inf(-1)
	for _, r := range rows {
		v := pick(r)
		if v == nil {
			continue
		}
		lo = math.Min(lo, *v)
		hi = math.Max(hi, *v)
	}

	return func(v *float64) *float64 {
		if v == nil || math.IsInf(lo, 1) {
			return nil
		}
		var n float64
		if hi == lo {
			n = 1
		} else {
			n = round((*v-lo)/(hi-lo), 6)
		}
		return &n
	}
}

func round(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(x*p) / p
}
