package models

import "time"

// SalesMonthly is the per-(model, month) sales fact row. Raw columns come
// straight from the Danawa feed; market_share and danawa_popularity_score are
// recomputed from the month's full cohort and must stay pure functions of it.
// market_share is a percentage (0-100) with 4 decimal places.
type SalesMonthly struct {
	ID                    int64     `json:"id" db:"id"`
	ModelID               int64     `json:"model_id" db:"model_id"`
	YearMonth             string    `json:"year_month" db:"year_month"`
	SalesVolume           *int      `json:"sales_volume" db:"sales_volume"`
	SalesMoMDiff          *int      `json:"sales_mom_diff" db:"sales_mom_diff"`
	SalesYoYDiff          *int      `json:"sales_yoy_diff" db:"sales_yoy_diff"`
	DanawaPopularityRank  *int      `json:"danawa_popularity_rank" db:"danawa_popularity_rank"`
	MarketShare           *float64  `json:"market_share" db:"market_share"`
	DanawaPopularityScore *float64  `json:"danawa_popularity_score" db:"danawa_popularity_score"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// InterestMonthly is the per-(model, month) search-interest fact row.
// interest_score is a fixed-weight combination of the normalized indices and
// the popularity score; weights are configuration, not constants.
type InterestMonthly struct {
	ID               int64     `json:"id" db:"id"`
	ModelID          int64     `json:"model_id" db:"model_id"`
	YearMonth        string    `json:"year_month" db:"year_month"`
	NaverSearchIndex *float64  `json:"naver_search_index" db:"naver_search_index"`
	GoogleTrendIndex *float64  `json:"google_trend_index" db:"google_trend_index"`
	InterestScore    *float64  `json:"interest_score" db:"interest_score"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// MarketStats holds aggregate registration counts from the public registry
// feed, independent of any model.
type MarketStats struct {
	ID          int64     `json:"id" db:"id"`
	YearMonth   string    `json:"year_month" db:"year_month"`
	VehicleType string    `json:"vehicle_type" db:"vehicle_type"`
	FuelType    string    `json:"fuel_type" db:"fuel_type"`
	RegCount    int       `json:"reg_count" db:"reg_count"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
