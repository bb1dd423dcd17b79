package models

import "time"

// Raw snapshot records emitted by the upstream connectors. Pure data, tagged
// with enough source identity for the resolver to attribute them to a model.

// RawCatalogRecord is one model/spec snapshot from a manufacturer catalog.
type RawCatalogRecord struct {
	Maker       string
	ModelCode   string
	ModelName   string
	ModelNameEN string
	Segment     string
	ModelURL    string
	Spec        *RawSpec
}

// RawSpec carries the static attributes attached to a catalog snapshot.
type RawSpec struct {
	PriceMin     *int
	PriceMax     *int
	FuelTypes    []string
	Transmission string
	MileageKmpl  *float64
	Colors       []string
}

// RawSalesRecord is one (model, month) sales tuple from the retail
// aggregator, including the popularity rank and the month-over-month /
// year-over-year deltas the feed publishes alongside the volume.
type RawSalesRecord struct {
	Maker       string
	ModelCode   string
	ModelName   string
	YearMonth   string
	SalesVolume int
	MoMDiff     *int
	YoYDiff     *int
	Rank        *int
}

// RawTrendRecord is one (model, month) search-interest index from a trend
// provider. Provider is "naver" or "google".
type RawTrendRecord struct {
	Provider  string
	Maker     string
	ModelCode string
	ModelName string
	YearMonth string
	Index     float64
}

// RawRegistryRecord is one aggregate registration count from the public
// registry feed.
type RawRegistryRecord struct {
	YearMonth   string
	VehicleType string
	FuelType    string
	Count       int
}

// RawBlogRecord is one fetched blog article with its raw HTML body.
type RawBlogRecord struct {
	Maker     string
	ModelCode string
	Source    string
	Title     string
	URL       string
	PostedAt  *time.Time
	RawHTML   string
}
