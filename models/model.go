package models

import (
	"encoding/json"
	"time"
)

// CarModel is the canonical vehicle model identity, deduplicated across
// sources. (maker, model_code) is globally unique; models are deactivated,
// never deleted.
type CarModel struct {
	ID             int64     `json:"id" db:"id"`
	Maker          string    `json:"maker" db:"maker"`
	ModelCode      string    `json:"model_code" db:"model_code"`
	ModelName      string    `json:"model_name" db:"model_name"`
	ModelNameEN    string    `json:"model_name_en" db:"model_name_en"`
	Segment        string    `json:"segment" db:"segment"`
	DanawaModelURL string    `json:"danawa_model_url" db:"danawa_model_url"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// ModelSpec holds the latest-known static attributes of a model. One current
// record per model, replaced on each batch run.
type ModelSpec struct {
	ID           int64           `json:"id" db:"id"`
	ModelID      int64           `json:"model_id" db:"model_id"`
	PriceMin     *int            `json:"price_min" db:"price_min"`
	PriceMax     *int            `json:"price_max" db:"price_max"`
	FuelTypes    json.RawMessage `json:"fuel_types" db:"fuel_types"`
	Transmission string          `json:"transmission" db:"transmission"`
	MileageKmpl  *float64        `json:"mileage_kmpl" db:"mileage_kmpl"`
	Colors       json.RawMessage `json:"colors" db:"colors"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}
