package models

// PricingEntry is static reference data: published per-million-token costs
// for a given upstream API and model. Read-only from the gateway's
// perspective.
type PricingEntry struct {
	ID                      uint    `gorm:"primaryKey;autoIncrement" json:"-"`
	APIName                 string  `gorm:"not null;index;size:100" json:"-"`
	ModelName               string  `gorm:"not null;size:255" json:"model_name"`
	InputCostPerMillionUSD  float64 `gorm:"not null" json:"input_cost_per_million_usd"`
	OutputCostPerMillionUSD float64 `gorm:"not null" json:"output_cost_per_million_usd"`
}

func (PricingEntry) TableName() string {
	return "api_pricing"
}
