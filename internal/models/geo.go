package models

import (
	"github.com/google/uuid"
)

// Country is shared reference data resolved by ISO alpha-2 code.
type Country struct {
	BaseModel
	Name       string     `json:"name"`
	ISO        string     `gorm:"uniqueIndex;column:iso" json:"iso"`
	ISO3       string     `gorm:"column:iso3" json:"iso3"`
	CurrencyID *uuid.UUID `gorm:"type:uuid" json:"currency_id"`
	Currency   *Currency  `json:"currency,omitempty"`
}

// Currency is the settlement currency tied to a country.
type Currency struct {
	BaseModel
	Name    string `json:"name"`
	ISOCode string `gorm:"uniqueIndex;column:iso_code" json:"iso_code"`
}
