package models

import (
	"github.com/google/uuid"
)

// User is a distributor or customer who owns orders and payments.
type User struct {
	BaseModel
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	Email         string        `gorm:"uniqueIndex" json:"email"`
	Phone         string        `json:"phone"`
	DistributorID string        `gorm:"index" json:"distributor_id"`
	Addresses     []UserAddress `json:"addresses,omitempty"`
	Orders        []Order       `json:"orders,omitempty"`
}

// UserAddress is a billing or shipping address on file for a user.
type UserAddress struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Street     string    `json:"street"`
	StreetCont string    `json:"street_cont"`
	City       string    `json:"city"`
	Zip        string    `json:"zip"`
	State      string    `json:"state"`
	StateAbbr  string    `json:"state_abbr"`
	CountryISO string    `json:"country_iso"`
	Phone      string    `json:"phone"`
	IsBilling  bool      `json:"is_billing"`
}
