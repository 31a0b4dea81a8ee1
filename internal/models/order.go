package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is the payment core's view of an order. Pricing and line-item math
// happen upstream; this core only reads totals, shipping data and SKUs.
type Order struct {
	BaseModel
	UserID             uuid.UUID   `gorm:"type:uuid;index" json:"user_id"`
	User               *User       `json:"user,omitempty"`
	OrderNumber        string      `gorm:"uniqueIndex" json:"order_number"`
	Status             string      `json:"status"`
	PlacedAt           time.Time   `json:"placed_at"`
	Subtotal           float64     `json:"subtotal"`
	ShippingFee        float64     `json:"shipping_fee"`
	TotalAmount        float64     `json:"total_amount"`
	ShippingMethodID   *uuid.UUID  `gorm:"type:uuid" json:"shipping_method_id"`
	ShippingCountryISO string      `json:"shipping_country_iso"`
	ShippingAddress    string      `json:"shipping_address"`
	ShippingCity       string      `json:"shipping_city"`
	ShippingZip        string      `json:"shipping_zip"`
	Notes              string      `json:"notes"`
	Items              []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	LineTotal float64   `json:"line_total"`
}

// ShippingMethod is reference data describing how an order ships.
type ShippingMethod struct {
	BaseModel
	Name    string `json:"name"`
	Company string `json:"company"`
}
