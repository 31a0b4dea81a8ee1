package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/example/veltria/internal/models"
)

// PaymentMethodResolver resolves the payment method behind a payment.
type PaymentMethodResolver interface {
	PaymentMethodOfPayment(ctx context.Context, payment *models.Payment) (*models.PaymentMethod, error)
}

// OrderDirectory resolves order-scoped reference data.
type OrderDirectory interface {
	CurrencyOfOrder(ctx context.Context, order *models.Order) (*models.Currency, error)
	ShippingMethodOfOrder(ctx context.Context, order *models.Order) (*models.ShippingMethod, error)
}

// UserDirectory resolves users and their billing addresses.
type UserDirectory interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	BillingAddressOfUser(ctx context.Context, userID uuid.UUID) (*models.UserAddress, error)
}

// AutoshipStore resolves the stored payment token behind an autoship record.
type AutoshipStore interface {
	PaymentTokenOfAutoship(ctx context.Context, autoshipPaymentID uuid.UUID) (string, error)
}

// CountryStore resolves countries by ISO alpha-2 code.
type CountryStore interface {
	CountryByISO(ctx context.Context, iso string) (*models.Country, error)
}

// CardDetails is the raw card block sent to the gateway.
type CardDetails struct {
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVV         string `json:"cvv"`
}

// BillingAddress is the billing block sent with raw-card charges.
type BillingAddress struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Street     string `json:"street"`
	StreetCont string `json:"street_cont"`
	City       string `json:"city"`
	Zip        string `json:"zip"`
	State      string `json:"state"`
	StateAbbr  string `json:"state_abbr"`
	CountryISO string `json:"country_iso"`
	Phone      string `json:"phone"`
}

// GatewayRequestEnvelope is the purchase request body for the gateway
// aggregator. Exactly one of PaymentTokenID or Creditcard is set.
type GatewayRequestEnvelope struct {
	UserID           string          `json:"user_id"`
	OrderID          string          `json:"order_id"`
	OrderNumber      string          `json:"order_number"`
	PaymentID        string          `json:"payment_id"`
	PaymentMethodID  string          `json:"payment_method_id"`
	PaymentAmount    float64         `json:"payment_amount"`
	OrderAmount      float64         `json:"order_amount"`
	Description      string          `json:"description"`
	CurrencyCode     string          `json:"currency_code"`
	PaymentTokenID   string          `json:"payment_token_id,omitempty"`
	Creditcard       *CardDetails    `json:"creditcard,omitempty"`
	BillingAddress   *BillingAddress `json:"billing_address,omitempty"`
	AdditionalFields map[string]any  `json:"additional_payment_gateway_fields"`
}

// RequestBuilder turns an (order, payment) pair into a gateway envelope with
// the gateway-specific additional fields attached.
type RequestBuilder struct {
	methods   PaymentMethodResolver
	orders    OrderDirectory
	users     UserDirectory
	autoships AutoshipStore
	countries CountryStore

	// verifiClientIP is sent as Verifi's ip field. The default is blank:
	// forwarding customer IPs was causing false-positive hits on Verifi's
	// shared reputation lists.
	verifiClientIP string

	cacheMu     sync.RWMutex
	methodCache map[uuid.UUID]*models.PaymentMethod
}

func NewRequestBuilder(methods PaymentMethodResolver, orders OrderDirectory, users UserDirectory, autoships AutoshipStore, countries CountryStore, verifiClientIP string) *RequestBuilder {
	return &RequestBuilder{
		methods:        methods,
		orders:         orders,
		users:          users,
		autoships:      autoships,
		countries:      countries,
		verifiClientIP: verifiClientIP,
		methodCache:    make(map[uuid.UUID]*models.PaymentMethod),
	}
}

// Build assembles the envelope, or returns the first resolution error.
func (b *RequestBuilder) Build(ctx context.Context, order *models.Order, payment *models.Payment) (*GatewayRequestEnvelope, error) {
	method, err := b.paymentMethod(ctx, payment)
	if err != nil {
		return nil, err
	}

	user, err := b.users.UserByID(ctx, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve order user: %w", err)
	}

	currency, err := b.orders.CurrencyOfOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("resolve order currency: %w", err)
	}

	env := &GatewayRequestEnvelope{
		UserID:          user.ID.String(),
		OrderID:         order.ID.String(),
		OrderNumber:     order.OrderNumber,
		PaymentID:       payment.ID.String(),
		PaymentMethodID: payment.PaymentMethodID.String(),
		PaymentAmount:   payment.Amount,
		OrderAmount:     order.TotalAmount,
		Description:     fmt.Sprintf("Order %s", order.OrderNumber),
		CurrencyCode:    currency.ISOCode,
	}

	if payment.AutoshipPaymentID != nil {
		token, err := b.autoships.PaymentTokenOfAutoship(ctx, *payment.AutoshipPaymentID)
		if err != nil {
			return nil, fmt.Errorf("resolve autoship payment token: %w", err)
		}
		if token == "" {
			return nil, &PaymentError{
				Kind:    KindPaymentFailed,
				Message: "no stored payment token for autoship charge",
				Status:  http.StatusForbidden,
			}
		}
		env.PaymentTokenID = token
	} else {
		card := payment.Creditcard
		if card == nil {
			return nil, NewPaymentError(KindInvalidCreditcardInfo, "missing creditcard data")
		}
		billing, err := b.users.BillingAddressOfUser(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve billing address: %w", err)
		}
		env.Creditcard = &CardDetails{
			Number:      card.Number,
			ExpiryMonth: card.ExpiryMonth,
			ExpiryYear:  card.ExpiryYear,
			CVV:         card.CVV,
		}
		env.BillingAddress = &BillingAddress{
			FirstName:  user.FirstName,
			LastName:   user.LastName,
			Street:     billing.Street,
			StreetCont: billing.StreetCont,
			City:       billing.City,
			Zip:        billing.Zip,
			State:      billing.State,
			StateAbbr:  billing.StateAbbr,
			CountryISO: billing.CountryISO,
			Phone:      billing.Phone,
		}
	}

	fields, err := b.additionalFields(ctx, method.Gateway(), order, user, currency, env)
	if err != nil {
		return nil, err
	}
	env.AdditionalFields = fields

	return env, nil
}

// additionalFields dispatches on the gateway tag. Unknown gateways get no
// additional fields.
func (b *RequestBuilder) additionalFields(ctx context.Context, gateway models.GatewayType, order *models.Order, user *models.User, currency *models.Currency, env *GatewayRequestEnvelope) (map[string]any, error) {
	switch gateway {
	case models.GatewayIpay:
		return b.ipayFields(ctx, user, env)
	case models.GatewayVerifi:
		return b.verifiFields(ctx, order, user)
	case models.GatewayWorldpay, models.GatewayPaymentExpress:
		return map[string]any{"currency_code": currency.ISOCode}, nil
	default:
		return nil, nil
	}
}

func (b *RequestBuilder) ipayFields(ctx context.Context, user *models.User, env *GatewayRequestEnvelope) (map[string]any, error) {
	countryISO := ""
	if env.BillingAddress != nil {
		countryISO = env.BillingAddress.CountryISO
	} else {
		billing, err := b.users.BillingAddressOfUser(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve billing address: %w", err)
		}
		countryISO = billing.CountryISO
	}

	country, err := b.countries.CountryByISO(ctx, countryISO)
	if err != nil {
		return nil, fmt.Errorf("resolve billing country %q: %w", countryISO, err)
	}

	return map[string]any{
		"distributor_id":               user.DistributorID,
		"billing_address_country_iso3": country.ISO3,
	}, nil
}

func (b *RequestBuilder) verifiFields(ctx context.Context, order *models.Order, user *models.User) (map[string]any, error) {
	shipping, err := b.orders.ShippingMethodOfOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("resolve shipping method: %w", err)
	}

	skus := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		skus = append(skus, item.SKU)
	}

	return map[string]any{
		"distributor_id":       user.DistributorID,
		"shipping_method_name": shipping.Name,
		"shipping_company":     shipping.Company,
		"order_skus":           strings.Join(skus, "&"),
		"email":                user.Email,
		"ip":                   b.verifiClientIP,
		"order_description":    fmt.Sprintf("Order %s", order.OrderNumber),
		"shipping_address":     formatShippingAddress(order),
	}, nil
}

func formatShippingAddress(order *models.Order) string {
	parts := []string{order.ShippingAddress, order.ShippingCity, order.ShippingZip, order.ShippingCountryISO}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}

// paymentMethod resolves and memoizes the payment's method. Reference rows
// never change mid-flight, so the first resolution wins.
func (b *RequestBuilder) paymentMethod(ctx context.Context, payment *models.Payment) (*models.PaymentMethod, error) {
	b.cacheMu.RLock()
	if method, ok := b.methodCache[payment.PaymentMethodID]; ok {
		b.cacheMu.RUnlock()
		return method, nil
	}
	b.cacheMu.RUnlock()

	method, err := b.methods.PaymentMethodOfPayment(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("resolve payment method: %w", err)
	}

	b.cacheMu.Lock()
	b.methodCache[payment.PaymentMethodID] = method
	b.cacheMu.Unlock()

	return method, nil
}
