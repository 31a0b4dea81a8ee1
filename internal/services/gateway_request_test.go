package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/example/veltria/internal/models"
	"github.com/example/veltria/internal/services"
)

// fakeDirectory implements every resolver the builder needs.
type fakeDirectory struct {
	method      *models.PaymentMethod
	methodCalls int
	currency    *models.Currency
	currencyErr error
	shipping    *models.ShippingMethod
	user        *models.User
	billing     *models.UserAddress
	token       string
	tokenErr    error
	country     *models.Country
}

func (f *fakeDirectory) PaymentMethodOfPayment(context.Context, *models.Payment) (*models.PaymentMethod, error) {
	f.methodCalls++
	return f.method, nil
}

func (f *fakeDirectory) CurrencyOfOrder(context.Context, *models.Order) (*models.Currency, error) {
	if f.currencyErr != nil {
		return nil, f.currencyErr
	}
	return f.currency, nil
}

func (f *fakeDirectory) ShippingMethodOfOrder(context.Context, *models.Order) (*models.ShippingMethod, error) {
	return f.shipping, nil
}

func (f *fakeDirectory) UserByID(context.Context, uuid.UUID) (*models.User, error) {
	return f.user, nil
}

func (f *fakeDirectory) BillingAddressOfUser(context.Context, uuid.UUID) (*models.UserAddress, error) {
	return f.billing, nil
}

func (f *fakeDirectory) PaymentTokenOfAutoship(context.Context, uuid.UUID) (string, error) {
	return f.token, f.tokenErr
}

func (f *fakeDirectory) CountryByISO(context.Context, string) (*models.Country, error) {
	return f.country, nil
}

func newDirectory(methodType string) *fakeDirectory {
	user := &models.User{
		FirstName:     "Ana",
		LastName:      "Silva",
		Email:         "ana@example.com",
		DistributorID: "D-1042",
	}
	user.ID = uuid.New()

	return &fakeDirectory{
		method:   &models.PaymentMethod{Type: methodType, IsCreditcard: true},
		currency: &models.Currency{ISOCode: "USD"},
		shipping: &models.ShippingMethod{Name: "Ground", Company: "UPS"},
		user:     user,
		billing: &models.UserAddress{
			Street:     "12 Main St",
			StreetCont: "Apt 4",
			City:       "Austin",
			Zip:        "78701",
			State:      "Texas",
			StateAbbr:  "TX",
			CountryISO: "US",
			Phone:      "555-0147",
		},
		country: &models.Country{ISO: "US", ISO3: "USA"},
	}
}

func newBuilder(dir *fakeDirectory, verifiIP string) *services.RequestBuilder {
	return services.NewRequestBuilder(dir, dir, dir, dir, dir, verifiIP)
}

func newTestOrder(userID uuid.UUID) *models.Order {
	order := &models.Order{
		UserID:             userID,
		OrderNumber:        "VO-20419",
		TotalAmount:        49.99,
		ShippingCountryISO: "US",
		ShippingAddress:    "12 Main St",
		ShippingCity:       "Austin",
		ShippingZip:        "78701",
		Items: []models.OrderItem{
			{SKU: "SKU-100", Quantity: 1},
			{SKU: "SKU-205", Quantity: 2},
		},
	}
	order.ID = uuid.New()
	return order
}

func TestBuild_RawCardEnvelope(t *testing.T) {
	dir := newDirectory("Worldpay")
	builder := newBuilder(dir, "")
	order := newTestOrder(dir.user.ID)
	payment := cardPayment("visa", "4111111111111111")
	payment.OrderID = order.ID

	env, err := builder.Build(context.Background(), order, payment)

	require.NoError(t, err)
	require.Equal(t, order.ID.String(), env.OrderID)
	require.Equal(t, "VO-20419", env.OrderNumber)
	require.Equal(t, payment.ID.String(), env.PaymentID)
	require.Equal(t, 49.99, env.PaymentAmount)
	require.Equal(t, 49.99, env.OrderAmount)
	require.Equal(t, "USD", env.CurrencyCode)
	require.Equal(t, "Order VO-20419", env.Description)

	require.NotNil(t, env.Creditcard)
	require.Equal(t, "4111111111111111", env.Creditcard.Number)
	require.Empty(t, env.PaymentTokenID)

	require.NotNil(t, env.BillingAddress)
	require.Equal(t, "Ana", env.BillingAddress.FirstName)
	require.Equal(t, "TX", env.BillingAddress.StateAbbr)

	require.Equal(t, map[string]any{"currency_code": "USD"}, env.AdditionalFields)
}

func TestBuild_VerifiAdditionalFields(t *testing.T) {
	dir := newDirectory("Verifi")
	builder := newBuilder(dir, "")
	order := newTestOrder(dir.user.ID)
	payment := cardPayment("visa", "4111111111111111")

	env, err := builder.Build(context.Background(), order, payment)

	require.NoError(t, err)
	require.Equal(t, "D-1042", env.AdditionalFields["distributor_id"])
	require.Equal(t, "Ground", env.AdditionalFields["shipping_method_name"])
	require.Equal(t, "UPS", env.AdditionalFields["shipping_company"])
	require.Equal(t, "SKU-100&SKU-205", env.AdditionalFields["order_skus"])
	require.Equal(t, "ana@example.com", env.AdditionalFields["email"])
	require.Equal(t, "", env.AdditionalFields["ip"], "ip defaults to blank")
	require.Equal(t, "Order VO-20419", env.AdditionalFields["order_description"])
	require.Equal(t, "12 Main St, Austin, 78701, US", env.AdditionalFields["shipping_address"])
}

func TestBuild_VerifiConfiguredIP(t *testing.T) {
	dir := newDirectory("Verifi")
	builder := newBuilder(dir, "10.1.2.3")
	order := newTestOrder(dir.user.ID)

	env, err := builder.Build(context.Background(), order, cardPayment("visa", "4111111111111111"))

	require.NoError(t, err)
	require.Equal(t, "10.1.2.3", env.AdditionalFields["ip"])
}

func TestBuild_IpayAdditionalFields(t *testing.T) {
	dir := newDirectory("Ipay")
	builder := newBuilder(dir, "")
	order := newTestOrder(dir.user.ID)

	env, err := builder.Build(context.Background(), order, cardPayment("visa", "4111111111111111"))

	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"distributor_id":               "D-1042",
		"billing_address_country_iso3": "USA",
	}, env.AdditionalFields)
}

func TestBuild_UnknownGatewayHasNoAdditionalFields(t *testing.T) {
	dir := newDirectory("LegacyBank")
	builder := newBuilder(dir, "")
	order := newTestOrder(dir.user.ID)

	env, err := builder.Build(context.Background(), order, cardPayment("visa", "4111111111111111"))

	require.NoError(t, err)
	require.Nil(t, env.AdditionalFields)
}

func TestBuild_TokenChargeOmitsCardData(t *testing.T) {
	dir := newDirectory("Worldpay")
	dir.token = "tok_83b1"
	builder := newBuilder(dir, "")
	order := newTestOrder(dir.user.ID)

	payment := newTestPayment(models.PaymentStateProcessing)
	autoshipID := uuid.New()
	payment.AutoshipPaymentID = &autoshipID

	env, err := builder.Build(context.Background(), order, payment)

	require.NoError(t, err)
	require.Equal(t, "tok_83b1", env.PaymentTokenID)
	require.Nil(t, env.Creditcard, "token charges must not carry raw card data")
	require.Nil(t, env.BillingAddress)
}

func TestBuild_MissingTokenIsForbidden(t *testing.T) {
	dir := newDirectory("Worldpay")
	builder := newBuilder(dir, "")
	order := newTestOrder(dir.user.ID)

	payment := newTestPayment(models.PaymentStateProcessing)
	autoshipID := uuid.New()
	payment.AutoshipPaymentID = &autoshipID

	_, err := builder.Build(context.Background(), order, payment)

	perr, ok := services.AsPaymentError(err)
	require.True(t, ok)
	require.Equal(t, fiber.StatusForbidden, services.StatusCode(perr))
}

func TestBuild_UnresolvableCurrencyFails(t *testing.T) {
	dir := newDirectory("Worldpay")
	dir.currencyErr = errors.New("country ZZ has no currency configured")
	builder := newBuilder(dir, "")
	order := newTestOrder(dir.user.ID)

	_, err := builder.Build(context.Background(), order, cardPayment("visa", "4111111111111111"))

	require.Error(t, err)
	require.Contains(t, err.Error(), "resolve order currency")
}

func TestBuild_CachesPaymentMethod(t *testing.T) {
	dir := newDirectory("Worldpay")
	builder := newBuilder(dir, "")
	order := newTestOrder(dir.user.ID)
	payment := cardPayment("visa", "4111111111111111")

	_, err := builder.Build(context.Background(), order, payment)
	require.NoError(t, err)
	_, err = builder.Build(context.Background(), order, payment)
	require.NoError(t, err)

	require.Equal(t, 1, dir.methodCalls, "payment method must be resolved once and cached")
}
