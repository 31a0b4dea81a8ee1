package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/veltria/internal/database"
	"github.com/example/veltria/internal/models"
	"github.com/example/veltria/internal/services"
)

// PaymentHandler exposes the payment core over HTTP. It stays thin: load,
// call, map the error kind to a status code.
type PaymentHandler struct {
	db      *gorm.DB
	store   *database.Store
	svc     *services.PaymentService
	gateway *services.GatewayClient
}

func NewPaymentHandler(db *gorm.DB, store *database.Store, svc *services.PaymentService, gateway *services.GatewayClient) *PaymentHandler {
	return &PaymentHandler{db: db, store: store, svc: svc, gateway: gateway}
}

type creditcardRequest struct {
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVV         string `json:"cvv"`
	CCType      string `json:"cc_type"`
}

type processPaymentRequest struct {
	Creditcard *creditcardRequest `json:"creditcard"`
}

// ProcessPayment charges a payment for its order.
func (h *PaymentHandler) ProcessPayment(c *fiber.Ctx) error {
	payment, err := h.loadPayment(c)
	if err != nil {
		return err
	}

	var order models.Order
	if err := h.db.Preload("Items").First(&order, "id = ?", payment.OrderID).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	}

	var req processPaymentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	if req.Creditcard != nil {
		payment.Creditcard = &models.Creditcard{
			Number:      req.Creditcard.Number,
			ExpiryMonth: req.Creditcard.ExpiryMonth,
			ExpiryYear:  req.Creditcard.ExpiryYear,
			CVV:         req.Creditcard.CVV,
			CCType:      req.Creditcard.CCType,
		}
	}

	if err := h.svc.ProcessPayment(c.Context(), &order, payment); err != nil {
		return writePaymentError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":            payment.ID,
		"state":         payment.State,
		"response_code": payment.ResponseCode,
		"avs_response":  payment.AVSResponse,
	})
}

// CapturePayment settles a gift-card or cash payment directly.
func (h *PaymentHandler) CapturePayment(c *fiber.Ctx) error {
	payment, err := h.loadPayment(c)
	if err != nil {
		return err
	}

	if err := h.svc.CapturePayment(c.Context(), payment); err != nil {
		return writePaymentError(c, err)
	}

	return c.JSON(fiber.Map{"id": payment.ID, "state": payment.State})
}

// CancelPayment voids a payment on behalf of external cancellation flows.
func (h *PaymentHandler) CancelPayment(c *fiber.Ctx) error {
	payment, err := h.loadPayment(c)
	if err != nil {
		return err
	}

	switch payment.State {
	case models.PaymentStateCompleted, models.PaymentStateFailed, models.PaymentStateVoid:
		return fiber.NewError(fiber.StatusBadRequest, "payment is already in a terminal state")
	}

	if err := h.store.VoidPayment(c.Context(), payment.ID); err != nil {
		return writePaymentError(c, err)
	}

	return c.JSON(fiber.Map{"id": payment.ID, "state": models.PaymentStateVoid})
}

type payoutAccountRequest struct {
	UserID string `json:"user_id"`
}

// RegisterPayoutAccount creates a hyperwallet account for a distributor.
// Called by the registration workflow only.
func (h *PaymentHandler) RegisterPayoutAccount(c *fiber.Ctx) error {
	var req payoutAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	}

	var address models.UserAddress
	countryISO := ""
	if err := h.db.Where("user_id = ? AND is_billing = ?", user.ID, true).First(&address).Error; err == nil {
		countryISO = address.CountryISO
	}

	if err := h.gateway.RegisterPayoutAccount(c.Context(), &services.PayoutAccountRequest{
		UserID:     user.ID.String(),
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Email:      user.Email,
		CountryISO: countryISO,
	}); err != nil {
		return writePaymentError(c, err)
	}

	return c.SendStatus(fiber.StatusCreated)
}

func (h *PaymentHandler) loadPayment(c *fiber.Ctx) (*models.Payment, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid payment id")
	}

	var payment models.Payment
	if err := h.db.First(&payment, "id = ?", id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "payment not found")
	}
	return &payment, nil
}

func writePaymentError(c *fiber.Ctx, err error) error {
	status := services.StatusCode(err)
	if perr, ok := services.AsPaymentError(err); ok {
		return c.Status(status).JSON(fiber.Map{
			"error": fiber.Map{
				"kind":    perr.Kind,
				"message": perr.Message,
				"code":    perr.Code,
			},
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{"message": err.Error()},
	})
}
