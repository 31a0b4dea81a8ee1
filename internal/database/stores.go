package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/veltria/internal/models"
	"github.com/example/veltria/internal/services"
)

// Store implements the service collaborator interfaces over GORM.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UpdatePayment writes only the given columns of the payment record.
func (s *Store) UpdatePayment(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (s *Store) PaymentMethodOfPayment(ctx context.Context, payment *models.Payment) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := s.db.WithContext(ctx).First(&method, "id = ?", payment.PaymentMethodID).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

// CurrencyOfOrder resolves order → shipping country → currency. A country or
// currency that cannot be resolved is a hard failure.
func (s *Store) CurrencyOfOrder(ctx context.Context, order *models.Order) (*models.Currency, error) {
	country, err := s.CountryByISO(ctx, order.ShippingCountryISO)
	if err != nil {
		return nil, fmt.Errorf("shipping country %q: %w", order.ShippingCountryISO, err)
	}
	if country.CurrencyID == nil {
		return nil, fmt.Errorf("country %s has no currency configured", country.ISO)
	}

	var currency models.Currency
	if err := s.db.WithContext(ctx).First(&currency, "id = ?", *country.CurrencyID).Error; err != nil {
		return nil, fmt.Errorf("currency of country %s: %w", country.ISO, err)
	}
	return &currency, nil
}

func (s *Store) ShippingMethodOfOrder(ctx context.Context, order *models.Order) (*models.ShippingMethod, error) {
	if order.ShippingMethodID == nil {
		return nil, errors.New("order has no shipping method")
	}
	var method models.ShippingMethod
	if err := s.db.WithContext(ctx).First(&method, "id = ?", *order.ShippingMethodID).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) BillingAddressOfUser(ctx context.Context, userID uuid.UUID) (*models.UserAddress, error) {
	var address models.UserAddress
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_billing = ?", userID, true).
		First(&address).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

// PaymentTokenOfAutoship returns the stored token id, or empty when the
// autoship record has no saved card reference.
func (s *Store) PaymentTokenOfAutoship(ctx context.Context, autoshipPaymentID uuid.UUID) (string, error) {
	var autoship models.AutoshipPayment
	if err := s.db.WithContext(ctx).First(&autoship, "id = ?", autoshipPaymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return autoship.PaymentTokenID, nil
}

func (s *Store) CountryByISO(ctx context.Context, iso string) (*models.Country, error) {
	var country models.Country
	if err := s.db.WithContext(ctx).First(&country, "iso = ?", iso).Error; err != nil {
		return nil, err
	}
	return &country, nil
}

func (s *Store) ActiveChargebackExists(ctx context.Context, numberHash string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ChargebackCreditcard{}).
		Where("number_hash = ? AND active = ?", numberHash, true).
		Count(&count).Error
	return count > 0, err
}

// DebitForPayment subtracts the payment amount from one of the order owner's
// active gift cards. The balance guard is in the UPDATE itself so concurrent
// debits cannot overdraw.
func (s *Store) DebitForPayment(ctx context.Context, payment *models.Payment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", payment.OrderID).Error; err != nil {
			return fmt.Errorf("resolve payment order: %w", err)
		}

		var card models.GiftCard
		if err := tx.Where("user_id = ? AND active = ? AND balance >= ?", order.UserID, true, payment.Amount).
			First(&card).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return services.NewPaymentError(services.KindPaymentFailed, "no gift card with sufficient balance")
			}
			return err
		}

		res := tx.Model(&models.GiftCard{}).
			Where("id = ? AND balance >= ?", card.ID, payment.Amount).
			Update("balance", gorm.Expr("balance - ?", payment.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return services.NewPaymentError(services.KindPaymentFailed, "gift card balance changed, debit aborted")
		}
		return nil
	})
}

// VoidPayment sets the void state on behalf of external cancellation flows.
// It bypasses the forward-only state machine on purpose.
func (s *Store) VoidPayment(ctx context.Context, id uuid.UUID) error {
	return s.UpdatePayment(ctx, id, map[string]any{"state": models.PaymentStateVoid})
}
