package dto

import (
	"time"

	"github.com/noah-isme/academy-lifecycle-api/internal/models"
)

// CpdRequest records (or overwrites) the CPD entry of an alumnus for a year.
type CpdRequest struct {
	Year      int              `json:"year" validate:"required,gte=1900,lte=9999"`
	DateTaken time.Time        `json:"dateTaken" validate:"required"`
	Result    models.CpdResult `json:"result" validate:"required,oneof=pass fail"`
	Score     float64          `json:"score" validate:"gte=0"`
	Remarks   string           `json:"remarks" validate:"max=1000"`
}

// SubscriptionPaymentRequest records a yearly subscription payment.
type SubscriptionPaymentRequest struct {
	Year          int        `json:"year" validate:"required,gte=1900,lte=9999"`
	Amount        float64    `json:"amount" validate:"gt=0"`
	PaymentMethod string     `json:"paymentMethod" validate:"required,max=64"`
	TransactionID string     `json:"transactionId" validate:"required,max=128"`
	PaymentDate   *time.Time `json:"paymentDate,omitempty"`
}
