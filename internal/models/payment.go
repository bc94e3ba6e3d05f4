package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string // Статус платежа

const (
	PendingPayment    PaymentStatus = "PENDING"
	ProcessingPayment PaymentStatus = "PROCESSING"
	CompletedPayment  PaymentStatus = "COMPLETED"
	FailedPayment     PaymentStatus = "FAILED"
	RefundedPayment   PaymentStatus = "REFUNDED"
)

// PlatformFeeRate - комиссия площадки.
var PlatformFeeRate = decimal.RequireFromString("0.10")

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PendingPayment:    {ProcessingPayment},
	ProcessingPayment: {CompletedPayment, FailedPayment},
	CompletedPayment:  {RefundedPayment},
	FailedPayment:     {},
	RefundedPayment:   {},
}

// AllowedTransitions возвращает допустимые следующие статусы платежа.
func (s PaymentStatus) AllowedTransitions() []PaymentStatus {
	allowed := paymentTransitions[s]
	out := make([]PaymentStatus, len(allowed))
	copy(out, allowed)
	return out
}

// CanTransitionTo проверяет переход по таблице.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, st := range paymentTransitions[s] {
		if st == target {
			return true
		}
	}
	return false
}

// Valid проверяет, что статус известен.
func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

// PaymentRecord - учётная запись о выплате за конкурс.
// PlatformFee и NetAmount меняются только через SetAmount.
type PaymentRecord struct {
	ID                   uuid.UUID       `json:"id"`
	CompetitionID        uuid.UUID       `json:"competition"`
	ClientID             uuid.UUID       `json:"client"`
	FreelancerID         *uuid.UUID      `json:"freelancer"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Status               PaymentStatus   `json:"status"`
	PlatformFee          decimal.Decimal `json:"platform_fee"`
	NetAmount            decimal.Decimal `json:"net_amount"`
	TransactionReference *string         `json:"transaction_reference"`
	Notes                string          `json:"notes"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	CompletedAt          *time.Time      `json:"completed_at"`
}

// SetAmount задаёт сумму и пересчитывает комиссию и сумму к выплате.
func (p *PaymentRecord) SetAmount(amount decimal.Decimal) {
	p.Amount = amount.Round(2)
	p.PlatformFee = p.Amount.Mul(PlatformFeeRate).Round(2)
	p.NetAmount = p.Amount.Sub(p.PlatformFee).Round(2)
}

// NewPaymentRecord создаёт запись в статусе PENDING.
func NewPaymentRecord(competition *Competition, freelancerID uuid.UUID, now time.Time) *PaymentRecord {
	p := &PaymentRecord{
		ID:            uuid.New(),
		CompetitionID: competition.ID,
		ClientID:      competition.ClientID,
		FreelancerID:  &freelancerID,
		Currency:      competition.Currency,
		Status:        PendingPayment,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	p.SetAmount(competition.Budget)
	return p
}

// PaymentStatusRequest - смена статуса платежа администратором.
type PaymentStatusRequest struct {
	Status               string  `json:"status" validate:"required"`
	TransactionReference *string `json:"transaction_reference" validate:"omitempty,max=100"`
	Notes                *string `json:"notes"`
}

// PaymentFilter - параметры выборки платежей.
type PaymentFilter struct {
	ClientID     *uuid.UUID
	FreelancerID *uuid.UUID
	Status       *PaymentStatus
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}
