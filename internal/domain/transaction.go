package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// DateLayout is the calendar-day format used for transaction and report dates.
const DateLayout = "2006-01-02"

// Transaction is one ledger entry. Date is a calendar day (DateLayout);
// Amount is always positive and Type decides its sign in aggregates.
type Transaction struct {
	TransactionID string          `json:"id"`
	UserID        string          `json:"userId"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Date          string          `json:"date"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Signed returns the amount as it contributes to a balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

type CreateTransactionRequest struct {
	Type        string          `json:"type" validate:"required,oneof=income expense"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category" validate:"required,max=50"`
	Date        string          `json:"date" validate:"required"`
	Description string          `json:"description" validate:"max=200"`
}

type UpdateTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category" validate:"omitempty,min=1,max=50"`
	Date        *string          `json:"date"`
	Description *string          `json:"description" validate:"omitempty,max=200"`
}

// Empty reports whether the request carries no field to change.
func (r UpdateTransactionRequest) Empty() bool {
	return r.Amount == nil && r.Category == nil && r.Date == nil && r.Description == nil
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the calendar day in DateLayout.
func ParseDate(s string) (string, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.Format(DateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(DateLayout), nil
	}
	return "", fmt.Errorf("date %q must be YYYY-MM-DD: %w", s, ErrBadRequest)
}

// DateOf formats t as a calendar day in t's own location.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// MonthStart returns the first day of t's month in DateLayout.
func MonthStart(t time.Time) string {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).Format(DateLayout)
}
