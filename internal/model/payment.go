package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSuccess is the only status written: payments are recorded as a
// trusted side effect of booking, no gateway is involved.
const PaymentSuccess = "Success"

// Payment is the 1:1 payment record of a booking. Cancellation leaves it
// untouched.
type Payment struct {
	ID        uint64          // payments.id
	BookingID uint64          // payments.booking_id
	Amount    decimal.Decimal // payments.amount
	Status    string          // payments.status
	CreatedAt time.Time       // payments.created_at
}
