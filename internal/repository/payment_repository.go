package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// PaymentRepo records the payment row written with every booking.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// Create inserts a payment and populates its generated ID.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (booking_id, amount, status) VALUES (?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, p.BookingID, p.Amount, p.Status)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}
