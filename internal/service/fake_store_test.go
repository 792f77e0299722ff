package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/queue"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories. Writes made
// inside WithTx are staged and applied atomically at commit, where the
// (showtime, seat) uniqueness of claims is enforced the way the real
// unique key does.
type memStore struct {
	mu sync.Mutex

	seats     map[uint64]model.Seat
	showtimes map[uint64]model.Showtime
	listings  []model.ShowtimeListing
	languages []string

	bookings map[uint64]model.Booking
	claims   []model.SeatClaim
	payments map[uint64]model.Payment
	nextID   uint64

	failPayment   error
	failClaimsErr error
	beforeCommit  func()
	layoutReads   map[uint64]int
	claimedAmongN int
}

type memTx struct {
	bookings  []model.Booking
	claims    []model.SeatClaim
	payments  []model.Payment
	released  []uint64
	cancelled []uint64
}

type memTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		seats:       make(map[uint64]model.Seat),
		showtimes:   make(map[uint64]model.Showtime),
		bookings:    make(map[uint64]model.Booking),
		payments:    make(map[uint64]model.Payment),
		layoutReads: make(map[uint64]int),
	}
}

func (m *memStore) stores() Stores {
	return Stores{Tx: m, Seats: m, Showtimes: m, Bookings: m, Payments: memPayments{m}}
}

// addRow adds seats numbered 1..n to a row of a screen, with the given
// seat numbers replaced by placeholders.
func (m *memStore) addRow(screenID uint64, row string, n int, price string, gaps ...uint32) []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	gap := make(map[uint32]bool)
	for _, g := range gaps {
		gap[g] = true
	}
	var ids []uint64
	for i := 1; i <= n; i++ {
		m.nextID++
		num := uint32(i)
		if gap[num] {
			num = model.PlaceholderSeatNumber
		}
		m.seats[m.nextID] = model.Seat{
			ID: m.nextID, ScreenID: screenID, RowLabel: row, SeatNumber: num,
			SeatType: "Regular", Price: decimal.RequireFromString(price),
		}
		ids = append(ids, m.nextID)
	}
	return ids
}

func (m *memStore) addShowtime(id, screenID uint64, start time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showtimes[id] = model.Showtime{ID: id, MovieID: 1, ScreenID: screenID, StartTime: start, Language: "English"}
}

func (m *memStore) setPrice(seatID uint64, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.seats[seatID]
	s.Price = decimal.RequireFromString(price)
	m.seats[seatID] = s
}

func (m *memStore) counts() (bookings, claims, payments int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings), len(m.claims), len(m.payments)
}

func (m *memStore) claimsFor(bookingID uint64) []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uint64
	for _, c := range m.claims {
		if c.BookingID == bookingID {
			out = append(out, c.SeatID)
		}
	}
	return out
}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{}).(*memTx)
	return tx
}

func (m *memStore) WithTx(ctx context.Context, _ *sql.TxOptions, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	tx := &memTx{}
	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		return err
	}
	if m.beforeCommit != nil {
		m.beforeCommit()
	}
	return m.commit(tx)
}

func (m *memStore) commit(tx *memTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	released := make(map[uint64]bool)
	for _, id := range tx.released {
		released[id] = true
	}
	taken := make(map[[2]uint64]bool)
	kept := m.claims[:0:0]
	for _, c := range m.claims {
		if released[c.BookingID] {
			continue
		}
		kept = append(kept, c)
		taken[[2]uint64{c.ShowtimeID, c.SeatID}] = true
	}
	for _, c := range tx.claims {
		key := [2]uint64{c.ShowtimeID, c.SeatID}
		if taken[key] {
			return fmt.Errorf("%w: showtime %d seat %d", repository.ErrDuplicateClaim, c.ShowtimeID, c.SeatID)
		}
		taken[key] = true
	}

	m.claims = append(kept, tx.claims...)
	for _, b := range tx.bookings {
		m.bookings[b.ID] = b
	}
	for _, id := range tx.cancelled {
		b := m.bookings[id]
		b.Status = model.BookingCancelled
		m.bookings[id] = b
	}
	for _, p := range tx.payments {
		m.payments[p.BookingID] = p
	}
	return nil
}

func (m *memStore) GetByScreen(_ context.Context, screenID uint64) ([]model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layoutReads[screenID]++
	var out []model.Seat
	for _, s := range m.seats {
		if s.ScreenID == screenID {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, repository.ErrScreenNotFound
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RowLabel != out[j].RowLabel {
			return out[i].RowLabel < out[j].RowLabel
		}
		if out[i].SeatNumber != out[j].SeatNumber {
			return out[i].SeatNumber < out[j].SeatNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) GetByIDsForScreen(_ context.Context, screenID uint64, ids []uint64) ([]model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Seat
	for _, id := range ids {
		if s, ok := m.seats[id]; ok && s.ScreenID == screenID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.Showtime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.showtimes[id]
	if !ok {
		return nil, repository.ErrShowtimeNotFound
	}
	return &st, nil
}

func (m *memStore) SearchByMovie(_ context.Context, q repository.ShowtimeSearchQuery) ([]model.ShowtimeListing, error) {
	var out []model.ShowtimeListing
	for _, l := range m.listings {
		if l.MovieID != q.MovieID || l.StartTime.Before(q.From) || l.StartTime.After(q.To) {
			continue
		}
		if q.Language != "" && l.Language != q.Language {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *memStore) AvailableLanguages(context.Context, uint64, string, time.Time, time.Time) ([]string, error) {
	return m.languages, nil
}

func (m *memStore) ClaimedSeatIDs(_ context.Context, showtimeID uint64) (map[uint64]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint64]struct{})
	for _, c := range m.claims {
		if c.ShowtimeID == showtimeID {
			out[c.SeatID] = struct{}{}
		}
	}
	return out, nil
}

func (m *memStore) ClaimedAmong(_ context.Context, showtimeID uint64, seatIDs []uint64) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimedAmongN++
	want := make(map[uint64]bool)
	for _, id := range seatIDs {
		want[id] = true
	}
	var out []uint64
	for _, c := range m.claims {
		if c.ShowtimeID == showtimeID && want[c.SeatID] {
			out = append(out, c.SeatID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memStore) Create(ctx context.Context, b *model.Booking) error {
	m.mu.Lock()
	m.nextID++
	b.ID = m.nextID
	m.mu.Unlock()
	b.BookedAt = time.Now().UTC()
	txFrom(ctx).bookings = append(txFrom(ctx).bookings, *b)
	return nil
}

func (m *memStore) CreateClaims(ctx context.Context, claims []model.SeatClaim) error {
	if m.failClaimsErr != nil {
		return m.failClaimsErr
	}
	txFrom(ctx).claims = append(txFrom(ctx).claims, claims...)
	return nil
}

func (m *memStore) GetForUpdate(_ context.Context, id uint64) (*model.Booking, *model.Showtime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil, repository.ErrBookingNotFound
	}
	st := m.showtimes[b.ShowtimeID]
	return &b, &st, nil
}

func (m *memStore) DeleteClaims(ctx context.Context, bookingID uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.claims {
		if c.BookingID == bookingID {
			n++
		}
	}
	txFrom(ctx).released = append(txFrom(ctx).released, bookingID)
	return n, nil
}

func (m *memStore) MarkCancelled(ctx context.Context, bookingID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bookings[bookingID].Status != model.BookingActive {
		return false, nil
	}
	txFrom(ctx).cancelled = append(txFrom(ctx).cancelled, bookingID)
	return true, nil
}

func (m *memStore) ListByUser(_ context.Context, userID uint64) ([]model.BookingHistoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BookingHistoryItem
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, model.BookingHistoryItem{BookingID: b.ID, ShowtimeID: b.ShowtimeID, Status: b.Status, TotalAmount: b.TotalAmount})
		}
	}
	return out, nil
}

func (m *memStore) GetByIDForUser(_ context.Context, bookingID, userID uint64) (*model.BookingHistoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok || b.UserID != userID {
		return nil, repository.ErrBookingNotFound
	}
	return &model.BookingHistoryItem{BookingID: b.ID, ShowtimeID: b.ShowtimeID, Status: b.Status, TotalAmount: b.TotalAmount}, nil
}

// the payments side of memStore is a separate type because PaymentStore
// and BookingStore both declare Create.
type memPayments struct{ m *memStore }

func (p memPayments) Create(ctx context.Context, pay *model.Payment) error {
	if p.m.failPayment != nil {
		return p.m.failPayment
	}
	p.m.mu.Lock()
	p.m.nextID++
	pay.ID = p.m.nextID
	p.m.mu.Unlock()
	txFrom(ctx).payments = append(txFrom(ctx).payments, *pay)
	return nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []queue.BookingConfirmedEvent
	cancelled []queue.BookingCancelledEvent
	err       error
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, ev)
	return p.err
}

func (p *recordingPublisher) PublishBookingCancelled(_ context.Context, ev queue.BookingCancelledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, ev)
	return p.err
}
