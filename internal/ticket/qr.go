// Package ticket renders the scannable ticket of a booking.
package ticket

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// DefaultSize is the edge length in pixels of the rendered QR code.
const DefaultSize = 256

// Payload is the text encoded in a booking's QR code.
func Payload(b *model.BookingHistoryItem) string {
	labels := make([]string, len(b.Seats))
	for i, s := range b.Seats {
		labels[i] = s.Label
	}
	return fmt.Sprintf("booking:%d;showtime:%d;seats:%s", b.BookingID, b.ShowtimeID, strings.Join(labels, ","))
}

// PNG renders the booking's QR code as a PNG image.
func PNG(b *model.BookingHistoryItem, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	return qrcode.Encode(Payload(b), qrcode.Medium, size)
}
