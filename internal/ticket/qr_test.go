package ticket

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

func sampleBooking() *model.BookingHistoryItem {
	return &model.BookingHistoryItem{
		BookingID:  12,
		ShowtimeID: 4,
		Seats: []model.BookedSeat{
			{SeatID: 10, RowLabel: "A", SeatNumber: 5, Label: "A5"},
			{SeatID: 11, RowLabel: "A", SeatNumber: 6, Label: "A6"},
		},
	}
}

func TestPayload(t *testing.T) {
	assert.Equal(t, "booking:12;showtime:4;seats:A5,A6", Payload(sampleBooking()))
}

func TestPNG(t *testing.T) {
	data, err := PNG(sampleBooking(), 0)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, img.Bounds().Dx())
}
