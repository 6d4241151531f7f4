// Package confirmation renders the QR code a customer shows at the door.
package confirmation

import (
    "encoding/json"

    "github.com/skip2/go-qrcode"

    "github.com/iliyamo/cinema-reservation-api/internal/model"
)

// QRSize is the edge length of the generated PNG in pixels.
const QRSize = 256

// Payload is the content encoded in the QR code.
type Payload struct {
    ReservationID uint64 `json:"reservation_id"`
    ScreeningID   uint64 `json:"screening_id"`
    SeatNumber    int    `json:"seat_number"`
    CustomerEmail string `json:"customer_email"`
    Confirmed     bool   `json:"confirmed"`
}

// NewPayload extracts the QR content from a reservation.
func NewPayload(r model.Reservation) Payload {
    return Payload{
        ReservationID: r.ID,
        ScreeningID:   r.ScreeningID,
        SeatNumber:    r.SeatNumber,
        CustomerEmail: r.CustomerEmail,
        Confirmed:     r.IsConfirmed,
    }
}

// QRCode returns a PNG QR code encoding the reservation as JSON.
func QRCode(r model.Reservation) ([]byte, error) {
    data, err := json.Marshal(NewPayload(r))
    if err != nil {
        return nil, err
    }
    return qrcode.Encode(string(data), qrcode.Medium, QRSize)
}
