// Package queue carries reservation events over RabbitMQ: the payload type,
// a publisher used by the booking service and a consumer that appends every
// event to a log file.
package queue

import (
    "time"

    "github.com/iliyamo/cinema-reservation-api/internal/model"
)

// ReservationQueue is the durable queue all reservation events go to.
const ReservationQueue = "reservation.events"

// Event types.
const (
    EventCreated   = "reservation.created"
    EventConfirmed = "reservation.confirmed"
    EventCancelled = "reservation.cancelled"
)

// ReservationEvent describes a change to one reservation.  It carries enough
// for downstream consumers to log or notify without querying the database.
type ReservationEvent struct {
    Type          string `json:"type"`
    ReservationID uint64 `json:"reservation_id"`
    ScreeningID   uint64 `json:"screening_id"`
    SeatNumber    int    `json:"seat_number"`
    CustomerName  string `json:"customer_name"`
    CustomerEmail string `json:"customer_email"`
    IsConfirmed   bool   `json:"is_confirmed"`
    OccurredAt    string `json:"occurred_at"` // RFC3339, UTC
}

// NewReservationEvent builds an event of the given type from a reservation.
func NewReservationEvent(eventType string, r model.Reservation, at time.Time) ReservationEvent {
    return ReservationEvent{
        Type:          eventType,
        ReservationID: r.ID,
        ScreeningID:   r.ScreeningID,
        SeatNumber:    r.SeatNumber,
        CustomerName:  r.CustomerName,
        CustomerEmail: r.CustomerEmail,
        IsConfirmed:   r.IsConfirmed,
        OccurredAt:    at.UTC().Format(time.RFC3339),
    }
}
