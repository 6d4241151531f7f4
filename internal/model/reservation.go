package model

import "time"

// Reservation is one customer's claim on one seat for one screening.
// A seat number appears at most once per screening; the database enforces
// this with a unique key over (screening_id, seat_number).
//
// Fields:
//  ID            – primary key identifier, assigned on insert.
//  ScreeningID   – screening being reserved (immutable).
//  SeatNumber    – seat within the theater, 1..capacity.
//  CustomerName  – name supplied by the customer.
//  CustomerEmail – contact email supplied by the customer.
//  ReservedAt    – commit time of the insert, UTC.
//  IsConfirmed   – confirmation flag, false until explicitly updated.
//  DocumentRef   – blob store reference of the confirmation document
//                  (nil until one is attached).
type Reservation struct {
    ID            uint64    `json:"id"`             // reservations.id
    ScreeningID   uint64    `json:"screening_id"`   // reservations.screening_id
    SeatNumber    int       `json:"seat_number"`    // reservations.seat_number
    CustomerName  string    `json:"customer_name"`  // reservations.customer_name
    CustomerEmail string    `json:"customer_email"` // reservations.customer_email
    ReservedAt    time.Time `json:"reserved_at"`    // reservations.reserved_at
    IsConfirmed   bool      `json:"is_confirmed"`   // reservations.is_confirmed
    DocumentRef   *string   `json:"document_ref"`   // reservations.document_ref (nullable)
}

// HasDocument reports whether a confirmation document is attached.
func (r Reservation) HasDocument() bool { return r.DocumentRef != nil && *r.DocumentRef != "" }

// ReservationDetail is a reservation joined with the screening it belongs
// to, for display.
type ReservationDetail struct {
    Reservation
    MovieID         uint64    `json:"movie_id"`
    MovieTitle      string    `json:"movie_title"`
    TheaterID       uint64    `json:"theater_id"`
    TheaterName     string    `json:"theater_name"`
    ScreeningStarts time.Time `json:"screening_starts_at"`
}
