package model

import "time"

// Screening is one showing of a movie in a theater.  Screenings are never
// updated once created.
type Screening struct {
    ID        uint64    `json:"id"`         // screenings.id
    MovieID   uint64    `json:"movie_id"`   // screenings.movie_id
    TheaterID uint64    `json:"theater_id"` // screenings.theater_id
    StartsAt  time.Time `json:"starts_at"`  // screenings.starts_at
}

// ScreeningDetail is a screening joined with its movie title and theater.
type ScreeningDetail struct {
    Screening
    MovieTitle      string `json:"movie_title"`
    TheaterName     string `json:"theater_name"`
    TheaterCapacity int    `json:"theater_capacity"`
}

// ScreeningInfo is the minimal view the booking flow needs: which theater a
// screening runs in and how many seats that theater has.
type ScreeningInfo struct {
    ScreeningID     uint64
    MovieID         uint64
    TheaterID       uint64
    TheaterCapacity int
}
