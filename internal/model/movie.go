package model

import "time"

// Movie is a catalog entry.  Movies are read-mostly; the API only lists them.
//
// Fields:
//  ID              – primary key identifier.
//  Title           – display title.
//  Description     – synopsis.
//  DurationMinutes – running time.
//  Genre           – free-form genre label.
//  ReleaseDate     – release date (nil if unknown).
//  PosterPath      – optional poster location.
type Movie struct {
    ID              uint64     `json:"id"`                    // movies.id
    Title           string     `json:"title"`                 // movies.title
    Description     string     `json:"description"`           // movies.description
    DurationMinutes int        `json:"duration_minutes"`      // movies.duration_minutes
    Genre           string     `json:"genre"`                 // movies.genre
    ReleaseDate     *time.Time `json:"release_date"`          // movies.release_date (nullable)
    PosterPath      *string    `json:"poster_path,omitempty"` // movies.poster_image_path (nullable)
}
