package model

// Theater is an auditorium with a fixed number of seats numbered 1..Capacity.
type Theater struct {
    ID       uint64 `json:"id"`       // theaters.id
    Name     string `json:"name"`     // theaters.name
    Capacity int    `json:"capacity"` // theaters.capacity
}
