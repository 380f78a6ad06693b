package models

import "time"

// Location is always surfaced as a nested pair of floats, whatever the
// storage representation.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Visit struct {
	ID        string
	OwnerID   string
	PlaceName string
	Location  Location
	ImageURL  string
	CreatedAt time.Time
}

// Owner is the minimal identity joined onto admin visit listings.
type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type VisitWithOwner struct {
	Visit
	Owner Owner
}
