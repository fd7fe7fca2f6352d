package domain

import (
	"time"
)

// RestroomRecord is a public restroom as stored by the record source.
// Address is free text; it is the only geolocation key available.
type RestroomRecord struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Address            string    `json:"address"`
	Description        string    `json:"description"`
	Rating             float64   `json:"rating"`
	OpenHours          string    `json:"open_hours"`
	CloseHours         string    `json:"close_hours"`
	DisabilityFriendly bool      `json:"disability_friendly"`
	ChangingStation    bool      `json:"changing_station"`
	Saved              bool      `json:"saved"`
	PhotoKey           string    `json:"photo_key,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewRestroom is the submission form for a restroom. Rating is kept as the
// raw text the user typed and parsed during validation.
type NewRestroom struct {
	Name               string `json:"name"`
	Rating             string `json:"rating"`
	OpenHours          string `json:"open_hours"`
	CloseHours         string `json:"close_hours"`
	Address            string `json:"address"`
	Description        string `json:"description"`
	DisabilityFriendly bool   `json:"disability_friendly"`
	ChangingStation    bool   `json:"changing_station"`
	Saved              bool   `json:"saved"`
}

// Pin is a renderable map marker derived from a successfully geocoded record.
type Pin struct {
	RecordID    string   `json:"record_id"`
	Name        string   `json:"name"`
	Coordinate  GeoPoint `json:"coordinate"`
	Description string   `json:"description"`
}

// LiveLocation is the device's most recent position fix.
type LiveLocation struct {
	Coordinate GeoPoint  `json:"coordinate"`
	Accuracy   float64   `json:"accuracy"` // meters
	Timestamp  time.Time `json:"timestamp"`
}

// PermissionStatus mirrors the states a location permission prompt can end in.
type PermissionStatus int

const (
	PermissionUndetermined PermissionStatus = iota
	PermissionGranted
	PermissionDenied
)

func (s PermissionStatus) String() string {
	switch s {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "undetermined"
	}
}

// RestroomCreated is published after a restroom record is stored.
type RestroomCreated struct {
	RecordID string    `json:"record_id"`
	Address  string    `json:"address"`
	Time     time.Time `json:"time"`
}

// RestroomGeocoded is published once a record's address has been resolved
// and cached, so live sessions can refresh their pins.
type RestroomGeocoded struct {
	RecordID   string    `json:"record_id"`
	Coordinate GeoPoint  `json:"coordinate"`
	Time       time.Time `json:"time"`
}
