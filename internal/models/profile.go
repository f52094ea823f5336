package models

// Profile is the snapshot a socket session caches at connect time.
// Immutable for the life of the connection.
type Profile struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}
