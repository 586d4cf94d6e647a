package model

import "time"

// Device is a push registration owned by the broader CRM; the pusher only
// reads tokens from it.
type Device struct {
	ID        int64
	UserID    int64
	Token     string
	Platform  string // ios / android
	CreatedAt time.Time
}
