package domain

import "time"

// Ban is owned by the directory; the hub only reads it when a user identifies.
type Ban struct {
	UserID         int64
	Reason         string
	ExpirationDate time.Time
}

func (b *Ban) ActiveAt(t time.Time) bool {
	return b != nil && b.ExpirationDate.After(t)
}
