package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrConnectionNotFound   = errors.New("connection not found")
	ErrAlreadyIdentified    = errors.New("connection already identified")
	ErrNotIdentified        = errors.New("connection not identified")
	ErrInvalidUserID        = errors.New("user id is required")
	ErrDuplicateUser        = errors.New("user already connected")
	ErrBanned               = errors.New("user is banned")
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
	ErrNotInRoom            = errors.New("connection is not in a room")
	ErrEmptyMessage         = errors.New("chat message cannot be empty")
	ErrMessageTooLong       = errors.New("chat message is too long")
	ErrTranscriptFailed     = errors.New("chat message was not saved")
	ErrUserNotConnected     = errors.New("user is not connected")
	ErrObserverClosed       = errors.New("observer closed")
)

// BanError rejects an identify attempt for a user with an active ban.
type BanError struct {
	Reason         string
	ExpirationDate time.Time
}

func (e *BanError) Error() string {
	return fmt.Sprintf("user is banned until %s: %s", e.ExpirationDate.Format(time.RFC3339), e.Reason)
}

func (e *BanError) Unwrap() error {
	return ErrBanned
}
