//go:generate mockgen -source=repository.go -destination=mocks/mock_repository.go -package=mocks

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/immxrtalbeast/tutorchat/internal/domain"
)

var ErrUserNotFound = errors.New("user not found")

// DirectoryRepository resolves user profiles and bans.
type DirectoryRepository interface {
	GetUserProfile(ctx context.Context, userID int64) (*domain.UserSession, error)
	// GetActiveBan returns nil, nil when the user has no ban active at the given time.
	GetActiveBan(ctx context.Context, userID int64, at time.Time) (*domain.Ban, error)
}

// TranscriptRepository is the append-only chat log.
type TranscriptRepository interface {
	Append(ctx context.Context, msg *domain.ChatMessage) error
}
