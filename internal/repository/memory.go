package repository

import (
	"context"
	"sync"
	"time"

	"github.com/immxrtalbeast/tutorchat/internal/domain"
)

type InMemoryDirectoryRepository struct {
	mu    sync.RWMutex
	users map[int64]domain.UserSession
	bans  map[int64][]domain.Ban
}

func NewInMemoryDirectoryRepository() *InMemoryDirectoryRepository {
	return &InMemoryDirectoryRepository{
		users: make(map[int64]domain.UserSession),
		bans:  make(map[int64][]domain.Ban),
	}
}

func (r *InMemoryDirectoryRepository) AddUser(user domain.UserSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.UserID] = user
}

func (r *InMemoryDirectoryRepository) AddBan(ban domain.Ban) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bans[ban.UserID] = append(r.bans[ban.UserID], ban)
}

func (r *InMemoryDirectoryRepository) GetUserProfile(ctx context.Context, userID int64) (*domain.UserSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (r *InMemoryDirectoryRepository) GetActiveBan(ctx context.Context, userID int64, at time.Time) (*domain.Ban, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var active *domain.Ban
	for i := range r.bans[userID] {
		ban := r.bans[userID][i]
		if !ban.ActiveAt(at) {
			continue
		}
		if active == nil || ban.ExpirationDate.After(active.ExpirationDate) {
			active = &ban
		}
	}
	return active, nil
}

type InMemoryTranscriptRepository struct {
	mu       sync.RWMutex
	messages []domain.ChatMessage
}

func NewInMemoryTranscriptRepository() *InMemoryTranscriptRepository {
	return &InMemoryTranscriptRepository{}
}

func (r *InMemoryTranscriptRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *msg)
	return nil
}

// Messages returns a copy of everything appended so far.
func (r *InMemoryTranscriptRepository) Messages() []domain.ChatMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ChatMessage, len(r.messages))
	copy(out, r.messages)
	return out
}
