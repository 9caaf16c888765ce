package service

import (
	"context"

	"github.com/immxrtalbeast/tutorchat/internal/domain"
)

type ChatInteractor interface {
	Connect() *domain.Connection
	Identify(ctx context.Context, id domain.ConnectionID, userID int64) (*domain.UserSession, error)
	Heartbeat(id domain.ConnectionID) error
	SendMessage(ctx context.Context, id domain.ConnectionID, text string) error
	Leave(id domain.ConnectionID) bool
	Disconnect(id domain.ConnectionID) bool
	RequestConnectedUsers(id domain.ConnectionID) error
}

type PresenceInteractor interface {
	ConnectedUsers() []domain.UserSession
	Kick(userID int64) error
	Counts() domain.QueueCounts
	DepartmentCounts(departmentID int64) (students int, tutors int)
}

type NotificationSource interface {
	Subscribe(department *int64) *Observer
}

var (
	_ ChatInteractor     = (*MatchmakingService)(nil)
	_ PresenceInteractor = (*MatchmakingService)(nil)
	_ NotificationSource = (*Broadcaster)(nil)
	_ Notifier           = (*Broadcaster)(nil)
)
