package repository

import (
	"context"
	"errors"
	"time"

	"github.com/immxrtalbeast/tutorchat/internal/domain"
	"github.com/immxrtalbeast/tutorchat/internal/repository/model"
	"gorm.io/gorm"
)

type PostgresDirectoryRepository struct {
	db *gorm.DB
}

func NewPostgresDirectoryRepository(db *gorm.DB) *PostgresDirectoryRepository {
	return &PostgresDirectoryRepository{db: db}
}

func (r *PostgresDirectoryRepository) GetUserProfile(ctx context.Context, userID int64) (*domain.UserSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user model.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return toDomainSession(&user), nil
}

func (r *PostgresDirectoryRepository) GetActiveBan(ctx context.Context, userID int64, at time.Time) (*domain.Ban, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ban model.Ban
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expiration_date > ?", userID, at.UTC()).
		Order("expiration_date DESC").
		First(&ban).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &domain.Ban{
		UserID:         ban.UserID,
		Reason:         ban.Reason,
		ExpirationDate: ban.ExpirationDate.UTC(),
	}, nil
}

type PostgresTranscriptRepository struct {
	db *gorm.DB
}

func NewPostgresTranscriptRepository(db *gorm.DB) *PostgresTranscriptRepository {
	return &PostgresTranscriptRepository{db: db}
}

func (r *PostgresTranscriptRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil {
		return errors.New("chat message is nil")
	}

	return r.db.WithContext(ctx).Create(&model.ChatMessage{
		RoomName:  msg.RoomName,
		UserID:    msg.UserID,
		Message:   msg.Message,
		Timestamp: msg.Timestamp.UTC(),
	}).Error
}

func toDomainSession(user *model.User) *domain.UserSession {
	role := domain.RoleStudent
	switch {
	case user.IsTeacher:
		role = domain.RoleTeacher
	case user.PrivilegeLevel > 0:
		role = domain.RolePrivileged
	}

	return &domain.UserSession{
		UserID:         user.ID,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		DepartmentID:   user.DepartmentID,
		Role:           role,
		PrivilegeLevel: user.PrivilegeLevel,
	}
}
