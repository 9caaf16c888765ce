package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/immxrtalbeast/tutorchat/internal/domain"
	"github.com/immxrtalbeast/tutorchat/lib/logger/sl"
	"github.com/redis/go-redis/v9"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type countsPayload struct {
	StudentCount         int           `json:"student_count"`
	TutorAvailable       bool          `json:"tutor_available"`
	TutorCount           int           `json:"tutor_count"`
	StudentsByDepartment map[int64]int `json:"students_by_department"`
	TutorsByDepartment   map[int64]int `json:"tutors_by_department"`
}

// RedisMirror republishes every count snapshot on a Redis channel for
// observers outside this process.
type RedisMirror struct {
	client      redisPublisher
	channel     string
	broadcaster *Broadcaster
	log         *slog.Logger
}

func NewRedisMirror(client redisPublisher, channel string, b *Broadcaster, log *slog.Logger) *RedisMirror {
	if log == nil {
		log = slog.Default()
	}
	return &RedisMirror{client: client, channel: channel, broadcaster: b, log: log}
}

// Run forwards snapshots until ctx is canceled or the broadcaster closes.
func (m *RedisMirror) Run(ctx context.Context) error {
	const op = "service.redis_mirror.run"
	log := m.log.With(slog.String("op", op), slog.String("channel", m.channel))

	obs := m.broadcaster.Subscribe(nil)
	defer obs.Close()

	log.Info("mirroring counts to redis")
	for {
		counts, err := obs.NextCounts(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrObserverClosed) {
				return nil
			}
			return err
		}
		if err := m.publish(ctx, counts); err != nil {
			log.Warn("failed to mirror counts", sl.Err(err))
		}
	}
}

func (m *RedisMirror) publish(ctx context.Context, counts domain.QueueCounts) error {
	payload, err := json.Marshal(countsPayload{
		StudentCount:         counts.WaitingStudents,
		TutorAvailable:       counts.TutorAvailable(),
		TutorCount:           counts.WaitingTutors,
		StudentsByDepartment: counts.StudentsByDepartment,
		TutorsByDepartment:   counts.TutorsByDepartment,
	})
	if err != nil {
		return err
	}
	return m.client.Publish(ctx, m.channel, payload).Err()
}
