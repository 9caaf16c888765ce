package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/immxrtalbeast/tutorchat/internal/domain"
	"github.com/immxrtalbeast/tutorchat/internal/metrics"
	"github.com/immxrtalbeast/tutorchat/internal/repository"
	"github.com/immxrtalbeast/tutorchat/lib/logger/sl"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultLivenessTimeout     = 15 * time.Second
	defaultCollaboratorTimeout = 5 * time.Second
	defaultEventBuffer         = 64
	defaultMaxMessageLength    = 4000
)

// Notifier receives the queue counts after every change in queue size.
// Publish is called with the service lock held and must not block.
type Notifier interface {
	Publish(counts domain.QueueCounts)
}

type Options struct {
	LivenessTimeout     time.Duration
	CollaboratorTimeout time.Duration
	EventBuffer         int
	MaxMessageLength    int
	Now                 func() time.Time
}

func (o *Options) setDefaults() {
	if o.LivenessTimeout <= 0 {
		o.LivenessTimeout = defaultLivenessTimeout
	}
	if o.CollaboratorTimeout <= 0 {
		o.CollaboratorTimeout = defaultCollaboratorTimeout
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = defaultEventBuffer
	}
	if o.MaxMessageLength <= 0 {
		o.MaxMessageLength = defaultMaxMessageLength
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
}

// MatchmakingService pairs waiting students with tutors and runs the rooms
// they chat in. Presence, queues and rooms share one mutex; directory and
// transcript calls run outside it.
type MatchmakingService struct {
	directory  repository.DirectoryRepository
	transcript repository.TranscriptRepository
	notifier   Notifier
	metrics    *metrics.Chat
	log        *slog.Logger
	opts       Options

	mu       sync.Mutex
	presence *presenceRegistry
	queues   *matchQueues
	rooms    *roomManager
}

func NewMatchmakingService(
	directory repository.DirectoryRepository,
	transcript repository.TranscriptRepository,
	notifier Notifier,
	m *metrics.Chat,
	log *slog.Logger,
	opts Options,
) *MatchmakingService {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = metrics.NewChat(prometheus.NewRegistry())
	}
	opts.setDefaults()
	return &MatchmakingService{
		directory:  directory,
		transcript: transcript,
		notifier:   notifier,
		metrics:    m,
		log:        log,
		opts:       opts,
		presence:   newPresenceRegistry(),
		queues:     newMatchQueues(),
		rooms:      newRoomManager(),
	}
}

// Connect registers a new anonymous connection and asks it to identify.
func (s *MatchmakingService) Connect() *domain.Connection {
	conn := domain.NewConnection(s.opts.EventBuffer)

	s.mu.Lock()
	s.presence.track(conn, s.opts.Now())
	s.updateGaugesLocked()
	s.mu.Unlock()

	conn.EnqueueEvent(domain.Event{Type: domain.EventRequestUserInfo})
	s.log.Debug("connection opened", slog.String("conn_id", conn.ID.String()))
	return conn
}

// Heartbeat refreshes the liveness timestamp of a connection.
func (s *MatchmakingService) Heartbeat(id domain.ConnectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.presence.touch(id, s.opts.Now()) {
		return ErrConnectionNotFound
	}
	return nil
}

// Identify resolves userID through the directory, rejects duplicates and
// banned users, registers the session and submits it for matching.
func (s *MatchmakingService) Identify(ctx context.Context, id domain.ConnectionID, userID int64) (*domain.UserSession, error) {
	const op = "service.matchmaking.identify"
	log := s.log.With(
		slog.String("op", op),
		slog.String("conn_id", id.String()),
		slog.Int64("user_id", userID),
	)

	conn, err := s.anonymousConnection(id)
	if err != nil {
		if conn != nil {
			conn.EnqueueEvent(domain.ErrorEvent(err.Error()))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if userID <= 0 {
		s.reject(conn, "invalid_user")
		conn.EnqueueEvent(domain.ErrorEvent(ErrInvalidUserID.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidUserID)
	}

	profile, ban, err := s.lookup(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Info("unknown user")
			s.reject(conn, "unknown_user")
			conn.EnqueueEvent(domain.ErrorEvent(repository.ErrUserNotFound.Error()))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Error("directory lookup failed", sl.Err(err))
		s.reject(conn, "directory_unavailable")
		conn.EnqueueEvent(domain.ErrorEvent(ErrDirectoryUnavailable.Error()))
		return nil, fmt.Errorf("%s: %w: %v", op, ErrDirectoryUnavailable, err)
	}

	if ban != nil {
		log.Info("banned user rejected", slog.Time("expires_at", ban.ExpirationDate))
		s.reject(conn, "banned")
		conn.EnqueueEvent(domain.Event{Type: domain.EventBanned, Payload: map[string]any{
			"reason":          ban.Reason,
			"expiration_date": ban.ExpirationDate.UTC().Format(time.RFC3339),
		}})
		s.dropAnonymous(id)
		return nil, fmt.Errorf("%s: %w", op, &BanError{Reason: ban.Reason, ExpirationDate: ban.ExpirationDate})
	}

	profile.UserID = userID

	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.queues.counts()
	if err := s.presence.register(id, *profile); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateUser):
			log.Info("duplicate user rejected")
			s.reject(conn, "duplicate_user")
			conn.EnqueueEvent(domain.Event{Type: domain.EventDuplicateUser})
			s.presence.unregister(id)
			conn.Close()
			s.updateGaugesLocked()
		case errors.Is(err, ErrConnectionNotFound):
			log.Debug("connection closed during identify")
		default:
			conn.EnqueueEvent(domain.ErrorEvent(err.Error()))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.submitLocked(id, *profile)
	s.updateGaugesLocked()
	s.publishIfChangedLocked(before)

	log.Info("user identified",
		slog.String("side", string(domain.ClassifyRole(*profile))),
		slog.Int64("department_id", profile.DepartmentID),
	)
	return profile, nil
}

// SendMessage persists text to the transcript and relays it to every member
// of the sender's room. A transcript failure is reported to the sender but
// does not stop the relay.
func (s *MatchmakingService) SendMessage(ctx context.Context, id domain.ConnectionID, text string) error {
	const op = "service.matchmaking.send_message"
	log := s.log.With(
		slog.String("op", op),
		slog.String("conn_id", id.String()),
	)

	s.mu.Lock()
	entry, ok := s.presence.find(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrConnectionNotFound)
	}
	sender := entry.conn
	if entry.session == nil {
		s.mu.Unlock()
		sender.EnqueueEvent(domain.ErrorEvent(ErrNotIdentified.Error()))
		return fmt.Errorf("%s: %w", op, ErrNotIdentified)
	}
	session := *entry.session
	room, inRoom := s.rooms.get(entry.room)
	if !inRoom {
		s.mu.Unlock()
		sender.EnqueueEvent(domain.ErrorEvent(ErrNotInRoom.Error()))
		return fmt.Errorf("%s: %w", op, ErrNotInRoom)
	}
	members := make([]*domain.Connection, 0, 2)
	for _, memberID := range room.Members() {
		if member, ok := s.presence.find(memberID); ok {
			members = append(members, member.conn)
		}
	}
	s.mu.Unlock()

	text, err := s.validateMessage(text)
	if err != nil {
		sender.EnqueueEvent(domain.ErrorEvent(err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := domain.NewChatMessage(room.Name, session.UserID, text)
	msg.Timestamp = s.opts.Now()

	var persistErr error
	appendCtx, cancel := context.WithTimeout(ctx, s.opts.CollaboratorTimeout)
	if err := s.transcript.Append(appendCtx, msg); err != nil {
		log.Error("failed to save chat message", slog.String("room", room.Name), sl.Err(err))
		s.metrics.TranscriptFailures.Inc()
		sender.EnqueueEvent(domain.ErrorEvent(ErrTranscriptFailed.Error()))
		persistErr = fmt.Errorf("%s: %w: %v", op, ErrTranscriptFailed, err)
	}
	cancel()

	event := domain.Event{Type: domain.EventReceiveMessage, Payload: map[string]any{
		"user_id":   session.UserID,
		"message":   msg.Message,
		"timestamp": msg.Timestamp.Format(time.RFC3339Nano),
	}}
	for _, member := range members {
		if !member.EnqueueEvent(event) {
			log.Debug("dropping chat event", slog.String("peer", member.ID.String()))
		}
	}
	s.metrics.Messages.Inc()

	return persistErr
}

// Leave tears down the caller's queue slot or room.
func (s *MatchmakingService) Leave(id domain.ConnectionID) bool {
	return s.RemoveFromRoom(id, domain.ReasonUserDisconnected)
}

// Disconnect is called by the transport once the socket is gone.
func (s *MatchmakingService) Disconnect(id domain.ConnectionID) bool {
	return s.RemoveFromRoom(id, domain.ReasonUserDisconnected)
}

// ConnectedUsers returns the identified sessions ordered by user id.
func (s *MatchmakingService) ConnectedUsers() []domain.UserSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence.sessions()
}

// RequestConnectedUsers pushes the presence snapshot to the requesting connection.
func (s *MatchmakingService) RequestConnectedUsers(id domain.ConnectionID) error {
	s.mu.Lock()
	entry, ok := s.presence.find(id)
	if !ok {
		s.mu.Unlock()
		return ErrConnectionNotFound
	}
	users := s.presence.sessions()
	s.mu.Unlock()

	entry.conn.EnqueueEvent(domain.Event{Type: domain.EventConnectedUsers, Payload: map[string]any{
		"users": users,
	}})
	return nil
}

// Kick notifies the user's connection and removes it.
func (s *MatchmakingService) Kick(userID int64) error {
	const op = "service.matchmaking.kick"

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.presence.findByUser(userID)
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrUserNotConnected)
	}
	if entry, ok := s.presence.find(id); ok {
		entry.conn.EnqueueEvent(domain.Event{Type: domain.EventKicked})
	}

	before := s.queues.counts()
	s.removeLocked(id, domain.ReasonKicked)
	s.publishIfChangedLocked(before)

	s.log.Info("user kicked", slog.String("op", op), slog.Int64("user_id", userID))
	return nil
}

// RemoveFromRoom is the single teardown path for leave, disconnect, kick and
// eviction. A second call for the same connection is a no-op.
func (s *MatchmakingService) RemoveFromRoom(id domain.ConnectionID, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.queues.counts()
	removed := s.removeLocked(id, reason)
	s.publishIfChangedLocked(before)
	return removed
}

// Sweep evicts connections silent for longer than the liveness timeout and
// then closes rooms left with fewer than two members.
func (s *MatchmakingService) Sweep(now time.Time) int {
	const op = "service.matchmaking.sweep"
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.queues.counts()

	evicted := 0
	for _, id := range s.presence.stale(now, s.opts.LivenessTimeout) {
		if s.evictLocked(id, domain.ReasonInactivity) {
			evicted++
		}
	}

	for _, room := range s.rooms.all() {
		var present []domain.ConnectionID
		for _, memberID := range room.Members() {
			if entry, ok := s.presence.find(memberID); ok && entry.room == room.Name {
				present = append(present, memberID)
			}
		}
		switch len(present) {
		case 0:
			s.rooms.remove(room.Name)
		case 1:
			s.rooms.remove(room.Name)
			if s.evictLocked(present[0], domain.ReasonPartnerDisconnected) {
				evicted++
			}
		}
	}

	s.publishIfChangedLocked(before)
	s.metrics.SweepDuration.Observe(time.Since(start).Seconds())

	if evicted > 0 {
		s.log.Info("liveness sweep evicted connections", slog.String("op", op), slog.Int("evicted", evicted))
	}
	return evicted
}

// Counts returns the current waiting counts.
func (s *MatchmakingService) Counts() domain.QueueCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queues.counts()
}

// DepartmentCounts returns waiting students and tutors of one department.
func (s *MatchmakingService) DepartmentCounts(departmentID int64) (students int, tutors int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := s.queues.counts()
	return counts.StudentsByDepartment[departmentID], counts.TutorsByDepartment[departmentID]
}

func (s *MatchmakingService) anonymousConnection(id domain.ConnectionID) (*domain.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.presence.find(id)
	if !ok {
		return nil, ErrConnectionNotFound
	}
	if entry.session != nil {
		return entry.conn, ErrAlreadyIdentified
	}
	return entry.conn, nil
}

func (s *MatchmakingService) lookup(ctx context.Context, userID int64) (*domain.UserSession, *domain.Ban, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.CollaboratorTimeout)
	defer cancel()

	profile, err := s.directory.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	ban, err := s.directory.GetActiveBan(ctx, userID, s.opts.Now())
	if err != nil {
		return nil, nil, err
	}
	if !ban.ActiveAt(s.opts.Now()) {
		ban = nil
	}
	return profile, ban, nil
}

func (s *MatchmakingService) dropAnonymous(id domain.ConnectionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.presence.unregister(id); ok {
		entry.conn.Close()
	}
	s.updateGaugesLocked()
}

func (s *MatchmakingService) reject(conn *domain.Connection, reason string) {
	s.metrics.Rejections.WithLabelValues(reason).Inc()
	s.log.Debug("identify rejected", slog.String("conn_id", conn.ID.String()), slog.String("reason", reason))
}

func (s *MatchmakingService) validateMessage(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(trimmed) > s.opts.MaxMessageLength {
		return "", ErrMessageTooLong
	}
	return trimmed, nil
}

func (s *MatchmakingService) submitLocked(id domain.ConnectionID, session domain.UserSession) {
	self := waiter{conn: id, session: session}
	peer, matched := s.queues.submit(self)
	if !matched {
		message := "Waiting for a tutor"
		if domain.ClassifyRole(session) == domain.SideTutor {
			message = "Waiting for a student"
		}
		if entry, ok := s.presence.find(id); ok {
			entry.conn.EnqueueEvent(domain.Event{Type: domain.EventWaitingForMatch, Payload: map[string]any{
				"message": message,
			}})
		}
		return
	}

	tutor, student := peer, self
	if domain.ClassifyRole(session) == domain.SideTutor {
		tutor, student = self, peer
	}

	room := s.rooms.create(tutor, student)
	s.presence.setRoom(tutor.conn, room.Name)
	s.presence.setRoom(student.conn, room.Name)
	s.notifyMoved(tutor.conn, room.Name, student.session)
	s.notifyMoved(student.conn, room.Name, tutor.session)

	s.metrics.Matches.Inc()
	s.log.Info("room created",
		slog.String("room", room.Name),
		slog.Int64("tutor_id", tutor.session.UserID),
		slog.Int64("student_id", student.session.UserID),
	)
}

func (s *MatchmakingService) notifyMoved(id domain.ConnectionID, room string, counterpart domain.UserSession) {
	entry, ok := s.presence.find(id)
	if !ok {
		return
	}
	entry.conn.EnqueueEvent(domain.Event{Type: domain.EventMovedToRoom, Payload: map[string]any{
		"room":        room,
		"counterpart": counterpart.DisplayName(),
	}})
}

func (s *MatchmakingService) removeLocked(id domain.ConnectionID, reason string) bool {
	entry, ok := s.presence.unregister(id)
	if !ok {
		return false
	}
	if entry.session != nil {
		s.queues.withdraw(*entry.session)
	}
	entry.conn.EnqueueEvent(domain.DisconnectEvent(reason))
	entry.conn.Close()
	s.metrics.Removals.WithLabelValues(reason).Inc()

	if entry.room != "" {
		if room, ok := s.rooms.get(entry.room); ok {
			s.rooms.remove(room.Name)
			if partnerID, ok := room.Partner(id); ok {
				s.removePartnerLocked(partnerID, room.Name)
			}
		}
	}

	s.updateGaugesLocked()
	s.log.Debug("connection removed",
		slog.String("conn_id", id.String()),
		slog.String("reason", reason),
		slog.String("room", entry.room),
	)
	return true
}

func (s *MatchmakingService) removePartnerLocked(id domain.ConnectionID, room string) {
	entry, ok := s.presence.find(id)
	if !ok || entry.room != room {
		return
	}
	s.presence.unregister(id)
	if entry.session != nil {
		s.queues.withdraw(*entry.session)
	}
	entry.conn.EnqueueEvent(domain.DisconnectEvent(domain.ReasonPartnerDisconnected))
	entry.conn.Close()
	s.metrics.Removals.WithLabelValues(domain.ReasonPartnerDisconnected).Inc()
}

// evictLocked keeps one failing eviction from aborting the rest of a sweep.
func (s *MatchmakingService) evictLocked(id domain.ConnectionID, reason string) (removed bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("eviction failed",
				slog.String("conn_id", id.String()),
				slog.String("reason", reason),
				slog.Any("panic", r),
			)
			removed = false
		}
	}()
	return s.removeLocked(id, reason)
}

func (s *MatchmakingService) publishIfChangedLocked(before domain.QueueCounts) {
	after := s.queues.counts()
	if after.WaitingStudents == before.WaitingStudents && after.WaitingTutors == before.WaitingTutors {
		return
	}
	s.metrics.WaitingStudents.Set(float64(after.WaitingStudents))
	s.metrics.WaitingTutors.Set(float64(after.WaitingTutors))
	if s.notifier != nil {
		s.notifier.Publish(after)
	}
}

func (s *MatchmakingService) updateGaugesLocked() {
	s.metrics.Connections.Set(float64(s.presence.connections()))
	s.metrics.IdentifiedUsers.Set(float64(s.presence.identified()))
	s.metrics.ActiveRooms.Set(float64(s.rooms.len()))
}
