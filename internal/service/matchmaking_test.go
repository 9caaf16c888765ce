package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/immxrtalbeast/tutorchat/internal/domain"
	"github.com/immxrtalbeast/tutorchat/internal/metrics"
	"github.com/immxrtalbeast/tutorchat/internal/repository"
	"github.com/immxrtalbeast/tutorchat/internal/repository/mocks"
	"github.com/immxrtalbeast/tutorchat/lib/logger/slogdiscard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestTutorAndStudentAreMatchedAndChat(t *testing.T) {
	f := newFixture(t)

	tutorConn := f.identified(t, tutor(10, 1))
	expectEvent(t, tutorConn, domain.EventRequestUserInfo)
	waiting := expectEvent(t, tutorConn, domain.EventWaitingForMatch)
	assert.Equal(t, "Waiting for a student", waiting.Payload["message"])

	studentConn := f.identified(t, student(20, 4))
	moved := expectEvent(t, tutorConn, domain.EventMovedToRoom)
	assert.Equal(t, "Student S20", moved.Payload["counterpart"])
	assert.Equal(t, domain.RoomName(1, 10, 20), moved.Payload["room"])
	moved = expectEvent(t, studentConn, domain.EventMovedToRoom)
	assert.Equal(t, "Tutor T10", moved.Payload["counterpart"])

	require.NoError(t, f.svc.SendMessage(t.Context(), studentConn.ID, "hello"))

	got := expectEvent(t, tutorConn, domain.EventReceiveMessage)
	assert.Equal(t, int64(20), got.Payload["user_id"])
	assert.Equal(t, "hello", got.Payload["message"])
	expectEvent(t, studentConn, domain.EventReceiveMessage)

	msgs := f.transcript.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.ChatMessage{
		RoomName:  domain.RoomName(1, 10, 20),
		UserID:    20,
		Message:   "hello",
		Timestamp: f.clock.Now(),
	}, msgs[0])
}

func TestMatchingIsFIFOPerRole(t *testing.T) {
	f := newFixture(t)

	t1 := f.identified(t, tutor(1, 1))
	t2 := f.identified(t, tutor(2, 1))
	s1 := f.identified(t, student(3, 1))

	moved := expectEvent(t, s1, domain.EventMovedToRoom)
	assert.Equal(t, "Tutor T1", moved.Payload["counterpart"])
	expectEvent(t, t1, domain.EventMovedToRoom)
	assert.NotContains(t, eventTypes(drain(t2)), domain.EventMovedToRoom)

	counts := f.svc.Counts()
	assert.Equal(t, 1, counts.WaitingTutors)
	assert.Equal(t, 0, counts.WaitingStudents)
}

func TestDuplicateIdentifyIsRejected(t *testing.T) {
	f := newFixture(t)
	first := f.identified(t, student(30, 1))

	second := f.svc.Connect()
	_, err := f.svc.Identify(t.Context(), second.ID, 30)
	require.ErrorIs(t, err, ErrDuplicateUser)

	expectEvent(t, second, domain.EventDuplicateUser)
	assert.True(t, second.IsClosed())
	assert.False(t, first.IsClosed())

	users := f.svc.ConnectedUsers()
	require.Len(t, users, 1)
	assert.Equal(t, int64(30), users[0].UserID)
	assert.Equal(t, 1, f.svc.Counts().WaitingStudents)
}

func TestIdentifyTwiceOnSameConnection(t *testing.T) {
	f := newFixture(t)
	conn := f.identified(t, student(30, 1))

	_, err := f.svc.Identify(t.Context(), conn.ID, 30)
	require.ErrorIs(t, err, ErrAlreadyIdentified)
	expectEvent(t, conn, domain.EventError)
	assert.False(t, conn.IsClosed())
}

func TestBannedUserIsRejectedAndClosed(t *testing.T) {
	f := newFixture(t)
	f.directory.AddUser(student(40, 1))
	expires := f.clock.Now().Add(24 * time.Hour)
	f.directory.AddBan(domain.Ban{UserID: 40, Reason: "spam", ExpirationDate: expires})

	conn := f.svc.Connect()
	_, err := f.svc.Identify(t.Context(), conn.ID, 40)
	require.ErrorIs(t, err, ErrBanned)

	var banErr *BanError
	require.True(t, errors.As(err, &banErr))
	assert.Equal(t, "spam", banErr.Reason)

	ev := expectEvent(t, conn, domain.EventBanned)
	assert.Equal(t, "spam", ev.Payload["reason"])
	assert.Equal(t, expires.Format(time.RFC3339), ev.Payload["expiration_date"])
	assert.True(t, conn.IsClosed())
	assert.Empty(t, f.svc.ConnectedUsers())
	assert.Equal(t, 0, f.svc.Counts().WaitingStudents)
}

func TestExpiredBanDoesNotReject(t *testing.T) {
	f := newFixture(t)
	f.directory.AddBan(domain.Ban{UserID: 41, Reason: "old", ExpirationDate: f.clock.Now().Add(-time.Minute)})

	conn := f.identified(t, student(41, 1))
	assert.False(t, conn.IsClosed())
}

func TestUnknownUserLeavesConnectionOpen(t *testing.T) {
	f := newFixture(t)
	conn := f.svc.Connect()

	_, err := f.svc.Identify(t.Context(), conn.ID, 99)
	require.ErrorIs(t, err, repository.ErrUserNotFound)
	expectEvent(t, conn, domain.EventError)
	assert.False(t, conn.IsClosed())

	_, err = f.svc.Identify(t.Context(), conn.ID, 0)
	require.ErrorIs(t, err, ErrInvalidUserID)
	assert.False(t, conn.IsClosed())
}

func TestRemoveFromRoomIsIdempotent(t *testing.T) {
	f := newFixture(t)
	conn := f.identified(t, student(30, 1))
	require.Len(t, f.notifier.All(), 1)

	assert.True(t, f.svc.RemoveFromRoom(conn.ID, domain.ReasonUserDisconnected))
	published := f.notifier.All()
	require.Len(t, published, 2)
	assert.Equal(t, 0, published[1].WaitingStudents)

	assert.False(t, f.svc.RemoveFromRoom(conn.ID, domain.ReasonUserDisconnected))
	assert.Len(t, f.notifier.All(), 2)
	assert.Equal(t, 0, f.svc.Counts().WaitingStudents)
	assert.Empty(t, f.svc.ConnectedUsers())
}

func TestRemovingRoomMemberDisconnectsPartner(t *testing.T) {
	f := newFixture(t)
	tutorConn := f.identified(t, tutor(10, 1))
	studentConn := f.identified(t, student(20, 1))
	drain(tutorConn)
	drain(studentConn)

	require.True(t, f.svc.Leave(studentConn.ID))

	self := expectEvent(t, studentConn, domain.EventDisconnectUser)
	assert.Equal(t, domain.ReasonUserDisconnected, self.Payload["reason"])
	partner := expectEvent(t, tutorConn, domain.EventDisconnectUser)
	assert.Equal(t, domain.ReasonPartnerDisconnected, partner.Payload["reason"])

	assert.True(t, tutorConn.IsClosed())
	assert.True(t, studentConn.IsClosed())
	assert.Empty(t, f.svc.ConnectedUsers())
	assert.Equal(t, 0, f.svc.rooms.len())
	assert.False(t, f.svc.RemoveFromRoom(tutorConn.ID, domain.ReasonUserDisconnected))
}

func TestSweepEvictsSilentConnectionAndPartner(t *testing.T) {
	f := newFixture(t)
	tutorConn := f.identified(t, tutor(10, 1))
	studentConn := f.identified(t, student(20, 1))
	drain(tutorConn)
	drain(studentConn)

	f.clock.Advance(10 * time.Second)
	require.NoError(t, f.svc.Heartbeat(studentConn.ID))
	f.clock.Advance(6 * time.Second)

	assert.Equal(t, 1, f.svc.Sweep(f.clock.Now()))

	ev := expectEvent(t, tutorConn, domain.EventDisconnectUser)
	assert.Equal(t, domain.ReasonInactivity, ev.Payload["reason"])
	ev = expectEvent(t, studentConn, domain.EventDisconnectUser)
	assert.Equal(t, domain.ReasonPartnerDisconnected, ev.Payload["reason"])
	assert.Empty(t, f.svc.ConnectedUsers())
	assert.Equal(t, 0, f.svc.rooms.len())
}

func TestSweepKeepsFreshConnections(t *testing.T) {
	f := newFixture(t)
	conn := f.identified(t, student(30, 1))

	f.clock.Advance(15 * time.Second)
	assert.Equal(t, 0, f.svc.Sweep(f.clock.Now()))
	assert.False(t, conn.IsClosed())
}

func TestSilentWaitingStudentIsRemovedFromQueue(t *testing.T) {
	f := newFixture(t)
	conn := f.identified(t, student(30, 1))
	assert.Equal(t, 1, f.notifier.Last().WaitingStudents)

	f.clock.Advance(16 * time.Second)
	assert.Equal(t, 1, f.svc.Sweep(f.clock.Now()))

	assert.Equal(t, 0, f.notifier.Last().WaitingStudents)
	assert.Equal(t, 0, f.svc.Counts().WaitingStudents)
	assert.True(t, conn.IsClosed())
}

func TestSweepEvictsSilentAnonymousConnection(t *testing.T) {
	f := newFixture(t)
	conn := f.svc.Connect()

	f.clock.Advance(16 * time.Second)
	assert.Equal(t, 1, f.svc.Sweep(f.clock.Now()))
	assert.True(t, conn.IsClosed())
	assert.ErrorIs(t, f.svc.Heartbeat(conn.ID), ErrConnectionNotFound)
}

func TestSweepClosesSingleMemberRoom(t *testing.T) {
	f := newFixture(t)
	tutorConn := f.identified(t, tutor(10, 1))
	studentConn := f.identified(t, student(20, 1))
	drain(studentConn)

	f.svc.mu.Lock()
	f.svc.presence.unregister(tutorConn.ID)
	f.svc.mu.Unlock()

	assert.Equal(t, 1, f.svc.Sweep(f.clock.Now()))
	ev := expectEvent(t, studentConn, domain.EventDisconnectUser)
	assert.Equal(t, domain.ReasonPartnerDisconnected, ev.Payload["reason"])
	assert.Equal(t, 0, f.svc.rooms.len())
}

func TestKick(t *testing.T) {
	f := newFixture(t)
	conn := f.identified(t, student(30, 1))
	drain(conn)

	require.NoError(t, f.svc.Kick(30))
	events := eventTypes(drain(conn))
	assert.Equal(t, []string{domain.EventKicked, domain.EventDisconnectUser}, events)
	assert.True(t, conn.IsClosed())
	assert.Equal(t, 0, f.svc.Counts().WaitingStudents)

	assert.ErrorIs(t, f.svc.Kick(30), ErrUserNotConnected)
}

func TestSendMessageRejections(t *testing.T) {
	f := newFixture(t)

	anonymous := f.svc.Connect()
	assert.ErrorIs(t, f.svc.SendMessage(t.Context(), anonymous.ID, "hi"), ErrNotIdentified)

	waiting := f.identified(t, student(30, 1))
	assert.ErrorIs(t, f.svc.SendMessage(t.Context(), waiting.ID, "hi"), ErrNotInRoom)

	f.identified(t, tutor(10, 1))
	assert.ErrorIs(t, f.svc.SendMessage(t.Context(), waiting.ID, "   "), ErrEmptyMessage)
	assert.ErrorIs(t, f.svc.SendMessage(t.Context(), waiting.ID, strings.Repeat("a", 4001)), ErrMessageTooLong)
	assert.Empty(t, f.transcript.Messages())
}

func TestRequestConnectedUsers(t *testing.T) {
	f := newFixture(t)
	a := f.identified(t, student(2, 1))
	f.identified(t, student(1, 1))

	require.NoError(t, f.svc.RequestConnectedUsers(a.ID))
	ev := expectEvent(t, a, domain.EventConnectedUsers)
	users, ok := ev.Payload["users"].([]domain.UserSession)
	require.True(t, ok)
	require.Len(t, users, 2)
	assert.Equal(t, int64(1), users[0].UserID)
}

func TestDepartmentCounts(t *testing.T) {
	f := newFixture(t)
	f.identified(t, student(1, 5))
	f.identified(t, student(2, 5))
	f.identified(t, student(3, 6))

	students, tutors := f.svc.DepartmentCounts(5)
	assert.Equal(t, 2, students)
	assert.Equal(t, 0, tutors)

	last := f.notifier.Last()
	assert.Equal(t, 3, last.WaitingStudents)
	assert.Equal(t, map[int64]int{5: 2, 6: 1}, last.StudentsByDepartment)
}

func newMockService(t *testing.T, dir repository.DirectoryRepository, tr repository.TranscriptRepository, timeout time.Duration) *MatchmakingService {
	t.Helper()
	return NewMatchmakingService(
		dir,
		tr,
		&recordingNotifier{},
		metrics.NewChat(prometheus.NewRegistry()),
		slogdiscard.NewDiscardLogger(),
		Options{CollaboratorTimeout: timeout},
	)
}

func TestTranscriptFailureStillRelays(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := repository.NewInMemoryDirectoryRepository()
	dir.AddUser(tutor(10, 1))
	dir.AddUser(student(20, 1))
	tr := mocks.NewMockTranscriptRepository(ctrl)
	tr.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	svc := newMockService(t, dir, tr, time.Second)
	tutorConn := svc.Connect()
	_, err := svc.Identify(t.Context(), tutorConn.ID, 10)
	require.NoError(t, err)
	studentConn := svc.Connect()
	_, err = svc.Identify(t.Context(), studentConn.ID, 20)
	require.NoError(t, err)

	err = svc.SendMessage(t.Context(), studentConn.ID, "hello")
	require.ErrorIs(t, err, ErrTranscriptFailed)

	got := expectEvent(t, tutorConn, domain.EventReceiveMessage)
	assert.Equal(t, "hello", got.Payload["message"])
	soft := expectEvent(t, studentConn, domain.EventError)
	assert.Equal(t, ErrTranscriptFailed.Error(), soft.Payload["message"])
	expectEvent(t, studentConn, domain.EventReceiveMessage)
}

func TestDirectoryTimeoutRejectsRegistration(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectoryRepository(ctrl)
	dir.EXPECT().GetUserProfile(gomock.Any(), int64(10)).DoAndReturn(
		func(ctx context.Context, _ int64) (*domain.UserSession, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	)

	svc := newMockService(t, dir, repository.NewInMemoryTranscriptRepository(), 20*time.Millisecond)
	conn := svc.Connect()

	_, err := svc.Identify(t.Context(), conn.ID, 10)
	require.ErrorIs(t, err, ErrDirectoryUnavailable)

	ev := expectEvent(t, conn, domain.EventError)
	assert.Equal(t, ErrDirectoryUnavailable.Error(), ev.Payload["message"])
	assert.False(t, conn.IsClosed())
	assert.Empty(t, svc.ConnectedUsers())
}

func TestDisconnectDuringIdentifyLeavesNoState(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectoryRepository(ctrl)
	svc := newMockService(t, dir, repository.NewInMemoryTranscriptRepository(), time.Second)
	conn := svc.Connect()

	dir.EXPECT().GetUserProfile(gomock.Any(), int64(30)).DoAndReturn(
		func(context.Context, int64) (*domain.UserSession, error) {
			svc.Disconnect(conn.ID)
			s := student(30, 1)
			return &s, nil
		},
	)
	dir.EXPECT().GetActiveBan(gomock.Any(), int64(30), gomock.Any()).Return(nil, nil)

	_, err := svc.Identify(t.Context(), conn.ID, 30)
	require.ErrorIs(t, err, ErrConnectionNotFound)
	assert.Empty(t, svc.ConnectedUsers())
	assert.Equal(t, 0, svc.Counts().WaitingStudents)
}

func TestConcurrentMatchingKeepsInvariants(t *testing.T) {
	f := newFixture(t)
	const pairs = 50

	conns := make([]*domain.Connection, 0, pairs*2)
	for i := int64(1); i <= pairs; i++ {
		f.directory.AddUser(tutor(i, i%3))
		f.directory.AddUser(student(1000+i, i%3))
		conns = append(conns, f.svc.Connect(), f.svc.Connect())
	}

	var wg sync.WaitGroup
	for i, conn := range conns {
		userID := int64(i/2 + 1)
		if i%2 == 1 {
			userID += 1000
		}
		wg.Add(1)
		go func(conn *domain.Connection, userID int64) {
			defer wg.Done()
			_, err := f.svc.Identify(context.Background(), conn.ID, userID)
			assert.NoError(t, err)
		}(conn, userID)
	}
	wg.Wait()

	f.svc.mu.Lock()
	assert.Equal(t, pairs, f.svc.rooms.len())
	assert.Equal(t, 0, f.svc.queues.tutors.len())
	assert.Equal(t, 0, f.svc.queues.students.len())
	for _, room := range f.svc.rooms.all() {
		for _, member := range room.Members() {
			entry, ok := f.svc.presence.find(member)
			require.True(t, ok)
			assert.Equal(t, room.Name, entry.room)
			assert.False(t, f.svc.queues.tutors.contains(entry.session.UserID))
			assert.False(t, f.svc.queues.students.contains(entry.session.UserID))
		}
	}
	f.svc.mu.Unlock()

	for _, conn := range conns {
		wg.Add(2)
		go func(id domain.ConnectionID) {
			defer wg.Done()
			f.svc.Disconnect(id)
		}(conn.ID)
		go func(id domain.ConnectionID) {
			defer wg.Done()
			f.svc.Leave(id)
		}(conn.ID)
	}
	wg.Wait()

	assert.Equal(t, 0, f.svc.rooms.len())
	assert.Empty(t, f.svc.ConnectedUsers())
	assert.Equal(t, 0, f.svc.presence.connections())
}

func TestServiceWithoutMetricsOrLogger(t *testing.T) {
	directory := repository.NewInMemoryDirectoryRepository()
	directory.AddUser(student(30, 1))
	svc := NewMatchmakingService(directory, repository.NewInMemoryTranscriptRepository(), nil, nil, nil, Options{})

	var conn *domain.Connection
	require.NotPanics(t, func() {
		conn = svc.Connect()
		_, err := svc.Identify(t.Context(), conn.ID, 30)
		require.NoError(t, err)
		svc.Sweep(time.Now())
	})
	expectEvent(t, conn, domain.EventRequestUserInfo)
	expectEvent(t, conn, domain.EventWaitingForMatch)
	assert.True(t, svc.Disconnect(conn.ID))
}
