package service

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/immxrtalbeast/tutorchat/internal/domain"
	"github.com/immxrtalbeast/tutorchat/internal/metrics"
	"github.com/immxrtalbeast/tutorchat/internal/repository"
	"github.com/immxrtalbeast/tutorchat/lib/logger/slogdiscard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const eventWait = time.Second

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	counts []domain.QueueCounts
}

func (n *recordingNotifier) Publish(c domain.QueueCounts) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counts = append(n.counts, c)
}

func (n *recordingNotifier) All() []domain.QueueCounts {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.QueueCounts, len(n.counts))
	copy(out, n.counts)
	return out
}

func (n *recordingNotifier) Last() domain.QueueCounts {
	all := n.All()
	if len(all) == 0 {
		return domain.QueueCounts{}
	}
	return all[len(all)-1]
}

type fixture struct {
	svc        *MatchmakingService
	directory  *repository.InMemoryDirectoryRepository
	transcript *repository.InMemoryTranscriptRepository
	notifier   *recordingNotifier
	clock      *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		directory:  repository.NewInMemoryDirectoryRepository(),
		transcript: repository.NewInMemoryTranscriptRepository(),
		notifier:   &recordingNotifier{},
		clock:      newFakeClock(),
	}
	f.svc = NewMatchmakingService(
		f.directory,
		f.transcript,
		f.notifier,
		metrics.NewChat(prometheus.NewRegistry()),
		slogdiscard.NewDiscardLogger(),
		Options{LivenessTimeout: 15 * time.Second, Now: f.clock.Now},
	)
	return f
}

func tutor(id, dept int64) domain.UserSession {
	return domain.UserSession{UserID: id, FirstName: "Tutor", LastName: "T" + strconv.FormatInt(id, 10), DepartmentID: dept, Role: domain.RoleTeacher}
}

func student(id, dept int64) domain.UserSession {
	return domain.UserSession{UserID: id, FirstName: "Student", LastName: "S" + strconv.FormatInt(id, 10), DepartmentID: dept, Role: domain.RoleStudent}
}

// expectEvent skips events of other types until one of type typ arrives.
func expectEvent(t *testing.T, conn *domain.Connection, typ string) domain.Event {
	t.Helper()
	deadline := time.After(eventWait)
	for {
		select {
		case ev := <-conn.Events():
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("event %q not received", typ)
			return domain.Event{}
		}
	}
}

func drain(conn *domain.Connection) []domain.Event {
	var out []domain.Event
	for {
		select {
		case ev := <-conn.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventTypes(events []domain.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

// identified connects and identifies a user that exists in the directory.
func (f *fixture) identified(t *testing.T, session domain.UserSession) *domain.Connection {
	t.Helper()
	f.directory.AddUser(session)
	conn := f.svc.Connect()
	_, err := f.svc.Identify(t.Context(), conn.ID, session.UserID)
	require.NoError(t, err)
	return conn
}
