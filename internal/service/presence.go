package service

import (
	"sort"
	"time"

	"github.com/immxrtalbeast/tutorchat/internal/domain"
)

type presenceEntry struct {
	conn     *domain.Connection
	lastSeen time.Time
	session  *domain.UserSession
	room     string
}

// presenceRegistry tracks every live connection, its liveness timestamp, the
// user it identified as and the room it sits in. Guarded by the owning
// service's mutex.
type presenceRegistry struct {
	entries map[domain.ConnectionID]*presenceEntry
	byUser  map[int64]domain.ConnectionID
}

func newPresenceRegistry() *presenceRegistry {
	return &presenceRegistry{
		entries: make(map[domain.ConnectionID]*presenceEntry),
		byUser:  make(map[int64]domain.ConnectionID),
	}
}

func (r *presenceRegistry) track(conn *domain.Connection, now time.Time) {
	r.entries[conn.ID] = &presenceEntry{conn: conn, lastSeen: now}
}

func (r *presenceRegistry) touch(id domain.ConnectionID, now time.Time) bool {
	entry, ok := r.entries[id]
	if !ok {
		return false
	}
	entry.lastSeen = now
	return true
}

func (r *presenceRegistry) register(id domain.ConnectionID, session domain.UserSession) error {
	entry, ok := r.entries[id]
	if !ok {
		return ErrConnectionNotFound
	}
	if entry.session != nil {
		return ErrAlreadyIdentified
	}
	if _, taken := r.byUser[session.UserID]; taken {
		return ErrDuplicateUser
	}
	entry.session = &session
	r.byUser[session.UserID] = id
	return nil
}

// unregister drops the presence and liveness entries together.
func (r *presenceRegistry) unregister(id domain.ConnectionID) (*presenceEntry, bool) {
	entry, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	delete(r.entries, id)
	if entry.session != nil && r.byUser[entry.session.UserID] == id {
		delete(r.byUser, entry.session.UserID)
	}
	return entry, true
}

func (r *presenceRegistry) find(id domain.ConnectionID) (*presenceEntry, bool) {
	entry, ok := r.entries[id]
	return entry, ok
}

func (r *presenceRegistry) findByUser(userID int64) (domain.ConnectionID, bool) {
	id, ok := r.byUser[userID]
	return id, ok
}

func (r *presenceRegistry) setRoom(id domain.ConnectionID, room string) {
	if entry, ok := r.entries[id]; ok {
		entry.room = room
	}
}

// stale lists connections silent for longer than timeout.
func (r *presenceRegistry) stale(now time.Time, timeout time.Duration) []domain.ConnectionID {
	var ids []domain.ConnectionID
	for id, entry := range r.entries {
		if now.Sub(entry.lastSeen) > timeout {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *presenceRegistry) sessions() []domain.UserSession {
	out := make([]domain.UserSession, 0, len(r.byUser))
	for _, id := range r.byUser {
		out = append(out, *r.entries[id].session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (r *presenceRegistry) connections() int {
	return len(r.entries)
}

func (r *presenceRegistry) identified() int {
	return len(r.byUser)
}
