package service

import "github.com/immxrtalbeast/tutorchat/internal/domain"

// roomManager owns the room records. Membership of each connection lives in
// the presence registry.
type roomManager struct {
	rooms map[string]*domain.Room
}

func newRoomManager() *roomManager {
	return &roomManager{rooms: make(map[string]*domain.Room)}
}

func (m *roomManager) create(tutor, student waiter) *domain.Room {
	room := domain.NewRoom(tutor.session, tutor.conn, student.session, student.conn)
	m.rooms[room.Name] = room
	return room
}

func (m *roomManager) get(name string) (*domain.Room, bool) {
	room, ok := m.rooms[name]
	return room, ok
}

func (m *roomManager) remove(name string) bool {
	if _, ok := m.rooms[name]; !ok {
		return false
	}
	delete(m.rooms, name)
	return true
}

func (m *roomManager) all() []*domain.Room {
	out := make([]*domain.Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		out = append(out, room)
	}
	return out
}

func (m *roomManager) len() int {
	return len(m.rooms)
}
