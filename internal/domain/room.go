package domain

import (
	"fmt"
	"time"
)

// Room is a two-party chat session between a matched tutor and student.
type Room struct {
	Name      string
	Tutor     ConnectionID
	Student   ConnectionID
	CreatedAt time.Time
}

// NewRoom builds a room whose name is derived from the tutor's department and
// both user ids, so the same pair always maps to the same name.
func NewRoom(tutor UserSession, tutorConn ConnectionID, student UserSession, studentConn ConnectionID) *Room {
	return &Room{
		Name:      RoomName(tutor.DepartmentID, tutor.UserID, student.UserID),
		Tutor:     tutorConn,
		Student:   studentConn,
		CreatedAt: time.Now().UTC(),
	}
}

func RoomName(departmentID, tutorID, studentID int64) string {
	return fmt.Sprintf("dept-%d_tutor-%d_student-%d", departmentID, tutorID, studentID)
}

func (r *Room) Members() []ConnectionID {
	return []ConnectionID{r.Tutor, r.Student}
}

// Partner returns the other member of the room.
func (r *Room) Partner(id ConnectionID) (ConnectionID, bool) {
	switch id {
	case r.Tutor:
		return r.Student, true
	case r.Student:
		return r.Tutor, true
	}
	return ConnectionID{}, false
}
