package domain

import "strings"

type Role string

const (
	RoleTeacher    Role = "teacher"
	RolePrivileged Role = "privileged"
	RoleStudent    Role = "student"
)

// Side is the matchmaking queue a session belongs to.
type Side string

const (
	SideTutor   Side = "tutor"
	SideStudent Side = "student"
)

const tutorPrivilegeLevel = 2

// UserSession is the profile of an identified connection. It does not change
// for the lifetime of the connection.
type UserSession struct {
	UserID         int64  `json:"user_id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	DepartmentID   int64  `json:"department_id"`
	Role           Role   `json:"role"`
	PrivilegeLevel int    `json:"privilege_level"`
}

// ClassifyRole puts teachers and anyone with privilege level 2 or higher on
// the tutor side.
func ClassifyRole(s UserSession) Side {
	if s.Role == RoleTeacher || s.PrivilegeLevel >= tutorPrivilegeLevel {
		return SideTutor
	}
	return SideStudent
}

func (s UserSession) DisplayName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}
