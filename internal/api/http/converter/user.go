package converter

import "github.com/immxrtalbeast/tutorchat/internal/domain"

type UserResponse struct {
	UserID       int64       `json:"user_id"`
	DisplayName  string      `json:"display_name"`
	DepartmentID int64       `json:"department_id"`
	Role         domain.Role `json:"role"`
	Side         domain.Side `json:"side"`
}

type CountsResponse struct {
	WaitingStudents int    `json:"waiting_students"`
	TutorAvailable  bool   `json:"tutor_available"`
	DepartmentID    *int64 `json:"department_id,omitempty"`
	Students        *int   `json:"department_students,omitempty"`
	Tutors          *int   `json:"department_tutors,omitempty"`
}

func UserToApi(s domain.UserSession) UserResponse {
	return UserResponse{
		UserID:       s.UserID,
		DisplayName:  s.DisplayName(),
		DepartmentID: s.DepartmentID,
		Role:         s.Role,
		Side:         domain.ClassifyRole(s),
	}
}

func UsersToApi(sessions []domain.UserSession) []UserResponse {
	users := make([]UserResponse, 0, len(sessions))
	for _, s := range sessions {
		users = append(users, UserToApi(s))
	}
	return users
}

func CountsToApi(c domain.QueueCounts) CountsResponse {
	return CountsResponse{
		WaitingStudents: c.WaitingStudents,
		TutorAvailable:  c.TutorAvailable(),
	}
}

func DepartmentCountsToApi(c domain.QueueCounts, departmentID int64, students, tutors int) CountsResponse {
	resp := CountsToApi(c)
	resp.DepartmentID = &departmentID
	resp.Students = &students
	resp.Tutors = &tutors
	return resp
}
