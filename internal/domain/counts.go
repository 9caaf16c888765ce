package domain

// QueueCounts is the aggregate view pushed to notification observers.
type QueueCounts struct {
	WaitingStudents      int           `json:"waiting_students"`
	WaitingTutors        int           `json:"waiting_tutors"`
	StudentsByDepartment map[int64]int `json:"students_by_department"`
	TutorsByDepartment   map[int64]int `json:"tutors_by_department"`
}

func (c QueueCounts) TutorAvailable() bool {
	return c.WaitingTutors > 0
}

// Events renders the snapshot as observer events. A nil department means no
// department filter.
func (c QueueCounts) Events(department *int64) []Event {
	events := []Event{
		{Type: EventStudentCount, Payload: map[string]any{"count": c.WaitingStudents}},
		{Type: EventTutorCount, Payload: map[string]any{"available": c.TutorAvailable()}},
	}
	if department == nil {
		return events
	}
	dept := *department
	return append(events,
		Event{Type: EventDepartmentStudentCount, Payload: map[string]any{
			"department_id": dept,
			"count":         c.StudentsByDepartment[dept],
		}},
		Event{Type: EventDepartmentTutorCount, Payload: map[string]any{
			"department_id": dept,
			"count":         c.TutorsByDepartment[dept],
		}},
	)
}
