package domain

// Event is the JSON envelope exchanged with chat clients and observers.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Inbound client events.
const (
	EventIdentify              = "identify"
	EventHeartbeat             = "heartbeat"
	EventSendMessage           = "send_message"
	EventLeave                 = "leave"
	EventRequestConnectedUsers = "request_connected_users"
)

// Outbound client events.
const (
	EventRequestUserInfo = "request_user_info"
	EventDuplicateUser   = "duplicate_user"
	EventBanned          = "banned"
	EventKicked          = "kicked"
	EventWaitingForMatch = "waiting_for_match"
	EventMovedToRoom     = "moved_to_room"
	EventDisconnectUser  = "disconnect_user"
	EventReceiveMessage  = "receive_message"
	EventConnectedUsers  = "connected_users"
	EventError           = "error"
)

// Observer events.
const (
	EventStudentCount           = "student_count"
	EventTutorCount             = "tutor_count"
	EventDepartmentStudentCount = "department_student_count"
	EventDepartmentTutorCount   = "department_tutor_count"
)

// Disconnect reasons.
const (
	ReasonInactivity          = "Inactivity"
	ReasonKicked              = "Kicked"
	ReasonUserDisconnected    = "User disconnected"
	ReasonPartnerDisconnected = "partner disconnected"
)

func ErrorEvent(message string) Event {
	return Event{Type: EventError, Payload: map[string]any{"message": message}}
}

func DisconnectEvent(reason string) Event {
	return Event{Type: EventDisconnectUser, Payload: map[string]any{"reason": reason}}
}
