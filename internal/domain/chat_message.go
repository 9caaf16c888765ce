package domain

import "time"

type ChatMessage struct {
	RoomName  string
	UserID    int64
	Message   string
	Timestamp time.Time
}

func NewChatMessage(roomName string, userID int64, message string) *ChatMessage {
	return &ChatMessage{
		RoomName:  roomName,
		UserID:    userID,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}
