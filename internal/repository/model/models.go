package model

import "time"

type User struct {
	ID             int64  `gorm:"primaryKey;autoIncrement:false"`
	FirstName      string `gorm:"size:255;not null"`
	LastName       string `gorm:"size:255;not null"`
	DepartmentID   int64  `gorm:"index;not null"`
	IsTeacher      bool   `gorm:"not null;default:false"`
	PrivilegeLevel int    `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Bans           []Ban `gorm:"constraint:OnDelete:CASCADE"`
}

type Ban struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         int64     `gorm:"index;not null"`
	Reason         string    `gorm:"size:1024;not null"`
	ExpirationDate time.Time `gorm:"index;not null"`
	CreatedAt      time.Time
}

type ChatMessage struct {
	ID        uint      `gorm:"primaryKey"`
	RoomName  string    `gorm:"size:255;index;not null"`
	UserID    int64     `gorm:"index;not null"`
	Message   string    `gorm:"type:text;not null"`
	Timestamp time.Time `gorm:"index;not null"`
}
