package model

import "time"

// Notification types.
const (
	NotificationReminder = "reminder"
	NotificationSummary  = "summary"
	NotificationUpcoming = "upcoming"
)

// Notification is a pending or delivered push for a task. Rows are created
// when a task acquires a schedule time, deleted (unsent only) when the task
// is rescheduled, marked sent once delivered, and never otherwise mutated.
// Deleting the owning task cascades to its notifications.
type Notification struct {
	ID        uint      `gorm:"primaryKey"`
	TaskID    *uint     `gorm:"index"`
	Task      *Task     `gorm:"constraint:OnDelete:CASCADE"`
	FireAt    time.Time `gorm:"index"`
	Type      string
	Sent      bool      `gorm:"default:false;index"`
	RelayID   string    // message id returned by the relay on send
	CreatedAt time.Time
}
