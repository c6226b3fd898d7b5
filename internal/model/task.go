package model

import "time"

// Task priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Task statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// RecurrenceDayAll is the sentinel weekday token meaning "every day".
const RecurrenceDayAll = "all"

// RecurrenceRule describes a weekly repetition pattern: a set of weekday
// tokens ("mon".."sun", or "all") plus an optional HH:MM clock time.
// A rule without a time never materializes an instance.
type RecurrenceRule struct {
	Days []string `json:"days"`
	Time string   `json:"time,omitempty"`
}

// Matches reports whether the rule fires on the given weekday token.
func (r *RecurrenceRule) Matches(weekday string) bool {
	for _, d := range r.Days {
		if d == RecurrenceDayAll || d == weekday {
			return true
		}
	}
	return false
}

// Task represents a single item in the schedule. A task flagged recurring is
// a template: the daily generation job materializes concrete non-recurring
// instances from it and never mutates the template itself.
type Task struct {
	ID             uint   `gorm:"primaryKey"`
	Title          string `gorm:"size:100;not null"`
	Description    string
	ScheduledTime  *time.Time      `gorm:"index"`
	Duration       int             `gorm:"default:30"` // minutes
	Priority       string          `gorm:"default:medium"`
	Status         string          `gorm:"default:pending;index"`
	Tags           []string        `gorm:"serializer:json"`
	IsRecurring    bool            `gorm:"default:false"`
	RecurrenceRule *RecurrenceRule `gorm:"serializer:json;type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// TaskUpdate enumerates the mutable task fields for partial updates.
// Nil fields are left untouched.
type TaskUpdate struct {
	Title         *string
	Description   *string
	ScheduledTime *time.Time
	Duration      *int
	Priority      *string
	Status        *string
	Tags          *[]string
	CompletedAt   *time.Time
}

// Apply copies the set fields onto the task.
func (u TaskUpdate) Apply(task *Task) {
	if u.Title != nil {
		task.Title = *u.Title
	}
	if u.Description != nil {
		task.Description = *u.Description
	}
	if u.ScheduledTime != nil {
		task.ScheduledTime = u.ScheduledTime
	}
	if u.Duration != nil {
		task.Duration = *u.Duration
	}
	if u.Priority != nil {
		task.Priority = *u.Priority
	}
	if u.Status != nil {
		task.Status = *u.Status
	}
	if u.Tags != nil {
		task.Tags = *u.Tags
	}
	if u.CompletedAt != nil {
		task.CompletedAt = u.CompletedAt
	}
}
