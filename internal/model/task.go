package model

import "time"

// Task represents a single item in the planner, either entered by hand or
// generated from a course schedule.
type Task struct {
	ID       uint  `gorm:"primaryKey"`
	UserID   uint  `gorm:"index"`
	CourseID *uint `gorm:"index"`
	// GenerationID is set on tasks created from a course schedule and shared by
	// every task of one regeneration. Manual tasks leave it empty.
	GenerationID string `gorm:"index"`
	Name         string
	Status       string `gorm:"default:pending"`
	Priority     *int
	Deadline     *time.Time
	EffortHours  *int
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsGenerated reports whether the task came from a course schedule.
func (t Task) IsGenerated() bool {
	return t.GenerationID != ""
}
