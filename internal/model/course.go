package model

import "time"

// Course is a lecture series whose schedule generates tasks.
type Course struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     uint   `gorm:"index"`
	Name       string `gorm:"index:idx_user_course_name"`
	ECTSPoints float64
	StartDate  time.Time
	EndDate    time.Time
	// LectureWeekdays is a JSON array of weekdays, 0=Sunday, e.g. "[1,3]".
	LectureWeekdays string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Tasks           []Task `gorm:"foreignKey:CourseID"`
}
