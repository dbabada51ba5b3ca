// Package schedule expands a course's lecture schedule into the lecture and
// assignment tasks that are stored for it.
package schedule

import (
	"fmt"
	"math"
	"time"

	"study-planner/internal/calendar"
)

// StatusPending is the status every generated task starts with.
const StatusPending = "pending"

// creditsPerUnit and hoursPerUnit define the workload formula: every 5 ECTS
// points cost 2 hours of lecture and 2 hours of assignment work per session.
const (
	creditsPerUnit = 5.0
	hoursPerUnit   = 2.0
)

// WeeklyHours is the effort attached to one lecture session and its assignment.
type WeeklyHours struct {
	LectureHours    float64
	AssignmentHours float64
}

// GeneratedTask is one task produced from a course schedule.
type GeneratedTask struct {
	UserID      uint
	CourseID    uint
	Name        string
	EffortHours int
	Deadline    time.Time
	Status      string
}

// ConvertCreditsToWeeklyHours maps ECTS credits to per-session hours.
// The input is not validated; zero or negative credits pass through.
func ConvertCreditsToWeeklyHours(credits float64) WeeklyHours {
	ratio := credits / creditsPerUnit
	return WeeklyHours{
		LectureHours:    ratio * hoursPerUnit,
		AssignmentHours: ratio * hoursPerUnit,
	}
}

// RoundHours rounds half up, so 2.5 becomes 3 and -2.5 becomes -2.
func RoundHours(hours float64) int {
	return int(math.Floor(hours + 0.5))
}

// Expand walks [start, end] day by day and emits a "Lecture N" and an
// "Assignment N" task for every day whose weekday (0=Sunday) is listed.
// Time of day on start and end is ignored; each deadline is the matching day
// at 23:59:59 in start's location. An inverted range or an empty weekday set
// yields no tasks.
func Expand(userID, courseID uint, credits float64, start, end time.Time, weekdays []int) []GeneratedTask {
	var days [7]bool
	found := false
	for _, wd := range weekdays {
		if wd >= 0 && wd <= 6 {
			days[wd] = true
			found = true
		}
	}
	if !found {
		return nil
	}

	hours := ConvertCreditsToWeeklyHours(credits)
	lectureHours := RoundHours(hours.LectureHours)
	assignmentHours := RoundHours(hours.AssignmentHours)

	loc := start.Location()
	last := calendar.StartOfDay(end.In(loc))

	var tasks []GeneratedTask
	counter := 1
	for day := calendar.StartOfDay(start); !day.After(last); day = day.AddDate(0, 0, 1) {
		if !days[day.Weekday()] {
			continue
		}
		deadline := calendar.EndOfDay(day)
		tasks = append(tasks,
			GeneratedTask{
				UserID:      userID,
				CourseID:    courseID,
				Name:        fmt.Sprintf("Lecture %d", counter),
				EffortHours: lectureHours,
				Deadline:    deadline,
				Status:      StatusPending,
			},
			GeneratedTask{
				UserID:      userID,
				CourseID:    courseID,
				Name:        fmt.Sprintf("Assignment %d", counter),
				EffortHours: assignmentHours,
				Deadline:    deadline,
				Status:      StatusPending,
			},
		)
		counter++
	}
	return tasks
}
