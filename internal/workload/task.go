// Package workload buckets task effort-hours into days and ISO weeks, split by
// whether the work is overdue, still open, or done. Every function is pure:
// the caller passes the current time and the task list, and nothing here
// fails. Degenerate input produces empty or zero results.
package workload

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusTodo      Status = "todo"
	StatusOnHold    Status = "on-hold"
	StatusWorking   Status = "working"
	StatusCompleted Status = "completed"
)

// Statuses lists every accepted status in display order.
var Statuses = []Status{StatusPending, StatusTodo, StatusOnHold, StatusWorking, StatusCompleted}

// ParseStatus accepts a status name in any case.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Statuses {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// Task is the aggregation view of a stored task.
type Task struct {
	ID          uint
	Name        string
	Status      Status
	Deadline    *time.Time
	EffortHours *float64
}

func (t Task) hours() float64 {
	if t.EffortHours == nil {
		return 0
	}
	return *t.EffortHours
}

// Classification is the bucket a task's hours are counted in.
type Classification int

const (
	None Classification = iota
	Overdue
	Incomplete
	Completed
)

func (c Classification) String() string {
	switch c {
	case Overdue:
		return "overdue"
	case Incomplete:
		return "incomplete"
	case Completed:
		return "completed"
	default:
		return "none"
	}
}

// Classify places a task relative to now. Completed wins over any deadline;
// an open task without a deadline is None. A deadline equal to now is still
// incomplete.
func Classify(task Task, now time.Time) Classification {
	switch {
	case task.Status == StatusCompleted:
		return Completed
	case task.Deadline == nil:
		return None
	case task.Deadline.Before(now):
		return Overdue
	default:
		return Incomplete
	}
}
