package workload

import "time"

// upcomingWindow is how far ahead Overview looks for upcoming work.
const upcomingWindow = 7 * 24 * time.Hour

// Overview summarises the open (not completed) work of a task list.
type Overview struct {
	TotalHours        float64
	TaskCount         int
	UpcomingWeekHours float64
	UpcomingTaskCount int
	OverdueHours      float64
	OverdueTaskCount  int
}

// NewOverview counts open tasks and splits out those due within the next
// seven days and those already overdue. Open tasks without a deadline count
// towards the totals only.
func NewOverview(tasks []Task, now time.Time) Overview {
	var o Overview
	horizon := now.Add(upcomingWindow)
	for _, task := range tasks {
		if task.Status == StatusCompleted {
			continue
		}
		hours := task.hours()
		o.TotalHours += hours
		o.TaskCount++

		if task.Deadline == nil {
			continue
		}
		switch d := *task.Deadline; {
		case d.Before(now):
			o.OverdueHours += hours
			o.OverdueTaskCount++
		case !d.After(horizon):
			o.UpcomingWeekHours += hours
			o.UpcomingTaskCount++
		}
	}
	return o
}
