package workload

import (
	"fmt"
	"sort"
	"time"

	"study-planner/internal/calendar"
)

// AggregateByWeek returns the seven days (Monday first) of the week that is
// weekOffset weeks away from now's week. Tasks land in the day matching their
// deadline's calendar date in now's location; the exact deadline is still
// compared with now when classifying.
func AggregateByWeek(tasks []Task, weekOffset int, now time.Time) []DayBucket {
	monday := calendar.StartOfWeek(now.AddDate(0, 0, 7*weekOffset))

	buckets := make([]DayBucket, 7)
	for i := range buckets {
		d := monday.AddDate(0, 0, i)
		buckets[i] = DayBucket{Date: d, Label: d.Format("Mon")}
	}

	loc := now.Location()
	for _, task := range tasks {
		if task.Deadline == nil {
			continue
		}
		deadline := task.Deadline.In(loc)
		for i := range buckets {
			if calendar.SameDay(deadline, buckets[i].Date) {
				buckets[i].add(Classify(task, now), task.hours())
				break
			}
		}
	}
	return buckets
}

// AggregateByMonth returns one bucket per ISO week touched by the month that
// is monthOffset months away from now's month, partial weeks included.
func AggregateByMonth(tasks []Task, monthOffset int, now time.Time) []WeekBucket {
	year, month, _ := now.Date()
	target := time.Date(year, month+time.Month(monthOffset), 1, 0, 0, 0, 0, now.Location())
	return aggregateWeeks(tasks, calendar.StartOfMonth(target), calendar.EndOfMonth(target), now, func(week int) string {
		return fmt.Sprintf("Week %d", week)
	})
}

// AggregateByCustomRange buckets by ISO week between two YYYY-MM-DD dates,
// both inclusive. A missing or unparsable date, or start after end, gives nil.
func AggregateByCustomRange(tasks []Task, startDate, endDate string, now time.Time) []WeekBucket {
	if startDate == "" || endDate == "" {
		return nil
	}
	start, err := calendar.ParseDate(startDate, now.Location())
	if err != nil {
		return nil
	}
	end, err := calendar.ParseDate(endDate, now.Location())
	if err != nil {
		return nil
	}
	if start.After(end) {
		return nil
	}
	return aggregateWeeks(tasks, start, end, now, func(week int) string {
		return fmt.Sprintf("W%d", week)
	})
}

// aggregateWeeks creates a bucket for every ISO week number seen between the
// first and last day, then adds the tasks whose deadline date is in range.
// Buckets are keyed by week number alone, so ranges longer than a year share
// buckets between years.
func aggregateWeeks(tasks []Task, first, last time.Time, now time.Time, label func(int) string) []WeekBucket {
	index := make(map[int]int)
	var buckets []WeekBucket
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		week := calendar.ISOWeek(d)
		if _, ok := index[week]; ok {
			continue
		}
		index[week] = len(buckets)
		buckets = append(buckets, WeekBucket{WeekNumber: week, Label: label(week)})
	}

	loc := first.Location()
	for _, task := range tasks {
		if task.Deadline == nil {
			continue
		}
		day := calendar.StartOfDay(task.Deadline.In(loc))
		if day.Before(first) || day.After(last) {
			continue
		}
		i, ok := index[calendar.ISOWeek(day)]
		if !ok {
			continue
		}
		buckets[i].add(Classify(task, now), task.hours())
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].WeekNumber < buckets[j].WeekNumber
	})
	return buckets
}
