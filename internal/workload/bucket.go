package workload

import "time"

// Hours holds the three classification totals of a bucket.
type Hours struct {
	Overdue    float64 `yaml:"overdue"`
	Incomplete float64 `yaml:"incomplete"`
	Completed  float64 `yaml:"completed"`
}

// Total is Overdue + Incomplete + Completed.
func (h Hours) Total() float64 {
	return h.Overdue + h.Incomplete + h.Completed
}

// Breakdown returns the totals; it lets Summarize and Total accept any bucket shape.
func (h Hours) Breakdown() Hours {
	return h
}

func (h *Hours) add(c Classification, hours float64) {
	switch c {
	case Overdue:
		h.Overdue += hours
	case Incomplete:
		h.Incomplete += hours
	case Completed:
		h.Completed += hours
	}
}

// DayBucket is one day of the week view.
type DayBucket struct {
	Date  time.Time
	Label string
	Hours
}

// WeekBucket is one ISO week of the month or custom range view.
type WeekBucket struct {
	WeekNumber int
	Label      string
	Hours
}

// Bucket is implemented by DayBucket and WeekBucket.
type Bucket interface {
	Breakdown() Hours
}

// Total returns the sum of a bucket's three totals.
func Total(b Bucket) float64 {
	return b.Breakdown().Total()
}

// Summary sums classification totals across buckets.
type Summary struct {
	TotalOverdue    float64 `yaml:"total_overdue"`
	TotalIncomplete float64 `yaml:"total_incomplete"`
	TotalCompleted  float64 `yaml:"total_completed"`
}

// Total is the sum of the three summary totals.
func (s Summary) Total() float64 {
	return s.TotalOverdue + s.TotalIncomplete + s.TotalCompleted
}

// Summarize reduces buckets of either shape. No buckets means all zeros.
func Summarize[B Bucket](buckets []B) Summary {
	var s Summary
	for _, b := range buckets {
		h := b.Breakdown()
		s.TotalOverdue += h.Overdue
		s.TotalIncomplete += h.Incomplete
		s.TotalCompleted += h.Completed
	}
	return s
}
