package service

import (
	"context"
	"time"

	"study-planner/internal/model"
	"study-planner/internal/repository"
	"study-planner/internal/workload"
)

// WorkloadService loads a user's tasks and hands them to the aggregator.
// Nothing is cached; each call works from the current task list.
type WorkloadService struct {
	taskRepo *repository.TaskRepository
	loc      *time.Location
}

func NewWorkloadService(taskRepo *repository.TaskRepository, loc *time.Location) *WorkloadService {
	if loc == nil {
		loc = time.Local
	}
	return &WorkloadService{taskRepo: taskRepo, loc: loc}
}

// Week returns the seven day buckets weekOffset weeks away from now.
func (s *WorkloadService) Week(ctx context.Context, user *model.User, weekOffset int, now time.Time) ([]workload.DayBucket, error) {
	tasks, err := s.tasks(ctx, user)
	if err != nil {
		return nil, err
	}
	return workload.AggregateByWeek(tasks, weekOffset, now.In(s.loc)), nil
}

// Month returns the ISO week buckets of the month monthOffset months away from now.
func (s *WorkloadService) Month(ctx context.Context, user *model.User, monthOffset int, now time.Time) ([]workload.WeekBucket, error) {
	tasks, err := s.tasks(ctx, user)
	if err != nil {
		return nil, err
	}
	return workload.AggregateByMonth(tasks, monthOffset, now.In(s.loc)), nil
}

// Range returns ISO week buckets between two YYYY-MM-DD dates.
func (s *WorkloadService) Range(ctx context.Context, user *model.User, from, to string, now time.Time) ([]workload.WeekBucket, error) {
	tasks, err := s.tasks(ctx, user)
	if err != nil {
		return nil, err
	}
	return workload.AggregateByCustomRange(tasks, from, to, now.In(s.loc)), nil
}

// Overview summarises the user's open work relative to now.
func (s *WorkloadService) Overview(ctx context.Context, user *model.User, now time.Time) (workload.Overview, error) {
	tasks, err := s.tasks(ctx, user)
	if err != nil {
		return workload.Overview{}, err
	}
	return workload.NewOverview(tasks, now), nil
}

func (s *WorkloadService) tasks(ctx context.Context, user *model.User) ([]workload.Task, error) {
	stored, err := s.taskRepo.ListByUser(ctx, user.ID, repository.OrderByDeadline)
	if err != nil {
		return nil, err
	}
	return WorkloadTasks(stored), nil
}

// WorkloadTasks converts stored tasks to the aggregator's view.
func WorkloadTasks(stored []model.Task) []workload.Task {
	tasks := make([]workload.Task, len(stored))
	for i, t := range stored {
		tasks[i] = workload.Task{
			ID:       t.ID,
			Name:     t.Name,
			Status:   workload.Status(t.Status),
			Deadline: t.Deadline,
		}
		if t.EffortHours != nil {
			h := float64(*t.EffortHours)
			tasks[i].EffortHours = &h
		}
	}
	return tasks
}
