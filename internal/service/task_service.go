package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"study-planner/internal/model"
	"study-planner/internal/repository"
	"study-planner/internal/schedule"
	"study-planner/internal/workload"
)

// TaskInput represents data required to create a manual task.
type TaskInput struct {
	Name        string
	EffortHours float64
	Deadline    *time.Time
	CourseID    *uint
	Priority    *int
}

// TaskUpdate carries the fields to change; nil fields stay untouched.
type TaskUpdate struct {
	Status        *string
	Name          *string
	EffortHours   *float64
	Deadline      *time.Time
	CourseID      *uint
	ClearCourse   bool
	Priority      *int
	ClearPriority bool
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo   *repository.TaskRepository
	courseRepo *repository.CourseRepository
	log        *zap.Logger
	now        func() time.Time
}

func NewTaskService(taskRepo *repository.TaskRepository, courseRepo *repository.CourseRepository, log *zap.Logger) *TaskService {
	return &TaskService{taskRepo: taskRepo, courseRepo: courseRepo, log: log, now: time.Now}
}

func (s *TaskService) CreateTask(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	hours, err := roundEffort(input.EffortHours)
	if err != nil {
		return nil, err
	}
	if input.Priority != nil {
		if err := validatePriority(*input.Priority); err != nil {
			return nil, err
		}
	}
	if input.CourseID != nil {
		if _, err := s.courseRepo.FindByID(ctx, user.ID, *input.CourseID); err != nil {
			return nil, err
		}
	}

	task := model.Task{
		UserID:      user.ID,
		CourseID:    input.CourseID,
		Name:        name,
		Status:      string(workload.StatusPending),
		Priority:    input.Priority,
		Deadline:    input.Deadline,
		EffortHours: &hours,
	}
	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies a partial update and returns the names of changed columns.
func (s *TaskService) UpdateTask(ctx context.Context, user *model.User, taskID uint, upd TaskUpdate) ([]string, error) {
	updates := make(map[string]interface{})

	if upd.Status != nil {
		status, ok := workload.ParseStatus(*upd.Status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		updates["status"] = string(status)
		if status == workload.StatusCompleted {
			updates["completed_at"] = s.now()
		} else {
			updates["completed_at"] = nil
		}
	}
	if upd.Name != nil {
		if name := strings.TrimSpace(*upd.Name); name != "" {
			updates["name"] = name
		}
	}
	if upd.EffortHours != nil {
		hours, err := roundEffort(*upd.EffortHours)
		if err != nil {
			return nil, err
		}
		updates["effort_hours"] = hours
	}
	if upd.Deadline != nil {
		updates["deadline"] = *upd.Deadline
	}
	switch {
	case upd.ClearCourse:
		updates["course_id"] = nil
	case upd.CourseID != nil:
		if _, err := s.courseRepo.FindByID(ctx, user.ID, *upd.CourseID); err != nil {
			return nil, err
		}
		updates["course_id"] = *upd.CourseID
	}
	switch {
	case upd.ClearPriority:
		updates["priority"] = nil
	case upd.Priority != nil:
		if err := validatePriority(*upd.Priority); err != nil {
			return nil, err
		}
		updates["priority"] = *upd.Priority
	}

	if len(updates) == 0 {
		return nil, ErrNoUpdates
	}
	if err := s.taskRepo.Update(ctx, user.ID, taskID, updates); err != nil {
		return nil, err
	}

	changed := make([]string, 0, len(updates))
	for key := range updates {
		if key == "completed_at" {
			continue
		}
		changed = append(changed, key)
	}
	sort.Strings(changed)
	s.log.Debug("task updated", zap.Uint("task_id", taskID), zap.Strings("fields", changed))
	return changed, nil
}

// CompleteTasks marks the given tasks completed and returns the ids that belonged to the user.
func (s *TaskService) CompleteTasks(ctx context.Context, user *model.User, taskIDs []uint, completedAt time.Time) ([]uint, error) {
	return s.taskRepo.MarkCompleted(ctx, user.ID, taskIDs, completedAt)
}

func (s *TaskService) GetTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, user.ID, taskID)
}

// DeleteTask removes a task completely, generated or manual.
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID uint) error {
	return s.taskRepo.Delete(ctx, user.ID, taskID)
}

func (s *TaskService) List(ctx context.Context, user *model.User, order repository.TaskOrder) ([]model.Task, error) {
	return s.taskRepo.ListByUser(ctx, user.ID, order)
}

// ListByCourse returns a course of the user together with its tasks.
func (s *TaskService) ListByCourse(ctx context.Context, user *model.User, courseID uint) (*model.Course, []model.Task, error) {
	course, err := s.courseRepo.FindByID(ctx, user.ID, courseID)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := s.taskRepo.ListByCourse(ctx, user.ID, course.ID)
	if err != nil {
		return nil, nil, err
	}
	return course, tasks, nil
}

// ListByPriority returns tasks newest first, then stably sorted by priority
// with unprioritised tasks last.
func (s *TaskService) ListByPriority(ctx context.Context, user *model.User) ([]model.Task, error) {
	tasks, err := s.taskRepo.ListByUser(ctx, user.ID, repository.OrderByCreated)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].Priority, tasks[j].Priority
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return tasks, nil
}

func roundEffort(hours float64) (int, error) {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours < 0 {
		return 0, ErrInvalidEffort
	}
	return schedule.RoundHours(hours), nil
}

func validatePriority(p int) error {
	if p < 1 || p > 3 {
		return ErrInvalidPriority
	}
	return nil
}
