package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"study-planner/internal/model"
)

// TaskOrder selects how task lists are sorted.
type TaskOrder int

const (
	OrderByDeadline TaskOrder = iota
	OrderByCreated
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID uint, order TaskOrder) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	switch order {
	case OrderByCreated:
		q = q.Order("created_at DESC").Order("id DESC")
	default:
		q = q.Order("deadline NULLS LAST").Order("id ASC")
	}
	var tasks []model.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListByCourse returns the course's tasks, generated and manual, by deadline.
func (r *TaskRepository) ListByCourse(ctx context.Context, userID, courseID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("deadline ASC").Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

// Update applies column updates to a task owned by the user.
func (r *TaskRepository) Update(ctx context.Context, userID, taskID uint, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("user_id = ? AND id = ?", userID, taskID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// MarkCompleted completes every listed task the user owns and returns the ids
// that were actually updated.
func (r *TaskRepository) MarkCompleted(ctx context.Context, userID uint, taskIDs []uint, completedAt time.Time) ([]uint, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	var updated []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Task{}).Where("user_id = ? AND id IN ?", userID, taskIDs).
			Order("id ASC").Pluck("id", &updated).Error; err != nil {
			return err
		}
		if len(updated) == 0 {
			return nil
		}
		return tx.Model(&model.Task{}).Where("id IN ?", updated).Updates(map[string]interface{}{
			"status":       "completed",
			"completed_at": completedAt,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("complete tasks: %w", err)
	}
	return updated, nil
}

// Delete removes a task for the given user, generated or not.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
