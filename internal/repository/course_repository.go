package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"study-planner/internal/model"
)

// TaskBuilder produces the generated tasks for a persisted course.
type TaskBuilder func(course *model.Course) []model.Task

// CourseRepository manages courses and the tasks generated from them.
type CourseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// CreateWithTasks stores a course and its generated tasks in one transaction.
func (r *CourseRepository) CreateWithTasks(ctx context.Context, course *model.Course, build TaskBuilder) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(course).Error; err != nil {
			return fmt.Errorf("create course: %w", err)
		}
		tasks = build(course)
		if len(tasks) > 0 {
			if err := tx.Create(&tasks).Error; err != nil {
				return fmt.Errorf("create course tasks: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update applies column updates to a course.
func (r *CourseRepository) Update(ctx context.Context, course *model.Course, updates map[string]interface{}) error {
	if err := r.db.WithContext(ctx).Model(course).Updates(updates).Error; err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// UpdateAndRegenerate applies course updates and swaps the generated tasks
// in the same transaction, so readers never see a course without its tasks.
func (r *CourseRepository) UpdateAndRegenerate(ctx context.Context, course *model.Course, updates map[string]interface{}, build TaskBuilder) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(course).Updates(updates).Error; err != nil {
				return fmt.Errorf("update course: %w", err)
			}
		}
		var err error
		tasks, err = replaceGenerated(tx, course, build)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ReplaceGeneratedTasks deletes the course's generated tasks and inserts a fresh set.
func (r *CourseRepository) ReplaceGeneratedTasks(ctx context.Context, course *model.Course, build TaskBuilder) ([]model.Task, error) {
	return r.UpdateAndRegenerate(ctx, course, nil, build)
}

func replaceGenerated(tx *gorm.DB, course *model.Course, build TaskBuilder) ([]model.Task, error) {
	if err := tx.Where("course_id = ? AND user_id = ? AND generation_id <> ''", course.ID, course.UserID).
		Delete(&model.Task{}).Error; err != nil {
		return nil, fmt.Errorf("delete generated tasks: %w", err)
	}
	tasks := build(course)
	if len(tasks) > 0 {
		if err := tx.Create(&tasks).Error; err != nil {
			return nil, fmt.Errorf("create course tasks: %w", err)
		}
	}
	return tasks, nil
}

func (r *CourseRepository) FindByID(ctx context.Context, userID, courseID uint) (*model.Course, error) {
	var course model.Course
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, courseID).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) ListByUser(ctx context.Context, userID uint) ([]model.Course, error) {
	var courses []model.Course
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *CourseRepository) ListAll(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

// Delete removes a course with its generated tasks. Manual tasks and
// projects linked to the course are kept and detached.
func (r *CourseRepository) Delete(ctx context.Context, userID, courseID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND id = ?", userID, courseID).Delete(&model.Course{})
		if res.Error != nil {
			return fmt.Errorf("delete course: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrCourseNotFound
		}
		if err := tx.Where("course_id = ? AND generation_id <> ''", courseID).Delete(&model.Task{}).Error; err != nil {
			return fmt.Errorf("delete generated tasks: %w", err)
		}
		if err := tx.Model(&model.Task{}).Where("course_id = ?", courseID).Update("course_id", nil).Error; err != nil {
			return fmt.Errorf("detach course tasks: %w", err)
		}
		if err := tx.Model(&model.Project{}).Where("course_id = ?", courseID).Update("course_id", nil).Error; err != nil {
			return fmt.Errorf("detach course projects: %w", err)
		}
		return nil
	})
}
