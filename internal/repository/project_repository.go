package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"study-planner/internal/model"
)

// ProjectRepository stores projects and their member lists.
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// CreateWithMembers inserts the project and its members in one transaction.
// Members get the new project's ID.
func (r *ProjectRepository) CreateWithMembers(ctx context.Context, project *model.Project, members []model.ProjectMember) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Course", "Members").Create(project).Error; err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		if len(members) == 0 {
			return nil
		}
		for i := range members {
			members[i].ProjectID = project.ID
		}
		if err := tx.Omit("User", "Project").Create(&members).Error; err != nil {
			return fmt.Errorf("create project members: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	project.Members = members
	return nil
}

// ListByMember returns the user's memberships with their projects loaded.
func (r *ProjectRepository) ListByMember(ctx context.Context, userID uint) ([]model.ProjectMember, error) {
	var memberships []model.ProjectMember
	if err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("Project.Course").
		Where("user_id = ?", userID).
		Order("project_id ASC").
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// FindForMember loads a project with its course and members. Projects the
// user is not a member of are reported as not found.
func (r *ProjectRepository) FindForMember(ctx context.Context, userID, projectID uint) (*model.Project, error) {
	db := r.db.WithContext(ctx)
	var member model.ProjectMember
	if err := db.Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	var project model.Project
	err := db.
		Preload("Course").
		Preload("Members", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Preload("Members.User").
		First(&project, projectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// AddMembers inserts the members that are not in the project yet and returns
// the inserted rows.
func (r *ProjectRepository) AddMembers(ctx context.Context, projectID uint, members []model.ProjectMember) ([]model.ProjectMember, error) {
	if len(members) == 0 {
		return nil, nil
	}
	var added []model.ProjectMember
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userIDs := make([]uint, 0, len(members))
		for _, m := range members {
			userIDs = append(userIDs, m.UserID)
		}
		var existing []uint
		if err := tx.Model(&model.ProjectMember{}).
			Where("project_id = ? AND user_id IN ?", projectID, userIDs).
			Pluck("user_id", &existing).Error; err != nil {
			return err
		}
		present := make(map[uint]bool, len(existing))
		for _, id := range existing {
			present[id] = true
		}
		for _, m := range members {
			if present[m.UserID] {
				continue
			}
			present[m.UserID] = true
			m.ProjectID = projectID
			added = append(added, m)
		}
		if len(added) == 0 {
			return nil
		}
		return tx.Omit("User", "Project").Create(&added).Error
	})
	if err != nil {
		return nil, fmt.Errorf("add project members: %w", err)
	}
	return added, nil
}
