package model

import "time"

// Project roles. Roles are stored for display only.
const (
	RoleOwner  = "Owner"
	RoleAdmin  = "Admin"
	RoleMember = "Member"
)

// Project statuses.
const (
	ProjectPlanning  = "planning"
	ProjectActive    = "active"
	ProjectCompleted = "completed"
)

// Project is a piece of group work shared between several users and
// optionally attached to one of the owner's courses.
type Project struct {
	ID          uint `gorm:"primaryKey"`
	Name        string
	Description string
	CourseID    *uint  `gorm:"index"`
	Status      string `gorm:"default:planning"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Course      *Course         `gorm:"foreignKey:CourseID"`
	Members     []ProjectMember `gorm:"foreignKey:ProjectID"`
}

// ProjectMember links a user to a project. A user joins a project once.
type ProjectMember struct {
	ID        uint   `gorm:"primaryKey"`
	ProjectID uint   `gorm:"uniqueIndex:idx_project_member"`
	UserID    uint   `gorm:"uniqueIndex:idx_project_member;index"`
	Role      string `gorm:"default:Member"`
	CreatedAt time.Time
	User      User     `gorm:"foreignKey:UserID"`
	Project   *Project `gorm:"foreignKey:ProjectID"`
}
