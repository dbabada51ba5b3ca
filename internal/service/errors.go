package service

import (
	"errors"

	"study-planner/internal/repository"
)

var (
	ErrNameRequired     = errors.New("name is required")
	ErrInvalidCredits   = errors.New("ects points must be a positive number")
	ErrInvalidDateRange = errors.New("start date must not be after end date")
	ErrInvalidWeekday   = errors.New("weekdays must be between 0 (Sunday) and 6 (Saturday)")
	ErrInvalidStatus    = errors.New("invalid status value")
	ErrInvalidEffort    = errors.New("effort hours must be a non-negative number")
	ErrInvalidPriority  = errors.New("priority must be between 1 and 3")
	ErrNoUpdates        = errors.New("no updatable fields provided")

	ErrDescriptionRequired = errors.New("description is required")
	ErrInvalidProjectState = errors.New("project status must be planning, active or completed")
	ErrInvalidRole         = errors.New("invited role must be Admin or Member")
	ErrNoInvitees          = errors.New("no usernames to invite")
	ErrUsersNotFound       = errors.New("no users found with these usernames")

	ErrCourseNotFound = repository.ErrCourseNotFound
	ErrTaskNotFound   = repository.ErrTaskNotFound

	ErrProjectNotFound = repository.ErrProjectNotFound
)
