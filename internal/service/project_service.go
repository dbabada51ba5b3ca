package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"study-planner/internal/model"
	"study-planner/internal/repository"
)

// Invitee names a user to add to a project by Telegram handle.
type Invitee struct {
	Username string
	Role     string
}

// ProjectInput represents data required to create a project.
type ProjectInput struct {
	Name        string
	Description string
	CourseID    *uint
	Status      string
	Invite      []Invitee
}

// ProjectSummary is a project as seen by one of its members.
type ProjectSummary struct {
	Project model.Project
	Role    string
}

// InviteResult reports what happened to each requested handle.
type InviteResult struct {
	Added          []model.User
	AlreadyMembers []string
	Missing        []string
}

// ProjectService manages shared projects and their members.
type ProjectService struct {
	projectRepo *repository.ProjectRepository
	courseRepo  *repository.CourseRepository
	userRepo    *repository.UserRepository
	log         *zap.Logger
}

func NewProjectService(projectRepo *repository.ProjectRepository, courseRepo *repository.CourseRepository, userRepo *repository.UserRepository, log *zap.Logger) *ProjectService {
	return &ProjectService{projectRepo: projectRepo, courseRepo: courseRepo, userRepo: userRepo, log: log}
}

// Create stores the project with the creator as Owner. Invitees that resolve
// to known users join in the same transaction; unknown handles are reported
// in the result and do not fail the creation.
func (s *ProjectService) Create(ctx context.Context, user *model.User, input ProjectInput) (*model.Project, InviteResult, error) {
	var result InviteResult

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, result, ErrNameRequired
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, result, ErrDescriptionRequired
	}
	status, err := parseProjectStatus(input.Status)
	if err != nil {
		return nil, result, err
	}
	if input.CourseID != nil {
		if _, err := s.courseRepo.FindByID(ctx, user.ID, *input.CourseID); err != nil {
			return nil, result, err
		}
	}
	invitees, err := normalizeInvitees(input.Invite)
	if err != nil {
		return nil, result, err
	}

	members := []model.ProjectMember{{UserID: user.ID, Role: model.RoleOwner}}
	found, err := s.resolve(ctx, invitees, &result)
	if err != nil {
		return nil, result, err
	}
	for _, f := range found {
		if f.user.ID == user.ID {
			result.AlreadyMembers = append(result.AlreadyMembers, f.username)
			continue
		}
		members = append(members, model.ProjectMember{UserID: f.user.ID, Role: f.role})
		result.Added = append(result.Added, f.user)
	}

	project := model.Project{
		Name:        name,
		Description: description,
		CourseID:    input.CourseID,
		Status:      status,
	}
	if err := s.projectRepo.CreateWithMembers(ctx, &project, members); err != nil {
		return nil, InviteResult{}, err
	}

	s.log.Info("project created",
		zap.Uint("user_id", user.ID),
		zap.Uint("project_id", project.ID),
		zap.Int("members", len(members)),
		zap.Strings("missing", result.Missing),
	)
	return &project, result, nil
}

// List returns the projects the user belongs to with the user's role.
func (s *ProjectService) List(ctx context.Context, user *model.User) ([]ProjectSummary, error) {
	memberships, err := s.projectRepo.ListByMember(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	summaries := make([]ProjectSummary, 0, len(memberships))
	for _, m := range memberships {
		if m.Project == nil {
			continue
		}
		summaries = append(summaries, ProjectSummary{Project: *m.Project, Role: m.Role})
	}
	return summaries, nil
}

// Get returns a project the user is a member of, with course and members.
func (s *ProjectService) Get(ctx context.Context, user *model.User, projectID uint) (*model.Project, error) {
	return s.projectRepo.FindForMember(ctx, user.ID, projectID)
}

// Invite adds users to a project the caller belongs to. Existing members are
// skipped. It fails with ErrUsersNotFound when no handle matches a user.
func (s *ProjectService) Invite(ctx context.Context, user *model.User, projectID uint, invite []Invitee) (InviteResult, error) {
	var result InviteResult

	invitees, err := normalizeInvitees(invite)
	if err != nil {
		return result, err
	}
	if len(invitees) == 0 {
		return result, ErrNoInvitees
	}
	project, err := s.projectRepo.FindForMember(ctx, user.ID, projectID)
	if err != nil {
		return result, err
	}

	found, err := s.resolve(ctx, invitees, &result)
	if err != nil {
		return result, err
	}
	if len(found) == 0 {
		return result, ErrUsersNotFound
	}

	members := make([]model.ProjectMember, 0, len(found))
	handles := make(map[uint]string, len(found))
	for _, f := range found {
		members = append(members, model.ProjectMember{UserID: f.user.ID, Role: f.role})
		handles[f.user.ID] = f.username
	}
	added, err := s.projectRepo.AddMembers(ctx, project.ID, members)
	if err != nil {
		return InviteResult{Missing: result.Missing}, err
	}

	joined := make(map[uint]bool, len(added))
	for _, m := range added {
		joined[m.UserID] = true
	}
	for _, f := range found {
		if joined[f.user.ID] {
			result.Added = append(result.Added, f.user)
		} else {
			result.AlreadyMembers = append(result.AlreadyMembers, handles[f.user.ID])
		}
	}

	s.log.Info("project members invited",
		zap.Uint("user_id", user.ID),
		zap.Uint("project_id", project.ID),
		zap.Int("added", len(result.Added)),
		zap.Int("already", len(result.AlreadyMembers)),
		zap.Strings("missing", result.Missing),
	)
	return result, nil
}

type resolvedInvitee struct {
	username string
	role     string
	user     model.User
}

// resolve maps handles to users in request order and records unknown ones.
func (s *ProjectService) resolve(ctx context.Context, invitees []Invitee, result *InviteResult) ([]resolvedInvitee, error) {
	if len(invitees) == 0 {
		return nil, nil
	}
	usernames := make([]string, len(invitees))
	for i, inv := range invitees {
		usernames[i] = inv.Username
	}
	users, err := s.userRepo.FindByUsernames(ctx, usernames)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]model.User, len(users))
	for _, u := range users {
		byName[strings.ToLower(u.Username)] = u
	}

	var found []resolvedInvitee
	for _, inv := range invitees {
		u, ok := byName[inv.Username]
		if !ok {
			result.Missing = append(result.Missing, inv.Username)
			continue
		}
		found = append(found, resolvedInvitee{username: inv.Username, role: inv.Role, user: u})
	}
	return found, nil
}

// normalizeInvitees lowercases handles, drops the leading @ and duplicates,
// and fills in the default role.
func normalizeInvitees(invite []Invitee) ([]Invitee, error) {
	seen := make(map[string]bool, len(invite))
	out := make([]Invitee, 0, len(invite))
	for _, inv := range invite {
		name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(inv.Username), "@"))
		if name == "" || seen[name] {
			continue
		}
		role, err := parseInviteRole(inv.Role)
		if err != nil {
			return nil, err
		}
		seen[name] = true
		out = append(out, Invitee{Username: name, Role: role})
	}
	return out, nil
}

func parseInviteRole(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "member":
		return model.RoleMember, nil
	case "admin":
		return model.RoleAdmin, nil
	default:
		return "", ErrInvalidRole
	}
}

func parseProjectStatus(raw string) (string, error) {
	switch status := strings.ToLower(strings.TrimSpace(raw)); status {
	case "":
		return model.ProjectPlanning, nil
	case model.ProjectPlanning, model.ProjectActive, model.ProjectCompleted:
		return status, nil
	default:
		return "", ErrInvalidProjectState
	}
}

// ProjectStatuses lists the accepted project statuses in lifecycle order.
func ProjectStatuses() []string {
	return []string{model.ProjectPlanning, model.ProjectActive, model.ProjectCompleted}
}

// SortMembers orders members by role, owners first, then by join order.
func SortMembers(members []model.ProjectMember) {
	rank := map[string]int{model.RoleOwner: 0, model.RoleAdmin: 1, model.RoleMember: 2}
	sort.SliceStable(members, func(i, j int) bool {
		return rank[members[i].Role] < rank[members[j].Role]
	})
}
