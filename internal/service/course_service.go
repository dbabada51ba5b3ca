package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"study-planner/internal/model"
	"study-planner/internal/repository"
	"study-planner/internal/schedule"
)

// CourseInput represents data required to create a course.
type CourseInput struct {
	Name       string
	ECTSPoints float64
	StartDate  time.Time
	EndDate    time.Time
	Weekdays   []int
}

// CourseUpdate carries the fields to change. Nil fields are left as they are;
// a non-nil empty Weekdays clears the lecture days.
type CourseUpdate struct {
	Name       *string
	ECTSPoints *float64
	StartDate  *time.Time
	EndDate    *time.Time
	Weekdays   []int
}

// CourseService owns courses and keeps their generated tasks in sync with the schedule.
type CourseService struct {
	courseRepo *repository.CourseRepository
	loc        *time.Location
	log        *zap.Logger
	newID      func() string
}

func NewCourseService(courseRepo *repository.CourseRepository, loc *time.Location, log *zap.Logger) *CourseService {
	if loc == nil {
		loc = time.Local
	}
	return &CourseService{courseRepo: courseRepo, loc: loc, log: log, newID: uuid.NewString}
}

// Create stores the course and its generated lecture/assignment tasks together.
func (s *CourseService) Create(ctx context.Context, user *model.User, input CourseInput) (*model.Course, []model.Task, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, nil, ErrNameRequired
	}
	if err := validateSchedule(input.ECTSPoints, input.StartDate, input.EndDate, input.Weekdays); err != nil {
		return nil, nil, err
	}

	course := model.Course{
		UserID:          user.ID,
		Name:            name,
		ECTSPoints:      input.ECTSPoints,
		StartDate:       dateOnly(input.StartDate),
		EndDate:         dateOnly(input.EndDate),
		LectureWeekdays: schedule.FormatWeekdays(input.Weekdays),
	}

	generation := s.newID()
	tasks, err := s.courseRepo.CreateWithTasks(ctx, &course, s.buildTasks(generation))
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("course created",
		zap.Uint("user_id", user.ID),
		zap.Uint("course_id", course.ID),
		zap.String("generation", generation),
		zap.Int("tasks", len(tasks)),
	)
	return &course, tasks, nil
}

// Update changes course fields. When credits, dates or weekdays change, all
// previously generated tasks are replaced in the same transaction. The
// returned bool reports whether tasks were regenerated.
func (s *CourseService) Update(ctx context.Context, user *model.User, courseID uint, upd CourseUpdate) (*model.Course, bool, error) {
	course, err := s.courseRepo.FindByID(ctx, user.ID, courseID)
	if err != nil {
		return nil, false, err
	}

	updates := make(map[string]interface{})
	scheduleChanged := false

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, false, ErrNameRequired
		}
		if name != course.Name {
			course.Name = name
			updates["name"] = name
		}
	}
	if upd.ECTSPoints != nil && *upd.ECTSPoints != course.ECTSPoints {
		course.ECTSPoints = *upd.ECTSPoints
		updates["ects_points"] = course.ECTSPoints
		scheduleChanged = true
	}
	if upd.StartDate != nil {
		if d := dateOnly(*upd.StartDate); !d.Equal(dateOnly(course.StartDate)) {
			course.StartDate = d
			updates["start_date"] = d
			scheduleChanged = true
		}
	}
	if upd.EndDate != nil {
		if d := dateOnly(*upd.EndDate); !d.Equal(dateOnly(course.EndDate)) {
			course.EndDate = d
			updates["end_date"] = d
			scheduleChanged = true
		}
	}
	if upd.Weekdays != nil {
		if raw := schedule.FormatWeekdays(upd.Weekdays); raw != schedule.FormatWeekdays(schedule.ParseWeekdays(course.LectureWeekdays)) {
			course.LectureWeekdays = raw
			updates["lecture_weekdays"] = raw
			scheduleChanged = true
		}
	}

	if len(updates) == 0 {
		return course, false, nil
	}
	if err := validateSchedule(course.ECTSPoints, course.StartDate, course.EndDate, schedule.ParseWeekdays(course.LectureWeekdays)); err != nil {
		return nil, false, err
	}

	if !scheduleChanged {
		if err := s.courseRepo.Update(ctx, course, updates); err != nil {
			return nil, false, err
		}
		return course, false, nil
	}

	generation := s.newID()
	tasks, err := s.courseRepo.UpdateAndRegenerate(ctx, course, updates, s.buildTasks(generation))
	if err != nil {
		return nil, false, err
	}
	s.log.Info("course schedule changed, tasks regenerated",
		zap.Uint("course_id", course.ID),
		zap.String("generation", generation),
		zap.Int("tasks", len(tasks)),
	)
	return course, true, nil
}

// Regenerate replaces the generated tasks of one course.
func (s *CourseService) Regenerate(ctx context.Context, user *model.User, courseID uint) ([]model.Task, error) {
	course, err := s.courseRepo.FindByID(ctx, user.ID, courseID)
	if err != nil {
		return nil, err
	}
	return s.regenerate(ctx, course)
}

// RegenerateAll replaces the generated tasks of every stored course and
// returns how many courses and tasks were processed.
func (s *CourseService) RegenerateAll(ctx context.Context) (int, int, error) {
	courses, err := s.courseRepo.ListAll(ctx)
	if err != nil {
		return 0, 0, err
	}
	total := 0
	for i := range courses {
		if err := ctx.Err(); err != nil {
			return i, total, err
		}
		tasks, err := s.regenerate(ctx, &courses[i])
		if err != nil {
			return i, total, fmt.Errorf("course %d: %w", courses[i].ID, err)
		}
		total += len(tasks)
	}
	return len(courses), total, nil
}

func (s *CourseService) regenerate(ctx context.Context, course *model.Course) ([]model.Task, error) {
	generation := s.newID()
	tasks, err := s.courseRepo.ReplaceGeneratedTasks(ctx, course, s.buildTasks(generation))
	if err != nil {
		return nil, err
	}
	s.log.Debug("course tasks regenerated",
		zap.Uint("course_id", course.ID),
		zap.String("generation", generation),
		zap.Int("tasks", len(tasks)),
	)
	return tasks, nil
}

func (s *CourseService) Get(ctx context.Context, user *model.User, courseID uint) (*model.Course, error) {
	return s.courseRepo.FindByID(ctx, user.ID, courseID)
}

func (s *CourseService) List(ctx context.Context, user *model.User) ([]model.Course, error) {
	return s.courseRepo.ListByUser(ctx, user.ID)
}

// Delete removes the course and its generated tasks.
func (s *CourseService) Delete(ctx context.Context, user *model.User, courseID uint) error {
	if err := s.courseRepo.Delete(ctx, user.ID, courseID); err != nil {
		return err
	}
	s.log.Info("course deleted", zap.Uint("user_id", user.ID), zap.Uint("course_id", courseID))
	return nil
}

// buildTasks expands the stored schedule in the planner's location.
func (s *CourseService) buildTasks(generation string) repository.TaskBuilder {
	return func(course *model.Course) []model.Task {
		generated := schedule.Expand(
			course.UserID,
			course.ID,
			course.ECTSPoints,
			inLocation(course.StartDate, s.loc),
			inLocation(course.EndDate, s.loc),
			schedule.ParseWeekdays(course.LectureWeekdays),
		)
		tasks := make([]model.Task, 0, len(generated))
		for _, g := range generated {
			courseID := g.CourseID
			deadline := g.Deadline
			hours := g.EffortHours
			tasks = append(tasks, model.Task{
				UserID:       g.UserID,
				CourseID:     &courseID,
				GenerationID: generation,
				Name:         g.Name,
				Status:       g.Status,
				Deadline:     &deadline,
				EffortHours:  &hours,
			})
		}
		return tasks
	}
}

func validateSchedule(credits float64, start, end time.Time, weekdays []int) error {
	if math.IsNaN(credits) || math.IsInf(credits, 0) || credits <= 0 {
		return ErrInvalidCredits
	}
	if dateOnly(start).After(dateOnly(end)) {
		return ErrInvalidDateRange
	}
	for _, wd := range weekdays {
		if wd < 0 || wd > 6 {
			return ErrInvalidWeekday
		}
	}
	return nil
}

// dateOnly keeps the calendar date of t as midnight UTC, the stored form of course dates.
func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// inLocation reinterprets a stored calendar date as midnight in loc.
func inLocation(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}
