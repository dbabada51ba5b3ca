package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"study-planner/internal/model"
	"study-planner/internal/repository"
	"study-planner/internal/workload"
)

type fixture struct {
	user     *model.User
	courses  *CourseService
	tasks    *TaskService
	workload *WorkloadService
	reminder *ReminderService
	projects *ProjectService
	users    *repository.UserRepository
	taskRepo *repository.TaskRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	userRepo := repository.NewUserRepository(db)
	user, err := userRepo.UpsertFromTelegram(context.Background(), 100, "Ada", "", "ada")
	if err != nil {
		t.Fatalf("UpsertFromTelegram: %v", err)
	}

	courseRepo := repository.NewCourseRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	courses := NewCourseService(courseRepo, time.UTC, zap.NewNop())
	generation := 0
	courses.newID = func() string {
		generation++
		return fmt.Sprintf("gen-%d", generation)
	}

	return &fixture{
		user:     user,
		courses:  courses,
		tasks:    NewTaskService(taskRepo, courseRepo, zap.NewNop()),
		workload: NewWorkloadService(taskRepo, time.UTC),
		reminder: NewReminderService(taskRepo, courseRepo, time.UTC),
		projects: NewProjectService(repository.NewProjectRepository(db), courseRepo, userRepo, zap.NewNop()),
		users:    userRepo,
		taskRepo: taskRepo,
	}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) courseTasks(t *testing.T, courseID uint) []model.Task {
	t.Helper()
	tasks, err := f.taskRepo.ListByCourse(context.Background(), f.user.ID, courseID)
	if err != nil {
		t.Fatalf("ListByCourse: %v", err)
	}
	return tasks
}

func algebraInput() CourseInput {
	// Mondays and Wednesdays from 4 to 17 November 2024: 4, 6, 11, 13.
	return CourseInput{
		Name:       "Algebra",
		ECTSPoints: 5,
		StartDate:  date(2024, 11, 4),
		EndDate:    date(2024, 11, 17),
		Weekdays:   []int{1, 3},
	}
}

func TestCourseServiceCreateGeneratesTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	course, tasks, err := f.courses.Create(ctx, f.user, algebraInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if course.LectureWeekdays != "[1,3]" {
		t.Errorf("LectureWeekdays = %q", course.LectureWeekdays)
	}
	if len(tasks) != 8 {
		t.Fatalf("generated %d tasks, want 8", len(tasks))
	}

	stored := f.courseTasks(t, course.ID)
	if len(stored) != 8 {
		t.Fatalf("stored %d tasks", len(stored))
	}
	wantDays := []int{4, 4, 6, 6, 11, 11, 13, 13}
	for i, task := range stored {
		n := i/2 + 1
		wantName := fmt.Sprintf("Lecture %d", n)
		if i%2 == 1 {
			wantName = fmt.Sprintf("Assignment %d", n)
		}
		if task.Name != wantName {
			t.Errorf("task %d name = %q, want %q", i, task.Name, wantName)
		}
		if task.GenerationID != "gen-1" || task.Status != "pending" {
			t.Errorf("task %d = %+v", i, task)
		}
		if task.EffortHours == nil || *task.EffortHours != 2 {
			t.Errorf("task %d effort = %v", i, task.EffortHours)
		}
		want := time.Date(2024, 11, wantDays[i], 23, 59, 59, 0, time.UTC)
		if task.Deadline == nil || !task.Deadline.Equal(want) {
			t.Errorf("task %d deadline = %v, want %v", i, task.Deadline, want)
		}
	}
}

func TestCourseServiceValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CourseInput)
		want   error
	}{
		{name: "empty name", mutate: func(in *CourseInput) { in.Name = "  " }, want: ErrNameRequired},
		{name: "zero credits", mutate: func(in *CourseInput) { in.ECTSPoints = 0 }, want: ErrInvalidCredits},
		{name: "negative credits", mutate: func(in *CourseInput) { in.ECTSPoints = -5 }, want: ErrInvalidCredits},
		{name: "inverted range", mutate: func(in *CourseInput) { in.StartDate = date(2024, 12, 1) }, want: ErrInvalidDateRange},
		{name: "weekday out of range", mutate: func(in *CourseInput) { in.Weekdays = []int{1, 7} }, want: ErrInvalidWeekday},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := algebraInput()
			tt.mutate(&in)
			if _, _, err := f.courses.Create(ctx, f.user, in); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCourseServiceCreateWithoutLectureDays(t *testing.T) {
	f := newFixture(t)
	in := algebraInput()
	in.Weekdays = nil

	course, tasks, err := f.courses.Create(context.Background(), f.user, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(tasks) != 0 || len(f.courseTasks(t, course.ID)) != 0 {
		t.Errorf("expected no generated tasks, got %d", len(tasks))
	}
}

func TestCourseServiceUpdateRegeneratesOnScheduleChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	course, _, err := f.courses.Create(ctx, f.user, algebraInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	manual, err := f.tasks.CreateTask(ctx, f.user, TaskInput{Name: "Problem set", EffortHours: 4, CourseID: &course.ID})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	name := "Linear Algebra"
	updated, regenerated, err := f.courses.Update(ctx, f.user, course.ID, CourseUpdate{Name: &name})
	if err != nil {
		t.Fatalf("Update name: %v", err)
	}
	if regenerated || updated.Name != name {
		t.Errorf("rename: regenerated=%t name=%q", regenerated, updated.Name)
	}
	for _, task := range f.courseTasks(t, course.ID) {
		if task.IsGenerated() && task.GenerationID != "gen-1" {
			t.Errorf("rename regenerated task %+v", task)
		}
	}

	// Fridays 8 and 15 November.
	_, regenerated, err = f.courses.Update(ctx, f.user, course.ID, CourseUpdate{Weekdays: []int{5}})
	if err != nil {
		t.Fatalf("Update weekdays: %v", err)
	}
	if !regenerated {
		t.Error("weekday change should regenerate tasks")
	}

	stored := f.courseTasks(t, course.ID)
	generated := 0
	for _, task := range stored {
		switch {
		case task.ID == manual.ID:
			if task.IsGenerated() {
				t.Errorf("manual task became generated: %+v", task)
			}
		case task.GenerationID == "gen-2":
			generated++
			if wd := task.Deadline.Weekday(); wd != time.Friday {
				t.Errorf("task %q falls on %s", task.Name, wd)
			}
		default:
			t.Errorf("stale task left behind: %+v", task)
		}
	}
	if generated != 4 {
		t.Errorf("generated = %d, want 4", generated)
	}

	credits := 10.0
	_, regenerated, err = f.courses.Update(ctx, f.user, course.ID, CourseUpdate{ECTSPoints: &credits})
	if err != nil || !regenerated {
		t.Fatalf("Update credits: regenerated=%t err=%v", regenerated, err)
	}
	for _, task := range f.courseTasks(t, course.ID) {
		if task.IsGenerated() && (task.EffortHours == nil || *task.EffortHours != 4) {
			t.Errorf("task %q effort = %v, want 4", task.Name, task.EffortHours)
		}
	}

	end := date(2024, 10, 1)
	if _, _, err := f.courses.Update(ctx, f.user, course.ID, CourseUpdate{EndDate: &end}); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("inverted update err = %v", err)
	}
	if _, _, err := f.courses.Update(ctx, f.user, 999, CourseUpdate{Name: &name}); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("missing course err = %v", err)
	}
}

func TestCourseServiceDeleteKeepsManualTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	course, _, err := f.courses.Create(ctx, f.user, algebraInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	manual, err := f.tasks.CreateTask(ctx, f.user, TaskInput{Name: "Notes", EffortHours: 1, CourseID: &course.ID})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	if err := f.courses.Delete(ctx, f.user, course.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.courses.Get(ctx, f.user, course.ID); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}

	all, err := f.tasks.List(ctx, f.user, repository.OrderByDeadline)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].ID != manual.ID || all[0].CourseID != nil {
		t.Errorf("remaining tasks = %+v", all)
	}
}

func TestCourseServiceRegenerateAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, _, err := f.courses.Create(ctx, f.user, algebraInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second := algebraInput()
	second.Name = "Biology"
	second.Weekdays = []int{2}
	if _, _, err := f.courses.Create(ctx, f.user, second); err != nil {
		t.Fatalf("Create: %v", err)
	}

	courses, tasks, err := f.courses.RegenerateAll(ctx)
	if err != nil {
		t.Fatalf("RegenerateAll: %v", err)
	}
	if courses != 2 || tasks != 12 {
		t.Errorf("RegenerateAll = %d courses, %d tasks; want 2, 12", courses, tasks)
	}
	if got := f.courseTasks(t, first.ID); len(got) != 8 || got[0].GenerationID != "gen-3" {
		t.Errorf("first course tasks after regenerate: %d, generation %q", len(got), got[0].GenerationID)
	}

	one, err := f.courses.Regenerate(ctx, f.user, first.ID)
	if err != nil || len(one) != 8 {
		t.Errorf("Regenerate = %d tasks, %v", len(one), err)
	}

	list, err := f.courses.List(ctx, f.user)
	if err != nil || len(list) != 2 || list[0].Name != "Algebra" {
		t.Errorf("List = %+v, %v", list, err)
	}
}

func TestTaskServiceCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	deadline := time.Date(2024, 11, 10, 18, 0, 0, 0, time.UTC)
	task, err := f.tasks.CreateTask(ctx, f.user, TaskInput{Name: " Essay ", EffortHours: 2.5, Deadline: &deadline})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Name != "Essay" || task.Status != "pending" || *task.EffortHours != 3 || task.IsGenerated() {
		t.Errorf("task = %+v", task)
	}

	missing := uint(404)
	tests := []struct {
		name  string
		input TaskInput
		want  error
	}{
		{name: "empty name", input: TaskInput{Name: ""}, want: ErrNameRequired},
		{name: "negative effort", input: TaskInput{Name: "x", EffortHours: -1}, want: ErrInvalidEffort},
		{name: "unknown course", input: TaskInput{Name: "x", CourseID: &missing}, want: ErrCourseNotFound},
		{name: "bad priority", input: TaskInput{Name: "x", Priority: intPtr(5)}, want: ErrInvalidPriority},
	}
	for _, tt := range tests {
		if _, err := f.tasks.CreateTask(ctx, f.user, tt.input); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestTaskServiceUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	completedAt := time.Date(2024, 11, 6, 9, 0, 0, 0, time.UTC)
	f.tasks.now = func() time.Time { return completedAt }

	task, err := f.tasks.CreateTask(ctx, f.user, TaskInput{Name: "Lab report", EffortHours: 2})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	status := "Completed"
	changed, err := f.tasks.UpdateTask(ctx, f.user, task.ID, TaskUpdate{Status: &status, Priority: intPtr(1)})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if strings.Join(changed, ",") != "priority,status" {
		t.Errorf("changed = %v", changed)
	}
	got, err := f.tasks.GetTask(ctx, f.user, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != "completed" || got.CompletedAt == nil || !got.CompletedAt.Equal(completedAt) || got.Priority == nil || *got.Priority != 1 {
		t.Errorf("after update = %+v", got)
	}

	reopen := "working"
	if _, err := f.tasks.UpdateTask(ctx, f.user, task.ID, TaskUpdate{Status: &reopen, ClearPriority: true}); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, _ = f.tasks.GetTask(ctx, f.user, task.ID)
	if got.Status != "working" || got.CompletedAt != nil || got.Priority != nil {
		t.Errorf("after reopen = %+v", got)
	}

	bogus := "done"
	errTests := []struct {
		name string
		id   uint
		upd  TaskUpdate
		want error
	}{
		{name: "bad status", id: task.ID, upd: TaskUpdate{Status: &bogus}, want: ErrInvalidStatus},
		{name: "bad priority", id: task.ID, upd: TaskUpdate{Priority: intPtr(0)}, want: ErrInvalidPriority},
		{name: "negative effort", id: task.ID, upd: TaskUpdate{EffortHours: floatPtr(-2)}, want: ErrInvalidEffort},
		{name: "nothing to do", id: task.ID, upd: TaskUpdate{}, want: ErrNoUpdates},
		{name: "missing task", id: 999, upd: TaskUpdate{Status: &reopen}, want: ErrTaskNotFound},
	}
	for _, tt := range errTests {
		if _, err := f.tasks.UpdateTask(ctx, f.user, tt.id, tt.upd); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestTaskServiceCompleteAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, _ := f.tasks.CreateTask(ctx, f.user, TaskInput{Name: "a", EffortHours: 1})
	b, _ := f.tasks.CreateTask(ctx, f.user, TaskInput{Name: "b", EffortHours: 1})

	done, err := f.tasks.CompleteTasks(ctx, f.user, []uint{a.ID, b.ID, 999}, time.Now())
	if err != nil {
		t.Fatalf("CompleteTasks: %v", err)
	}
	if len(done) != 2 {
		t.Errorf("completed = %v", done)
	}

	if err := f.tasks.DeleteTask(ctx, f.user, a.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := f.tasks.GetTask(ctx, f.user, a.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("GetTask after delete err = %v", err)
	}
}

func TestTaskServiceListByPriority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, in := range []TaskInput{
		{Name: "medium", Priority: intPtr(2)},
		{Name: "none"},
		{Name: "high", Priority: intPtr(1)},
	} {
		if _, err := f.tasks.CreateTask(ctx, f.user, in); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
	}

	tasks, err := f.tasks.ListByPriority(ctx, f.user)
	if err != nil {
		t.Fatalf("ListByPriority: %v", err)
	}
	var names []string
	for _, task := range tasks {
		names = append(names, task.Name)
	}
	if got := strings.Join(names, ","); got != "high,medium,none" {
		t.Errorf("order = %s", got)
	}
}

func TestWorkloadService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 11, 6, 12, 0, 0, 0, time.UTC)

	if _, _, err := f.courses.Create(ctx, f.user, algebraInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	overdue := time.Date(2024, 11, 5, 10, 0, 0, 0, time.UTC)
	if _, err := f.tasks.CreateTask(ctx, f.user, TaskInput{Name: "late", EffortHours: 3, Deadline: &overdue}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	week, err := f.workload.Week(ctx, f.user, 0, now)
	if err != nil {
		t.Fatalf("Week: %v", err)
	}
	if len(week) != 7 {
		t.Fatalf("week buckets = %d", len(week))
	}
	// Monday 4th: lecture and assignment are overdue; Tuesday: manual task; Wednesday: still open.
	if week[0].Overdue != 4 || week[1].Overdue != 3 || week[2].Incomplete != 4 {
		t.Errorf("week = %+v", week)
	}
	summary := workload.Summarize(week)
	if summary.TotalOverdue != 7 || summary.TotalIncomplete != 4 {
		t.Errorf("summary = %+v", summary)
	}

	month, err := f.workload.Month(ctx, f.user, 0, now)
	if err != nil {
		t.Fatalf("Month: %v", err)
	}
	if total := workload.Summarize(month).Total(); total != 19 {
		t.Errorf("month total = %v, want 19", total)
	}

	rng, err := f.workload.Range(ctx, f.user, "2024-11-11", "2024-11-17", now)
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(rng) != 1 || rng[0].Label != "W46" || rng[0].Incomplete != 8 {
		t.Errorf("range = %+v", rng)
	}

	overview, err := f.workload.Overview(ctx, f.user, now)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if overview.OverdueTaskCount != 3 || overview.OverdueHours != 7 || overview.TaskCount != 9 {
		t.Errorf("overview = %+v", overview)
	}
}

func TestReminderDailySummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 11, 6, 12, 0, 0, 0, time.UTC)

	if _, _, err := f.courses.Create(ctx, f.user, algebraInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	text, err := f.reminder.DailySummary(ctx, *f.user, now)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	for _, want := range []string{"06.11.2024", "Lecture 1", "<i>(Algebra)</i>", "просрочено", "Lecture 3", "Открытых задач: 8 (16 ч)", "Просрочено: 2 (4 ч)"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestFormatTaskEscapesHTML(t *testing.T) {
	hours := 2
	task := model.Task{ID: 7, Name: "<script>", Status: "todo", EffortHours: &hours}
	got := FormatTask(task, nil, time.Now())
	if strings.Contains(got, "<script>") || !strings.Contains(got, "&lt;script&gt;") {
		t.Errorf("FormatTask = %q", got)
	}
	if !strings.Contains(got, "2 ч · todo") {
		t.Errorf("FormatTask meta missing: %q", got)
	}
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestTaskServiceListByCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	course, _, err := f.courses.Create(ctx, f.user, algebraInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.tasks.CreateTask(ctx, f.user, TaskInput{Name: "Read chapter 1", CourseID: &course.ID}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := f.tasks.CreateTask(ctx, f.user, TaskInput{Name: "Unrelated"}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	got, tasks, err := f.tasks.ListByCourse(ctx, f.user, course.ID)
	if err != nil {
		t.Fatalf("ListByCourse: %v", err)
	}
	if got.ID != course.ID || len(tasks) != 9 {
		t.Fatalf("course %d with %d tasks, want %d with 9", got.ID, len(tasks), course.ID)
	}
	manual := 0
	for _, task := range tasks {
		if !task.IsGenerated() {
			manual++
		}
	}
	if manual != 1 {
		t.Errorf("manual tasks = %d, want 1", manual)
	}

	other := f.addUser(t, 200, "bob")
	if _, _, err := f.tasks.ListByCourse(ctx, other, course.ID); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("foreign course err = %v", err)
	}
}

func TestFormatTaskMarksGeneratedTasks(t *testing.T) {
	hours := 2
	generated := model.Task{ID: 1, Name: "Lecture 1", Status: "pending", EffortHours: &hours, GenerationID: "gen-1"}
	if got := FormatTask(generated, nil, time.Now()); !strings.Contains(got, "2 ч · pending · по расписанию") {
		t.Errorf("FormatTask = %q", got)
	}
	manual := generated
	manual.GenerationID = ""
	if got := FormatTask(manual, nil, time.Now()); strings.Contains(got, "по расписанию") {
		t.Errorf("manual task marked as generated: %q", got)
	}
}
