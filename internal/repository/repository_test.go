package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"study-planner/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "data", "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, telegramID int64) *model.User {
	t.Helper()
	user, err := NewUserRepository(db).UpsertFromTelegram(context.Background(), telegramID, "Ada", "", "ada")
	if err != nil {
		t.Fatalf("UpsertFromTelegram: %v", err)
	}
	return user
}

func generatedTasks(generation string, names ...string) TaskBuilder {
	return func(course *model.Course) []model.Task {
		tasks := make([]model.Task, len(names))
		for i, name := range names {
			courseID := course.ID
			deadline := course.StartDate.AddDate(0, 0, i)
			tasks[i] = model.Task{
				UserID:       course.UserID,
				CourseID:     &courseID,
				GenerationID: generation,
				Name:         name,
				Status:       "pending",
				Deadline:     &deadline,
			}
		}
		return tasks
	}
}

func TestUserRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first, err := repo.UpsertFromTelegram(ctx, 42, "Ada", "Lovelace", "ada")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := repo.UpsertFromTelegram(ctx, 42, "Augusta", "Lovelace", "ada")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("upsert created a second user: %d != %d", first.ID, second.ID)
	}

	found, err := repo.FindByTelegramID(ctx, 42)
	if err != nil {
		t.Fatalf("FindByTelegramID: %v", err)
	}
	if found.FirstName != "Augusta" {
		t.Errorf("FirstName = %q", found.FirstName)
	}
	if _, err := repo.FindByTelegramID(ctx, 7); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user err = %v", err)
	}

	users, err := repo.ListAll(ctx)
	if err != nil || len(users) != 1 {
		t.Errorf("ListAll = %d users, %v", len(users), err)
	}
}

func TestCourseReplaceGeneratedKeepsManualTasks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, db, 1)
	courses := NewCourseRepository(db)
	tasks := NewTaskRepository(db)

	course := model.Course{UserID: user.ID, Name: "Algebra", ECTSPoints: 5, StartDate: time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC)}
	created, err := courses.CreateWithTasks(ctx, &course, generatedTasks("g1", "Lecture 1", "Assignment 1"))
	if err != nil {
		t.Fatalf("CreateWithTasks: %v", err)
	}
	if course.ID == 0 || len(created) != 2 || created[0].ID == 0 {
		t.Fatalf("course %d, tasks %+v", course.ID, created)
	}

	manual := model.Task{UserID: user.ID, CourseID: &course.ID, Name: "Read chapter 1", Status: "pending"}
	if err := tasks.Create(ctx, &manual); err != nil {
		t.Fatalf("Create manual: %v", err)
	}

	replaced, err := courses.ReplaceGeneratedTasks(ctx, &course, generatedTasks("g2", "Lecture 1"))
	if err != nil {
		t.Fatalf("ReplaceGeneratedTasks: %v", err)
	}
	if len(replaced) != 1 {
		t.Fatalf("replaced = %d tasks", len(replaced))
	}

	stored, err := tasks.ListByCourse(ctx, user.ID, course.ID)
	if err != nil {
		t.Fatalf("ListByCourse: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored = %+v", stored)
	}
	var sawManual, sawGenerated bool
	for _, task := range stored {
		switch {
		case task.ID == manual.ID:
			sawManual = true
		case task.GenerationID == "g2":
			sawGenerated = true
		default:
			t.Errorf("unexpected task %+v", task)
		}
	}
	if !sawManual || !sawGenerated {
		t.Errorf("manual=%t generated=%t", sawManual, sawGenerated)
	}
}

func TestCourseUpdateAndRegenerate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, db, 1)
	courses := NewCourseRepository(db)

	course := model.Course{UserID: user.ID, Name: "Physics", ECTSPoints: 5, LectureWeekdays: "[1]"}
	if _, err := courses.CreateWithTasks(ctx, &course, generatedTasks("g1", "Lecture 1")); err != nil {
		t.Fatalf("CreateWithTasks: %v", err)
	}

	course.ECTSPoints = 10
	tasks, err := courses.UpdateAndRegenerate(ctx, &course, map[string]interface{}{"ects_points": 10.0}, generatedTasks("g2", "Lecture 1", "Assignment 1"))
	if err != nil {
		t.Fatalf("UpdateAndRegenerate: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("tasks = %d", len(tasks))
	}

	reloaded, err := courses.FindByID(ctx, user.ID, course.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if reloaded.ECTSPoints != 10 {
		t.Errorf("ECTSPoints = %v", reloaded.ECTSPoints)
	}

	if err := courses.Update(ctx, reloaded, map[string]interface{}{"name": "Physics II"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	list, err := courses.ListByUser(ctx, user.ID)
	if err != nil || len(list) != 1 || list[0].Name != "Physics II" {
		t.Errorf("ListByUser = %+v, %v", list, err)
	}
}

func TestCourseFindByIDIsScopedToUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := newTestUser(t, db, 1)
	other := newTestUser(t, db, 2)
	courses := NewCourseRepository(db)

	course := model.Course{UserID: owner.ID, Name: "Chemistry"}
	if _, err := courses.CreateWithTasks(ctx, &course, generatedTasks("g1")); err != nil {
		t.Fatalf("CreateWithTasks: %v", err)
	}
	if _, err := courses.FindByID(ctx, other.ID, course.ID); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("other user err = %v", err)
	}
	if err := courses.Delete(ctx, other.ID, course.ID); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("other user delete err = %v", err)
	}
	all, err := courses.ListAll(ctx)
	if err != nil || len(all) != 1 {
		t.Errorf("ListAll = %d, %v", len(all), err)
	}
}

func TestCourseDeleteDetachesManualTasks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, db, 1)
	courses := NewCourseRepository(db)
	tasks := NewTaskRepository(db)

	course := model.Course{UserID: user.ID, Name: "History"}
	if _, err := courses.CreateWithTasks(ctx, &course, generatedTasks("g1", "Lecture 1", "Assignment 1")); err != nil {
		t.Fatalf("CreateWithTasks: %v", err)
	}
	manual := model.Task{UserID: user.ID, CourseID: &course.ID, Name: "Essay", Status: "pending"}
	if err := tasks.Create(ctx, &manual); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := courses.Delete(ctx, user.ID, course.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	remaining, err := tasks.ListByUser(ctx, user.ID, OrderByDeadline)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != manual.ID {
		t.Fatalf("remaining = %+v", remaining)
	}
	if remaining[0].CourseID != nil {
		t.Errorf("manual task still linked to course %d", *remaining[0].CourseID)
	}
}

func TestTaskRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := newTestUser(t, db, 1)
	other := newTestUser(t, db, 2)
	repo := NewTaskRepository(db)

	late := time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC)
	early := time.Date(2024, 11, 10, 12, 0, 0, 0, time.UTC)
	batch := []model.Task{
		{UserID: user.ID, Name: "no deadline", Status: "pending"},
		{UserID: user.ID, Name: "late", Status: "pending", Deadline: &late},
		{UserID: user.ID, Name: "early", Status: "pending", Deadline: &early},
	}
	for i := range batch {
		if err := repo.Create(ctx, &batch[i]); err != nil {
			t.Fatalf("Create %s: %v", batch[i].Name, err)
		}
	}
	foreign := model.Task{UserID: other.ID, Name: "foreign", Status: "pending"}
	if err := repo.Create(ctx, &foreign); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byDeadline, err := repo.ListByUser(ctx, user.ID, OrderByDeadline)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	var names []string
	for _, task := range byDeadline {
		names = append(names, task.Name)
	}
	if len(names) != 3 || names[0] != "early" || names[1] != "late" || names[2] != "no deadline" {
		t.Errorf("deadline order = %v", names)
	}

	first := byDeadline[0]
	if err := repo.Update(ctx, user.ID, first.ID, map[string]interface{}{"name": "earliest"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := repo.Update(ctx, other.ID, first.ID, map[string]interface{}{"name": "stolen"}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("foreign update err = %v", err)
	}
	got, err := repo.FindByID(ctx, user.ID, first.ID)
	if err != nil || got.Name != "earliest" {
		t.Errorf("FindByID = %+v, %v", got, err)
	}

	doneAt := time.Date(2024, 11, 11, 9, 0, 0, 0, time.UTC)
	done, err := repo.MarkCompleted(ctx, user.ID, []uint{first.ID, foreign.ID}, doneAt)
	if err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if len(done) != 1 || done[0] != first.ID {
		t.Errorf("completed ids = %v", done)
	}
	got, _ = repo.FindByID(ctx, user.ID, first.ID)
	if got.Status != "completed" || got.CompletedAt == nil || !got.CompletedAt.Equal(doneAt) {
		t.Errorf("completed task = %+v", got)
	}
	untouched, _ := repo.FindByID(ctx, other.ID, foreign.ID)
	if untouched.Status != "pending" {
		t.Errorf("foreign task status = %q", untouched.Status)
	}

	if err := repo.Delete(ctx, user.ID, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, user.ID, first.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	if _, err := repo.FindByID(ctx, user.ID, first.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("FindByID after delete err = %v", err)
	}
}

func TestEnsureDirForSQLite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	if err := ensureDirForSQLite("file:" + filepath.Join(dir, "db.sqlite") + "?cache=shared"); err != nil {
		t.Fatalf("ensureDirForSQLite: %v", err)
	}
	if err := ensureDirForSQLite(":memory:"); err != nil {
		t.Errorf("memory dsn: %v", err)
	}
}
