package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"study-planner/internal/model"
	"study-planner/internal/repository"
	"study-planner/internal/workload"
)

// reminderListLimit caps each section of the daily summary.
const reminderListLimit = 10

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	taskRepo   *repository.TaskRepository
	courseRepo *repository.CourseRepository
	loc        *time.Location
}

func NewReminderService(taskRepo *repository.TaskRepository, courseRepo *repository.CourseRepository, loc *time.Location) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{taskRepo: taskRepo, courseRepo: courseRepo, loc: loc}
}

func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	now = now.In(s.loc)

	tasks, err := s.taskRepo.ListByUser(ctx, user.ID, repository.OrderByDeadline)
	if err != nil {
		return "", err
	}

	courses, err := s.courseRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	courseNames := make(map[uint]string)
	for _, c := range courses {
		courseNames[c.ID] = c.Name
	}

	view := WorkloadTasks(tasks)
	var overdue, upcoming []model.Task
	for i, task := range tasks {
		switch workload.Classify(view[i], now) {
		case workload.Overdue:
			overdue = append(overdue, task)
		case workload.Incomplete:
			if task.Deadline.Sub(now) <= 7*24*time.Hour {
				upcoming = append(upcoming, task)
			}
		}
	}

	overview := workload.NewOverview(view, now)

	var builder strings.Builder
	builder.WriteString("📋 <b>Ежедневный отчёт</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02.01.2006")))

	builder.WriteString("⚠️ <b>Просроченные задачи</b>\n")
	writeSection(&builder, overdue, courseNames, now, "— просроченных задач нет\n")

	builder.WriteString("\n⏳ <b>На ближайшие 7 дней</b>\n")
	writeSection(&builder, upcoming, courseNames, now, "— ближайших дедлайнов нет\n")

	builder.WriteString("\n📊 <b>Нагрузка</b>\n")
	builder.WriteString(fmt.Sprintf("Открытых задач: %d (%s ч)\n", overview.TaskCount, formatHours(overview.TotalHours)))
	builder.WriteString(fmt.Sprintf("На неделю: %d (%s ч)\n", overview.UpcomingTaskCount, formatHours(overview.UpcomingWeekHours)))
	builder.WriteString(fmt.Sprintf("Просрочено: %d (%s ч)\n", overview.OverdueTaskCount, formatHours(overview.OverdueHours)))

	return strings.TrimSpace(builder.String()), nil
}

func writeSection(builder *strings.Builder, tasks []model.Task, courseNames map[uint]string, now time.Time, empty string) {
	if len(tasks) == 0 {
		builder.WriteString(empty)
		return
	}
	for i, task := range tasks {
		if i == reminderListLimit {
			builder.WriteString(fmt.Sprintf("… и ещё %d\n", len(tasks)-reminderListLimit))
			break
		}
		builder.WriteString(FormatTask(task, courseNames, now))
	}
}

// FormatTask renders one task line for Telegram HTML messages.
func FormatTask(task model.Task, courseNames map[uint]string, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	switch {
	case task.Status == string(workload.StatusCompleted):
		icon = "✅"
	case task.Deadline != nil && now.After(*task.Deadline):
		icon = "⚠️"
	case task.Deadline != nil && task.Deadline.Sub(now) <= 48*time.Hour:
		icon = "⏳"
	}

	sb.WriteString(fmt.Sprintf("%s #%d %s", icon, task.ID, html.EscapeString(strings.TrimSpace(task.Name))))

	if task.CourseID != nil {
		if name := strings.TrimSpace(courseNames[*task.CourseID]); name != "" {
			sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(name)))
		}
	}

	if task.Deadline != nil {
		d := task.Deadline.In(now.Location())
		if now.After(d) && task.Status != string(workload.StatusCompleted) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ до %s — <b>просрочено</b>", d.Format("2006-01-02 15:04")))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ до %s", d.Format("2006-01-02 15:04")))
		}
	}

	var meta []string
	if task.EffortHours != nil {
		meta = append(meta, fmt.Sprintf("%d ч", *task.EffortHours))
	}
	if task.Status != "" {
		meta = append(meta, task.Status)
	}
	if task.Priority != nil {
		meta = append(meta, fmt.Sprintf("P%d", *task.Priority))
	}
	if task.IsGenerated() {
		meta = append(meta, "по расписанию")
	}
	if len(meta) > 0 {
		sb.WriteString("\n   📝 " + strings.Join(meta, " · "))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func formatHours(h float64) string {
	if h == float64(int64(h)) {
		return fmt.Sprintf("%d", int64(h))
	}
	return fmt.Sprintf("%.1f", h)
}
