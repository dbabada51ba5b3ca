package bot

import (
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
	"unicode"

	"study-planner/internal/export"
	"study-planner/internal/model"
	"study-planner/internal/schedule"
	"study-planner/internal/service"
	"study-planner/internal/workload"
)

const (
	barWidth       = 16
	barOverdue     = "█"
	barIncomplete  = "▓"
	barCompleted   = "░"
	taskListLimit  = 25
	buttonRowLimit = 10
)

// renderChart draws one horizontal bar per row, scaled to the largest total.
func renderChart(title string, rows []export.Row, summary workload.Summary) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📊 <b>%s</b>\n", escape(title)))

	if len(rows) == 0 {
		builder.WriteString("Нет данных за этот период.")
		return builder.String()
	}

	labelWidth := 0
	maxTotal := 0.0
	for _, r := range rows {
		if n := len([]rune(r.Label)); n > labelWidth {
			labelWidth = n
		}
		maxTotal = math.Max(maxTotal, r.Total)
	}

	builder.WriteString("<pre>")
	for _, r := range rows {
		label := r.Label + strings.Repeat(" ", labelWidth-len([]rune(r.Label)))
		builder.WriteString(fmt.Sprintf("%s %s %s\n", escape(label), bar(r, maxTotal), formatHours(r.Total)))
	}
	builder.WriteString("</pre>")
	builder.WriteString(fmt.Sprintf("%s просрочено  %s открыто  %s выполнено\n\n", barOverdue, barIncomplete, barCompleted))

	builder.WriteString(fmt.Sprintf("⚠️ Просрочено: %s ч\n", formatHours(summary.TotalOverdue)))
	builder.WriteString(fmt.Sprintf("⏳ Открыто: %s ч\n", formatHours(summary.TotalIncomplete)))
	builder.WriteString(fmt.Sprintf("✅ Выполнено: %s ч\n", formatHours(summary.TotalCompleted)))
	builder.WriteString(fmt.Sprintf("Σ Всего: %s ч", formatHours(summary.Total())))
	return builder.String()
}

func bar(r export.Row, maxTotal float64) string {
	if maxTotal <= 0 {
		return strings.Repeat(" ", barWidth)
	}
	scale := barWidth / maxTotal
	o := segment(r.Overdue, scale)
	i := segment(r.Incomplete, scale)
	c := segment(r.Completed, scale)
	for o+i+c > barWidth {
		switch {
		case c >= i && c >= o:
			c--
		case i >= o:
			i--
		default:
			o--
		}
	}
	return strings.Repeat(barOverdue, o) +
		strings.Repeat(barIncomplete, i) +
		strings.Repeat(barCompleted, c) +
		strings.Repeat(" ", barWidth-o-i-c)
}

func segment(hours, scale float64) int {
	if hours <= 0 {
		return 0
	}
	n := int(math.Round(hours * scale))
	if n == 0 {
		n = 1
	}
	return n
}

func formatHours(h float64) string {
	if h == math.Trunc(h) {
		return fmt.Sprintf("%d", int64(h))
	}
	return fmt.Sprintf("%.1f", h)
}

func formatCourse(course model.Course, taskCount int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎓 <b>#%d</b> %s\n", course.ID, escape(normalizeTitle(course.Name))))
	b.WriteString(fmt.Sprintf("   📅 %s — %s\n", course.StartDate.Format("2006-01-02"), course.EndDate.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("   🎯 %s ECTS · дни: %s\n", formatHours(course.ECTSPoints), formatWeekdaysRaw(course.LectureWeekdays)))
	if taskCount >= 0 {
		b.WriteString(fmt.Sprintf("   📝 задач: %d\n", taskCount))
	}
	return b.String()
}

func formatWeekdaysRaw(raw string) string {
	days := formatWeekdays(schedule.ParseWeekdays(raw))
	if days == "" {
		return "—"
	}
	return days
}

// userMessage turns a service error into a reply for the user.
func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return "Задача не найдена."
	case errors.Is(err, service.ErrCourseNotFound):
		return "Курс не найден."
	case errors.Is(err, service.ErrNameRequired):
		return "Название не может быть пустым."
	case errors.Is(err, service.ErrInvalidCredits):
		return "Количество ECTS должно быть положительным числом."
	case errors.Is(err, service.ErrInvalidDateRange):
		return "Дата начала не может быть позже даты окончания."
	case errors.Is(err, service.ErrInvalidWeekday):
		return "Дни недели должны быть от 0 (вс) до 6 (сб)."
	case errors.Is(err, service.ErrInvalidStatus):
		return "Неизвестный статус. Допустимо: " + statusList() + "."
	case errors.Is(err, service.ErrInvalidEffort), errors.Is(err, errBadHours):
		return "Часы должны быть неотрицательным числом."
	case errors.Is(err, service.ErrInvalidPriority):
		return "Приоритет должен быть от 1 до 3 или none."
	case errors.Is(err, service.ErrProjectNotFound):
		return "Проект не найден."
	case errors.Is(err, service.ErrDescriptionRequired), errors.Is(err, errBadProjectFormat):
		return "Формат: <code>/newproject название | описание [| курс 3] [| active] [| @ник ...]</code>"
	case errors.Is(err, service.ErrInvalidProjectState):
		return "Статус проекта: " + strings.Join(service.ProjectStatuses(), ", ") + "."
	case errors.Is(err, service.ErrInvalidRole), errors.Is(err, errBadInvitee):
		return "Участников указывай так: <code>@ник</code> или <code>@ник:admin</code>."
	case errors.Is(err, service.ErrNoInvitees):
		return "Укажи, кого пригласить: <code>/invite 2 @ник</code>"
	case errors.Is(err, service.ErrUsersNotFound):
		return "Никого не нашёл. Приглашённые должны хотя бы раз написать боту /start."
	case errors.Is(err, service.ErrNoUpdates):
		return "Нечего обновлять."
	case errors.Is(err, errBadID):
		return "ID должен быть положительным числом."
	case errors.Is(err, errBadDate):
		return "Не могу распознать дату. Используй формат <code>2025-11-30</code>."
	case errors.Is(err, errBadTime):
		return "Не могу распознать время. Используй формат <code>18:30</code>."
	case errors.Is(err, errBadOffset):
		return "Смещение должно быть целым числом, например -1 или 2."
	case errors.Is(err, errBadWeekdays), errors.Is(err, errNoWeekdays):
		return "Перечисли дни через запятую: <code>пн, ср</code> или <code>1,3</code>."
	case errors.Is(err, errBadFormat):
		return "Формат: <code>/newtask название; часы; [2025-11-30 [18:30]]</code>"
	default:
		return fmt.Sprintf("Ошибка: %s", escape(err.Error()))
	}
}

func statusList() string {
	names := make([]string, len(workload.Statuses))
	for i, s := range workload.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}
