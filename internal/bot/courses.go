package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"study-planner/internal/calendar"
	"study-planner/internal/model"
	"study-planner/internal/repository"
	"study-planner/internal/service"
)

func (b *Bot) startNewCourseConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageCourseName})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Добавляем курс.\n<b>Шаг 1:</b> как он называется?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageCourseName:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Название не может быть пустым.", cancelKeyboard())
		}
		state.course.Name = text
		state.stage = stageCourseCredits
		return b.sendWithReplyMarkup(msg.Chat.ID, "🎯 <b>Шаг 2:</b> сколько ECTS у курса? (например, 5 или 7.5)", cancelKeyboard())
	case stageCourseCredits:
		credits, err := parseHours(text)
		if err != nil || credits == 0 {
			return b.sendWithReplyMarkup(msg.Chat.ID, userMessage(service.ErrInvalidCredits), cancelKeyboard())
		}
		state.course.ECTSPoints = credits
		state.stage = stageCourseStart
		return b.sendWithReplyMarkup(msg.Chat.ID, "📅 <b>Шаг 3:</b> дата начала в формате <code>2025-09-01</code>", cancelKeyboard())
	case stageCourseStart:
		start, err := calendar.ParseDate(text, b.location())
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, userMessage(errBadDate), cancelKeyboard())
		}
		state.course.StartDate = start
		state.stage = stageCourseEnd
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏁 <b>Шаг 4:</b> дата окончания (включительно)", cancelKeyboard())
	case stageCourseEnd:
		end, err := calendar.ParseDate(text, b.location())
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, userMessage(errBadDate), cancelKeyboard())
		}
		if end.Before(state.course.StartDate) {
			return b.sendWithReplyMarkup(msg.Chat.ID, userMessage(service.ErrInvalidDateRange), cancelKeyboard())
		}
		state.course.EndDate = end
		state.stage = stageCourseWeekdays
		return b.sendWithReplyMarkup(msg.Chat.ID, "🗓 <b>Шаг 5:</b> в какие дни лекции? Например <code>пн, ср</code> или <code>1,3</code>", weekdayKeyboard())
	case stageCourseWeekdays:
		days, err := parseWeekdaysInput(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, userMessage(err), weekdayKeyboard())
		}
		state.course.Weekdays = days
		err = b.finishCourseCreation(ctx, msg.From, state.course, msg.Chat.ID)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Диалог сброшен. Попробуй ещё раз через /newcourse.")
	}
}

func (b *Bot) finishCourseCreation(ctx context.Context, from *tgbotapi.User, input service.CourseInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	course, tasks, err := b.svc.Courses.Create(ctx, user, input)
	if err != nil {
		return b.sendText(chatID, "Не удалось сохранить курс. "+userMessage(err))
	}

	var summary strings.Builder
	summary.WriteString("✅ <b>Курс сохранён</b>\n")
	summary.WriteString(formatCourse(*course, len(tasks)))
	if len(tasks) == 0 {
		summary.WriteString("\nВ выбранном периоде нет ни одного дня лекций, задачи не созданы.")
	} else {
		first, last := tasks[0], tasks[len(tasks)-1]
		summary.WriteString(fmt.Sprintf("\nПервая: %s (%s)\nПоследняя: %s (%s)",
			escape(first.Name), first.Deadline.Format("2006-01-02"),
			escape(last.Name), last.Deadline.Format("2006-01-02"),
		))
	}
	return b.sendText(chatID, summary.String())
}

func (b *Bot) handleCourses(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	courses, err := b.svc.Courses.List(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось получить курсы: %s", escape(err.Error())))
	}
	if len(courses) == 0 {
		return b.sendText(msg.Chat.ID, "Курсов пока нет. Добавь первый через /newcourse.")
	}

	counts := make(map[uint]int)
	if tasks, err := b.svc.Tasks.List(ctx, user, repository.OrderByDeadline); err == nil {
		for _, t := range tasks {
			if t.CourseID != nil {
				counts[*t.CourseID]++
			}
		}
	}

	var builder strings.Builder
	builder.WriteString("🎓 <b>Курсы</b>\n\n")
	for _, c := range courses {
		builder.WriteString(formatCourse(c, counts[c.ID]))
		builder.WriteByte('\n')
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

// handleCourse shows one course with all of its tasks: /course <id>.
func (b *Bot) handleCourse(ctx context.Context, msg *tgbotapi.Message, args string) error {
	if args == "" {
		return b.sendText(msg.Chat.ID, "Укажи ID курса: /course 3")
	}
	courseID, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	course, tasks, err := b.svc.Tasks.ListByCourse(ctx, user, courseID)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}

	now := b.now().In(b.location())
	var builder strings.Builder
	builder.WriteString(formatCourse(*course, len(tasks)))
	builder.WriteByte('\n')
	if len(tasks) == 0 {
		builder.WriteString("Задач у курса нет.")
	}
	for i, t := range tasks {
		if i == taskListLimit {
			builder.WriteString(fmt.Sprintf("… и ещё %d.", len(tasks)-taskListLimit))
			break
		}
		builder.WriteString(service.FormatTask(t, nil, now))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

// handleEditCourse changes one field: /editcourse <id> <field> <value>.
func (b *Bot) handleEditCourse(ctx context.Context, msg *tgbotapi.Message, args string) error {
	fields := strings.SplitN(args, " ", 3)
	if len(fields) < 3 {
		return b.sendText(msg.Chat.ID, "Формат: /editcourse &lt;id&gt; &lt;name|ects|start|end|days&gt; &lt;значение&gt;")
	}
	courseID, err := parseID(fields[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	upd, err := b.parseCourseUpdate(strings.ToLower(fields[1]), strings.TrimSpace(fields[2]))
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	course, regenerated, err := b.svc.Courses.Update(ctx, user, courseID, upd)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}

	text := "✏️ <b>Курс обновлён</b>\n" + formatCourse(*course, -1)
	if regenerated {
		text += "\n♻️ Расписание изменилось, лекции и задания пересозданы."
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) parseCourseUpdate(field, value string) (service.CourseUpdate, error) {
	var upd service.CourseUpdate
	switch field {
	case "name", "название":
		upd.Name = &value
	case "ects", "credits":
		credits, err := parseHours(value)
		if err != nil {
			return upd, service.ErrInvalidCredits
		}
		upd.ECTSPoints = &credits
	case "start":
		d, err := calendar.ParseDate(value, b.location())
		if err != nil {
			return upd, errBadDate
		}
		upd.StartDate = &d
	case "end":
		d, err := calendar.ParseDate(value, b.location())
		if err != nil {
			return upd, errBadDate
		}
		upd.EndDate = &d
	case "days", "weekdays":
		days, err := parseWeekdaysInput(value)
		if err != nil {
			return upd, err
		}
		upd.Weekdays = days
	default:
		return upd, service.ErrNoUpdates
	}
	return upd, nil
}

func (b *Bot) handleDeleteCourse(ctx context.Context, msg *tgbotapi.Message, args string) error {
	if args == "" {
		return b.sendText(msg.Chat.ID, "Укажи ID курса: /delcourse 3")
	}
	courseID, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	course, err := b.svc.Courses.Get(ctx, user, courseID)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}

	b.setConfirmation(msg.From.ID, confirmationRequest{id: course.ID, action: actionDeleteCourse})
	text := fmt.Sprintf("Удалить курс «%s» (#%d) вместе с его лекциями и заданиями? Свои задачи курса останутся.", escape(normalizeTitle(course.Name)), course.ID)
	return b.sendWithReplyMarkup(msg.Chat.ID, text, confirmKeyboard())
}

func (b *Bot) deleteCourse(ctx context.Context, chatID int64, user *model.User, courseID uint) error {
	course, err := b.svc.Courses.Get(ctx, user, courseID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	if err := b.svc.Courses.Delete(ctx, user, courseID); err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	b.log.Info("course deleted via bot", zap.Uint("user_id", user.ID), zap.Uint("course_id", courseID))
	return b.sendText(chatID, fmt.Sprintf("🗑 Курс «%s» удалён.", escape(normalizeTitle(course.Name))))
}
