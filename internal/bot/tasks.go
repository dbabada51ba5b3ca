package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"study-planner/internal/model"
	"study-planner/internal/repository"
	"study-planner/internal/service"
	"study-planner/internal/workload"
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
	noCourse         = "📁 Без курса"
)

func (b *Bot) handleNewTask(ctx context.Context, msg *tgbotapi.Message, args string) error {
	if args == "" {
		return b.sendText(msg.Chat.ID, userMessage(errBadFormat))
	}
	input, err := parseNewTaskArgs(args, b.location())
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	task, err := b.svc.Tasks.CreateTask(ctx, user, input)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Не удалось сохранить задачу. "+userMessage(err))
	}

	b.log.Info("task created", zap.Uint("task_id", task.ID), zap.Uint("user_id", user.ID))
	return b.sendText(msg.Chat.ID, "✅ <b>Задача сохранена</b>\n"+service.FormatTask(*task, nil, b.now().In(b.location())))
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message, args string) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, user, strings.ToLower(strings.TrimSpace(args)))
}

type courseGroup struct {
	name  string
	tasks []model.Task
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User, mode string) error {
	var (
		tasks []model.Task
		err   error
	)
	if mode == "priority" {
		tasks, err = b.svc.Tasks.ListByPriority(ctx, user)
	} else {
		tasks, err = b.svc.Tasks.List(ctx, user, repository.OrderByDeadline)
	}
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось получить задачи: %s", escape(err.Error())))
	}

	courses, _ := b.svc.Courses.List(ctx, user)
	courseNames := make(map[uint]string, len(courses))
	for _, c := range courses {
		courseNames[c.ID] = c.Name
	}

	visible := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if mode != "all" && t.Status == string(workload.StatusCompleted) {
			continue
		}
		visible = append(visible, t)
	}
	if len(visible) == 0 {
		return b.sendText(chatID, "У тебя нет активных задач. Добавь курс через /newcourse или задачу через /newtask.")
	}

	hidden := 0
	if len(visible) > taskListLimit {
		hidden = len(visible) - taskListLimit
		visible = visible[:taskListLimit]
	}

	now := b.now().In(b.location())
	var builder strings.Builder
	builder.WriteString("📋 <b>Текущие задачи</b>\n")
	builder.WriteString("Нажми на кнопку, чтобы отметить задачу выполненной.\n\n")

	if mode == "priority" {
		for _, t := range visible {
			builder.WriteString(service.FormatTask(t, courseNames, now))
		}
	} else {
		for _, group := range groupByCourse(visible, courseNames) {
			builder.WriteString(fmt.Sprintf("<b>%s</b>\n", group.name))
			for _, t := range group.tasks {
				builder.WriteString(service.FormatTask(t, nil, now))
			}
			builder.WriteByte('\n')
		}
	}
	if hidden > 0 {
		builder.WriteString(fmt.Sprintf("\n… и ещё %d. Смотри /week и /month для общей картины.", hidden))
	}

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, t := range visible {
		if len(buttons) == buttonRowLimit {
			break
		}
		if t.Status == string(workload.StatusCompleted) {
			continue
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d · %s", t.ID, shortTitle(t.Name, 20)), fmt.Sprintf("%s%d", cbCompletePrefix, t.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("%s%d", cbDeletePrefix, t.ID)),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	_, err = b.api.Send(msg)
	return err
}

// groupByCourse keeps task order inside each group; groups are sorted by
// course name with tasks outside any course last.
func groupByCourse(tasks []model.Task, courseNames map[uint]string) []courseGroup {
	const noCourseKey = 0
	groups := make(map[uint]*courseGroup)
	var order []uint
	for _, t := range tasks {
		key := uint(noCourseKey)
		if t.CourseID != nil {
			if _, ok := courseNames[*t.CourseID]; ok {
				key = *t.CourseID
			}
		}
		g, ok := groups[key]
		if !ok {
			name := noCourse
			if key != noCourseKey {
				name = "🎓 " + escape(normalizeTitle(courseNames[key]))
			}
			g = &courseGroup{name: name}
			groups[key] = g
			order = append(order, key)
		}
		g.tasks = append(g.tasks, t)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i] == noCourseKey {
			return false
		}
		if order[j] == noCourseKey {
			return true
		}
		return strings.ToLower(courseNames[order[i]]) < strings.ToLower(courseNames[order[j]])
	})

	out := make([]courseGroup, len(order))
	for i, key := range order {
		out[i] = *groups[key]
	}
	return out
}

func (b *Bot) handleStatus(ctx context.Context, msg *tgbotapi.Message, args string) error {
	rawID, status := splitCommand(args)
	if rawID == "" || status == "" {
		return b.sendText(msg.Chat.ID, "Формат: /status &lt;id&gt; &lt;статус&gt;. Статусы: "+statusList())
	}
	taskID, err := parseID(rawID)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if _, err := b.svc.Tasks.UpdateTask(ctx, user, taskID, service.TaskUpdate{Status: &status}); err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🔄 Статус задачи #%d: <b>%s</b>", taskID, escape(strings.ToLower(status))))
}

func (b *Bot) handlePriority(ctx context.Context, msg *tgbotapi.Message, args string) error {
	rawID, rawPriority := splitCommand(args)
	if rawID == "" || rawPriority == "" {
		return b.sendText(msg.Chat.ID, "Формат: /priority &lt;id&gt; &lt;1-3|none&gt;")
	}
	taskID, err := parseID(rawID)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	priority, clear, err := parsePriority(rawPriority)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	upd := service.TaskUpdate{ClearPriority: clear}
	if !clear {
		upd.Priority = &priority
	}
	if _, err := b.svc.Tasks.UpdateTask(ctx, user, taskID, upd); err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	if clear {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Приоритет задачи #%d снят.", taskID))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("⭐ Приоритет задачи #%d: P%d", taskID, priority))
}

func (b *Bot) handleComplete(ctx context.Context, msg *tgbotapi.Message, args string) error {
	if args == "" {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /complete 12 или /complete 12,13")
	}
	ids, err := parseIDList(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	done, err := b.svc.Tasks.CompleteTasks(ctx, user, ids, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	if len(done) == 0 {
		return b.sendText(msg.Chat.ID, "Задачи не найдены.")
	}
	b.log.Info("tasks completed", zap.Uint("user_id", user.ID), zap.Int("count", len(done)))
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Выполнено задач: %d из %d.", len(done), len(ids)))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message, args string) error {
	if args == "" {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /delete 12")
	}
	taskID, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.deleteTask(ctx, msg.Chat.ID, user, taskID)
}

func (b *Bot) deleteTask(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, err := b.svc.Tasks.GetTask(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	if err := b.svc.Tasks.DeleteTask(ctx, user, taskID); err != nil {
		return b.sendText(chatID, "Не удалось удалить задачу. "+userMessage(err))
	}
	b.log.Info("task deleted", zap.Uint("task_id", taskID), zap.Uint("user_id", user.ID))
	return b.sendText(chatID, fmt.Sprintf("🗑 Задача «%s» удалена.", escape(normalizeTitle(task.Name))))
}

func (b *Bot) completeTask(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, err := b.svc.Tasks.GetTask(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	if task.Status == string(workload.StatusCompleted) {
		return b.sendText(chatID, "Задача уже выполнена.")
	}
	if _, err := b.svc.Tasks.CompleteTasks(ctx, user, []uint{taskID}, b.now()); err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	if err := b.sendText(chatID, fmt.Sprintf("✅ Задача «%s» выполнена.", escape(normalizeTitle(task.Name)))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user, "")
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("callback ack", zap.Error(err))
	}

	var action confirmationAction
	var raw string
	switch {
	case strings.HasPrefix(cb.Data, cbCompletePrefix):
		action, raw = actionComplete, strings.TrimPrefix(cb.Data, cbCompletePrefix)
	case strings.HasPrefix(cb.Data, cbDeletePrefix):
		action, raw = actionDelete, strings.TrimPrefix(cb.Data, cbDeletePrefix)
	default:
		return nil
	}
	taskID, err := parseID(raw)
	if err != nil {
		return nil
	}
	b.log.Debug("callback", zap.Int64("from", cb.From.ID), zap.String("data", cb.Data))

	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		return err
	}
	task, err := b.svc.Tasks.GetTask(ctx, user, taskID)
	if err != nil {
		return b.sendText(cb.Message.Chat.ID, userMessage(err))
	}

	var text string
	if action == actionDelete {
		text = fmt.Sprintf("Удалить задачу «%s» (#%d)?", escape(normalizeTitle(task.Name)), task.ID)
	} else {
		if task.Status == string(workload.StatusCompleted) {
			return b.sendText(cb.Message.Chat.ID, "Задача уже выполнена.")
		}
		text = fmt.Sprintf("Отметить задачу «%s» (#%d) как выполненную?", escape(normalizeTitle(task.Name)), task.ID)
	}
	b.setConfirmation(cb.From.ID, confirmationRequest{id: task.ID, action: action})
	return b.sendWithReplyMarkup(cb.Message.Chat.ID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		user, err := b.ensureUser(ctx, msg.From)
		if err != nil {
			return err
		}
		switch req.action {
		case actionDelete:
			return b.deleteTask(ctx, msg.Chat.ID, user, req.id)
		case actionDeleteCourse:
			return b.deleteCourse(ctx, msg.Chat.ID, user, req.id)
		default:
			return b.completeTask(ctx, msg.Chat.ID, user, req.id)
		}
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Действие отменено.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Подтверди или отмени действие.", confirmKeyboard())
	}
}
