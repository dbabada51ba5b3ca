// Package bot is the Telegram front end of the planner: course and task
// management, workload charts and periodic reports.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"study-planner/internal/config"
	"study-planner/internal/model"
	"study-planner/internal/repository"
	"study-planner/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageCourseName
	stageCourseCredits
	stageCourseStart
	stageCourseEnd
	stageCourseWeekdays
)

type conversationState struct {
	stage  conversationStage
	course service.CourseInput
}

type confirmationAction int

const (
	actionComplete confirmationAction = iota
	actionDelete
	actionDeleteCourse
)

type confirmationRequest struct {
	id     uint
	action confirmationAction
}

// Services groups everything the bot delegates to.
type Services struct {
	Users     *repository.UserRepository
	Courses   *service.CourseService
	Tasks     *service.TaskService
	Workload  *service.WorkloadService
	Reminder  *service.ReminderService
	Projects  *service.ProjectService
	Scheduler *service.SchedulerService
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	svc           Services
	config        *config.Config
	log           *zap.Logger
	now           func() time.Time
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	reportEntry   cron.EntryID
	mu            sync.Mutex
}

func New(token string, svc Services, cfg *config.Config, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info("bot authorized", zap.String("account", api.Self.UserName))

	return &Bot{
		api:           api,
		svc:           svc,
		config:        cfg,
		log:           log,
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error("handle callback", zap.Error(err))
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error("handle message", zap.Int64("from", update.Message.Chat.ID), zap.Error(err))
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	}

	if msg.IsCommand() {
		b.log.Info("command",
			zap.Int64("from", msg.From.ID),
			zap.String("command", msg.Command()),
			zap.String("args", msg.CommandArguments()),
		)
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		b.log.Debug("conversation step", zap.Int64("from", msg.From.ID), zap.Int("stage", int(b.getConversation(msg.From.ID).stage)))
		return b.handleConversation(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /newcourse, чтобы добавить курс, или /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "newcourse":
		return b.startNewCourseConversation(ctx, msg)
	case "courses":
		return b.handleCourses(ctx, msg)
	case "course":
		return b.handleCourse(ctx, msg, args)
	case "editcourse":
		return b.handleEditCourse(ctx, msg, args)
	case "delcourse":
		return b.handleDeleteCourse(ctx, msg, args)
	case "newproject":
		return b.handleNewProject(ctx, msg, args)
	case "projects":
		return b.handleProjects(ctx, msg)
	case "project":
		return b.handleProject(ctx, msg, args)
	case "invite":
		return b.handleInvite(ctx, msg, args)
	case "newtask":
		return b.handleNewTask(ctx, msg, args)
	case "tasks":
		return b.handleListTasks(ctx, msg, args)
	case "status":
		return b.handleStatus(ctx, msg, args)
	case "priority":
		return b.handlePriority(ctx, msg, args)
	case "complete":
		return b.handleComplete(ctx, msg, args)
	case "delete":
		return b.handleDelete(ctx, msg, args)
	case "week":
		return b.handleWeek(ctx, msg, args)
	case "month":
		return b.handleMonth(ctx, msg, args)
	case "range":
		return b.handleRange(ctx, msg, args)
	case "export":
		return b.handleExport(ctx, msg, args)
	case "report":
		return b.handleReport(ctx, msg)
	case "interval":
		return b.handleInterval(msg, args)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я учебный планировщик: превращаю расписание курсов в задачи и считаю нагрузку.</b>\n\n"+
			"• /newcourse — добавить курс, лекции и задания появятся сами\n"+
			"• /tasks — текущие задачи\n"+
			"• /week — нагрузка на неделю\n"+
			"• /help — все команды",
		escape(name),
	)

	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Курсы</b>\n" +
		"• /newcourse — добавить курс пошагово\n" +
		"• /courses — список курсов\n" +
		"• /course &lt;id&gt; — курс и все его задачи\n" +
		"• /editcourse &lt;id&gt; &lt;name|ects|start|end|days&gt; &lt;значение&gt; — изменить курс\n" +
		"• /delcourse &lt;id&gt; — удалить курс и его лекции\n\n" +
		"<b>Задачи</b>\n" +
		"• /newtask название; часы; [2025-11-30 [18:30]] — своя задача\n" +
		"• /tasks [priority|all] — задачи по дедлайну или приоритету\n" +
		"• /status &lt;id&gt; &lt;статус&gt; — " + statusList() + "\n" +
		"• /priority &lt;id&gt; &lt;1-3|none&gt; — приоритет\n" +
		"• /complete &lt;id&gt;[,&lt;id&gt;...] — отметить выполненными\n" +
		"• /delete &lt;id&gt; — удалить задачу\n\n" +
		"<b>Проекты</b>\n" +
		"• /newproject название | описание [| курс &lt;id&gt;] [| статус] [| @ник ...] — новый проект\n" +
		"• /projects — мои проекты\n" +
		"• /project &lt;id&gt; — проект и участники\n" +
		"• /invite &lt;id&gt; @ник[:admin] ... — пригласить участников\n\n" +
		"<b>Нагрузка</b>\n" +
		"• /week [смещение] — по дням недели\n" +
		"• /month [смещение] — по неделям месяца\n" +
		"• /range 2025-09-01 2025-12-31 — по неделям периода\n" +
		"• /export [week|month] [смещение] — таблица Excel\n" +
		"• /report — отчёт прямо сейчас\n" +
		"• /interval &lt;часы&gt; — как часто присылать отчёт\n" +
		"• /cancel — отменить текущий ввод"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.svc.Reminder.DailySummary(ctx, *user, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось сформировать отчёт: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

// SendDailyReports sends a summary to every known user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.svc.Users.ListAll(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	sent := 0
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := b.svc.Reminder.DailySummary(ctx, user, now)
		if err != nil {
			b.log.Warn("build summary", zap.Int64("telegram_id", user.TelegramID), zap.Error(err))
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			b.log.Warn("send summary", zap.Int64("telegram_id", user.TelegramID), zap.Error(err))
			continue
		}
		sent++
	}
	b.log.Info("reports sent", zap.Int("users", len(users)), zap.Int("sent", sent))
	return nil
}

// ScheduleReports registers the periodic report job: daily at ReportTime when
// configured, otherwise every ReportInterval.
func (b *Bot) ScheduleReports() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scheduleReportsLocked()
}

func (b *Bot) scheduleReportsLocked() error {
	if b.svc.Scheduler == nil {
		return nil
	}
	if b.reportEntry != 0 {
		b.svc.Scheduler.Remove(b.reportEntry)
		b.reportEntry = 0
	}

	var (
		id  cron.EntryID
		err error
	)
	if b.config.ReportTime != "" {
		id, err = b.svc.Scheduler.ScheduleDaily(b.config.ReportTime, b.reportJob)
	} else {
		id, err = b.svc.Scheduler.ScheduleInterval(b.config.ReportInterval, b.reportJob)
	}
	if err != nil {
		return fmt.Errorf("schedule reports: %w", err)
	}
	b.reportEntry = id
	return nil
}

func (b *Bot) reportJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := b.SendDailyReports(ctx); err != nil {
		b.log.Error("report job", zap.Error(err))
	}
}

func (b *Bot) handleInterval(msg *tgbotapi.Message, args string) error {
	if args == "" {
		b.mu.Lock()
		current := fmt.Sprintf("каждые %d ч", int(b.config.ReportInterval.Hours()))
		if b.config.ReportTime != "" {
			current = "ежедневно в " + b.config.ReportTime
		}
		b.mu.Unlock()
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Текущее расписание отчётов: %s. Укажи число часов, например: /interval 4", current))
	}
	hours, err := strconv.Atoi(args)
	if err != nil || hours <= 0 {
		return b.sendText(msg.Chat.ID, "Интервал должен быть положительным числом часов, например /interval 6")
	}

	b.mu.Lock()
	b.config.ReportInterval = time.Duration(hours) * time.Hour
	b.config.ReportTime = ""
	err = b.scheduleReportsLocked()
	b.mu.Unlock()
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось перенастроить отчёты: %s", escape(err.Error())))
	}

	b.log.Info("report interval changed", zap.Int64("from", msg.From.ID), zap.Int("hours", hours))
	return b.sendText(msg.Chat.ID, fmt.Sprintf("Интервал уведомлений обновлён: каждые %d ч.", hours))
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelCourse):
		return true, b.startNewCourseConversation(ctx, msg)
	case strings.ToLower(menuLabelCourses):
		return true, b.handleCourses(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg, "")
	case strings.ToLower(menuLabelWeek):
		return true, b.handleWeek(ctx, msg, "")
	case strings.ToLower(menuLabelMonth):
		return true, b.handleMonth(ctx, msg, "")
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.svc.Users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) location() *time.Location {
	if b.config != nil && b.config.Location != nil {
		return b.config.Location
	}
	return time.Local
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
