package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"study-planner/internal/export"
	"study-planner/internal/workload"
)

func (b *Bot) handleWeek(ctx context.Context, msg *tgbotapi.Message, args string) error {
	offset, err := parseOffset(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	buckets, err := b.svc.Workload.Week(ctx, user, offset, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось посчитать нагрузку: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, renderChart(weekTitle(buckets), export.DayRows(buckets), workload.Summarize(buckets)))
}

func (b *Bot) handleMonth(ctx context.Context, msg *tgbotapi.Message, args string) error {
	offset, err := parseOffset(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	now := b.now().In(b.location())
	buckets, err := b.svc.Workload.Month(ctx, user, offset, now)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось посчитать нагрузку: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, renderChart(monthTitle(now, offset), export.WeekRows(buckets), workload.Summarize(buckets)))
}

func (b *Bot) handleRange(ctx context.Context, msg *tgbotapi.Message, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return b.sendText(msg.Chat.ID, "Формат: /range 2025-09-01 2025-12-31")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	buckets, err := b.svc.Workload.Range(ctx, user, fields[0], fields[1], b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось посчитать нагрузку: %s", escape(err.Error())))
	}
	if len(buckets) == 0 {
		return b.sendText(msg.Chat.ID, "Проверь даты: нужен формат <code>2025-09-01</code>, и начало не позже конца.")
	}
	title := fmt.Sprintf("Период %s — %s", fields[0], fields[1])
	return b.sendText(msg.Chat.ID, renderChart(title, export.WeekRows(buckets), workload.Summarize(buckets)))
}

// handleExport sends the week or month view as an xlsx document.
func (b *Bot) handleExport(ctx context.Context, msg *tgbotapi.Message, args string) error {
	view, rest := splitCommand(args)
	if view == "" {
		view = "week"
	}
	offset, err := parseOffset(rest)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	now := b.now().In(b.location())
	var (
		title string
		rows  []export.Row
		name  string
	)
	switch view {
	case "week":
		buckets, err := b.svc.Workload.Week(ctx, user, offset, now)
		if err != nil {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось посчитать нагрузку: %s", escape(err.Error())))
		}
		title = weekTitle(buckets)
		rows = export.DayRows(buckets)
		name = fmt.Sprintf("workload-week-%s.xlsx", buckets[0].Date.Format("2006-01-02"))
	case "month":
		buckets, err := b.svc.Workload.Month(ctx, user, offset, now)
		if err != nil {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось посчитать нагрузку: %s", escape(err.Error())))
		}
		title = monthTitle(now, offset)
		rows = export.WeekRows(buckets)
		name = fmt.Sprintf("workload-month-%s.xlsx", targetMonth(now, offset).Format("2006-01"))
	default:
		return b.sendText(msg.Chat.ID, "Формат: /export [week|month] [смещение]")
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, title, rows); err != nil {
		b.log.Error("export workload", zap.Error(err))
		return b.sendText(msg.Chat.ID, "Не удалось сформировать файл.")
	}

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{Name: name, Bytes: buf.Bytes()})
	doc.Caption = title
	_, err = b.api.Send(doc)
	return err
}

func weekTitle(buckets []workload.DayBucket) string {
	if len(buckets) == 0 {
		return "Неделя"
	}
	first, last := buckets[0].Date, buckets[len(buckets)-1].Date
	return fmt.Sprintf("Неделя %s — %s", first.Format("02.01"), last.Format("02.01.2006"))
}

func targetMonth(now time.Time, offset int) time.Time {
	year, month, _ := now.Date()
	return time.Date(year, month+time.Month(offset), 1, 0, 0, 0, 0, now.Location())
}

func monthTitle(now time.Time, offset int) string {
	return "Месяц " + targetMonth(now, offset).Format("01.2006")
}
