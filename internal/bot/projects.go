package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"study-planner/internal/model"
	"study-planner/internal/service"
)

func (b *Bot) handleNewProject(ctx context.Context, msg *tgbotapi.Message, args string) error {
	input, err := parseNewProjectArgs(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	project, result, err := b.svc.Projects.Create(ctx, user, input)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Не удалось создать проект. "+userMessage(err))
	}

	b.log.Info("project created via bot", zap.Uint("user_id", user.ID), zap.Uint("project_id", project.ID))
	text := fmt.Sprintf("🤝 <b>Проект создан</b>\n#%d %s · %s", project.ID, escape(normalizeTitle(project.Name)), project.Status)
	if report := formatInviteResult(result); report != "" {
		text += "\n\n" + report
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleProjects(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	projects, err := b.svc.Projects.List(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось получить проекты: %s", escape(err.Error())))
	}
	if len(projects) == 0 {
		return b.sendText(msg.Chat.ID, "Проектов пока нет. Создай первый через /newproject.")
	}

	var builder strings.Builder
	builder.WriteString("🤝 <b>Проекты</b>\n\n")
	for _, p := range projects {
		builder.WriteString(formatProjectLine(p))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleProject(ctx context.Context, msg *tgbotapi.Message, args string) error {
	if args == "" {
		return b.sendText(msg.Chat.ID, "Укажи ID проекта: /project 2")
	}
	projectID, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	project, err := b.svc.Projects.Get(ctx, user, projectID)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	return b.sendText(msg.Chat.ID, formatProject(*project))
}

// handleInvite adds members: /invite <id> @ann @bob:admin.
func (b *Bot) handleInvite(ctx context.Context, msg *tgbotapi.Message, args string) error {
	idRaw, rest, _ := strings.Cut(args, " ")
	if idRaw == "" {
		return b.sendText(msg.Chat.ID, userMessage(service.ErrNoInvitees))
	}
	projectID, err := parseID(idRaw)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	invitees, err := parseInvitees(rest)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	result, err := b.svc.Projects.Invite(ctx, user, projectID, invitees)
	if err != nil {
		text := userMessage(err)
		if len(result.Missing) > 0 {
			text += "\n" + formatInviteResult(result)
		}
		return b.sendText(msg.Chat.ID, text)
	}
	return b.sendText(msg.Chat.ID, formatInviteResult(result))
}

func formatProjectLine(p service.ProjectSummary) string {
	line := fmt.Sprintf("🤝 <b>#%d</b> %s · %s · %s\n", p.Project.ID, escape(normalizeTitle(p.Project.Name)), p.Project.Status, p.Role)
	if p.Project.Course != nil {
		line += fmt.Sprintf("   🎓 %s\n", escape(normalizeTitle(p.Project.Course.Name)))
	}
	return line
}

func formatProject(project model.Project) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🤝 <b>#%d %s</b>\n", project.ID, escape(normalizeTitle(project.Name))))
	b.WriteString(escape(project.Description))
	b.WriteByte('\n')
	b.WriteString(fmt.Sprintf("Статус: %s\n", project.Status))
	if project.Course != nil {
		b.WriteString(fmt.Sprintf("Курс: %s\n", escape(normalizeTitle(project.Course.Name))))
	}

	members := append([]model.ProjectMember(nil), project.Members...)
	service.SortMembers(members)
	b.WriteString(fmt.Sprintf("\n👥 <b>Участники (%d)</b>\n", len(members)))
	for _, m := range members {
		b.WriteString(fmt.Sprintf("• %s · %s\n", escape(m.User.DisplayName()), m.Role))
	}
	return strings.TrimSpace(b.String())
}

func formatInviteResult(result service.InviteResult) string {
	var lines []string
	if len(result.Added) > 0 {
		names := make([]string, len(result.Added))
		for i, u := range result.Added {
			names[i] = escape(u.DisplayName())
		}
		lines = append(lines, "➕ Добавлены: "+strings.Join(names, ", "))
	}
	if len(result.AlreadyMembers) > 0 {
		lines = append(lines, "👥 Уже в проекте: "+joinHandles(result.AlreadyMembers))
	}
	if len(result.Missing) > 0 {
		lines = append(lines, "❓ Не найдены: "+joinHandles(result.Missing))
	}
	return strings.Join(lines, "\n")
}

func joinHandles(names []string) string {
	handles := make([]string, len(names))
	for i, name := range names {
		handles[i] = "@" + escape(name)
	}
	return strings.Join(handles, ", ")
}
