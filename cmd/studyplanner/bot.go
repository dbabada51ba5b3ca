package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"study-planner/internal/bot"
	"study-planner/internal/service"
)

func newBotCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot and periodic workload reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cfg.RequireTelegram(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			scheduler := service.NewSchedulerService(a.cfg.Location, a.log)
			telegramBot, err := bot.New(a.cfg.TelegramToken, bot.Services{
				Users:     a.users,
				Courses:   a.courses,
				Tasks:     a.tasks,
				Workload:  a.workload,
				Reminder:  a.reminder,
				Projects:  a.projects,
				Scheduler: scheduler,
			}, &a.cfg, a.log.Named("bot"))
			if err != nil {
				return err
			}

			if err := telegramBot.ScheduleReports(); err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()

			a.log.Info("study planner bot started",
				zap.Duration("report_interval", a.cfg.ReportInterval),
				zap.String("report_time", a.cfg.ReportTime),
				zap.String("timezone", a.cfg.Location.String()),
			)
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.log.Info("shutdown complete")
			return nil
		},
	}
}
