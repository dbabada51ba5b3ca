package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRegenerateCmd(configPath *string) *cobra.Command {
	var (
		courseID   uint
		telegramID int64
	)

	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Rebuild generated lecture and assignment tasks from course schedules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()

			if courseID == 0 {
				courses, tasks, err := a.courses.RegenerateAll(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "regenerated %d courses, %d tasks\n", courses, tasks)
				return nil
			}

			if telegramID == 0 {
				return fmt.Errorf("--telegram-id is required with --course")
			}
			user, err := a.users.FindByTelegramID(ctx, telegramID)
			if err != nil {
				return err
			}
			tasks, err := a.courses.Regenerate(ctx, user, courseID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "course %d: %d tasks\n", courseID, len(tasks))
			return nil
		},
	}
	cmd.Flags().UintVar(&courseID, "course", 0, "only this course id")
	cmd.Flags().Int64Var(&telegramID, "telegram-id", 0, "owner of --course")
	return cmd
}
