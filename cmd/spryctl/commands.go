package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"spry/internal/auth"
	"spry/internal/storage"
)

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath := a.v.GetString(keyDBPath)
			status, _ := cmd.Flags().GetBool("status")

			if !status {
				if err := storage.RunMigrations(dbPath); err != nil {
					return err
				}
			}
			version, dirty, err := storage.MigrationVersion(dbPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database: %s\nversion: %d\ndirty: %t\n", dbPath, version, dirty)
			return nil
		},
	}
	cmd.Flags().Bool("status", false, "show the schema version without applying migrations")
	return cmd
}

func (a *app) tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}
			manager, err := auth.NewManager(a.v.GetString(keyJWTSecret), a.v.GetDuration(keyTokenTTL))
			if err != nil {
				return err
			}
			token, err := manager.Issue(userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64("user", 0, "user id")
	cmd.Flags().String("secret", "", "signing secret (defaults to JWT_SECRET)")
	cmd.Flags().Duration("ttl", 0, "token lifetime (defaults to TOKEN_TTL, 0 never expires)")
	_ = a.v.BindPFlag(keyJWTSecret, cmd.Flags().Lookup("secret"))
	_ = a.v.BindPFlag(keyTokenTTL, cmd.Flags().Lookup("ttl"))
	return cmd
}

func (a *app) reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute progress of every savings goal of a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}
			svc, err := a.openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			goals, err := svc.Reconciler.ReconcileAll(cmd.Context(), userID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, g := range goals {
				fmt.Fprintf(out, "goal %d %q: %s / %s completed=%t\n",
					g.ID, g.Note, g.AllocatedAmount, g.GoalAmount, g.Completed)
			}
			fmt.Fprintf(out, "reconciled %d goals\n", len(goals))
			return nil
		},
	}
	cmd.Flags().Int64("user", 0, "user id")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard summary of a user as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}
			svc, err := a.openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			sum, err := svc.Metrics.Summary(cmd.Context(), userID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"totalIncome":       sum.TotalIncome,
				"totalExpense":      sum.TotalExpense,
				"totalSavings":      sum.TotalSavings,
				"remaining":         sum.Remaining,
				"achievedGoalCount": sum.AchievedGoalCount,
			})
		},
	}
	cmd.Flags().Int64("user", 0, "user id")
	return cmd
}

func userFlag(cmd *cobra.Command) (int64, error) {
	id, err := cmd.Flags().GetInt64("user")
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("--user must be a positive user id")
	}
	return id, nil
}
