package main

import (
	"fmt"

	"divorce-wizard/internal/app"

	"github.com/spf13/cobra"
)

func newRemindersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "reminders", Short: "Session reminder tasks"}
	cmd.AddCommand(&cobra.Command{
		Use:   "send",
		Short: "Send due reminders once, as the cron endpoint does",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				report, err := a.Reminders.Run(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	})
	return cmd
}

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sessions", Short: "Recovery session maintenance"}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete sessions past their expiry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				n, err := a.Sessions.PurgeExpired(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired sessions\n", n)
				return nil
			})
		},
	})
	return cmd
}

func newBlogCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "blog", Short: "Blog content tasks"}
	cmd.AddCommand(&cobra.Command{
		Use:   "reindex",
		Short: "Load every published post from the CMS into the search index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				n, err := a.Blog.Reindex(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %d posts\n", n)
				return nil
			})
		},
	})
	return cmd
}
