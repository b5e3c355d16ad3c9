package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/mentalmath/internal/account"
	"github.com/at-ishikawa/mentalmath/internal/cli"
	"github.com/at-ishikawa/mentalmath/internal/profile"
	"github.com/at-ishikawa/mentalmath/internal/review"
)

func newProfileCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "profile",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application, state account.State) error {
				if state.User == nil || state.Profile == nil {
					return errSignInRequired
				}
				app.printProfile(state.Profile)
				return nil
			})
		},
	}
	command.AddCommand(newProfileSetCommand(), newProfileSchemesCommand())
	return command
}

func (app *application) printProfile(p *profile.Profile) {
	_, _ = fmt.Fprintln(app.stdout, app.theme.Accent("%s %s", p.ProfileIcon, p.DisplayName))
	_, _ = fmt.Fprintf(app.stdout, "  Color scheme: %s\n", cli.LookupColorScheme(p.ColorScheme).Name)
	_, _ = fmt.Fprintf(app.stdout, "  Level:        %d\n", p.Level)
	_, _ = fmt.Fprintf(app.stdout, "  Member since: %s\n", p.CreatedAt.Format("2006-01-02"))
}

func newProfileSetCommand() *cobra.Command {
	var displayName, icon, colorScheme string
	command := &cobra.Command{
		Use:   "set",
		Short: "Change your display name, icon or color scheme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch profile.Patch
			if cmd.Flags().Changed("name") {
				patch.DisplayName = &displayName
			}
			if cmd.Flags().Changed("icon") {
				patch.ProfileIcon = &icon
			}
			if cmd.Flags().Changed("color-scheme") {
				patch.ColorScheme = &colorScheme
			}

			return withApplication(cmd, func(ctx context.Context, app *application, state account.State) error {
				if state.User == nil {
					return errSignInRequired
				}
				p, err := app.adapters.Profiles.UpdateProfile(ctx, state.User.ID, patch)
				if err != nil {
					return fmt.Errorf("update profile: %w", err)
				}
				if _, err := app.manager.Refresh(ctx); err != nil {
					return err
				}
				app.printProfile(p)
				return nil
			})
		},
	}
	command.Flags().StringVar(&displayName, "name", "", "display name")
	command.Flags().StringVar(&icon, "icon", "", "profile icon")
	command.Flags().StringVar(&colorScheme, "color-scheme", "", "color scheme id, see `mentalmath profile schemes`")
	return command
}

func newProfileSchemesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schemes",
		Short: "List the color schemes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			theme := cli.NewTheme()
			for _, id := range profile.ColorSchemes {
				theme.Apply(id)
				scheme := theme.Scheme()
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %-8s %s\n", id, theme.Accent("%s", scheme.Name))
			}
			return nil
		},
	}
}

func newStatsCommand() *cobra.Command {
	var year, month int
	var monthly bool
	command := &cobra.Command{
		Use:   "stats",
		Short: "Show your level, accuracy and progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application, state account.State) error {
				if state.User == nil {
					return errSignInRequired
				}
				name := state.User.Email
				if state.Profile != nil {
					name = state.Profile.DisplayName
				}
				cli.PrintStats(app.stdout, app.theme, name, state.Stats)

				if !monthly && year == 0 && month == 0 {
					return nil
				}
				result, err := app.adapters.Profiles.Statistics(ctx, state.User.ID, year, month)
				if err != nil {
					return fmt.Errorf("load statistics: %w", err)
				}
				_, _ = fmt.Fprintln(app.stdout)
				for _, period := range result.Periods {
					_, _ = fmt.Fprintf(app.stdout, "  %s  %4d questions  %3d%%  %d unique mistakes\n",
						period.Period, period.TotalQuestions, period.Accuracy, period.UniqueMistakes)
				}
				return nil
			})
		},
	}
	command.Flags().BoolVar(&monthly, "monthly", false, "break down by month")
	command.Flags().IntVar(&year, "year", 0, "only this year")
	command.Flags().IntVar(&month, "month", 0, "only this month (1-12)")
	return command
}

func newReviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Export your wrong answers as a PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application, state account.State) error {
				if state.User == nil || state.Profile == nil {
					return errSignInRequired
				}
				pdfPath, err := review.Export(app.cfg.Review.OutputDirectory, state.Profile, state.Stats)
				if err != nil {
					return fmt.Errorf("export review: %w", err)
				}
				_, _ = fmt.Fprintf(app.stdout, "Review written to %s\n", pdfPath)
				return nil
			})
		},
	}
}
