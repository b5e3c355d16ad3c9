package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/mentalmath/internal/account"
	"github.com/at-ishikawa/mentalmath/internal/cli"
	"github.com/at-ishikawa/mentalmath/internal/config"
	"github.com/at-ishikawa/mentalmath/internal/profile"
	"github.com/at-ishikawa/mentalmath/internal/question"
	"github.com/at-ishikawa/mentalmath/internal/session"
)

type practiceOptions struct {
	operations  []string
	difficulty  string
	leftDigits  int
	rightDigits int
	timeLimit   int
}

func (opts *practiceOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&opts.difficulty, "difficulty", "", "easy, medium or hard (overrides digits)")
	cmd.Flags().IntVar(&opts.leftDigits, "left-digits", 0, "digits of the left operand")
	cmd.Flags().IntVar(&opts.rightDigits, "right-digits", 0, "digits of the right operand")
}

// settings fills unset options from the practice section of the config.
func (opts *practiceOptions) settings(cfg config.PracticeConfig, mode session.Mode) (session.Settings, error) {
	names := opts.operations
	if len(names) == 0 {
		names = []string{cfg.Operation}
	}
	operations := make([]question.Operation, 0, len(names))
	for _, name := range names {
		op, err := question.ParseOperation(name)
		if err != nil {
			return session.Settings{}, err
		}
		operations = append(operations, op)
	}

	params := question.Params{LeftDigits: opts.leftDigits, RightDigits: opts.rightDigits}
	switch {
	case opts.difficulty != "":
		difficulty, err := question.ParseDifficulty(opts.difficulty)
		if err != nil {
			return session.Settings{}, err
		}
		params = question.Params{Difficulty: difficulty}
	case params.LeftDigits == 0 && params.RightDigits == 0 && cfg.Difficulty != "":
		params = question.Params{Difficulty: question.Difficulty(cfg.Difficulty)}
	default:
		if params.LeftDigits == 0 {
			params.LeftDigits = cfg.LeftDigits
		}
		if params.RightDigits == 0 {
			params.RightDigits = cfg.RightDigits
		}
	}

	settings := session.Settings{Mode: mode, Operations: operations, Params: params}
	if mode == session.ModeTimed {
		settings.TimeLimit = opts.timeLimit
		if settings.TimeLimit == 0 {
			settings.TimeLimit = cfg.TimeLimit
		}
	}
	return settings, settings.Validate()
}

// runSession plays one session. Answers of a signed-in user are recorded
// and the updated stats are shown afterwards.
func (app *application) runSession(ctx context.Context, state account.State, settings session.Settings) error {
	opts := []session.Option{session.WithDispatcher(app.dispatch)}
	if state.User != nil {
		opts = append(opts, session.WithRecorder(profile.NewRecorder(app.adapters.Profiles, state.User.ID, app.logger)))
	}
	s, err := session.New(question.NewRandomGenerator(), settings, opts...)
	if err != nil {
		return err
	}

	if _, err := cli.NewPracticeCLI(s, app.stdin, app.stdout, app.theme).Run(ctx); err != nil {
		return err
	}
	if state.User == nil {
		return nil
	}

	app.wg.Wait()
	stats, err := app.adapters.Profiles.CalculateStats(ctx, state.User.ID)
	if err != nil {
		return fmt.Errorf("CalculateStats() > %w", err)
	}
	_, _ = fmt.Fprintln(app.stdout)
	cli.PrintStats(app.stdout, app.theme, "Your Progress", stats)
	return nil
}

func newPracticeCommand() *cobra.Command {
	var opts practiceOptions
	command := &cobra.Command{
		Use:   "practice",
		Short: "Answer questions at your own pace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application, state account.State) error {
				settings, err := opts.settings(app.cfg.Practice, session.ModePractice)
				if err != nil {
					return err
				}
				return app.runSession(ctx, state, settings)
			})
		},
	}
	opts.addFlags(command)
	command.Flags().StringSliceVar(&opts.operations, "operation", nil, "operations to mix, e.g. addition,division")
	return command
}

func newTimedCommand() *cobra.Command {
	var opts practiceOptions
	command := &cobra.Command{
		Use:   "timed [operation]",
		Short: "Answer as many questions as you can before the clock runs out",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.operations = args
			return withApplication(cmd, func(ctx context.Context, app *application, state account.State) error {
				if state.User == nil {
					return cli.ErrTimedLocked
				}
				settings, err := opts.settings(app.cfg.Practice, session.ModeTimed)
				if err != nil {
					return err
				}
				return app.runSession(ctx, state, settings)
			})
		},
	}
	opts.addFlags(command)
	command.Flags().IntVar(&opts.timeLimit, "time-limit", 0, "seconds on the clock (10-600)")
	return command
}

func newDrillCommand() *cobra.Command {
	var opts practiceOptions
	command := &cobra.Command{
		Use:   "drill [operation]",
		Short: "List the drills, or run one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application, state account.State) error {
				if len(args) == 0 {
					cli.PrintDrills(app.stdout, app.theme)
					return nil
				}
				if state.User == nil {
					return cli.ErrDrillsLocked
				}
				drill, err := cli.FindDrill(args[0])
				if err != nil {
					return err
				}
				opts.operations = []string{string(drill.Operation)}
				settings, err := opts.settings(app.cfg.Practice, session.ModeDrill)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(app.stdout, app.theme.Accent("%s %s", drill.Icon, drill.Name))
				return app.runSession(ctx, state, settings)
			})
		},
	}
	opts.addFlags(command)
	return command
}

func newTrainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Personalized AI training (coming soon)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application, state account.State) error {
				if state.User == nil {
					return cli.ErrTrainingLocked
				}
				cli.PrintTraining(app.stdout, app.theme)
				return nil
			})
		},
	}
}
