package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/habitlite/internal/core/services"
)

func newLogCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Change the counter of a habit",
	}

	cmd.AddCommand(
		newLogChangeCmd(app, "inc", "Add to today's counter", false),
		newLogChangeCmd(app, "dec", "Subtract from today's counter", true),
		newLogSetCmd(app),
	)

	return cmd
}

func parseDateFlag(app *App, raw string) (time.Time, error) {
	if raw == "" {
		return app.now(), nil
	}
	d, err := app.Cal.ParseDay(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, use YYYY-MM-DD", raw)
	}
	return d, nil
}

func printResult(cmd *cobra.Command, app *App, name string, res *services.LogResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %d/%d %s\n",
		name,
		styleDim.Render(app.Cal.Format(res.Log.PeriodKey)),
		res.Progress.Count,
		res.Progress.Target,
		doneMark(res.Progress.Done),
	)
}

func newLogChangeCmd(app *App, use, short string, decrement bool) *cobra.Command {
	var by int
	var date string

	cmd := &cobra.Command{
		Use:   use + " HABIT",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if by < 1 {
				return fmt.Errorf("--by must be at least 1")
			}

			h, err := resolveHabit(ctx, app, args[0])
			if err != nil {
				return err
			}

			at, err := parseDateFlag(app, date)
			if err != nil {
				return err
			}

			input := services.IncrementInput{HabitID: h.ID, UserID: app.user(), Delta: by, At: at}

			var res *services.LogResult
			if decrement {
				res, err = app.Logs.Decrement(ctx, input)
			} else {
				res, err = app.Logs.Increment(ctx, input)
			}
			if err != nil {
				return err
			}

			printResult(cmd, app, habitName(h), res)
			return nil
		},
	}

	cmd.Flags().IntVar(&by, "by", 1, "Amount to change")
	cmd.Flags().StringVar(&date, "date", "", "Day to log, YYYY-MM-DD (default today)")
	return cmd
}

func newLogSetCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "set HABIT COUNT",
		Short: "Overwrite the counter of a period",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			count, err := strconv.Atoi(args[1])
			if err != nil || count < 0 {
				return fmt.Errorf("count must be a non-negative integer, got %q", args[1])
			}

			h, err := resolveHabit(ctx, app, args[0])
			if err != nil {
				return err
			}

			at, err := parseDateFlag(app, date)
			if err != nil {
				return err
			}

			current, err := app.Logs.CurrentLog(ctx, h.ID, app.user(), at)
			if err != nil {
				return err
			}

			var res *services.LogResult
			switch {
			case current.ID != "":
				res, err = app.Logs.SetCount(ctx, services.SetCountInput{
					ID:      current.ID,
					UserID:  app.user(),
					Count:   count,
					Version: current.Version,
				})
			case count == 0:
				res, err = app.Logs.Decrement(ctx, services.IncrementInput{HabitID: h.ID, UserID: app.user(), At: at})
			default:
				res, err = app.Logs.Increment(ctx, services.IncrementInput{HabitID: h.ID, UserID: app.user(), Delta: count, At: at})
			}
			if err != nil {
				return err
			}

			printResult(cmd, app, habitName(h), res)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day to log, YYYY-MM-DD (default today)")
	return cmd
}
