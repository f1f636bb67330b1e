package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
	"github.com/comitanigiacomo/habitlite/internal/core/services"
)

func newHabitCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habit",
		Short: "Manage habits",
	}

	cmd.AddCommand(
		newHabitAddCmd(app),
		newHabitListCmd(app),
		newHabitEditCmd(app),
		newHabitRemoveCmd(app),
	)

	return cmd
}

type habitFlags struct {
	name, color, hType, period, start string
	target                            int
}

func (f *habitFlags) register(cmd *cobra.Command, withName bool) {
	if withName {
		cmd.Flags().StringVar(&f.name, "name", "", "New name")
	}
	cmd.Flags().StringVar(&f.color, "color", "", "Colour as #RRGGBB")
	cmd.Flags().StringVar(&f.hType, "type", "", "at_least (build) or at_most (quit)")
	cmd.Flags().StringVar(&f.period, "period", "", "daily or weekly")
	cmd.Flags().IntVar(&f.target, "target", 1, "Count that completes a period")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date YYYY-MM-DD")
}

func (f *habitFlags) startDate(cal *domain.Calendar) (*time.Time, error) {
	if f.start == "" {
		return nil, nil
	}
	d, err := cal.ParseDay(f.start)
	if err != nil {
		return nil, fmt.Errorf("invalid --start %q, use YYYY-MM-DD", f.start)
	}
	return &d, nil
}

func newHabitAddCmd(app *App) *cobra.Command {
	var f habitFlags

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := f.startDate(app.Cal)
			if err != nil {
				return err
			}

			target := f.target
			h, err := app.Habits.Create(cmd.Context(), services.CreateHabitInput{
				UserID:    app.user(),
				Name:      args[0],
				Color:     f.color,
				Type:      domain.HabitType(f.hType),
				Period:    domain.Period(f.period),
				Target:    &target,
				StartDate: start,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s, %s, target %d) %s\n",
				habitName(h), h.Type, h.Period, h.Target, styleDim.Render(shortID(h.ID)))
			return nil
		},
	}

	f.register(cmd, false)
	return cmd
}

func newHabitListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List habits",
		RunE: func(cmd *cobra.Command, args []string) error {
			habits, err := app.Habits.ListByUserID(cmd.Context(), app.user())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(habits) == 0 {
				fmt.Fprintln(out, "No habits yet. Add one with: habitctl habit add NAME")
				return nil
			}

			rows := make([][]string, 0, len(habits))
			for _, h := range habits {
				rows = append(rows, []string{
					shortID(h.ID),
					habitName(h),
					string(h.Type),
					string(h.Period),
					strconv.Itoa(h.Target),
					fmt.Sprintf("%d / %d", h.CurrentStreak, h.LongestStreak),
					app.Cal.Format(h.StartKey(app.Cal)),
				})
			}

			fmt.Fprint(out, renderTable(
				[]string{"ID", "NAME", "TYPE", "PERIOD", "TARGET", "STREAK", "SINCE"},
				rows,
			))
			return nil
		},
	}
}

func newHabitEditCmd(app *App) *cobra.Command {
	var f habitFlags

	cmd := &cobra.Command{
		Use:   "edit HABIT",
		Short: "Change a habit; only the given flags are applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			h, err := resolveHabit(ctx, app, args[0])
			if err != nil {
				return err
			}

			start, err := f.startDate(app.Cal)
			if err != nil {
				return err
			}

			input := services.UpdateHabitInput{
				ID:        h.ID,
				UserID:    app.user(),
				Name:      f.name,
				Color:     f.color,
				Type:      domain.HabitType(f.hType),
				Period:    domain.Period(f.period),
				StartDate: start,
				Version:   h.Version,
			}
			if cmd.Flags().Changed("target") {
				target := f.target
				input.Target = &target
			}

			updated, err := app.Habits.Update(ctx, input)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", habitName(updated))
			return nil
		},
	}

	f.register(cmd, true)
	return cmd
}

func newHabitRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm HABIT",
		Aliases: []string{"remove"},
		Short:   "Delete a habit and its logs",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			h, err := resolveHabit(ctx, app, args[0])
			if err != nil {
				return err
			}

			if err := app.Habits.Delete(ctx, h.ID, app.user()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", h.Name)
			return nil
		},
	}
}
