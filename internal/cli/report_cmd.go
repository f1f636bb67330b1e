package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
)

var weekdayInitials = []string{"M", "T", "W", "T", "F", "S", "S"}

func newTodayCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Progress of every habit in its current period",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := app.Analytics.Today(cmd.Context(), app.user())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, header("Today "+app.Cal.Format(app.Cal.Today(app.now()))))

			if len(items) == 0 {
				fmt.Fprintln(out, "No habits yet.")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, []string{
					doneMark(it.Progress.Done),
					habitName(it.Habit),
					progressBar(it.Progress, 10),
					fmt.Sprintf("%d/%d", it.Progress.Count, it.Progress.Target),
					string(it.Habit.Period),
					strconv.Itoa(it.Habit.CurrentStreak),
				})
			}

			fmt.Fprint(out, renderTable([]string{"", "HABIT", "PROGRESS", "COUNT", "PERIOD", "STREAK"}, rows))
			return nil
		},
	}
}

func newWeekCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Monday to Sunday overview",
		RunE: func(cmd *cobra.Command, args []string) error {
			anchor, err := parseDateFlag(app, date)
			if err != nil {
				return err
			}

			view, err := app.Analytics.Weekly(cmd.Context(), app.user(), anchor)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, header(fmt.Sprintf("Week %s → %s", view.WeekStart, view.WeekEnd)))

			headers := append([]string{"HABIT"}, weekdayInitials...)
			headers = append(headers, "RATE")

			rows := make([][]string, 0, len(view.Habits)+1)
			for _, row := range view.Habits {
				cells := make([]string, 0, len(headers))
				cells = append(cells, row.Name)

				if row.Bar != nil {
					bar := styleDim.Render(strings.Repeat("─", 13))
					switch {
					case !row.Bar.Active:
					case row.Bar.Done:
						bar = styleGreen.Render(strings.Repeat("━", 13))
					default:
						bar = styleRed.Render(strings.Repeat("━", 13))
					}
					cells = append(cells, fmt.Sprintf("%s %d/%d", bar, row.Bar.Progress.Count, row.Bar.Progress.Target))
					for i := 1; i < 7; i++ {
						cells = append(cells, "")
					}
				} else {
					for _, c := range row.Cells {
						cells = append(cells, cellGlyph(c))
					}
				}

				cells = append(cells, percent(row.CompletionRate))
				rows = append(rows, cells)
			}

			perfect := []string{styleBold.Render("perfect")}
			for _, p := range view.PerfectDays {
				if p {
					perfect = append(perfect, styleGreen.Render("★"))
				} else {
					perfect = append(perfect, "")
				}
			}
			perfect = append(perfect, percent(view.OverallRate))
			rows = append(rows, perfect)

			fmt.Fprint(out, renderTable(headers, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Any day of the week, YYYY-MM-DD (default today)")
	return cmd
}

func parseMonthFlag(app *App, raw string) (int, time.Month, error) {
	if raw == "" {
		today := app.Cal.Today(app.now())
		return today.Year(), today.Month(), nil
	}
	y, m, err := domain.ParseMonth(raw)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --month %q, use YYYY-MM", raw)
	}
	return y, m, nil
}

// calendarGrid lays out cells Monday first, blanks before the 1st.
func calendarGrid(blanks int, cells []string) string {
	var b strings.Builder
	for _, d := range weekdayInitials {
		b.WriteString(styleHeader.Render(" " + d))
	}
	b.WriteString("\n")

	col := 0
	for i := 0; i < blanks; i++ {
		b.WriteString("  ")
		col++
	}
	for _, c := range cells {
		b.WriteString(c)
		col++
		if col%7 == 0 {
			b.WriteString("\n")
		}
	}
	if col%7 != 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func newMonthCmd(app *App) *cobra.Command {
	var month, habitRef string

	cmd := &cobra.Command{
		Use:   "month",
		Short: "Calendar of a month, for all habits or one",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			year, m, err := parseMonthFlag(app, month)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if habitRef != "" {
				h, err := resolveHabit(ctx, app, habitRef)
				if err != nil {
					return err
				}
				view, err := app.Analytics.HabitMonthly(ctx, h.ID, app.user(), year, m)
				if err != nil {
					return err
				}

				cells := make([]string, len(view.Days))
				for i, d := range view.Days {
					cells[i] = ratioShade(d.Value)
				}

				fmt.Fprintln(out, header(h.Name+" "+view.Month))
				fmt.Fprint(out, calendarGrid(view.LeadingBlanks, cells))
				fmt.Fprintf(out, "completion %s\n", percent(view.CompletionRate))
				return nil
			}

			view, err := app.Analytics.Monthly(ctx, app.user(), year, m)
			if err != nil {
				return err
			}

			cells := make([]string, len(view.Days))
			for i, d := range view.Days {
				cells[i] = ratioShade(d.Ratio)
			}

			fmt.Fprintln(out, header("Month "+view.Month))
			fmt.Fprint(out, calendarGrid(view.LeadingBlanks, cells))
			fmt.Fprintf(out, "completion %s\n", percent(view.OverallRate))
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM (default current)")
	cmd.Flags().StringVar(&habitRef, "habit", "", "Show a single habit")
	return cmd
}

func newYearCmd(app *App) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "year HABIT",
		Short: "Twelve month overview of one habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			h, err := resolveHabit(ctx, app, args[0])
			if err != nil {
				return err
			}

			if year == 0 {
				year = app.Cal.Today(app.now()).Year()
			}

			view, err := app.Analytics.HabitYearly(ctx, h.ID, app.user(), year)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, header(fmt.Sprintf("%s %d", h.Name, view.Year)))

			for _, mm := range view.Months {
				var b strings.Builder
				done := 0
				for _, s := range mm.Days {
					b.WriteString(cellGlyph(s))
					if s == domain.CellDone {
						done++
					}
				}
				fmt.Fprintf(out, "%s %s %s\n", styleBold.Render(mm.Name), b.String(), styleDim.Render(strconv.Itoa(done)))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Year (default current)")
	return cmd
}

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Migrate == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to migrate.")
				return nil
			}
			if err := app.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date.")
			return nil
		},
	}
}
