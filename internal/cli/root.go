package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
	"github.com/comitanigiacomo/habitlite/internal/core/services"
)

// LocalUserID owns every habit created through the CLI.
const LocalUserID = "local"

// App holds the services used by CLI commands.
type App struct {
	Habits    *services.HabitService
	Logs      *services.LogService
	Analytics *services.AnalyticsService
	Cal       *domain.Calendar
	UserID    string
	// Migrate applies pending schema migrations; nil when the store has none.
	Migrate func(ctx context.Context) error
	Now     func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) user() string {
	if a.UserID == "" {
		return LocalUserID
	}
	return a.UserID
}

// NewRootCmd creates the top-level "habitctl" command.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "habitctl",
		Short:         "Track daily and weekly habits from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newHabitCmd(app),
		newLogCmd(app),
		newTodayCmd(app),
		newWeekCmd(app),
		newMonthCmd(app),
		newYearCmd(app),
		newMigrateCmd(app),
	)

	return root
}

// StreakRecomputer updates streak counters synchronously.
type StreakRecomputer interface {
	Recompute(ctx context.Context, habitID string) error
}

// InlineStreaks satisfies services.StreakScheduler for short lived processes
// that have no background worker: the recomputation runs before the command
// returns.
type InlineStreaks struct {
	Recomputer StreakRecomputer
	OnError    func(habitID string, err error)
}

func (s InlineStreaks) Enqueue(habitID string) {
	if err := s.Recomputer.Recompute(context.Background(), habitID); err != nil && s.OnError != nil {
		s.OnError(habitID, err)
	}
}
