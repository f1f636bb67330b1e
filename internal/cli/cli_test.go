package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/habitlite/internal/adapters/repository"
	"github.com/comitanigiacomo/habitlite/internal/adapters/storage"
	"github.com/comitanigiacomo/habitlite/internal/core/domain"
	"github.com/comitanigiacomo/habitlite/internal/core/services"
	"github.com/comitanigiacomo/habitlite/internal/core/workers"
)

// testApp wires a full App backed by an in-memory SQLite database.
func testApp(t *testing.T) *App {
	t.Helper()
	ctx := context.Background()

	db, err := storage.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(ctx, db))

	cal := domain.NewCalendar(time.UTC)
	habitRepo := repository.NewSQLHabitRepository(db)
	logRepo := repository.NewSQLHabitLogRepository(db)

	streaks := InlineStreaks{
		Recomputer: workers.NewStreakWorker(habitRepo, logRepo, cal, zap.NewNop(), 1),
		OnError:    func(id string, err error) { t.Errorf("streak recompute for %s: %v", id, err) },
	}

	return &App{
		Habits:    services.NewHabitService(habitRepo, logRepo, cal),
		Logs:      services.NewLogService(logRepo, habitRepo, cal, streaks),
		Analytics: services.NewAnalyticsService(habitRepo, logRepo, cal),
		Cal:       cal,
		Migrate:   func(ctx context.Context) error { return storage.Migrate(ctx, db) },
	}
}

// executeCmd runs a cobra command and captures stdout/stderr.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func mustExec(t *testing.T, app *App, args ...string) string {
	t.Helper()
	out, err := executeCmd(t, app, args...)
	require.NoError(t, err, out)
	return out
}

func utcDay(offset int) string {
	return time.Now().UTC().AddDate(0, 0, offset).Format(domain.DateLayout)
}

func TestHabitCommands(t *testing.T) {
	app := testApp(t)

	out := mustExec(t, app, "habit", "add", "Read", "--target", "3")
	assert.Contains(t, out, "Created Read")
	assert.Contains(t, out, "target 3")

	mustExec(t, app, "habit", "add", "No soda", "--type", "at_most", "--period", "weekly", "--target", "0")

	out = mustExec(t, app, "habit", "list")
	assert.Contains(t, out, "Read")
	assert.Contains(t, out, "No soda")
	assert.Contains(t, out, "at_most")
	assert.Contains(t, out, "weekly")

	out = mustExec(t, app, "habit", "edit", "read", "--target", "2", "--name", "Read books")
	assert.Contains(t, out, "Updated Read books")

	habits, err := app.Habits.ListByUserID(context.Background(), LocalUserID)
	require.NoError(t, err)
	for _, h := range habits {
		if h.Name == "Read books" {
			assert.Equal(t, 2, h.Target)
		}
	}

	out = mustExec(t, app, "habit", "rm", "No soda")
	assert.Contains(t, out, "Removed No soda")

	out = mustExec(t, app, "habit", "ls")
	assert.NotContains(t, out, "No soda")
}

func TestHabitCommands_Errors(t *testing.T) {
	app := testApp(t)

	_, err := executeCmd(t, app, "habit", "add", "Gym", "--color", "blue")
	assert.ErrorIs(t, err, domain.ErrInvalidColor)

	_, err = executeCmd(t, app, "habit", "add", "Gym", "--start", "tomorrow")
	assert.Error(t, err)

	_, err = executeCmd(t, app, "habit", "rm", "ghost")
	assert.ErrorIs(t, err, domain.ErrHabitNotFound)

	mustExec(t, app, "habit", "add", "Run")
	mustExec(t, app, "habit", "add", "run")
	_, err = executeCmd(t, app, "log", "inc", "RUN")
	assert.ErrorContains(t, err, "ambiguous")

	out := mustExec(t, app, "habit", "list")
	assert.Contains(t, out, "Run")
}

func TestLogCommands(t *testing.T) {
	app := testApp(t)
	mustExec(t, app, "habit", "add", "Water", "--target", "3", "--start", utcDay(-3))

	out := mustExec(t, app, "log", "inc", "Water")
	assert.Contains(t, out, "1/3")

	out = mustExec(t, app, "log", "inc", "Water", "--by", "2")
	assert.Contains(t, out, "3/3")

	out = mustExec(t, app, "log", "dec", "Water", "--by", "5")
	assert.Contains(t, out, "0/3")

	out = mustExec(t, app, "log", "set", "Water", "4")
	assert.Contains(t, out, "4/3")

	out = mustExec(t, app, "log", "set", "Water", "3", "--date", utcDay(-1))
	assert.Contains(t, out, "3/3")
	assert.Contains(t, out, utcDay(-1))

	_, err := executeCmd(t, app, "log", "inc", "Water", "--date", utcDay(1))
	assert.ErrorIs(t, err, domain.ErrPeriodInFuture)

	_, err = executeCmd(t, app, "log", "inc", "Water", "--date", utcDay(-10))
	assert.ErrorIs(t, err, domain.ErrPeriodInactive)

	_, err = executeCmd(t, app, "log", "set", "Water", "-1")
	assert.Error(t, err)

	_, err = executeCmd(t, app, "log", "inc", "Water", "--by", "0")
	assert.Error(t, err)

	out = mustExec(t, app, "habit", "list")
	assert.Contains(t, out, "2 / 2", "yesterday and today are done")
}

func TestReportCommands(t *testing.T) {
	app := testApp(t)
	mustExec(t, app, "habit", "add", "Journal", "--start", utcDay(-2))
	mustExec(t, app, "habit", "add", "Plank", "--period", "weekly", "--target", "2")
	mustExec(t, app, "log", "inc", "Journal")

	t.Run("today", func(t *testing.T) {
		out := mustExec(t, app, "today")
		assert.Contains(t, out, "TODAY "+utcDay(0))
		assert.Contains(t, out, "Journal")
		assert.Contains(t, out, "1/1")
		assert.Contains(t, out, "0/2")
	})

	t.Run("week", func(t *testing.T) {
		out := mustExec(t, app, "week")
		assert.Contains(t, out, "Journal")
		assert.Contains(t, out, "Plank")
		assert.Contains(t, out, "perfect")
	})

	t.Run("month", func(t *testing.T) {
		out := mustExec(t, app, "month")
		assert.Contains(t, out, "completion")

		out = mustExec(t, app, "month", "--habit", "journal", "--month", time.Now().UTC().Format("2006-01"))
		assert.Contains(t, out, "JOURNAL")

		_, err := executeCmd(t, app, "month", "--month", "2025/03")
		assert.Error(t, err)
	})

	t.Run("year", func(t *testing.T) {
		out := mustExec(t, app, "year", "Journal")
		assert.Contains(t, out, "Jan")
		assert.Contains(t, out, "Dec")
	})

	t.Run("migrate", func(t *testing.T) {
		out := mustExec(t, app, "migrate")
		assert.Contains(t, out, "up to date")
	})
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"A", "LONG"}, [][]string{{"xyz", "1"}, {"q"}})

	lines := bytes.Split([]byte(out), []byte("\n"))
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, string(lines[0]), "LONG")
	assert.Contains(t, string(lines[2]), "xyz  1")
}
