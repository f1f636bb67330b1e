package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
)

const minIDPrefix = 4

// resolveHabit finds a habit by full id, unique id prefix or case-insensitive name.
func resolveHabit(ctx context.Context, app *App, ref string) (*domain.Habit, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("habit reference is required")
	}

	habits, err := app.Habits.ListByUserID(ctx, app.user())
	if err != nil {
		return nil, err
	}

	var byPrefix, byName []*domain.Habit
	for _, h := range habits {
		switch {
		case h.ID == ref:
			return h, nil
		case strings.EqualFold(h.Name, ref):
			byName = append(byName, h)
		case len(ref) >= minIDPrefix && strings.HasPrefix(h.ID, ref):
			byPrefix = append(byPrefix, h)
		}
	}

	for _, matches := range [][]*domain.Habit{byName, byPrefix} {
		switch len(matches) {
		case 0:
			continue
		case 1:
			return matches[0], nil
		default:
			return nil, fmt.Errorf("%q is ambiguous: %d habits match", ref, len(matches))
		}
	}

	return nil, fmt.Errorf("%w: %q", domain.ErrHabitNotFound, ref)
}
