package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
)

type HabitService struct {
	repo    domain.HabitRepository
	logRepo domain.HabitLogRepository
	cal     *domain.Calendar
}

func NewHabitService(repo domain.HabitRepository, logRepo domain.HabitLogRepository, cal *domain.Calendar) *HabitService {
	return &HabitService{
		repo:    repo,
		logRepo: logRepo,
		cal:     cal,
	}
}

// CreateHabitInput may carry a client generated ID so offline clients can
// retry a create safely.
type CreateHabitInput struct {
	ID        string
	UserID    string
	Name      string
	Color     string
	Type      domain.HabitType
	Period    domain.Period
	Target    *int
	StartDate *time.Time
}

// UpdateHabitInput carries a partial update: zero values keep the stored field.
type UpdateHabitInput struct {
	ID        string
	UserID    string
	Name      string
	Color     string
	Type      domain.HabitType
	Period    domain.Period
	Target    *int
	StartDate *time.Time
	Version   int
}

func mergeString(newVal, oldVal string) string {
	if newVal == "" {
		return oldVal
	}
	return newVal
}

func (s *HabitService) Create(ctx context.Context, input CreateHabitInput) (*domain.Habit, error) {
	if input.ID != "" {
		existing, err := s.repo.GetByID(ctx, input.ID)
		if err == nil {
			if existing.UserID != input.UserID {
				return nil, domain.ErrHabitConflict
			}
			return existing, nil
		}
		if !errors.Is(err, domain.ErrHabitNotFound) {
			return nil, err
		}
	}

	target := 1
	if input.Target != nil {
		target = *input.Target
	}

	habit, err := domain.NewHabit(input.UserID, input.Name, input.Color, input.Type, input.Period, target)
	if err != nil {
		return nil, err
	}

	if input.ID != "" {
		habit.ID = input.ID
	}

	if input.StartDate != nil {
		if err := habit.SetStartDate(*input.StartDate, s.cal); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, habit); err != nil {
		return nil, err
	}

	return habit, nil
}

// Get returns a habit owned by userID. Habits of other users are reported as
// not found.
func (s *HabitService) Get(ctx context.Context, id string, userID string) (*domain.Habit, error) {
	habit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}

	return habit, nil
}

func (s *HabitService) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *HabitService) GetDelta(ctx context.Context, userID string, lastSync time.Time) ([]*domain.Habit, error) {
	return s.repo.GetChanges(ctx, userID, lastSync)
}

func (s *HabitService) Update(ctx context.Context, input UpdateHabitInput) (*domain.Habit, error) {
	habit, err := s.Get(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Version > 0 && habit.Version != input.Version {
		return nil, fmt.Errorf("%w: client v%d vs server v%d", domain.ErrHabitConflict, input.Version, habit.Version)
	}

	target := habit.Target
	if input.Target != nil {
		target = *input.Target
	}

	hType := habit.Type
	if input.Type != "" {
		hType = input.Type
	}

	period := habit.Period
	if input.Period != "" {
		period = input.Period
	}

	err = habit.Update(
		mergeString(input.Name, habit.Name),
		mergeString(input.Color, habit.Color),
		hType,
		period,
		target,
	)
	if err != nil {
		return nil, err
	}

	if input.StartDate != nil {
		if err := habit.SetStartDate(*input.StartDate, s.cal); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}

	return habit, nil
}

// Delete soft-deletes the habit together with its logs.
func (s *HabitService) Delete(ctx context.Context, id string, userID string) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	return s.logRepo.DeleteByHabitID(ctx, id)
}
