package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
)

type AnalyticsService struct {
	habitRepo domain.HabitRepository
	logRepo   domain.HabitLogRepository
	cal       *domain.Calendar
	now       func() time.Time
}

func NewAnalyticsService(habitRepo domain.HabitRepository, logRepo domain.HabitLogRepository, cal *domain.Calendar) *AnalyticsService {
	return &AnalyticsService{
		habitRepo: habitRepo,
		logRepo:   logRepo,
		cal:       cal,
		now:       time.Now,
	}
}

// WithClock replaces the time source, for tests and replays.
func (s *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	s.now = now
	return s
}

// countIndex maps habit id -> period key (unix seconds) -> count.
type countIndex map[string]map[int64]int

func newCountIndex(logs []*domain.HabitLog) countIndex {
	idx := make(countIndex)
	for _, l := range logs {
		if _, ok := idx[l.HabitID]; !ok {
			idx[l.HabitID] = make(map[int64]int)
		}
		idx[l.HabitID][l.PeriodKey.Unix()] += l.Count
	}
	return idx
}

// judge evaluates habit h on the period containing day, and whether that day is
// tracked at all.
func (s *AnalyticsService) judge(idx countIndex, h *domain.Habit, day time.Time) (domain.Progress, bool) {
	key := s.cal.PeriodKey(h.Period, day)
	p := domain.Evaluate(h, idx[h.ID][key.Unix()])
	return p, h.IsActiveOn(day, s.cal)
}

func (s *AnalyticsService) cellState(idx countIndex, h *domain.Habit, day, today time.Time) domain.CellState {
	if day.After(today) {
		return domain.CellFuture
	}
	p, active := s.judge(idx, h, day)
	switch {
	case !active:
		return domain.CellInactive
	case p.Done:
		return domain.CellDone
	default:
		return domain.CellMissed
	}
}

func rate(done, judged int) float64 {
	if judged == 0 {
		return 0
	}
	return float64(done) / float64(judged) * 100
}

// loadUser fetches the user's habits and the logs whose keys fall in
// [from, to]; from is widened to the week start so weekly buckets are present.
func (s *AnalyticsService) loadUser(ctx context.Context, userID string, from, to time.Time) ([]*domain.Habit, countIndex, error) {
	var habits []*domain.Habit
	var logs []*domain.HabitLog

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		habits, err = s.habitRepo.ListByUserID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		logs, err = s.logRepo.ListByUserID(gctx, userID, s.cal.StartOfWeek(from), to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return habits, newCountIndex(logs), nil
}

func (s *AnalyticsService) loadHabit(ctx context.Context, habitID, userID string, from, to time.Time) (*domain.Habit, countIndex, error) {
	habit, err := s.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return nil, nil, err
	}
	if habit.UserID != userID {
		return nil, nil, domain.ErrHabitNotFound
	}

	logs, err := s.logRepo.ListByHabitID(ctx, habit.ID, s.cal.StartOfWeek(from), to)
	if err != nil {
		return nil, nil, err
	}

	return habit, newCountIndex(logs), nil
}

// Today lists every habit with its progress in the current period.
func (s *AnalyticsService) Today(ctx context.Context, userID string) ([]domain.HabitProgress, error) {
	today := s.cal.Today(s.now())

	habits, idx, err := s.loadUser(ctx, userID, today, today)
	if err != nil {
		return nil, err
	}

	items := make([]domain.HabitProgress, 0, len(habits))
	for _, h := range habits {
		p, _ := s.judge(idx, h, today)
		items = append(items, domain.HabitProgress{
			Habit:     h,
			PeriodKey: s.cal.Format(s.cal.PeriodKey(h.Period, today)),
			Progress:  p,
		})
	}

	return items, nil
}

// Weekly builds the Monday..Sunday grid of the week containing anchor.
func (s *AnalyticsService) Weekly(ctx context.Context, userID string, anchor time.Time) (*domain.WeeklyView, error) {
	today := s.cal.Today(s.now())
	days := s.cal.WeekDays(anchor)
	sunday := days[len(days)-1]

	habits, idx, err := s.loadUser(ctx, userID, days[0], sunday)
	if err != nil {
		return nil, err
	}

	view := &domain.WeeklyView{
		WeekStart:   s.cal.Format(days[0]),
		WeekEnd:     s.cal.Format(sunday),
		Days:        make([]string, len(days)),
		PerfectDays: make([]bool, len(days)),
		HasNext:     !s.cal.AddDays(days[0], 7).After(today),
		Habits:      make([]domain.WeeklyHabitRow, 0, len(habits)),
	}

	for i, d := range days {
		view.Days[i] = s.cal.Format(d)
		if !d.After(today) {
			view.ProgressDays++
		}
	}

	totalDone, totalJudged := 0, 0

	for _, h := range habits {
		row := domain.WeeklyHabitRow{
			HabitID: h.ID,
			Name:    h.Name,
			Color:   h.Color,
			Type:    h.Type,
			Period:  h.Period,
		}

		done, judged := 0, 0

		if h.Period == domain.PeriodWeekly {
			// Judged on min(today, Sunday), never before the week's Monday.
			judgeDay := sunday
			if today.Before(judgeDay) {
				judgeDay = today
			}
			if judgeDay.Before(days[0]) {
				judgeDay = days[0]
			}

			active := false
			for _, d := range days {
				if !d.After(today) && h.IsActiveOn(d, s.cal) {
					active = true
					break
				}
			}

			p := domain.Progress{Target: h.Target}
			if active {
				p, _ = s.judge(idx, h, judgeDay)
			}
			row.Bar = &domain.WeeklyBar{
				Active:   active,
				Done:     active && p.Done,
				JudgedOn: s.cal.Format(judgeDay),
				Progress: p,
			}
			if active {
				judged = 1
				if p.Done {
					done = 1
				}
			}
		} else {
			row.Cells = make([]domain.CellState, len(days))
			for i, d := range days {
				state := s.cellState(idx, h, d, today)
				row.Cells[i] = state
				switch state {
				case domain.CellDone:
					done++
					judged++
				case domain.CellMissed:
					judged++
				}
			}
		}

		row.CompletionRate = rate(done, judged)
		totalDone += done
		totalJudged += judged

		view.Habits = append(view.Habits, row)
	}

	for i, d := range days {
		if d.After(today) {
			continue
		}
		view.PerfectDays[i] = s.isPerfectDay(idx, habits, d)
	}

	view.OverallRate = rate(totalDone, totalJudged)

	return view, nil
}

// isPerfectDay is true when at least one habit is active on day and every
// active habit is done for the period containing it.
func (s *AnalyticsService) isPerfectDay(idx countIndex, habits []*domain.Habit, day time.Time) bool {
	activeCount := 0
	for _, h := range habits {
		p, active := s.judge(idx, h, day)
		if !active {
			continue
		}
		activeCount++
		if !p.Done {
			return false
		}
	}
	return activeCount > 0
}

// Monthly computes, for every past or current day of the month, the share of
// active habits that were done.
func (s *AnalyticsService) Monthly(ctx context.Context, userID string, year int, month time.Month) (*domain.MonthlyView, error) {
	today := s.cal.Today(s.now())
	first := s.cal.MonthStart(year, month)
	n := s.cal.DaysInMonth(year, month)

	habits, idx, err := s.loadUser(ctx, userID, first, s.cal.AddDays(first, n-1))
	if err != nil {
		return nil, err
	}

	view := &domain.MonthlyView{
		Month:         first.Format("2006-01"),
		LeadingBlanks: s.cal.MondayOffset(year, month),
		Days:          make([]domain.DayRatio, 0, n),
	}

	totalDone, totalActive := 0, 0

	for i := 0; i < n; i++ {
		day := s.cal.AddDays(first, i)
		cell := domain.DayRatio{Date: s.cal.Format(day)}

		if !day.After(today) {
			for _, h := range habits {
				p, active := s.judge(idx, h, day)
				if !active {
					continue
				}
				cell.Active++
				if p.Done {
					cell.Done++
				}
			}

			r := 0.0
			if cell.Active > 0 {
				r = float64(cell.Done) / float64(cell.Active)
			}
			cell.Ratio = &r

			totalDone += cell.Done
			totalActive += cell.Active
		}

		view.Days = append(view.Days, cell)
	}

	view.OverallRate = rate(totalDone, totalActive)

	return view, nil
}

// HabitMonthly marks each day of the month 1 (done) or 0 (missed); future and
// pre-start days stay nil.
func (s *AnalyticsService) HabitMonthly(ctx context.Context, habitID, userID string, year int, month time.Month) (*domain.HabitMonthView, error) {
	today := s.cal.Today(s.now())
	first := s.cal.MonthStart(year, month)
	n := s.cal.DaysInMonth(year, month)

	habit, idx, err := s.loadHabit(ctx, habitID, userID, first, s.cal.AddDays(first, n-1))
	if err != nil {
		return nil, err
	}

	view := &domain.HabitMonthView{
		HabitID:       habit.ID,
		Month:         first.Format("2006-01"),
		LeadingBlanks: s.cal.MondayOffset(year, month),
		Days:          make([]domain.HabitDayCell, 0, n),
	}

	done, judged := 0, 0
	for i := 0; i < n; i++ {
		day := s.cal.AddDays(first, i)
		cell := domain.HabitDayCell{Date: s.cal.Format(day)}

		switch s.cellState(idx, habit, day, today) {
		case domain.CellDone:
			v := 1.0
			cell.Value = &v
			done++
			judged++
		case domain.CellMissed:
			v := 0.0
			cell.Value = &v
			judged++
		}

		view.Days = append(view.Days, cell)
	}

	view.CompletionRate = rate(done, judged)

	return view, nil
}

// HabitYearly lays out twelve mini months of day states for one habit.
func (s *AnalyticsService) HabitYearly(ctx context.Context, habitID, userID string, year int) (*domain.HabitYearView, error) {
	today := s.cal.Today(s.now())
	first := s.cal.MonthStart(year, time.January)
	last := s.cal.AddDays(s.cal.MonthStart(year, time.December), 30)

	habit, idx, err := s.loadHabit(ctx, habitID, userID, first, last)
	if err != nil {
		return nil, err
	}

	view := &domain.HabitYearView{
		HabitID: habit.ID,
		Year:    year,
		Months:  make([]domain.MiniMonth, 0, 12),
	}

	for m := time.January; m <= time.December; m++ {
		start := s.cal.MonthStart(year, m)
		n := s.cal.DaysInMonth(year, m)

		mini := domain.MiniMonth{
			Month:         int(m),
			Name:          m.String()[:3],
			LeadingBlanks: s.cal.MondayOffset(year, m),
			Days:          make([]domain.CellState, n),
		}
		for i := 0; i < n; i++ {
			mini.Days[i] = s.cellState(idx, habit, s.cal.AddDays(start, i), today)
		}

		view.Months = append(view.Months, mini)
	}

	return view, nil
}

// HabitDay details one habit on one day.
func (s *AnalyticsService) HabitDay(ctx context.Context, habitID, userID string, day time.Time) (*domain.HabitDayDetail, error) {
	day = s.cal.StartOfDay(day)

	habit, idx, err := s.loadHabit(ctx, habitID, userID, day, day)
	if err != nil {
		return nil, err
	}

	p, active := s.judge(idx, habit, day)

	return &domain.HabitDayDetail{
		HabitID:  habit.ID,
		Name:     habit.Name,
		Color:    habit.Color,
		Date:     s.cal.Format(day),
		Active:   active && !day.After(s.cal.Today(s.now())),
		Progress: p,
	}, nil
}
