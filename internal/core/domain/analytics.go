package domain

// CellState is the judgement of one habit on one calendar cell.
type CellState string

const (
	CellFuture   CellState = "future"
	CellInactive CellState = "inactive"
	CellDone     CellState = "done"
	CellMissed   CellState = "missed"
)

type HabitProgress struct {
	Habit     *Habit   `json:"habit"`
	PeriodKey string   `json:"period_key"`
	Progress  Progress `json:"progress"`
}

type WeeklyView struct {
	WeekStart    string           `json:"week_start"`
	WeekEnd      string           `json:"week_end"`
	Days         []string         `json:"days"`
	PerfectDays  []bool           `json:"perfect_days"`
	ProgressDays int              `json:"progress_days"`
	HasNext      bool             `json:"has_next"`
	OverallRate  float64          `json:"overall_completion_rate"`
	Habits       []WeeklyHabitRow `json:"habits"`
}

// WeeklyHabitRow carries seven Cells for a daily habit, or a Bar for a weekly one.
type WeeklyHabitRow struct {
	HabitID        string      `json:"habit_id"`
	Name           string      `json:"name"`
	Color          string      `json:"color"`
	Type           HabitType   `json:"type"`
	Period         Period      `json:"period"`
	Cells          []CellState `json:"cells,omitempty"`
	Bar            *WeeklyBar  `json:"bar,omitempty"`
	CompletionRate float64     `json:"completion_rate"`
}

type WeeklyBar struct {
	Active   bool     `json:"active"`
	Done     bool     `json:"done"`
	JudgedOn string   `json:"judged_on"`
	Progress Progress `json:"progress"`
}

type MonthlyView struct {
	Month         string     `json:"month"`
	LeadingBlanks int        `json:"leading_blanks"`
	Days          []DayRatio `json:"days"`
	OverallRate   float64    `json:"overall_completion_rate"`
}

// DayRatio is done/active over the habits active that day; nil Ratio marks a future day.
type DayRatio struct {
	Date   string   `json:"date"`
	Ratio  *float64 `json:"ratio"`
	Active int      `json:"active"`
	Done   int      `json:"done"`
}

type HabitMonthView struct {
	HabitID        string         `json:"habit_id"`
	Month          string         `json:"month"`
	LeadingBlanks  int            `json:"leading_blanks"`
	Days           []HabitDayCell `json:"days"`
	CompletionRate float64        `json:"completion_rate"`
}

// HabitDayCell holds 1 for done, 0 for missed and nil when the day is not judged.
type HabitDayCell struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

type HabitYearView struct {
	HabitID string      `json:"habit_id"`
	Year    int         `json:"year"`
	Months  []MiniMonth `json:"months"`
}

type MiniMonth struct {
	Month         int         `json:"month"`
	Name          string      `json:"name"`
	LeadingBlanks int         `json:"leading_blanks"`
	Days          []CellState `json:"days"`
}

type HabitDayDetail struct {
	HabitID  string   `json:"habit_id"`
	Name     string   `json:"name"`
	Color    string   `json:"color"`
	Date     string   `json:"date"`
	Active   bool     `json:"active"`
	Progress Progress `json:"progress"`
}
