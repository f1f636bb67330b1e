package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Calendar buckets instants into period keys.
//
// A key is local midnight, in the calendar's location, of the day a bucket
// starts. Bucketing a key again yields the same key, and two instants share a
// bucket iff their keys are Equal. Weeks start on Monday.
type Calendar struct {
	loc *time.Location
}

func NewCalendar(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc}
}

// LoadCalendar builds a calendar from an IANA zone name ("" means UTC).
func LoadCalendar(name string) (*Calendar, error) {
	if name == "" {
		return NewCalendar(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return NewCalendar(loc), nil
}

// dayKey builds the key of a calendar day from its fields. Keys are never
// derived by shifting another key: where a DST change happens at midnight the
// day starts at 01:00, and an instant shifted from it would carry that hour.
func (c *Calendar) dayKey(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

func (c *Calendar) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return c.dayKey(y, m, d)
}

func (c *Calendar) StartOfWeek(t time.Time) time.Time {
	local := t.In(c.loc)
	y, m, d := local.Date()
	diff := (int(local.Weekday()) + 6) % 7
	return c.dayKey(y, m, d-diff)
}

func (c *Calendar) PeriodKey(p Period, t time.Time) time.Time {
	if p == PeriodWeekly {
		return c.StartOfWeek(t)
	}
	return c.StartOfDay(t)
}

func (c *Calendar) Today(now time.Time) time.Time {
	return c.StartOfDay(now)
}

// AddDays returns the key of the day n days after the day containing t.
func (c *Calendar) AddDays(t time.Time, n int) time.Time {
	y, m, d := t.In(c.loc).Date()
	return c.dayKey(y, m, d+n)
}

// WeekDays returns the seven day keys, Monday first, of the week containing anchor.
func (c *Calendar) WeekDays(anchor time.Time) []time.Time {
	start := c.StartOfWeek(anchor)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = c.AddDays(start, i)
	}
	return days
}

func (c *Calendar) MonthStart(year int, month time.Month) time.Time {
	return c.dayKey(year, month, 1)
}

func (c *Calendar) DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MondayOffset is the number of blank cells before the 1st in a Monday-first grid.
func (c *Calendar) MondayOffset(year int, month time.Month) int {
	return (int(time.Date(year, month, 1, 12, 0, 0, 0, time.UTC).Weekday()) + 6) % 7
}

// AddPeriods moves a key n buckets forward (or back when n < 0).
func (c *Calendar) AddPeriods(p Period, key time.Time, n int) time.Time {
	key = c.PeriodKey(p, key)
	if p == PeriodWeekly {
		return c.AddDays(key, 7*n)
	}
	return c.AddDays(key, n)
}

// Format renders a key as YYYY-MM-DD in the calendar's location.
func (c *Calendar) Format(key time.Time) string {
	return key.In(c.loc).Format(DateLayout)
}

// ParseDay reads a YYYY-MM-DD string as a day key.
func (c *Calendar) ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, c.loc)
}

// ParseMonth reads a YYYY-MM string.
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Year(), t.Month(), nil
}
