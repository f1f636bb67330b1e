package domain

// Progress is a habit's standing in one period.
type Progress struct {
	Count  int  `json:"count"`
	Target int  `json:"target"`
	Done   bool `json:"done"`
}

// IsDone applies the completion policy of a habit type. A negative target is
// treated as zero.
func IsDone(t HabitType, count, target int) bool {
	target = max(0, target)
	if t == HabitTypeAtMost {
		return count <= target
	}
	return count >= target
}

// Evaluate judges a period's count for the habit. A period without a log
// counts as zero.
func Evaluate(h *Habit, count int) Progress {
	target := max(0, h.Target)
	return Progress{
		Count:  count,
		Target: target,
		Done:   IsDone(h.Type, count, target),
	}
}
