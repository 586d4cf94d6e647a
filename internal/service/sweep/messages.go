package sweep

import (
	"fmt"
	"time"
)

func overdueTaskMessage(title string, daysOverdue int) string {
	return fmt.Sprintf("Task %q is %d %s overdue", title, daysOverdue, dayWord(daysOverdue))
}

func dueSoonTaskMessage(title string, dueDate time.Time) string {
	return fmt.Sprintf("Task %q is due on %s", title, dueDate.Format("2006-01-02"))
}

func staleLeadMessage(fullName string, daysSinceActivity *int) string {
	if daysSinceActivity == nil {
		return fmt.Sprintf("Lead %q has no recorded activity yet", fullName)
	}
	return fmt.Sprintf("Lead %q has had no activity for %d %s", fullName, *daysSinceActivity, dayWord(*daysSinceActivity))
}

func dayWord(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}

// startOfDay truncates t to midnight in its own location. All calendar-day
// comparisons in the sweep go through this.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween returns the whole-day difference to − from, counted on calendar
// days rather than 24h intervals.
func daysBetween(from, to time.Time) int {
	return int(startOfDay(to).Sub(startOfDay(from)).Hours() / 24)
}
