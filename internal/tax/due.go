package tax

import "financemei/internal/core"

// DueDay is the day of the month the DAS falls due.
const DueDay = 20

// NextDueDate returns the next DAS due date on or after today.
func NextDueDate(today core.Date) core.Date {
	due := core.NewDate(today.Year(), today.Month(), DueDay)
	if today.After(due) {
		return core.NewDate(today.Year(), today.Month()+1, DueDay)
	}
	return due
}

// DaysUntilDue counts calendar days from today to the next due date.
func DaysUntilDue(today core.Date) int {
	return int(NextDueDate(today).Sub(today.Time).Hours() / 24)
}
