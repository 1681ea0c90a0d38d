package aggregate

import (
	"fmt"

	"financemei/internal/core"
)

// MonthWindow covers one calendar month.
func MonthWindow(year, month int) (core.Window, error) {
	if month < 1 || month > 12 {
		return core.Window{}, core.ErrInvalidMonth
	}
	first := core.NewDate(year, month, 1)
	return core.Window{Start: first, End: first.LastOfMonth()}, nil
}

// MonthOf returns the calendar month containing d.
func MonthOf(d core.Date) core.Window {
	first := d.FirstOfMonth(0)
	return core.Window{Start: first, End: first.LastOfMonth()}
}

// YearToDate runs from January 1st of today's year through today.
func YearToDate(today core.Date) core.Window {
	return core.Window{Start: core.NewDate(today.Year(), 1, 1), End: today}
}

// MonthsAhead runs from today through the same day n months later. A day
// the target month lacks clamps to its last day, so Jan 31 + 1 is Feb 28.
func MonthsAhead(today core.Date, n int) (core.Window, error) {
	if n < 0 {
		return core.Window{}, fmt.Errorf("%w: negative month count %d", core.ErrInvalidInput, n)
	}
	last := today.FirstOfMonth(n).LastOfMonth()
	day := min(today.Day(), last.Day())
	return core.Window{Start: today, End: core.NewDate(last.Year(), last.Month(), day)}, nil
}

// Span returns the smallest window covering all the given windows.
func Span(windows ...core.Window) core.Window {
	var out core.Window
	for i, w := range windows {
		if i == 0 || w.Start.Before(out.Start) {
			out.Start = w.Start
		}
		if i == 0 || w.End.After(out.End) {
			out.End = w.End
		}
	}
	return out
}
