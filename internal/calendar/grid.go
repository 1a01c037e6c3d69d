// Package calendar projects a task collection onto visible calendar windows:
// week and month grids, per-day buckets and the morning/afternoon/evening
// agenda grouping.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"taskflow/internal/model"
)

const (
	WeekLength = 7
	// MonthCells is the size of a month grid: 6 rows of 7 days.
	MonthCells = 6 * WeekLength
)

// View is a calendar layout.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewDay, ViewWeek, ViewMonth:
		return v, nil
	case "":
		return ViewWeek, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Day is one cell of a grid. InPeriod is false for padding cells taken from
// the neighbouring months.
type Day struct {
	Date     model.Date `json:"date"`
	InPeriod bool       `json:"in_period"`
}

// Builder lays out grids whose first column is WeekStart. The zero value
// starts weeks on Sunday.
type Builder struct {
	WeekStart time.Weekday
}

// BuildWeek returns the 7 days of ref's week, Sunday first.
func BuildWeek(ref model.Date) []Day {
	return Builder{}.Week(ref)
}

// BuildMonth returns the 42-cell grid of ref's month, Sunday first.
func BuildMonth(ref model.Date) []Day {
	return Builder{}.Month(ref)
}

// WeekStartOf returns the most recent WeekStart on or before d.
func (b Builder) WeekStartOf(d model.Date) model.Date {
	back := (int(d.Weekday()) - int(b.WeekStart) + WeekLength) % WeekLength
	return d.AddDays(-back)
}

// Week returns the 7 consecutive days of ref's week. All cells are in period.
func (b Builder) Week(ref model.Date) []Day {
	start := b.WeekStartOf(ref)
	days := make([]Day, 0, WeekLength)
	for i := 0; i < WeekLength; i++ {
		days = append(days, Day{Date: start.AddDays(i), InPeriod: true})
	}
	return days
}

// Month returns exactly MonthCells days: padding from the previous month up
// to the weekday column of the 1st, every day of ref's month, then padding
// from the following month.
func (b Builder) Month(ref model.Date) []Day {
	first := ref.FirstOfMonth()
	last := ref.LastOfMonth()

	days := make([]Day, 0, MonthCells)
	for d := b.WeekStartOf(first); d.Before(first); d = d.AddDays(1) {
		days = append(days, Day{Date: d, InPeriod: false})
	}
	for i := 1; i <= last.Day; i++ {
		days = append(days, Day{Date: model.Date{Year: first.Year, Month: first.Month, Day: i}, InPeriod: true})
	}
	for next := last.AddDays(1); len(days) < MonthCells; next = next.AddDays(1) {
		days = append(days, Day{Date: next, InPeriod: false})
	}
	return days
}

// Grid returns the cells for view. A day view is a single in-period cell.
func (b Builder) Grid(view View, ref model.Date) []Day {
	switch view {
	case ViewDay:
		return []Day{{Date: ref, InPeriod: true}}
	case ViewMonth:
		return b.Month(ref)
	default:
		return b.Week(ref)
	}
}

// Window returns the first and last in-period dates of view around ref.
func (b Builder) Window(view View, ref model.Date) (from, to model.Date) {
	switch view {
	case ViewDay:
		return ref, ref
	case ViewMonth:
		return ref.FirstOfMonth(), ref.LastOfMonth()
	default:
		start := b.WeekStartOf(ref)
		return start, start.AddDays(WeekLength - 1)
	}
}

// Step moves ref by n periods of view: n days, n weeks or n months. Month
// steps clamp the day like model.Date.AddMonths.
func Step(view View, ref model.Date, n int) model.Date {
	switch view {
	case ViewDay:
		return ref.AddDays(n)
	case ViewMonth:
		return ref.AddMonths(n)
	default:
		return ref.AddDays(n * WeekLength)
	}
}
