// Package recur turns a recurring root task into its bounded series of
// derived occurrences.
package recur

import (
	"errors"
	"fmt"

	"github.com/teambition/rrule-go"

	appLog "taskflow/internal/log"
	"taskflow/internal/model"
)

const (
	// DefaultHorizon is the number of occurrences generated when a root is
	// created.
	DefaultHorizon = 12

	// MaxHorizon caps a single expansion.
	MaxHorizon = 1000
)

// step is the resolved form of a repeat rule: occurrence i lands
// i*every units after the root date.
type step struct {
	unit  model.RepeatUnit
	every int
}

// ruleOf resolves root's repeat rule. ok is false for combinations that are
// not modelled (no rule, custom without config, non-positive interval).
func ruleOf(root model.Task) (step, bool) {
	switch root.Repeat {
	case model.RepeatDaily:
		return step{unit: model.UnitDay, every: 1}, true
	case model.RepeatWeekly:
		return step{unit: model.UnitWeek, every: 1}, true
	case model.RepeatMonthly:
		return step{unit: model.UnitMonth, every: 1}, true
	case model.RepeatCustom:
		rc := root.RepeatConfig
		if rc == nil || rc.Interval < 1 {
			return step{}, false
		}
		switch rc.Unit {
		case model.UnitDay, model.UnitWeek, model.UnitMonth:
			return step{unit: rc.Unit, every: rc.Interval}, true
		}
	}
	return step{}, false
}

// Expand returns the horizon derived occurrences of root, in date order.
//
// Each occurrence is a copy of root with a reproducible id
// ("{rootID}-rec-{i}"), its own date and ParentID set to root.ID. Dates are
// always offset from root.Date, never from the previous occurrence, so
// month clamping does not accumulate (Jan 31 monthly gives Feb 29, Mar 31,
// Apr 30 ...).
//
// Unknown rules, derived tasks and horizon <= 0 yield an empty result.
func Expand(root model.Task, horizon int) []model.Task {
	if horizon <= 0 || root.IsDerived() {
		return nil
	}
	rule, ok := ruleOf(root)
	if !ok {
		return nil
	}
	if horizon > MaxHorizon {
		appLog.Error("recur: horizon truncated",
			errors.New("max horizon reached"),
			"root", root.ID,
			"requested", horizon,
			"cap", MaxHorizon,
		)
		horizon = MaxHorizon
	}

	dates := rule.dates(root.Date, horizon)
	out := make([]model.Task, 0, len(dates))
	for i, d := range dates {
		occ := root.Clone()
		occ.ID = OccurrenceID(root.ID, i+1)
		occ.Date = d
		occ.ParentID = root.ID
		out = append(out, occ)
	}
	return out
}

// OccurrenceID is the id of the i-th (1-based) occurrence of rootID.
func OccurrenceID(rootID string, i int) string {
	return fmt.Sprintf("%s-rec-%d", rootID, i)
}

// dates returns the n dates following start under s.
func (s step) dates(start model.Date, n int) []model.Date {
	switch s.unit {
	case model.UnitDay:
		return dayDates(start, s.every, n)
	case model.UnitWeek:
		return dayDates(start, s.every*7, n)
	case model.UnitMonth:
		out := make([]model.Date, 0, n)
		for i := 1; i <= n; i++ {
			out = append(out, start.AddMonths(i*s.every))
		}
		return out
	}
	return nil
}

// dayDates uses a count-bounded DAILY rule anchored at start; the first
// instance is start itself and is dropped.
func dayDates(start model.Date, days, n int) []model.Date {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:     rrule.DAILY,
		Interval: days,
		Count:    n + 1,
		Dtstart:  start.Time(),
	})
	if err != nil {
		appLog.Error("recur: failed to build rule", err, "start", start.String(), "interval_days", days)
		return nil
	}

	times := r.All()
	if len(times) <= 1 {
		return nil
	}
	out := make([]model.Date, 0, len(times)-1)
	for _, t := range times[1:] {
		out = append(out, model.DateOf(t))
	}
	return out
}
