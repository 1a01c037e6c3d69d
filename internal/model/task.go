package model

import (
	"fmt"
	"slices"
	"time"
)

// ClockLayout is the HH:mm 24-hour form of Task.StartTime.
const ClockLayout = "15:04"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// RepeatType is the recurrence rule of a root task.
type RepeatType string

const (
	RepeatNone    RepeatType = "none"
	RepeatDaily   RepeatType = "daily"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
	RepeatCustom  RepeatType = "custom"
)

func (r RepeatType) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatCustom:
		return true
	}
	return false
}

// RepeatUnit is the step unit of a custom recurrence. Decoding keeps any
// string so that a stored rule with an unknown unit still loads; such a rule
// expands to nothing.
type RepeatUnit string

const (
	UnitDay   RepeatUnit = "day"
	UnitWeek  RepeatUnit = "week"
	UnitMonth RepeatUnit = "month"
)

func (u RepeatUnit) Valid() bool {
	switch u {
	case UnitDay, UnitWeek, UnitMonth:
		return true
	}
	return false
}

func ParseRepeatUnit(s string) (RepeatUnit, error) {
	if u := RepeatUnit(s); u.Valid() {
		return u, nil
	}
	return "", fmt.Errorf("unknown repeat unit %q", s)
}

// RepeatConfig is only meaningful when Repeat is RepeatCustom.
//
// DaysOfWeek is kept as configuration; expansion steps whole interval-weeks
// from the root date and does not emit one occurrence per listed weekday.
type RepeatConfig struct {
	Interval   int            `json:"interval"`
	Unit       RepeatUnit     `json:"unit"`
	DaysOfWeek []time.Weekday `json:"daysOfWeek,omitempty"`
}

// Task is a scheduled unit of work. A task with ParentID set is a derived
// occurrence of the root whose ID equals ParentID.
type Task struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Date         Date          `json:"date"`
	StartTime    string        `json:"startTime"`
	Duration     int           `json:"duration"`
	Completed    bool          `json:"completed"`
	Priority     Priority      `json:"priority"`
	Tags         []string      `json:"tags"`
	Repeat       RepeatType    `json:"repeat"`
	RepeatConfig *RepeatConfig `json:"repeatConfig,omitempty"`
	ParentID     string        `json:"parentId,omitempty"`
}

// IsDerived reports whether t was generated from a root.
func (t Task) IsDerived() bool {
	return t.ParentID != ""
}

// IsRoot reports whether t defines a recurrence of its own.
func (t Task) IsRoot() bool {
	return t.ParentID == "" && t.Repeat != "" && t.Repeat != RepeatNone
}

// SeriesID returns the id shared by every member of t's series.
func (t Task) SeriesID() string {
	if t.ParentID != "" {
		return t.ParentID
	}
	return t.ID
}

// Clone returns a copy of t that shares no slices or pointers with it.
func (t Task) Clone() Task {
	out := t
	out.Tags = slices.Clone(t.Tags)
	if t.RepeatConfig != nil {
		rc := *t.RepeatConfig
		rc.DaysOfWeek = slices.Clone(t.RepeatConfig.DaysOfWeek)
		out.RepeatConfig = &rc
	}
	return out
}

// ParseClock parses an HH:mm start time.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

// Suggestion is one proposed start time from the scheduling service.
type Suggestion struct {
	ID          string `json:"id"`
	StartTime   string `json:"startTime"`
	Explanation string `json:"explanation,omitempty"`
}
