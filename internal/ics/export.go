package ics

import (
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"taskflow/internal/model"
)

const (
	productID = "-//taskflow//taskflow calendar//EN"

	floatingLayout = "20060102T150405"
	dateLayout     = "20060102"
)

// uidDomain is appended to task ids to form globally unique UIDs.
const uidDomain = "@taskflow"

// Export writes every task as one VEVENT. Series members are exported as
// the individual occurrences they are stored as; RELATED-TO points an
// occurrence at its root. Times are floating local times.
func Export(w io.Writer, tasks []model.Task, now time.Time) error {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName("TaskFlow")

	for _, t := range tasks {
		addEvent(cal, t, now)
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

func addEvent(cal *ical.Calendar, t model.Task, now time.Time) {
	ev := cal.AddEvent(t.ID + uidDomain)
	ev.SetDtStampTime(now.UTC())
	ev.SetSummary(t.Title)
	if t.Description != "" {
		ev.SetDescription(t.Description)
	}

	if h, m, err := model.ParseClock(t.StartTime); err == nil {
		start := time.Date(t.Date.Year, t.Date.Month, t.Date.Day, h, m, 0, 0, time.UTC)
		end := start.Add(time.Duration(max(t.Duration, 1)) * time.Minute)
		ev.SetProperty(ical.ComponentPropertyDtStart, start.Format(floatingLayout))
		ev.SetProperty(ical.ComponentPropertyDtEnd, end.Format(floatingLayout))
	} else {
		ev.SetProperty(ical.ComponentPropertyDtStart, t.Date.Time().Format(dateLayout), ical.WithValue("DATE"))
		ev.SetProperty(ical.ComponentPropertyDtEnd, t.Date.AddDays(1).Time().Format(dateLayout), ical.WithValue("DATE"))
	}

	if len(t.Tags) > 0 {
		ev.SetProperty(ical.ComponentPropertyCategories, strings.Join(t.Tags, ","))
	}
	ev.SetProperty(ical.ComponentPropertyPriority, priorityToICS(t.Priority))
	if t.ParentID != "" {
		ev.SetProperty(ical.ComponentProperty("RELATED-TO"), t.ParentID+uidDomain)
	}
	if t.Completed {
		ev.SetProperty(ical.ComponentProperty("X-TASKFLOW-COMPLETED"), "TRUE")
	}
}
