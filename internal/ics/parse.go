// Package ics converts between the task collection and iCalendar data:
// export of every stored task as a VEVENT, and import of VEVENTs (uploaded
// or fetched by URL) as new tasks.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "taskflow/internal/log"
	"taskflow/internal/model"
	"taskflow/internal/task"
)

// ParsedEvent is one importable VEVENT.
type ParsedEvent struct {
	UID   string
	Input task.Input
}

// ParseICS decodes body and returns one ParsedEvent per base VEVENT.
// Floating and date-only values are read in loc (nil means time.Local).
// Overrides (VEVENTs with RECURRENCE-ID) and events without a usable
// DTSTART are skipped.
func ParseICS(body []byte, loc *time.Location) ([]ParsedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	skipped := 0
	for _, ve := range cal.Events() {
		if ve.GetProperty("RECURRENCE-ID") != nil {
			skipped++
			continue
		}
		ev, perr := parseVEvent(ve, loc)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "err", perr)
			skipped++
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "event_count", len(events), "skipped", skipped)
	return events, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (ParsedEvent, error) {
	var out ParsedEvent
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, fmt.Errorf("event %q: missing DTSTART", out.UID)
	}
	start, allDay, err := propertyTime(dtStart, loc)
	if err != nil {
		return out, fmt.Errorf("event %q: DTSTART: %w", out.UID, err)
	}

	in := task.Input{Date: model.DateOf(start)}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		in.Title = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		in.Description = unescapeText(p.Value)
	}

	if !allDay {
		in.StartTime = start.Format(model.ClockLayout)
		if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
			if end, _, err := propertyTime(p, loc); err == nil && end.After(start) {
				in.Duration = int(end.Sub(start) / time.Minute)
			}
		}
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyCategories) {
		for _, c := range splitTextList(p.Value) {
			if c = strings.TrimSpace(unescapeText(c)); c != "" {
				in.Tags = append(in.Tags, c)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyPriority); p != nil {
		in.Priority = priorityFromICS(p.Value)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
		repeat, rc, err := repeatFromRRule(p.Value)
		if err != nil {
			appLog.Warn("ics rrule ignored", "uid", out.UID, "rrule", p.Value, "err", err)
		} else {
			in.Repeat = repeat
			in.RepeatConfig = rc
		}
	}

	out.Input = in
	return out, nil
}

// propertyTime reads a DATE or DATE-TIME property. UTC values are converted
// to loc, TZID values are converted from their zone, floating values are
// taken as loc wall time.
func propertyTime(p *ical.IANAProperty, loc *time.Location) (time.Time, bool, error) {
	v := strings.TrimSpace(p.Value)
	isDate := !strings.Contains(v, "T")
	if vs := p.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		isDate = true
	}
	if isDate {
		if len(v) > 8 {
			v = v[:8]
		}
		t, err := time.ParseInLocation("20060102", v, loc)
		return t, true, err
	}

	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		return t.In(loc), false, err
	}

	src := loc
	if tz := p.ICalParameters["TZID"]; len(tz) > 0 {
		if l, err := time.LoadLocation(strings.Trim(tz[0], `"`)); err == nil {
			src = l
		} else {
			appLog.Warn("ics unknown TZID, using display zone", "tzid", tz[0])
		}
	}
	t, err := time.ParseInLocation("20060102T150405", v, src)
	return t.In(loc), false, err
}

// priorityFromICS maps RFC 5545 PRIORITY (1 highest .. 9 lowest, 0 none).
func priorityFromICS(v string) model.Priority {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	switch {
	case err != nil || n <= 0:
		return ""
	case n < 5:
		return model.PriorityHigh
	case n == 5:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

func priorityToICS(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "1"
	case model.PriorityLow:
		return "9"
	default:
		return "5"
	}
}

// repeatFromRRule maps an RRULE onto the repeat rules tasks support.
// COUNT, UNTIL and positional BYDAY are dropped: imported series are
// generated for the usual horizon.
func repeatFromRRule(s string) (model.RepeatType, *model.RepeatConfig, error) {
	opt, err := rrule.StrToROption(s)
	if err != nil {
		return "", nil, err
	}
	interval := opt.Interval
	if interval < 1 {
		interval = 1
	}

	custom := func(unit model.RepeatUnit) (model.RepeatType, *model.RepeatConfig, error) {
		return model.RepeatCustom, &model.RepeatConfig{Interval: interval, Unit: unit}, nil
	}

	switch opt.Freq {
	case rrule.DAILY:
		if interval == 1 {
			return model.RepeatDaily, nil, nil
		}
		return custom(model.UnitDay)
	case rrule.WEEKLY:
		if interval == 1 && len(opt.Byweekday) == 0 {
			return model.RepeatWeekly, nil, nil
		}
		repeat, rc, _ := custom(model.UnitWeek)
		for _, wd := range opt.Byweekday {
			// rrule counts weekdays from Monday = 0
			rc.DaysOfWeek = append(rc.DaysOfWeek, time.Weekday((wd.Day()+1)%7))
		}
		return repeat, rc, nil
	case rrule.MONTHLY:
		if interval == 1 {
			return model.RepeatMonthly, nil, nil
		}
		return custom(model.UnitMonth)
	default:
		return "", nil, fmt.Errorf("unsupported frequency %v", opt.Freq)
	}
}

var textUnescaper = strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)

func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}

// splitTextList splits a multi-valued TEXT property on the commas that are
// not backslash-escaped. Parts are returned still escaped.
func splitTextList(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case ',':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
