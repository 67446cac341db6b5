// The `ical` package serializes a couple's recurrence rules into an
// iCalendar feed.
//
// # References:
// - RFC5545: https://datatracker.ietf.org/doc/html/rfc5545
//
// # Notes:
//   - One master VEVENT per rule carrying RRULE and EXDATE, plus one VEVENT
//     with RECURRENCE-ID per overridden occurrence.
//   - Series bounds follow the projection: UNTIL is the last occurrence the
//     projector would emit, so capped and horizon-bound series export the
//     same occurrences they display.
//   - Monthly series on day 29-31 and yearly series on Feb 29 clamp to the
//     month end, which RRULE can't express; they export as RDATE lists.
//
// # Example usage:
//
//	calendar := ical.NewCalendar("Alice & Bob", time.Now(), occurrence.ExpandOptions{})
//	calendar.AddRule(rule)
//	output, _ := calendar.ToIcal(loc)
package ical

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"duocal/src-server/occurrence"
	"duocal/src-server/timeconv"

	"cloud.google.com/go/civil"
	"github.com/teambition/rrule-go"
)

const prodID = "-//duocal//couple calendar//EN"

type Calendar struct {
	name  string
	stamp time.Time
	opts  occurrence.ExpandOptions
	rules []occurrence.Rule
}

// Initialize a new Calendar{} struct. stamp is written as DTSTAMP.
func NewCalendar(name string, stamp time.Time, opts occurrence.ExpandOptions) *Calendar {
	return &Calendar{name: name, stamp: stamp.UTC(), opts: opts}
}

func (cal *Calendar) AddRule(rules ...occurrence.Rule) {
	cal.rules = append(cal.rules, rules...)
}

// Marshal a Calendar{} struct into an iCalendar string, with every time
// expressed on the wall clock of loc. A rule that can't be expanded is left
// out and logged.
func (cal *Calendar) ToIcal(loc *time.Location) (string, error) {
	if loc == nil {
		return "", fmt.Errorf("Calendar.ToIcal: nil location: %w", occurrence.ErrInvalidTimezone)
	}
	var sb strings.Builder
	writeLine := foldWriter(sb.WriteString)

	writeLine("BEGIN:VCALENDAR")
	writeLine("PRODID:" + prodID)
	writeLine("VERSION:2.0")
	writeLine("CALSCALE:GREGORIAN")
	if cal.name != "" {
		writeLine("X-WR-CALNAME:" + escapeText(cal.name))
	}
	writeLine("X-WR-TIMEZONE:" + loc.String())

	for _, rule := range cal.rules {
		instances, err := occurrence.Expand(rule, loc, cal.opts)
		if err != nil {
			slog.Warn("can't export rule", "rule_id", rule.ID, "error", err)
			continue
		}
		if err := cal.writeRule(writeLine, rule, instances, loc); err != nil {
			return "", fmt.Errorf("Calendar.ToIcal: rule %q: %w", rule.ID, err)
		}
	}

	if err := writeLine("END:VCALENDAR"); err != nil {
		return "", fmt.Errorf("Calendar.ToIcal: %w", err)
	}
	return sb.String(), nil
}

func (cal *Calendar) writeRule(writeLine func(string) error, rule occurrence.Rule, instances []occurrence.Instance, loc *time.Location) error {
	startDate := timeconv.DateOf(rule.Start, loc)

	// master
	writeLine("BEGIN:VEVENT")
	writeLine("UID:" + rule.ID)
	writeLine("DTSTAMP:" + cal.stamp.Format(utcFormat))
	if rule.AllDay {
		days := max(1, timeconv.DateOf(rule.End, loc).DaysSince(startDate))
		writeLine(dateProperty("DTSTART", startDate))
		writeLine(dateProperty("DTEND", startDate.AddDays(days)))
	} else {
		writeLine(dateTimeProperty("DTSTART", rule.Start, loc))
		writeLine(dateTimeProperty("DTEND", rule.End, loc))
	}
	writeDescriptive(writeLine, rule.Title, rule.Description, rule.Location, rule.CreatorID, rule.Participants)

	if rule.Interval.Recurring() && rule.Interval.Valid() {
		last := startDate
		for _, inst := range instances {
			last = inst.NominalDate
		}

		if clamps(rule, loc) {
			for _, inst := range instances {
				if inst.NominalDate == startDate {
					continue
				}
				writeLine(cal.nominalProperty("RDATE", rule, inst.NominalDate, loc))
			}
		} else {
			// UNTIL takes the value type of DTSTART
			option := rrule.ROption{Freq: frequency(rule.Interval)}
			if rule.AllDay {
				writeLine("RRULE:" + option.RRuleString() + ";UNTIL=" + last.In(time.UTC).Format(dateFormat))
			} else {
				option.Until = occurrence.NominalStart(rule, last, loc)
				writeLine("RRULE:" + option.RRuleString())
			}
		}

		for _, d := range rule.ExcludedDates {
			if d.Before(startDate) || d.After(last) {
				continue
			}
			writeLine(cal.nominalProperty("EXDATE", rule, d, loc))
		}
	}
	writeLine("END:VEVENT")

	// overridden occurrences
	for _, inst := range instances {
		if !inst.Overridden {
			continue
		}
		writeLine("BEGIN:VEVENT")
		writeLine("UID:" + rule.ID)
		writeLine("DTSTAMP:" + cal.stamp.Format(utcFormat))
		writeLine(cal.nominalProperty("RECURRENCE-ID", rule, inst.NominalDate, loc))
		writeLine(occurrenceProperty("DTSTART", inst.Start, inst.AllDay, loc))
		writeLine(occurrenceProperty("DTEND", inst.End, inst.AllDay, loc))
		writeDescriptive(writeLine, inst.Title, inst.Description, inst.Location, inst.CreatorID, inst.Participants)
		if err := writeLine("END:VEVENT"); err != nil {
			return err
		}
	}
	return nil
}

// nominalProperty renders the unmodified start of the occurrence on d, the
// form RECURRENCE-ID, EXDATE and RDATE need to match the master DTSTART.
func (cal *Calendar) nominalProperty(name string, rule occurrence.Rule, d civil.Date, loc *time.Location) string {
	if rule.AllDay {
		return dateProperty(name, d)
	}
	return dateTimeProperty(name, occurrence.NominalStart(rule, d, loc), loc)
}

func writeDescriptive(writeLine func(string) error, title, description, location, creator string, participants []string) {
	writeLine("SUMMARY:" + escapeText(title))
	if description != "" {
		writeLine("DESCRIPTION:" + escapeText(description))
	}
	if location != "" {
		writeLine("LOCATION:" + escapeText(location))
	}
	if creator != "" {
		writeLine("ORGANIZER;CN=" + commonName(creator) + ":invalid:nomail")
	}
	for _, participant := range participants {
		writeLine("ATTENDEE;CN=" + commonName(participant) + ":invalid:nomail")
	}
}

func frequency(interval occurrence.Interval) rrule.Frequency {
	switch interval {
	case occurrence.IntervalDaily:
		return rrule.DAILY
	case occurrence.IntervalWeekly:
		return rrule.WEEKLY
	case occurrence.IntervalMonthly:
		return rrule.MONTHLY
	}
	return rrule.YEARLY
}

// clamps reports whether some step of the series lands on a shortened month
// end, where RRULE would skip instead of clamping.
func clamps(rule occurrence.Rule, loc *time.Location) bool {
	start := rule.Start.In(loc)
	switch rule.Interval {
	case occurrence.IntervalMonthly:
		return start.Day() > 28
	case occurrence.IntervalYearly:
		return start.Month() == time.February && start.Day() == 29
	}
	return false
}
