package occurrence

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"cloud.google.com/go/civil"

	"duocal/src-server/timeconv"
)

const (
	DefaultHorizonMonths  = 6
	DefaultMaxOccurrences = 100
)

// ExpandOptions bounds a single expansion. Zero values use the defaults.
type ExpandOptions struct {
	// HorizonMonths is how far after the rule start a series without a
	// SeriesEnd is generated.
	HorizonMonths int
	// MaxOccurrences caps the emitted instances of one rule, excluded dates
	// not counted.
	MaxOccurrences int
}

func (o ExpandOptions) normalize() ExpandOptions {
	if o.HorizonMonths <= 0 {
		o.HorizonMonths = DefaultHorizonMonths
	}
	if o.MaxOccurrences <= 0 {
		o.MaxOccurrences = DefaultMaxOccurrences
	}
	return o
}

// expansion is the result of expanding one rule.
type expansion struct {
	instances []Instance
	// an unknown interval stopped the series after its first step
	truncated bool
	// MaxOccurrences was reached before the series end
	capped bool
}

// Expand materializes rule into ordered occurrences as seen by a viewer in
// loc. Steps are calendar steps on the viewer's wall clock, so a 09:00
// weekly event stays at 09:00 across DST, and a monthly series started on the
// 31st lands on the last day of shorter months without drifting.
//
// An unrecognized interval does not fail: the occurrences emitted before the
// first step are returned.
func Expand(rule Rule, loc *time.Location, opts ExpandOptions) ([]Instance, error) {
	e, err := expand(rule, loc, opts)
	if err != nil {
		return nil, err
	}
	return e.instances, nil
}

func expand(rule Rule, loc *time.Location, opts ExpandOptions) (expansion, error) {
	var e expansion
	if loc == nil {
		return e, fmt.Errorf("Expand: nil location: %w", ErrInvalidTimezone)
	}
	if rule.Start.IsZero() || rule.End.IsZero() || rule.End.Before(rule.Start) {
		return e, fmt.Errorf("Expand: rule %q has start=%s end=%s: %w",
			rule.ID, rule.Start, rule.End, ErrInvalidInstant)
	}
	opts = opts.normalize()

	anchor := rule.Start.In(loc)
	if !rule.Interval.Recurring() {
		nominal := civil.DateOf(anchor)
		e.instances = []Instance{newInstance(rule, Original(rule.ID), nominal, anchor, loc)}
		return e, nil
	}

	var limit civil.Date
	switch {
	case rule.SeriesEnd != nil:
		limit = timeconv.DateOf(*rule.SeriesEnd, loc)
	default:
		limit = civil.DateOf(addMonthsClamped(anchor, opts.HorizonMonths))
	}

	for n := 0; ; n++ {
		if len(e.instances) >= opts.MaxOccurrences {
			e.capped = true
			slog.Debug("expand: occurrence cap reached", "rule_id", rule.ID, "cap", opts.MaxOccurrences)
			break
		}
		cursor, ok := step(anchor, rule.Interval, n)
		if !ok {
			e.truncated = true
			slog.Warn("expand: unrecognized interval, truncating series",
				"rule_id", rule.ID,
				"interval", rule.Interval,
				"emitted", len(e.instances),
			)
			break
		}
		nominal := civil.DateOf(cursor)
		if nominal.After(limit) {
			break
		}
		if rule.IsExcluded(nominal) {
			continue
		}
		id := Expanded(rule.ID, nominal)
		if n == 0 {
			id = Original(rule.ID)
		}
		e.instances = append(e.instances, newInstance(rule, id, nominal, cursor, loc))
	}
	return e, nil
}

// step returns the n-th nominal start of a series anchored at anchor, on the
// wall clock of anchor's location. Step 0 is the anchor for any interval.
func step(anchor time.Time, interval Interval, n int) (time.Time, bool) {
	if n == 0 {
		return anchor, true
	}
	switch interval {
	case IntervalDaily:
		return anchor.AddDate(0, 0, n), true
	case IntervalWeekly:
		return anchor.AddDate(0, 0, 7*n), true
	case IntervalMonthly:
		return addMonthsClamped(anchor, n), true
	case IntervalYearly:
		return addMonthsClamped(anchor, 12*n), true
	}
	return time.Time{}, false
}

// addMonthsClamped moves t by n calendar months keeping the wall clock time
// and clamping the day to the target month's length.
func addMonthsClamped(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	day := min(t.Day(), lastDay)
	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// NominalStart returns the unmodified start instant of the occurrence whose
// nominal date is d, on the wall clock of the rule start in loc.
func NominalStart(rule Rule, d civil.Date, loc *time.Location) time.Time {
	anchor := rule.Start.In(loc)
	return time.Date(d.Year, d.Month, d.Day,
		anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), loc).UTC()
}

func newInstance(rule Rule, id InstanceID, nominal civil.Date, cursor time.Time, loc *time.Location) Instance {
	inst := Instance{
		ID:           id,
		RuleID:       rule.ID,
		CoupleID:     rule.CoupleID,
		NominalDate:  nominal,
		Start:        cursor.UTC(),
		End:          cursor.Add(rule.Duration()).UTC(),
		AllDay:       rule.AllDay,
		Title:        rule.Title,
		Description:  rule.Description,
		Location:     rule.Location,
		CreatorID:    rule.CreatorID,
		Participants: slices.Clone(rule.Participants),
		Recurring:    rule.Interval.Recurring(),
	}
	if inst.AllDay {
		inst.Start, inst.End = allDaySpan(nominal, allDayLength(rule, loc), loc)
	}
	if !inst.Recurring {
		return inst
	}
	patch, ok := rule.Overrides[nominal]
	if !ok {
		return inst
	}
	inst.Overridden = true
	applyPatch(&inst, patch, rule, loc)
	return inst
}

// applyPatch lays an override over an instance. An overridden start without
// an overridden end ends at the new start plus the series duration, not at
// the nominal start plus the duration, so a moved occurrence never ends
// before it starts.
func applyPatch(inst *Instance, p Patch, rule Rule, loc *time.Location) {
	if p.Title != nil {
		inst.Title = *p.Title
	}
	if p.Description != nil {
		inst.Description = *p.Description
	}
	if p.Location != nil {
		inst.Location = *p.Location
	}
	if p.Participants != nil {
		inst.Participants = slices.Clone(*p.Participants)
	}
	if p.AllDay != nil {
		inst.AllDay = *p.AllDay
	}
	switch {
	case inst.AllDay:
		day := inst.NominalDate
		if p.Start != nil {
			day = timeconv.DateOf(*p.Start, loc)
		}
		days := allDayLength(rule, loc)
		if p.End != nil {
			days = max(1, timeconv.DateOf(*p.End, loc).DaysSince(day))
		}
		inst.Start, inst.End = allDaySpan(day, days, loc)
	default:
		if p.Start != nil {
			inst.Start = p.Start.UTC()
			inst.End = inst.Start.Add(rule.Duration())
		}
		if p.End != nil {
			inst.End = p.End.UTC()
		}
	}
}

// number of calendar days an all-day rule covers, at least one
func allDayLength(rule Rule, loc *time.Location) int {
	return max(1, timeconv.DateOf(rule.End, loc).DaysSince(timeconv.DateOf(rule.Start, loc)))
}

func allDaySpan(day civil.Date, days int, loc *time.Location) (time.Time, time.Time) {
	return timeconv.StartOfDay(day, loc), timeconv.StartOfDay(day.AddDays(days), loc)
}
