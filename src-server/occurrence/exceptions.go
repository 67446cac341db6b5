package occurrence

import (
	"slices"

	"cloud.google.com/go/civil"
)

// The methods below are the read-modify-write half of the exception store:
// a caller loads a rule, applies one of them, and writes the rule back.

// ExcludeInstance adds d to the excluded dates. It reports false when d was
// already excluded.
func (r *Rule) ExcludeInstance(d civil.Date) bool {
	i, found := slices.BinarySearchFunc(r.ExcludedDates, d, civil.Date.Compare)
	if found {
		return false
	}
	r.ExcludedDates = slices.Insert(r.ExcludedDates, i, d)
	return true
}

// OverrideInstance replaces the whole patch stored for d. Fields set by an
// earlier patch for the same date and absent from p fall back to the series.
func (r *Rule) OverrideInstance(d civil.Date, p Patch) {
	if r.Overrides == nil {
		r.Overrides = make(map[civil.Date]Patch)
	}
	r.Overrides[d] = p
}

// UpdateSeries changes the rule's own fields. Exclusions and overrides are
// left as they are.
func (r *Rule) UpdateSeries(p SeriesPatch) {
	r.applyRecordPatch(p.Patch)
	if p.Interval != nil {
		r.Interval = *p.Interval
	}
	switch {
	case p.ClearSeriesEnd:
		r.SeriesEnd = nil
	case p.SeriesEnd != nil:
		end := p.SeriesEnd.UTC()
		r.SeriesEnd = &end
	}
}

// applyRecordPatch edits the rule record in place. A moved start without a
// new end keeps the duration.
func (r *Rule) applyRecordPatch(p Patch) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Location != nil {
		r.Location = *p.Location
	}
	if p.Participants != nil {
		r.Participants = slices.Clone(*p.Participants)
	}
	if p.AllDay != nil {
		r.AllDay = *p.AllDay
	}
	if p.Start != nil {
		d := r.Duration()
		r.Start = p.Start.UTC()
		r.End = r.Start.Add(d)
	}
	if p.End != nil {
		r.End = p.End.UTC()
	}
}
