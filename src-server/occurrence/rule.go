// Package occurrence turns a stored recurrence rule plus its exception maps
// into concrete occurrences, and maps UI edits on an occurrence back to the
// right mutation of the rule.
package occurrence

import (
	"slices"
	"time"

	"cloud.google.com/go/civil"
)

type Interval string

const (
	IntervalNone    Interval = "none"
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
)

// Valid reports whether i is one of the known values. The blank value counts
// as "none".
func (i Interval) Valid() bool {
	switch i {
	case "", IntervalNone, IntervalDaily, IntervalWeekly, IntervalMonthly, IntervalYearly:
		return true
	}
	return false
}

// Recurring is true for anything other than none, including unknown values:
// those still expand (and truncate) as a series.
func (i Interval) Recurring() bool {
	return i != "" && i != IntervalNone
}

// Patch is a partial set of occurrence fields. Nil means "keep".
type Patch struct {
	Start        *time.Time `json:"start,omitempty"`
	End          *time.Time `json:"end,omitempty"`
	AllDay       *bool      `json:"all_day,omitempty"`
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Location     *string    `json:"location,omitempty"`
	Participants *[]string  `json:"participants,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.Start == nil && p.End == nil && p.AllDay == nil &&
		p.Title == nil && p.Description == nil && p.Location == nil &&
		p.Participants == nil
}

// SeriesPatch edits the rule itself. ClearSeriesEnd removes the end bound;
// it wins over SeriesEnd.
type SeriesPatch struct {
	Patch
	Interval       *Interval  `json:"interval,omitempty"`
	SeriesEnd      *time.Time `json:"series_end,omitempty"`
	ClearSeriesEnd bool       `json:"clear_series_end,omitempty"`
}

// Rule is the authoritative, persisted definition of one series.
type Rule struct {
	ID           string
	CoupleID     string
	CreatorID    string
	Title        string
	Description  string
	Location     string
	Participants []string

	Start  time.Time
	End    time.Time
	AllDay bool

	Interval  Interval
	SeriesEnd *time.Time

	// nominal dates, kept sorted and unique
	ExcludedDates []civil.Date
	Overrides     map[civil.Date]Patch
}

func (r Rule) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

func (r Rule) IsExcluded(d civil.Date) bool {
	_, found := slices.BinarySearchFunc(r.ExcludedDates, d, civil.Date.Compare)
	return found
}

// Clone returns a copy that shares no slices or maps with r.
func (r Rule) Clone() Rule {
	c := r
	c.Participants = slices.Clone(r.Participants)
	c.ExcludedDates = slices.Clone(r.ExcludedDates)
	if r.SeriesEnd != nil {
		end := *r.SeriesEnd
		c.SeriesEnd = &end
	}
	if r.Overrides != nil {
		c.Overrides = make(map[civil.Date]Patch, len(r.Overrides))
		for d, p := range r.Overrides {
			c.Overrides[d] = p
		}
	}
	return c
}

// Instance is one computed occurrence. It is never persisted.
type Instance struct {
	ID          InstanceID `json:"id"`
	RuleID      string     `json:"rule_id"`
	CoupleID    string     `json:"couple_id"`
	NominalDate civil.Date `json:"nominal_date"`

	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"all_day"`

	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Location     string   `json:"location"`
	CreatorID    string   `json:"creator_id"`
	Participants []string `json:"participants"`

	Recurring  bool `json:"recurring"`
	Overridden bool `json:"overridden"`
}
