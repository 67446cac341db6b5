package model

import (
	"context"
	"fmt"
	"slices"
	"time"

	"duocal/src-server/occurrence"

	"cloud.google.com/go/civil"
	"github.com/uptrace/bun"
)

type RecurrenceRule struct {
	bun.BaseModel `bun:"table:recurrence_rules"`

	ID           string   `bun:"id,pk,notnull"`
	CoupleID     string   `bun:"couple_id,notnull"`
	CreatorID    string   `bun:"creator_id"`
	Title        string   `bun:"title,notnull"`
	Description  string   `bun:"description"`
	Location     string   `bun:"location"`
	Participants []string `bun:"participants"`

	StartDate int64 `bun:"start_date,notnull"`
	EndDate   int64 `bun:"end_date,notnull"`
	IsAllDay  bool  `bun:"is_all_day"`

	Interval  string `bun:"interval,notnull"`
	SeriesEnd int64  `bun:"series_end,nullzero"`

	// YYYY-MM-DD nominal dates, sorted
	ExcludedDates []string                    `bun:"excluded_dates"`
	Overrides     map[string]occurrence.Patch `bun:"overrides"`

	CreatedAt int64 `bun:"created_at,notnull"`
	UpdatedAt int64 `bun:"updated_at"`
	Sequence  int   `bun:"sequence"`
}

// Insert or update the rule
func (r *RecurrenceRule) Upsert(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewInsert().
		Model(r).
		On("CONFLICT (id) DO UPDATE").
		Set("couple_id = EXCLUDED.couple_id").
		Set("creator_id = EXCLUDED.creator_id").
		Set("title = EXCLUDED.title").
		Set("description = EXCLUDED.description").
		Set("location = EXCLUDED.location").
		Set("participants = EXCLUDED.participants").
		Set("start_date = EXCLUDED.start_date").
		Set("end_date = EXCLUDED.end_date").
		Set("is_all_day = EXCLUDED.is_all_day").
		Set("interval = EXCLUDED.interval").
		Set("series_end = EXCLUDED.series_end").
		Set("excluded_dates = EXCLUDED.excluded_dates").
		Set("overrides = EXCLUDED.overrides").
		Set("updated_at = EXCLUDED.updated_at").
		Set("sequence = EXCLUDED.sequence").
		Exec(ctx); err != nil {
		return fmt.Errorf("RecurrenceRule.Upsert: %w", err)
	}
	return nil
}

// ToRule converts the stored row into the domain rule expanded by the
// occurrence package.
func (r *RecurrenceRule) ToRule() (occurrence.Rule, error) {
	rule := occurrence.Rule{
		ID:           r.ID,
		CoupleID:     r.CoupleID,
		CreatorID:    r.CreatorID,
		Title:        r.Title,
		Description:  r.Description,
		Location:     r.Location,
		Participants: slices.Clone(r.Participants),
		Start:        time.Unix(r.StartDate, 0).UTC(),
		End:          time.Unix(r.EndDate, 0).UTC(),
		AllDay:       r.IsAllDay,
		Interval:     occurrence.Interval(r.Interval),
	}
	if r.SeriesEnd != 0 {
		end := time.Unix(r.SeriesEnd, 0).UTC()
		rule.SeriesEnd = &end
	}

	for _, raw := range r.ExcludedDates {
		d, err := civil.ParseDate(raw)
		if err != nil {
			return occurrence.Rule{}, fmt.Errorf("RecurrenceRule.ToRule: bad excluded date %q: %w", raw, err)
		}
		rule.ExcludeInstance(d)
	}

	if len(r.Overrides) > 0 {
		rule.Overrides = make(map[civil.Date]occurrence.Patch, len(r.Overrides))
		for raw, patch := range r.Overrides {
			d, err := civil.ParseDate(raw)
			if err != nil {
				return occurrence.Rule{}, fmt.Errorf("RecurrenceRule.ToRule: bad override date %q: %w", raw, err)
			}
			rule.Overrides[d] = patch
		}
	}
	return rule, nil
}

// FromRule copies every rule field onto the row. Bookkeeping columns
// (created_at, updated_at, sequence) are left to the caller.
func (r *RecurrenceRule) FromRule(rule occurrence.Rule) {
	r.ID = rule.ID
	r.CoupleID = rule.CoupleID
	r.CreatorID = rule.CreatorID
	r.Title = rule.Title
	r.Description = rule.Description
	r.Location = rule.Location
	r.Participants = slices.Clone(rule.Participants)
	r.StartDate = rule.Start.Unix()
	r.EndDate = rule.End.Unix()
	r.IsAllDay = rule.AllDay
	r.Interval = string(rule.Interval)
	if r.Interval == "" {
		r.Interval = string(occurrence.IntervalNone)
	}

	r.SeriesEnd = 0
	if rule.SeriesEnd != nil {
		r.SeriesEnd = rule.SeriesEnd.Unix()
	}

	r.ExcludedDates = make([]string, 0, len(rule.ExcludedDates))
	for _, d := range rule.ExcludedDates {
		r.ExcludedDates = append(r.ExcludedDates, d.String())
	}

	r.Overrides = make(map[string]occurrence.Patch, len(rule.Overrides))
	for d, patch := range rule.Overrides {
		r.Overrides[d.String()] = patch
	}
}
