// Package planner is the couple calendar service: it loads rules from the
// store, projects them for a viewer and routes occurrence edits to the right
// store call.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"duocal/src-server/occurrence"
	"duocal/src-server/utils"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// Store is the persistence collaborator. model.RuleStore implements it.
type Store interface {
	CreateRule(ctx context.Context, rule occurrence.Rule) error
	GetRule(ctx context.Context, ruleID string) (occurrence.Rule, error)
	ListRules(ctx context.Context, coupleID string) ([]occurrence.Rule, error)
	ExcludeInstance(ctx context.Context, ruleID string, nominalDate civil.Date) error
	OverrideInstance(ctx context.Context, ruleID string, nominalDate civil.Date, patch occurrence.Patch) error
	UpdateSeries(ctx context.Context, ruleID string, patch occurrence.SeriesPatch) error
	DeleteRule(ctx context.Context, ruleID string) error
}

type Planner struct {
	store   Store
	clock   utils.Clock
	natural *utils.Natural
	opts    occurrence.ExpandOptions
	metric  *utils.Metric
}

func New(store Store, clock utils.Clock, natural *utils.Natural, opts occurrence.ExpandOptions, metric *utils.Metric) *Planner {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if natural == nil {
		natural = utils.NewNatural()
	}
	return &Planner{
		store:   store,
		clock:   clock,
		natural: natural,
		opts:    opts,
		metric:  metric,
	}
}

// CreateRuleRequest describes a new series. When Start is zero, When is
// parsed as natural language ("tomorrow 9am") in loc relative to the clock.
// A zero End means one hour, or one day for all-day rules.
type CreateRuleRequest struct {
	ID           string              `json:"id,omitempty"`
	CoupleID     string              `json:"couple_id"`
	CreatorID    string              `json:"creator_id"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Location     string              `json:"location,omitempty"`
	Participants []string            `json:"participants,omitempty"`
	Start        time.Time           `json:"start"`
	End          time.Time           `json:"end"`
	When         string              `json:"when,omitempty"`
	AllDay       bool                `json:"all_day,omitempty"`
	Interval     occurrence.Interval `json:"interval,omitempty"`
	SeriesEnd    *time.Time          `json:"series_end,omitempty"`
}

func (p *Planner) CreateRule(ctx context.Context, req CreateRuleRequest, loc *time.Location) (occurrence.Rule, error) {
	rule := occurrence.Rule{
		ID:          req.ID,
		CoupleID:    utils.CleanupString(req.CoupleID),
		CreatorID:   utils.CleanupString(req.CreatorID),
		Title:       utils.CleanupString(req.Title),
		Description: utils.CleanupString(req.Description),
		Location:    utils.CleanupString(req.Location),
		AllDay:      req.AllDay,
		Interval:    req.Interval,
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if err := occurrence.ValidateRuleID(rule.ID); err != nil {
		return occurrence.Rule{}, fmt.Errorf("Planner.CreateRule: %w", err)
	}
	if rule.CoupleID == "" || rule.Title == "" {
		return occurrence.Rule{}, fmt.Errorf("Planner.CreateRule: couple id and title are required: %w", occurrence.ErrInvalidRule)
	}
	if !rule.Interval.Valid() {
		return occurrence.Rule{}, fmt.Errorf("Planner.CreateRule: %q: %w", rule.Interval, occurrence.ErrUnrecognizedInterval)
	}
	if rule.Interval == "" {
		rule.Interval = occurrence.IntervalNone
	}
	for _, participant := range req.Participants {
		if participant = utils.CleanupString(participant); participant != "" {
			rule.Participants = append(rule.Participants, participant)
		}
	}

	rule.Start = req.Start
	if rule.Start.IsZero() {
		if req.When == "" {
			return occurrence.Rule{}, fmt.Errorf("Planner.CreateRule: start or when is required: %w", occurrence.ErrInvalidInstant)
		}
		start, err := p.natural.Parse(req.When, p.clock.Now(), loc)
		if err != nil {
			return occurrence.Rule{}, fmt.Errorf("Planner.CreateRule: %w: %w", occurrence.ErrInvalidInstant, err)
		}
		rule.Start = start
	}
	rule.Start = rule.Start.UTC().Truncate(time.Second)

	rule.End = req.End.UTC().Truncate(time.Second)
	if req.End.IsZero() {
		rule.End = rule.Start.Add(time.Hour)
		if rule.AllDay {
			rule.End = rule.Start.AddDate(0, 0, 1)
		}
	}
	if rule.End.Before(rule.Start) {
		return occurrence.Rule{}, fmt.Errorf("Planner.CreateRule: end before start: %w", occurrence.ErrInvalidInstant)
	}
	if req.SeriesEnd != nil {
		end := req.SeriesEnd.UTC()
		rule.SeriesEnd = &end
	}

	if err := p.store.CreateRule(ctx, rule); err != nil {
		return occurrence.Rule{}, fmt.Errorf("Planner.CreateRule: %w", err)
	}
	slog.Info("rule created", "rule_id", rule.ID, "couple_id", rule.CoupleID, "interval", rule.Interval)
	return rule, nil
}

// Rules returns the stored rules of a couple, unexpanded.
func (p *Planner) Rules(ctx context.Context, coupleID string) ([]occurrence.Rule, error) {
	rules, err := p.store.ListRules(ctx, coupleID)
	if err != nil {
		return nil, fmt.Errorf("Planner.Rules: %w", err)
	}
	return rules, nil
}

// List projects every rule of a couple for a viewer in loc and keeps the
// occurrences overlapping [from, to). A zero bound is open.
func (p *Planner) List(ctx context.Context, coupleID string, loc *time.Location, from, to time.Time) (occurrence.ProjectResult, error) {
	rules, err := p.store.ListRules(ctx, coupleID)
	if err != nil {
		return occurrence.ProjectResult{}, fmt.Errorf("Planner.List: %w", err)
	}

	result := occurrence.ProjectAll(rules, loc, p.opts)
	for ruleID, err := range result.Failed {
		slog.Warn("can't project rule", "rule_id", ruleID, "error", err)
	}
	if len(result.Capped) > 0 {
		slog.Debug("occurrence cap reached", "rules", result.Capped)
	}

	kept := result.Instances[:0]
	for _, inst := range result.Instances {
		if !from.IsZero() && !inst.End.After(from) && !inst.Start.Equal(from) {
			continue
		}
		if !to.IsZero() && !inst.Start.Before(to) {
			continue
		}
		kept = append(kept, inst)
	}
	result.Instances = kept

	p.metric.Report(utils.OccurrencesProjected, float64(len(result.Instances)))
	return result, nil
}

// EditRequest targets one occurrence. NominalDate is the occurrence's own
// nominal date from the listing, used when InstanceID is a bare rule id.
type EditRequest struct {
	InstanceID  string
	NominalDate civil.Date
	Scope       occurrence.Scope
}

func (p *Planner) Edit(ctx context.Context, req EditRequest, patch occurrence.SeriesPatch) (occurrence.Resolution, error) {
	res, err := p.resolve(ctx, req, occurrence.ActionEdit)
	if err != nil {
		return occurrence.Resolution{}, fmt.Errorf("Planner.Edit: %w", err)
	}
	patch.Patch = cleanPatch(patch.Patch)
	if patch.Interval != nil && !patch.Interval.Valid() {
		return occurrence.Resolution{}, fmt.Errorf("Planner.Edit: %q: %w", *patch.Interval, occurrence.ErrUnrecognizedInterval)
	}

	switch res.Mutation {
	case occurrence.MutationOverrideInstance:
		err = p.store.OverrideInstance(ctx, res.RuleID, res.NominalDate, patch.Patch)
	case occurrence.MutationUpdateRecord, occurrence.MutationUpdateSeries:
		err = p.store.UpdateSeries(ctx, res.RuleID, patch)
	default:
		err = fmt.Errorf("unexpected mutation %q", res.Mutation)
	}
	if err != nil {
		return occurrence.Resolution{}, fmt.Errorf("Planner.Edit: %w", err)
	}
	slog.Info("occurrence edited", "instance_id", req.InstanceID, "mutation", res.Mutation)
	return res, nil
}

func (p *Planner) Delete(ctx context.Context, req EditRequest) (occurrence.Resolution, error) {
	res, err := p.resolve(ctx, req, occurrence.ActionDelete)
	if err != nil {
		return occurrence.Resolution{}, fmt.Errorf("Planner.Delete: %w", err)
	}

	switch res.Mutation {
	case occurrence.MutationExcludeInstance:
		err = p.store.ExcludeInstance(ctx, res.RuleID, res.NominalDate)
	case occurrence.MutationDeleteRecord, occurrence.MutationDeleteSeries:
		err = p.store.DeleteRule(ctx, res.RuleID)
	default:
		err = fmt.Errorf("unexpected mutation %q", res.Mutation)
	}
	if err != nil {
		return occurrence.Resolution{}, fmt.Errorf("Planner.Delete: %w", err)
	}
	slog.Info("occurrence deleted", "instance_id", req.InstanceID, "mutation", res.Mutation)
	return res, nil
}

// resolve decodes the id, loads its rule to learn whether it recurs and maps
// the scope to a mutation.
func (p *Planner) resolve(ctx context.Context, req EditRequest, action occurrence.Action) (occurrence.Resolution, error) {
	id, err := occurrence.Decode(req.InstanceID)
	if err != nil {
		return occurrence.Resolution{}, err
	}
	rule, err := p.store.GetRule(ctx, id.RuleID)
	if err != nil {
		return occurrence.Resolution{}, err
	}
	return occurrence.ResolveEditScope(id, req.NominalDate, rule.Interval.Recurring(), req.Scope, action)
}

func cleanPatch(p occurrence.Patch) occurrence.Patch {
	clean := func(s *string) *string {
		if s == nil {
			return nil
		}
		c := utils.CleanupString(*s)
		return &c
	}
	p.Title = clean(p.Title)
	p.Description = clean(p.Description)
	p.Location = clean(p.Location)
	return p
}
