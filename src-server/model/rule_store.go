package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"duocal/src-server/occurrence"
	"duocal/src-server/utils"

	"cloud.google.com/go/civil"
	"github.com/uptrace/bun"
)

// RuleStore persists recurrence rules and their exception maps. Every
// exception write is a read-modify-write of one row inside a transaction.
type RuleStore struct {
	db     *bun.DB
	clock  utils.Clock
	metric *utils.Metric
}

func NewRuleStore(db *bun.DB, clock utils.Clock, metric *utils.Metric) *RuleStore {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &RuleStore{db: db, clock: clock, metric: metric}
}

func (s *RuleStore) CreateRule(ctx context.Context, rule occurrence.Rule) error {
	startTimer := time.Now()
	defer func() {
		s.metric.Report(utils.DatabaseWrite, float64(time.Since(startTimer).Microseconds()))
	}()

	now := s.clock.Now().Unix()
	row := &RecurrenceRule{CreatedAt: now, UpdatedAt: now}
	row.FromRule(rule)
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("RuleStore.CreateRule: %w", err)
	}
	return nil
}

func (s *RuleStore) GetRule(ctx context.Context, ruleID string) (occurrence.Rule, error) {
	startTimer := time.Now()
	defer func() {
		s.metric.Report(utils.DatabaseRead, float64(time.Since(startTimer).Microseconds()))
	}()

	row, err := getRow(ctx, s.db, ruleID)
	if err != nil {
		return occurrence.Rule{}, fmt.Errorf("RuleStore.GetRule: %w", err)
	}
	rule, err := row.ToRule()
	if err != nil {
		return occurrence.Rule{}, fmt.Errorf("RuleStore.GetRule: %w", err)
	}
	return rule, nil
}

// ListRules returns every rule of a couple ordered by start. A row that
// can't be decoded is skipped so one bad record doesn't blank the calendar.
func (s *RuleStore) ListRules(ctx context.Context, coupleID string) ([]occurrence.Rule, error) {
	startTimer := time.Now()
	defer func() {
		s.metric.Report(utils.DatabaseRead, float64(time.Since(startTimer).Microseconds()))
	}()

	rows := []RecurrenceRule{}
	if err := s.db.NewSelect().
		Model(&rows).
		Where("couple_id = ?", coupleID).
		Order("start_date ASC", "id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("RuleStore.ListRules: %w", err)
	}

	rules := make([]occurrence.Rule, 0, len(rows))
	for i := range rows {
		rule, err := rows[i].ToRule()
		if err != nil {
			slog.Warn("can't decode rule", "rule_id", rows[i].ID, "error", err)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (s *RuleStore) ExcludeInstance(ctx context.Context, ruleID string, nominalDate civil.Date) error {
	if err := s.mutate(ctx, ruleID, func(rule *occurrence.Rule) bool {
		return rule.ExcludeInstance(nominalDate)
	}); err != nil {
		return fmt.Errorf("RuleStore.ExcludeInstance: %w", err)
	}
	return nil
}

func (s *RuleStore) OverrideInstance(ctx context.Context, ruleID string, nominalDate civil.Date, patch occurrence.Patch) error {
	if err := s.mutate(ctx, ruleID, func(rule *occurrence.Rule) bool {
		rule.OverrideInstance(nominalDate, patch)
		return true
	}); err != nil {
		return fmt.Errorf("RuleStore.OverrideInstance: %w", err)
	}
	return nil
}

func (s *RuleStore) UpdateSeries(ctx context.Context, ruleID string, patch occurrence.SeriesPatch) error {
	if err := s.mutate(ctx, ruleID, func(rule *occurrence.Rule) bool {
		rule.UpdateSeries(patch)
		return true
	}); err != nil {
		return fmt.Errorf("RuleStore.UpdateSeries: %w", err)
	}
	return nil
}

func (s *RuleStore) DeleteRule(ctx context.Context, ruleID string) error {
	startTimer := time.Now()
	defer func() {
		s.metric.Report(utils.DatabaseWrite, float64(time.Since(startTimer).Microseconds()))
	}()

	result, err := s.db.NewDelete().
		Model((*RecurrenceRule)(nil)).
		Where("id = ?", ruleID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("RuleStore.DeleteRule: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("RuleStore.DeleteRule: %s: %w", ruleID, occurrence.ErrNotFound)
	}
	return nil
}

// mutate loads the rule, applies fn and writes the whole row back in one
// transaction. fn returning false means nothing changed and skips the write.
func (s *RuleStore) mutate(ctx context.Context, ruleID string, fn func(rule *occurrence.Rule) bool) error {
	startTimer := time.Now()
	defer func() {
		s.metric.Report(utils.DatabaseWrite, float64(time.Since(startTimer).Microseconds()))
	}()

	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		row, err := getRow(ctx, tx, ruleID)
		if err != nil {
			return err
		}
		rule, err := row.ToRule()
		if err != nil {
			return err
		}
		if !fn(&rule) {
			return nil
		}

		row.FromRule(rule)
		row.UpdatedAt = s.clock.Now().Unix()
		row.Sequence++
		return row.Upsert(ctx, tx)
	})
}

func getRow(ctx context.Context, db bun.IDB, ruleID string) (*RecurrenceRule, error) {
	row := new(RecurrenceRule)
	if err := db.NewSelect().
		Model(row).
		Where("id = ?", ruleID).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", ruleID, occurrence.ErrNotFound)
		}
		return nil, err
	}
	return row, nil
}
