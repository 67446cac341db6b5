package occurrence

import (
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
)

// Project returns the display-ready occurrences of one rule.
func Project(rule Rule, loc *time.Location, opts ExpandOptions) ([]Instance, error) {
	return Expand(rule, loc, opts)
}

// ProjectResult wraps the occurrences of many rules. Truncated lists rules
// whose series stopped early on an unknown interval, Capped those that hit
// the occurrence cap, and Failed those that could not be expanded at all.
type ProjectResult struct {
	Instances []Instance
	Truncated []string
	Capped    []string
	Failed    map[string]error
}

// ProjectAll expands every rule and merges the results ordered by effective
// start. A rule that fails to expand is reported in Failed and skipped so one
// bad record does not blank a whole calendar.
func ProjectAll(rules []Rule, loc *time.Location, opts ExpandOptions) ProjectResult {
	var result ProjectResult
	result.Instances = make([]Instance, 0)
	for _, rule := range rules {
		e, err := expand(rule, loc, opts)
		if err != nil {
			if result.Failed == nil {
				result.Failed = make(map[string]error)
			}
			result.Failed[rule.ID] = err
			continue
		}
		if e.truncated {
			result.Truncated = append(result.Truncated, rule.ID)
		}
		if e.capped {
			result.Capped = append(result.Capped, rule.ID)
		}
		result.Instances = append(result.Instances, e.instances...)
	}
	sort.SliceStable(result.Instances, func(i, j int) bool {
		a, b := result.Instances[i], result.Instances[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.NominalDate != b.NominalDate {
			return a.NominalDate.Before(b.NominalDate)
		}
		return a.RuleID < b.RuleID
	})
	return result
}

type Scope string

const (
	ScopeThisOnly      Scope = "this_only"
	ScopeAllEvents     Scope = "all_events"
	ScopeThisAndFuture Scope = "this_and_future"
)

type Action string

const (
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Mutation names the store call an edit resolves to.
type Mutation string

const (
	MutationUpdateRecord     Mutation = "update_record"
	MutationDeleteRecord     Mutation = "delete_record"
	MutationOverrideInstance Mutation = "override_instance"
	MutationExcludeInstance  Mutation = "exclude_instance"
	MutationUpdateSeries     Mutation = "update_series"
	MutationDeleteSeries     Mutation = "delete_series"
)

type Resolution struct {
	RuleID string
	// NominalDate is set only for the single-instance mutations.
	NominalDate civil.Date
	Mutation    Mutation
}

// ResolveEditScope maps a UI action on an occurrence to a mutation.
//
// nominalDate is the occurrence's own nominal date as produced by a previous
// projection; it is needed when id is an Original id on a recurring rule,
// since a bare rule id carries no date.
func ResolveEditScope(id InstanceID, nominalDate civil.Date, recurring bool, scope Scope, action Action) (Resolution, error) {
	if action != ActionEdit && action != ActionDelete {
		return Resolution{}, fmt.Errorf("ResolveEditScope: unknown action %q", action)
	}
	res := Resolution{RuleID: id.RuleID}
	switch scope {
	case ScopeThisOnly:
	case ScopeAllEvents:
		if !recurring {
			res.Mutation = pick(action, MutationUpdateRecord, MutationDeleteRecord)
			return res, nil
		}
		res.Mutation = pick(action, MutationUpdateSeries, MutationDeleteSeries)
		return res, nil
	default:
		return Resolution{}, fmt.Errorf("ResolveEditScope: %q: %w", scope, ErrUnsupportedScope)
	}

	if !recurring {
		res.Mutation = pick(action, MutationUpdateRecord, MutationDeleteRecord)
		return res, nil
	}
	res.NominalDate = id.Date
	if !id.Expanded {
		if !nominalDate.IsValid() {
			return Resolution{}, fmt.Errorf("ResolveEditScope: %q: %w", id, ErrMissingNominalDate)
		}
		res.NominalDate = nominalDate
	}
	res.Mutation = pick(action, MutationOverrideInstance, MutationExcludeInstance)
	return res, nil
}

func pick(action Action, edit, del Mutation) Mutation {
	if action == ActionDelete {
		return del
	}
	return edit
}
