package occurrence_test

import (
	"testing"
	"time"

	"duocal/src-server/occurrence"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func TestExcludeInstance_Idempotent(t *testing.T) {
	once := weeklyR1()
	assert.True(t, once.ExcludeInstance(date(2025, time.January, 13)))

	twice := weeklyR1()
	twice.ExcludeInstance(date(2025, time.January, 13))
	assert.False(t, twice.ExcludeInstance(date(2025, time.January, 13)))

	assert.Equal(t, once.ExcludedDates, twice.ExcludedDates)
}

func TestExcludeInstance_KeepsSorted(t *testing.T) {
	rule := weeklyR1()
	rule.ExcludeInstance(date(2025, time.March, 3))
	rule.ExcludeInstance(date(2025, time.January, 13))
	rule.ExcludeInstance(date(2025, time.February, 10))
	assert.Equal(t, []civil.Date{
		date(2025, time.January, 13),
		date(2025, time.February, 10),
		date(2025, time.March, 3),
	}, rule.ExcludedDates)
	assert.True(t, rule.IsExcluded(date(2025, time.February, 10)))
	assert.False(t, rule.IsExcluded(date(2025, time.February, 17)))
}

func TestUpdateSeries_LeavesExceptions(t *testing.T) {
	rule := weeklyR1()
	rule.ExcludeInstance(date(2025, time.January, 13))
	title := "Old title"
	rule.OverrideInstance(date(2025, time.January, 20), occurrence.Patch{Title: &title})

	newTitle := "Movie night"
	newStart := time.Date(2025, time.January, 6, 19, 0, 0, 0, time.UTC)
	monthly := occurrence.IntervalMonthly
	rule.UpdateSeries(occurrence.SeriesPatch{
		Patch:    occurrence.Patch{Title: &newTitle, Start: &newStart},
		Interval: &monthly,
	})

	assert.Equal(t, "Movie night", rule.Title)
	assert.Equal(t, newStart, rule.Start)
	assert.Equal(t, time.Hour, rule.Duration())
	assert.Equal(t, occurrence.IntervalMonthly, rule.Interval)
	assert.Len(t, rule.ExcludedDates, 1)
	assert.Len(t, rule.Overrides, 1)
}

func TestUpdateSeries_SeriesEnd(t *testing.T) {
	rule := weeklyR1()
	end := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	rule.UpdateSeries(occurrence.SeriesPatch{SeriesEnd: &end})
	if assert.NotNil(t, rule.SeriesEnd) {
		assert.Equal(t, end, *rule.SeriesEnd)
	}
	rule.UpdateSeries(occurrence.SeriesPatch{ClearSeriesEnd: true, SeriesEnd: &end})
	assert.Nil(t, rule.SeriesEnd)
}

func TestClone(t *testing.T) {
	rule := weeklyR1()
	rule.Participants = []string{"ana", "ben"}
	c := rule.Clone()
	c.ExcludeInstance(date(2025, time.January, 13))
	c.OverrideInstance(date(2025, time.January, 20), occurrence.Patch{})
	c.Participants[0] = "zoe"

	assert.Empty(t, rule.ExcludedDates)
	assert.Empty(t, rule.Overrides)
	assert.Equal(t, "ana", rule.Participants[0])
}
