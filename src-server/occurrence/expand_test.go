package occurrence_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"duocal/src-server/occurrence"
	"duocal/src-server/timeconv"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

func weeklyR1() occurrence.Rule {
	start := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)
	return occurrence.Rule{
		ID:       "R1",
		CoupleID: "C1",
		Title:    "Date night",
		Location: "Home",
		Start:    start,
		End:      start.Add(time.Hour),
		Interval: occurrence.IntervalWeekly,
	}
}

func ids(instances []occurrence.Instance) []string {
	out := make([]string, len(instances))
	for i, inst := range instances {
		out[i] = inst.ID.String()
	}
	return out
}

func find(instances []occurrence.Instance, id string) (occurrence.Instance, bool) {
	for _, inst := range instances {
		if inst.ID.String() == id {
			return inst, true
		}
	}
	return occurrence.Instance{}, false
}

func TestExpand_WeeklyScenario(t *testing.T) {
	got, err := occurrence.Expand(weeklyR1(), time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)

	// Mondays from 2025-01-06 through 2025-06-30; 2025-07-07 is past the horizon
	require.Len(t, got, 26)
	assert.Equal(t, []string{"R1", "R1-2025-01-13", "R1-2025-01-20"}, ids(got[:3]))
	assert.Equal(t, "R1-2025-06-30", got[25].ID.String())

	for i, inst := range got {
		assert.Equal(t, inst.Start.Add(time.Hour), inst.End)
		assert.Equal(t, "Date night", inst.Title)
		assert.True(t, inst.Recurring)
		if i > 0 {
			assert.Equal(t, 7, inst.NominalDate.DaysSince(got[i-1].NominalDate))
		}
	}
}

func TestExpand_MatchesRRule(t *testing.T) {
	rule := weeklyR1()
	got, err := occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: rule.Start,
		Until:   time.Date(2025, time.July, 6, 23, 59, 59, 0, time.UTC),
	})
	require.NoError(t, err)
	want := r.All()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i].Start), "index %d: %s vs %s", i, want[i], got[i].Start)
	}
}

func TestExpand_ExclusionRemovesOneID(t *testing.T) {
	rule := weeklyR1()
	rule.ExcludeInstance(date(2025, time.January, 13))

	got, err := occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)
	require.Len(t, got, 25)
	_, found := find(got, "R1-2025-01-13")
	assert.False(t, found)
	_, found = find(got, "R1-2025-01-20")
	assert.True(t, found)
	assert.Equal(t, "R1", got[0].ID.String())
}

func TestExpand_ExcludedFirstOccurrence(t *testing.T) {
	rule := weeklyR1()
	rule.ExcludeInstance(date(2025, time.January, 6))

	got, err := occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	// the second occurrence keeps its dated id even though it is shown first
	assert.Equal(t, "R1-2025-01-13", got[0].ID.String())
	_, found := find(got, "R1")
	assert.False(t, found)
}

func TestExpand_OverrideReschedulesWithoutMovingNominalDate(t *testing.T) {
	rule := weeklyR1()
	newStart := time.Date(2025, time.January, 21, 9, 0, 0, 0, time.UTC)
	rule.OverrideInstance(date(2025, time.January, 20), occurrence.Patch{Start: &newStart})

	got, err := occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)
	inst, found := find(got, "R1-2025-01-20")
	require.True(t, found)
	assert.Equal(t, date(2025, time.January, 20), inst.NominalDate)
	assert.Equal(t, newStart, inst.Start)
	assert.Equal(t, newStart.Add(time.Hour), inst.End)
	assert.True(t, inst.Overridden)
	assert.Len(t, got, 26)
}

func TestExpand_OverrideOntoNextDayDoesNotMerge(t *testing.T) {
	start := time.Date(2025, time.May, 1, 18, 0, 0, 0, time.UTC)
	rule := occurrence.Rule{
		ID: "walk", Title: "Walk",
		Start: start, End: start.Add(30 * time.Minute),
		Interval: occurrence.IntervalDaily,
	}
	before, err := occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)

	moved := time.Date(2025, time.May, 3, 18, 0, 0, 0, time.UTC)
	rule.OverrideInstance(date(2025, time.May, 2), occurrence.Patch{Start: &moved})
	after, err := occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)

	require.Len(t, after, len(before))
	a, _ := find(after, "walk-2025-05-02")
	b, _ := find(after, "walk-2025-05-03")
	assert.Equal(t, date(2025, time.May, 2), a.NominalDate)
	assert.Equal(t, date(2025, time.May, 3), b.NominalDate)
	assert.Equal(t, moved, a.Start)
	assert.Equal(t, moved, b.Start)
	assert.False(t, b.Overridden)
}

func TestExpand_OverrideReplacesWholePatch(t *testing.T) {
	rule := weeklyR1()
	d := date(2025, time.January, 27)
	a, b := "A", "B"
	rule.OverrideInstance(d, occurrence.Patch{Title: &a})
	rule.OverrideInstance(d, occurrence.Patch{Location: &b})

	got, err := occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)
	inst, found := find(got, "R1-2025-01-27")
	require.True(t, found)
	assert.Equal(t, "B", inst.Location)
	assert.Equal(t, "Date night", inst.Title)
}

func TestExpand_CountCap(t *testing.T) {
	start := time.Date(2015, time.January, 1, 9, 0, 0, 0, time.UTC)
	rule := occurrence.Rule{
		ID: "old", Title: "Vitamins",
		Start: start, End: start.Add(5 * time.Minute),
		Interval: occurrence.IntervalDaily,
	}
	got, err := occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)
	require.Len(t, got, 100)
	assert.Equal(t, date(2015, time.April, 10), got[99].NominalDate)

	far := time.Date(2035, time.January, 1, 0, 0, 0, 0, time.UTC)
	rule.SeriesEnd = &far
	got, err = occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)
	assert.Len(t, got, 100)

	got, err = occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{MaxOccurrences: 10})
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestExpand_SeriesEndInclusive(t *testing.T) {
	rule := weeklyR1()
	end := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)
	rule.SeriesEnd = &end

	got, err := occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R1-2025-01-13", "R1-2025-01-20"}, ids(got))
}

func TestExpand_MonthlyClampsWithoutDrift(t *testing.T) {
	start := time.Date(2025, time.January, 31, 12, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC)
	rule := occurrence.Rule{
		ID: "rent", Title: "Rent",
		Start: start, End: start.Add(time.Hour),
		Interval: occurrence.IntervalMonthly, SeriesEnd: &end,
	}
	got, err := occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)
	var nominal []civil.Date
	for _, inst := range got {
		nominal = append(nominal, inst.NominalDate)
	}
	assert.Equal(t, []civil.Date{
		date(2025, time.January, 31),
		date(2025, time.February, 28),
		date(2025, time.March, 31),
		date(2025, time.April, 30),
		date(2025, time.May, 31),
	}, nominal)
}

func TestExpand_YearlyLeapDay(t *testing.T) {
	start := time.Date(2024, time.February, 29, 8, 0, 0, 0, time.UTC)
	end := time.Date(2028, time.December, 31, 0, 0, 0, 0, time.UTC)
	rule := occurrence.Rule{
		ID: "anniv", Title: "Anniversary",
		Start: start, End: start.Add(time.Hour),
		Interval: occurrence.IntervalYearly, SeriesEnd: &end,
	}
	got, err := occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"anniv", "anniv-2025-02-28", "anniv-2026-02-28", "anniv-2027-02-28", "anniv-2028-02-29"}, ids(got))
}

func TestExpand_ViewerDayBoundary(t *testing.T) {
	start := time.Date(2025, time.January, 6, 20, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.January, 9, 23, 0, 0, 0, time.UTC)
	rule := occurrence.Rule{
		ID: "call", Title: "Call",
		Start: start, End: start.Add(time.Hour),
		Interval: occurrence.IntervalDaily, SeriesEnd: &end,
	}
	shanghai, err := timeconv.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	got, err := occurrence.Expand(rule, shanghai, occurrence.ExpandOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"call", "call-2025-01-08", "call-2025-01-09", "call-2025-01-10"}, ids(got))
	assert.Equal(t, date(2025, time.January, 7), got[0].NominalDate)
}

func TestExpand_KeepsWallClockAcrossDST(t *testing.T) {
	ny, err := timeconv.LoadLocation("America/New_York")
	require.NoError(t, err)
	start := time.Date(2025, time.March, 3, 14, 0, 0, 0, time.UTC) // 09:00 EST
	end := time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC)
	rule := occurrence.Rule{
		ID: "gym", Title: "Gym",
		Start: start, End: start.Add(time.Hour),
		Interval: occurrence.IntervalWeekly, SeriesEnd: &end,
	}
	got, err := occurrence.Expand(rule, ny, occurrence.ExpandOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2025, time.March, 10, 13, 0, 0, 0, time.UTC), got[1].Start)
	assert.Equal(t, "09:00:00", timeconv.LocalOf(got[1].Start, ny).Time.String())
}

func TestExpand_NonRecurring(t *testing.T) {
	start := time.Date(2025, time.February, 14, 19, 0, 0, 0, time.UTC)
	rule := occurrence.Rule{
		ID: "dinner", Title: "Dinner",
		Start: start, End: start.Add(2 * time.Hour),
		Interval: occurrence.IntervalNone,
	}
	got, err := occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dinner", got[0].ID.String())
	assert.Equal(t, date(2025, time.February, 14), got[0].NominalDate)
	assert.False(t, got[0].Recurring)
	assert.Equal(t, start.Add(2*time.Hour), got[0].End)
}

func TestExpand_UnknownIntervalTruncates(t *testing.T) {
	rule := weeklyR1()
	rule.Interval = occurrence.Interval("fortnightly")

	got, err := occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"R1"}, ids(got))
}

func TestExpand_AllDay(t *testing.T) {
	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	rule := occurrence.Rule{
		ID: "trash", Title: "Trash day",
		Start: start, End: start.Add(time.Minute), AllDay: true,
		Interval: occurrence.IntervalDaily, SeriesEnd: &end,
	}
	got, err := occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, inst := range got {
		assert.True(t, inst.AllDay)
		assert.Equal(t, 24*time.Hour, inst.End.Sub(inst.Start))
		assert.Equal(t, timeconv.StartOfDay(inst.NominalDate, time.UTC), inst.Start)
	}
}

func TestExpand_InvalidInput(t *testing.T) {
	rule := weeklyR1()
	_, err := occurrence.Expand(rule, nil, occurrence.ExpandOptions{})
	assert.ErrorIs(t, err, occurrence.ErrInvalidTimezone)

	rule.End = rule.Start.Add(-time.Hour)
	_, err = occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	assert.ErrorIs(t, err, occurrence.ErrInvalidInstant)

	rule = weeklyR1()
	rule.Start = time.Time{}
	_, err = occurrence.Expand(rule, time.UTC, occurrence.ExpandOptions{})
	assert.ErrorIs(t, err, occurrence.ErrInvalidInstant)
}

func TestNominalStart(t *testing.T) {
	ny, err := timeconv.LoadLocation("America/New_York")
	require.NoError(t, err)
	rule := occurrence.Rule{Start: time.Date(2025, time.March, 3, 14, 0, 0, 0, time.UTC)}
	assert.Equal(t, time.Date(2025, time.March, 10, 13, 0, 0, 0, time.UTC),
		occurrence.NominalStart(rule, date(2025, time.March, 10), ny))
}
