// Package timeconv converts stored UTC instants to a viewer's wall clock and
// back. Every "which calendar day is this" decision in the planner goes
// through here, never through a fixed offset.
package timeconv

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/patrickmn/go-cache"
)

var (
	ErrInvalidInstant  = errors.New("invalid instant")
	ErrInvalidTimezone = errors.New("invalid timezone")
)

const (
	localMinuteLayout = "2006-01-02T15:04"
	localSecondLayout = "2006-01-02T15:04:05"
)

// loaded *time.Location values keyed by IANA name; locations are immutable
var locations = cache.New(cache.NoExpiration, 0)

// LocalDateTime is a wall-clock reading in some timezone, truncated to seconds.
type LocalDateTime struct {
	Date civil.Date `json:"date"`
	Time civil.Time `json:"time"`
}

// "YYYY-MM-DDTHH:MM:SS"
func (l LocalDateTime) String() string {
	return l.Date.String() + "T" + l.Time.String()
}

// Interpret the wall clock reading in loc and return the UTC instant.
func (l LocalDateTime) In(loc *time.Location) time.Time {
	return time.Date(
		l.Date.Year, l.Date.Month, l.Date.Day,
		l.Time.Hour, l.Time.Minute, l.Time.Second, 0,
		loc,
	).UTC()
}

// LoadLocation resolves an IANA name. The empty string is rejected instead of
// silently meaning UTC.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("LoadLocation: blank name: %w", ErrInvalidTimezone)
	}
	if v, ok := locations.Get(name); ok {
		return v.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("LoadLocation: %q: %w", name, ErrInvalidTimezone)
	}
	locations.Set(name, loc, cache.NoExpiration)
	return loc, nil
}

// ParseInstant parses an RFC 3339 timestamp and returns it in UTC.
func ParseInstant(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseInstant: %q: %w", s, ErrInvalidInstant)
	}
	return t.UTC(), nil
}

// LocalOf reads t on the wall clock of loc. Sub-second precision is dropped.
func LocalOf(t time.Time, loc *time.Location) LocalDateTime {
	lt := t.In(loc)
	ct := civil.TimeOf(lt)
	ct.Nanosecond = 0
	return LocalDateTime{Date: civil.DateOf(lt), Time: ct}
}

// DateOf returns the calendar day t falls on for a viewer in loc.
func DateOf(t time.Time, loc *time.Location) civil.Date {
	return civil.DateOf(t.In(loc))
}

// StartOfDay returns the first instant of d in loc, in UTC.
func StartOfDay(d civil.Date, loc *time.Location) time.Time {
	return d.In(loc).UTC()
}

// UTCToLocal converts a stored instant string to the viewer's wall clock.
func UTCToLocal(instant string, timezone string) (LocalDateTime, error) {
	t, err := ParseInstant(instant)
	if err != nil {
		return LocalDateTime{}, err
	}
	loc, err := LoadLocation(timezone)
	if err != nil {
		return LocalDateTime{}, err
	}
	return LocalOf(t, loc), nil
}

// LocalToUTC interprets "YYYY-MM-DDTHH:MM" (seconds optional) as wall clock
// time in timezone. Inside a DST fall-back hour the earlier instant wins, and
// inside a spring-forward gap the reading is pushed forward by the gap.
func LocalToUTC(local string, timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}
	local = strings.TrimSpace(local)
	layout := localMinuteLayout
	if len(local) == len(localSecondLayout) {
		layout = localSecondLayout
	}
	t, err := time.ParseInLocation(layout, local, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("LocalToUTC: %q: %w", local, ErrInvalidInstant)
	}
	return t.UTC(), nil
}
