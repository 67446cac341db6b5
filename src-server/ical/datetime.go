package ical

import (
	"time"

	"duocal/src-server/timeconv"

	"cloud.google.com/go/civil"
)

const (
	utcFormat   = "20060102T150405Z"
	localFormat = "20060102T150405"
	dateFormat  = "20060102"
)

// dateTimeProperty renders NAME:VALUE for an instant. Outside UTC the value is
// the wall clock in loc with a TZID parameter, so recurrences follow the
// viewer's wall clock across DST like the projection does.
func dateTimeProperty(name string, t time.Time, loc *time.Location) string {
	if loc == nil || loc == time.UTC {
		return name + ":" + t.UTC().Format(utcFormat)
	}
	return name + ";TZID=" + loc.String() + ":" + t.In(loc).Format(localFormat)
}

func dateProperty(name string, d civil.Date) string {
	return name + ";VALUE=DATE:" + d.In(time.UTC).Format(dateFormat)
}

// occurrenceProperty picks the date or date-time form for one occurrence
// boundary.
func occurrenceProperty(name string, t time.Time, allDay bool, loc *time.Location) string {
	if allDay {
		return dateProperty(name, timeconv.DateOf(t, loc))
	}
	return dateTimeProperty(name, t, loc)
}
