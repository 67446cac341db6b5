package route

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"duocal/src-server/occurrence"
	"duocal/src-server/timeconv"
	"duocal/src-server/utils"
)

type ViewerCtxKeyType string

const (
	ViewerLocationCtxKey ViewerCtxKeyType = "viewer-location"
	TimezoneHeaderName   string           = "X-Timezone"
)

// ViewerMiddleware resolves the viewer's timezone from the "tz" query
// parameter or the X-Timezone header, falling back to the configured zone,
// and stores it in the request context.
func ViewerMiddleware(as *utils.AppState, next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		timezone := func() string {
			if tz := strings.TrimSpace(r.URL.Query().Get("tz")); tz != "" {
				return tz
			}
			return strings.TrimSpace(r.Header.Get(TimezoneHeaderName))
		}()

		loc := as.Config.GetLocation()
		if timezone != "" {
			var err error
			if loc, err = timeconv.LoadLocation(timezone); err != nil {
				writeError(w, err)
				return
			}
		}

		ctx := context.WithValue(r.Context(), ViewerLocationCtxKey, loc)
		next(w, r.WithContext(ctx))
	}
}

func viewerLocation(r *http.Request) *time.Location {
	if loc, ok := r.Context().Value(ViewerLocationCtxKey).(*time.Location); ok && loc != nil {
		return loc
	}
	return time.UTC
}

// writeError maps domain errors to status codes and writes a plain text body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "Something went wrong"
	switch {
	case errors.Is(err, occurrence.ErrUnsupportedScope):
		status = http.StatusConflict
		msg = "This edit scope is not supported, choose this_only or all_events"
	case errors.Is(err, occurrence.ErrNotFound):
		status = http.StatusNotFound
		msg = "Event not found"
	case errors.Is(err, occurrence.ErrInvalidInstant),
		errors.Is(err, occurrence.ErrInvalidTimezone),
		errors.Is(err, occurrence.ErrInvalidRuleID),
		errors.Is(err, occurrence.ErrInvalidRule),
		errors.Is(err, occurrence.ErrAmbiguousInstanceID),
		errors.Is(err, occurrence.ErrMissingNominalDate),
		errors.Is(err, occurrence.ErrUnrecognizedInterval):
		status = http.StatusBadRequest
		msg = err.Error()
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(msg))
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
