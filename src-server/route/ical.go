package route

import (
	"io"
	"log/slog"
	"net/http"

	"duocal/src-server/ical"
	"duocal/src-server/planner"
	"duocal/src-server/utils"
)

func Ical(muxer *http.ServeMux, as *utils.AppState, p *planner.Planner) {
	muxer.HandleFunc("GET /ical/{couple_id}", ViewerMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			coupleID := r.PathValue("couple_id")

			rules, err := p.Rules(r.Context(), coupleID)
			if err != nil {
				writeError(w, err)
				return
			}

			icalCalendar := ical.NewCalendar(coupleID, as.Clock.Now(), as.Config.GetExpandOptions())
			icalCalendar.AddRule(rules...)
			output, err := icalCalendar.ToIcal(viewerLocation(r))
			if err != nil {
				writeError(w, err)
				return
			}

			// write the ical calendar
			w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			if _, err := io.WriteString(w, output); err != nil {
				slog.Warn("can't write to response", "where", "route/ical.go", "err", err)
			}
		}))
}
