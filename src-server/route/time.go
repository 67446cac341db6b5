package route

import (
	"encoding/json"
	"net/http"
	"time"

	"duocal/src-server/timeconv"
	"duocal/src-server/utils"
)

// Time exposes the viewer-side conversions so clients render and submit wall
// clock times exactly the way the projector computes day boundaries.
func Time(muxer *http.ServeMux, as *utils.AppState) {
	type LocalRespBody struct {
		Date     string `json:"date"`
		Time     string `json:"time"`
		Timezone string `json:"timezone"`
	}

	// ?instant=RFC3339&tz=IANA
	muxer.HandleFunc("GET /time/local", ViewerMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			loc := viewerLocation(r)
			local, err := timeconv.UTCToLocal(r.URL.Query().Get("instant"), loc.String())
			if err != nil {
				writeError(w, err)
				return
			}
			respBodyJson, err := json.Marshal(LocalRespBody{
				Date:     local.Date.String(),
				Time:     local.Time.String(),
				Timezone: loc.String(),
			})
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, respBodyJson)
		}))

	type UTCRespBody struct {
		Instant string `json:"instant"`
	}

	// ?local=YYYY-MM-DDTHH:MM[:SS]&tz=IANA
	muxer.HandleFunc("GET /time/utc", ViewerMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			instant, err := timeconv.LocalToUTC(r.URL.Query().Get("local"), viewerLocation(r).String())
			if err != nil {
				writeError(w, err)
				return
			}
			respBodyJson, err := json.Marshal(UTCRespBody{Instant: instant.Format(time.RFC3339)})
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, respBodyJson)
		}))
}
